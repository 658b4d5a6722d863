package engine

// Totals sums all enabled loads and sources into the daily energy balance
// and projects the end-of-day state of charge. The SoC projection is a
// plain watt-hour ledger clamped to the bank's capacity; it models a battery
// that cannot exceed 100% or drop below 0% within one accounting day, not a
// discharge curve.
func Totals(loads []LoadItem, sources []GenerationSource, battery BatteryConfig) SystemTotals {
	voltage := finiteOrZero(battery.Voltage)

	var consumedWh float64
	for _, item := range loads {
		if !item.Enabled {
			continue
		}
		consumedWh += EnergyForItem(item, voltage).Wh
	}

	var generatedWh float64
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		generatedWh += sourceDailyWh(src, EffectiveHours(src, battery))
	}

	netWh := generatedWh - consumedWh

	capacityWh := battery.CapacityWh()
	startWh := finiteOrZero(battery.InitialSoC) / 100 * capacityWh
	endWh := clamp(startWh+netWh, 0, capacityWh)
	finalSoC := 0.0
	if capacityWh > 0 {
		finalSoC = endWh / capacityWh * 100
	}

	totals := SystemTotals{
		ConsumedWh:  finiteOrZero(consumedWh),
		GeneratedWh: finiteOrZero(generatedWh),
		NetWh:       finiteOrZero(netWh),
		FinalSoC:    finiteOrZero(finalSoC),
	}
	if voltage > 0 {
		totals.ConsumedAh = finiteOrZero(consumedWh / voltage)
		totals.GeneratedAh = finiteOrZero(generatedWh / voltage)
		totals.NetAh = finiteOrZero(netWh / voltage)
	}
	return totals
}

// sourceDailyWh is the daily contribution of one generation source at the
// given hours. Source input is watt-denominated, so no voltage multiplier
// applies.
func sourceDailyWh(src GenerationSource, hours float64) float64 {
	wh := finiteOrZero(src.InputWatts) * finiteOrZero(hours) * finiteOrZero(src.Efficiency) * quantityOf(src.Quantity)
	return finiteOrZero(wh)
}
