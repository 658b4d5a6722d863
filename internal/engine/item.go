package engine

// ItemEnergy is the daily energy use of one load
type ItemEnergy struct {
	Wh         float64 `json:"wh"`
	Ah         float64 `json:"ah"`
	Efficiency float64 `json:"efficiencyUsed"`
}

// EnergyForItem converts one load's configuration into daily watt-hours and
// amp-hours at the given bus voltage. AC loads are grossed up by the inverter
// efficiency for their wattage; DC and system loads draw their rated watts
// directly. Any non-finite intermediate collapses to 0 in the output.
func EnergyForItem(item LoadItem, voltage float64) ItemEnergy {
	watts := finiteOrZero(item.Watts)
	hours := finiteOrZero(item.HoursPerDay)
	duty := finiteOrZero(item.DutyCyclePct) / 100
	qty := quantityOf(item.Quantity)

	efficiency := 1.0
	totalWatts := watts
	if item.Category == LoadAC {
		efficiency = InverterEfficiency(watts)
		totalWatts = watts / efficiency
	}

	wh := totalWatts * hours * duty * qty
	ah := wh / finiteOrZero(voltage)

	return ItemEnergy{
		Wh:         finiteOrZero(wh),
		Ah:         finiteOrZero(ah),
		Efficiency: efficiency,
	}
}
