package engine

import (
	"encoding/json"
	"math"
)

const (
	// partlyCloudyFactor is the functional-light estimate under broken
	// cloud, as a fraction of clear-sky baseline hours.
	partlyCloudyFactor = 0.60

	// overcastFloorFactor is the diffuse-irradiance floor: even full
	// overcast yields roughly a fifth of clear-sky output.
	overcastFloorFactor = 0.20

	// maxAutonomyDays is the ceiling beyond which a finite runway is
	// reported as unbounded instead of an absurd number.
	maxAutonomyDays = 9999.0
)

// AutonomyResult is the projected runway under a scenario's deficit. Days
// and Hours are +Inf when the scenario's net is non-negative or the runway
// exceeds the sanity ceiling; Unbounded reports that case.
type AutonomyResult struct {
	Scenario Scenario
	Days     float64
	Hours    float64
	NetWh    float64
}

// Unbounded reports whether the runway is not meaningfully finite
func (r AutonomyResult) Unbounded() bool {
	return math.IsInf(r.Days, 1)
}

// MarshalJSON renders the infinity sentinel as null days/hours plus an
// unbounded flag, since JSON has no representation for IEEE infinities.
func (r AutonomyResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Scenario  Scenario `json:"scenario"`
		Days      *float64 `json:"days"`
		Hours     *float64 `json:"hours"`
		NetWh     float64  `json:"netWh"`
		Unbounded bool     `json:"unbounded"`
	}{Scenario: r.Scenario, NetWh: r.NetWh, Unbounded: r.Unbounded()}
	if !out.Unbounded {
		out.Days = &r.Days
		out.Hours = &r.Hours
	}
	return json.Marshal(out)
}

// ProjectAutonomy computes days and hours of runway under one scenario.
// Consumption is identical to Totals in every scenario; generation follows
// the scenario's assumption per source. A non-negative net day is always
// unbounded, never a finite runway. currentSoC, when non-nil, overrides the
// battery's initial state of charge as the depletion basis for the current
// scenario; peak, cloud and zero deplete from a full bank because they model
// theoretical buffer capacity rather than today's trajectory.
func ProjectAutonomy(loads []LoadItem, sources []GenerationSource, battery BatteryConfig, scenario Scenario, currentSoC *float64) AutonomyResult {
	voltage := finiteOrZero(battery.Voltage)

	var consumedWh float64
	for _, item := range loads {
		if !item.Enabled {
			continue
		}
		consumedWh += EnergyForItem(item, voltage).Wh
	}

	var generatedWh float64
	if scenario != ScenarioZero {
		for _, src := range sources {
			if !src.Enabled {
				continue
			}
			generatedWh += sourceDailyWh(src, scenarioHours(src, battery, scenario))
		}
	}

	netWh := finiteOrZero(generatedWh - consumedWh)
	result := AutonomyResult{Scenario: scenario, NetWh: netWh}
	if netWh >= 0 {
		result.Days = math.Inf(1)
		result.Hours = math.Inf(1)
		return result
	}

	dailyDeficitWh := -netWh

	basisSoC := 100.0
	if scenario == ScenarioCurrent {
		basisSoC = finiteOrZero(battery.InitialSoC)
		if currentSoC != nil {
			basisSoC = finiteOrZero(*currentSoC)
		}
	}

	remainingWh := battery.CapacityWh() * basisSoC / 100
	days := remainingWh / dailyDeficitWh
	if math.IsNaN(days) || math.IsInf(days, 0) || days > maxAutonomyDays {
		result.Days = math.Inf(1)
		result.Hours = math.Inf(1)
		return result
	}

	result.Days = days
	result.Hours = days * 24
	return result
}

// ProjectAllScenarios runs every scenario against the same snapshot
func ProjectAllScenarios(loads []LoadItem, sources []GenerationSource, battery BatteryConfig, currentSoC *float64) []AutonomyResult {
	results := make([]AutonomyResult, 0, len(Scenarios()))
	for _, scenario := range Scenarios() {
		results = append(results, ProjectAutonomy(loads, sources, battery, scenario, currentSoC))
	}
	return results
}

// scenarioHours picks the generation hours for one source under a scenario.
// Non-solar sources always use their manual hours.
func scenarioHours(src GenerationSource, battery BatteryConfig, scenario Scenario) float64 {
	if src.Type != SourceSolar {
		return EffectiveHours(src, battery)
	}
	switch scenario {
	case ScenarioPeak:
		return baselineSolarHours(src, battery)
	case ScenarioCloud:
		return cloudSolarHours(src, battery)
	default:
		return EffectiveHours(src, battery)
	}
}

// baselineSolarHours is the best-case full-sun figure for a solar source:
// forecast sunny hours when usable, else the normalized auto reading, else a
// positive manual value, else the default. It is deliberately unclamped by
// current conditions.
func baselineSolarHours(src GenerationSource, battery BatteryConfig) float64 {
	if f := battery.Forecast; f != nil && f.Fetched && !f.Loading {
		if v := usableHours(f.SunnyHours); v != nil {
			return *v
		}
		if src.AutoSolar {
			if reading := NormalizeSolarHours(battery); reading.Status == SolarHoursOK {
				return *reading.Value
			}
		}
	}
	if manual := finiteOrZero(src.HoursPerDay); manual > 0 {
		return manual
	}
	return DefaultSolarHours
}

// cloudSolarHours models functional light under cloud cover: the best of the
// forecast's cloudy-day figure (monthAvg mode only), a partly-cloudy
// fraction of baseline, and the diffuse-irradiance floor. Taking the maximum
// avoids needlessly pessimistic projections without ever dropping below the
// physical floor.
func cloudSolarHours(src GenerationSource, battery BatteryConfig) float64 {
	baseline := baselineSolarHours(src, battery)

	forecastHours := 0.0
	if f := battery.Forecast; f != nil && f.Fetched && !f.Loading && f.Mode == ForecastMonthAvg {
		if v := usableHours(f.CloudyHours); v != nil {
			forecastHours = *v
		}
	}

	return math.Max(forecastHours, math.Max(baseline*partlyCloudyFactor, baseline*overcastFloorFactor))
}
