package engine

import (
	"time"

	"github.com/google/uuid"
)

// LoadCategory defines how a load draws power from the system
type LoadCategory string

const (
	LoadDC     LoadCategory = "dc"     // Wired directly to the DC bus
	LoadAC     LoadCategory = "ac"     // Runs through the inverter
	LoadSystem LoadCategory = "system" // Management overhead (controllers, monitors)
)

// Valid reports whether the category is one of the known values
func (c LoadCategory) Valid() bool {
	switch c {
	case LoadDC, LoadAC, LoadSystem:
		return true
	}
	return false
}

// SourceType defines the kind of generation source
type SourceType string

const (
	SourceSolar      SourceType = "solar"
	SourceAlternator SourceType = "alternator"
	SourceGenerator  SourceType = "generator"
	SourceMPPT       SourceType = "mppt"
	SourceCharger    SourceType = "charger"
	SourceWind       SourceType = "wind"
	SourceOther      SourceType = "other"
)

// Valid reports whether the source type is one of the known values
func (t SourceType) Valid() bool {
	switch t {
	case SourceSolar, SourceAlternator, SourceGenerator, SourceMPPT, SourceCharger, SourceWind, SourceOther:
		return true
	}
	return false
}

// ForecastMode selects which irradiance figure a forecast is read for
type ForecastMode string

const (
	ForecastNow      ForecastMode = "now"      // Today's expected peak sun hours
	ForecastMonthAvg ForecastMode = "monthAvg" // Climatological average for a target month
)

// Valid reports whether the mode is one of the known values
func (m ForecastMode) Valid() bool {
	return m == ForecastNow || m == ForecastMonthAvg
}

// Scenario selects the generation assumption for an autonomy projection
type Scenario string

const (
	ScenarioCurrent Scenario = "current" // Realistic, uses resolved hours per source
	ScenarioPeak    Scenario = "peak"    // Best-case full sun
	ScenarioCloud   Scenario = "cloud"   // Functional light under cloud cover
	ScenarioZero    Scenario = "zero"    // Total generation loss
)

// Valid reports whether the scenario is one of the known values
func (s Scenario) Valid() bool {
	switch s {
	case ScenarioCurrent, ScenarioPeak, ScenarioCloud, ScenarioZero:
		return true
	}
	return false
}

// Scenarios lists all autonomy scenarios in display order
func Scenarios() []Scenario {
	return []Scenario{ScenarioCurrent, ScenarioPeak, ScenarioCloud, ScenarioZero}
}

// LoadItem represents one electrical load in the system
type LoadItem struct {
	ID           uuid.UUID    `json:"id"`
	Category     LoadCategory `json:"category"`
	Name         string       `json:"name"`
	Quantity     float64      `json:"quantity"`
	Watts        float64      `json:"watts"`
	HoursPerDay  float64      `json:"hoursPerDay"`
	DutyCyclePct float64      `json:"dutyCyclePct"`
	Enabled      bool         `json:"enabled"`
	Notes        string       `json:"notes,omitempty"`
}

// GenerationSource represents one charging source. InputWatts is always
// watt-denominated; amps are never accepted as a source input unit.
type GenerationSource struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Quantity    float64    `json:"quantity"`
	InputWatts  float64    `json:"inputWatts"`
	HoursPerDay float64    `json:"hoursPerDay"`
	Efficiency  float64    `json:"efficiency"`
	Type        SourceType `json:"type"`
	AutoSolar   bool       `json:"autoSolar"`
	Enabled     bool       `json:"enabled"`
}

// IrradianceForecast holds externally fetched solar data. It is populated
// asynchronously by the fetch collaborator and read-only from the engine's
// perspective. A value is only usable when Fetched && !Loading; the optional
// fields stay nil until then so absence can never be mistaken for zero.
type IrradianceForecast struct {
	Mode        ForecastMode `json:"mode"`
	Loading     bool         `json:"loading"`
	Fetched     bool         `json:"fetched"`
	NowHours    *float64     `json:"nowHours,omitempty"`
	SunnyHours  *float64     `json:"sunnyHours,omitempty"`
	CloudyHours *float64     `json:"cloudyHours,omitempty"`
	FetchedAt   time.Time    `json:"fetchedAt,omitzero"`
	Err         string       `json:"error,omitempty"`
}

// BatteryConfig describes the battery bank and its forecast settings
type BatteryConfig struct {
	CapacityAh  float64             `json:"capacityAh"`
	Voltage     float64             `json:"voltage"`
	InitialSoC  float64             `json:"initialSoC"`
	TargetMonth time.Month          `json:"targetMonth,omitempty"`
	Forecast    *IrradianceForecast `json:"forecast,omitempty"`
}

// CapacityWh is the bank's rated capacity in watt-hours
func (b BatteryConfig) CapacityWh() float64 {
	return finiteOrZero(b.CapacityAh) * finiteOrZero(b.Voltage)
}

// SystemTotals is the derived daily energy balance. It is recomputed from
// its inputs on every call and never stored.
type SystemTotals struct {
	ConsumedWh  float64 `json:"consumedWh"`
	ConsumedAh  float64 `json:"consumedAh"`
	GeneratedWh float64 `json:"generatedWh"`
	GeneratedAh float64 `json:"generatedAh"`
	NetWh       float64 `json:"netWh"`
	NetAh       float64 `json:"netAh"`
	FinalSoC    float64 `json:"finalSoC"`
}
