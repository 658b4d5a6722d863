package engine

import "math"

// SolarHoursStatus classifies the usability of an irradiance reading
type SolarHoursStatus string

const (
	SolarHoursOK      SolarHoursStatus = "ok"      // Value carries a genuine reading (0 included)
	SolarHoursLoading SolarHoursStatus = "loading" // Fetch in flight or never completed
	SolarHoursNoData  SolarHoursStatus = "nodata"  // No forecast, or the selected field is absent
	SolarHoursInvalid SolarHoursStatus = "invalid" // Present but non-finite or outside the sanity bound
)

const (
	// DefaultSolarHours is the fallback peak-sun-hours figure used when no
	// usable forecast or manual value exists.
	DefaultSolarHours = 4.0

	// MaxPlausibleSolarHours bounds plausible daily peak-sun-hour
	// equivalents; anything beyond it is a corrupt reading, not a sunny day.
	MaxPlausibleSolarHours = 15.0
)

// SolarHoursReading is the normalizer's output. Value is non-nil only when
// Status is SolarHoursOK; consumers must branch on Status, never on Value.
type SolarHoursReading struct {
	Status   SolarHoursStatus `json:"status"`
	Value    *float64         `json:"value"`
	Fallback float64          `json:"fallbackValue"`
}

// NormalizeSolarHours validates the battery config's irradiance forecast
// into a four-state reading. The states exist to keep "no data yet",
// "invalid data" and "a genuine zero reading" distinct: a missing field must
// never be read as zero sun, and a half-finished fetch must never be read at
// all. Historically both mistakes produced wildly wrong autonomy figures.
func NormalizeSolarHours(battery BatteryConfig) SolarHoursReading {
	reading := SolarHoursReading{Fallback: DefaultSolarHours}

	forecast := battery.Forecast
	if forecast == nil {
		reading.Status = SolarHoursNoData
		return reading
	}

	// Masks transient fetch state so a half-updated forecast is never read,
	// regardless of what its numeric fields currently hold.
	if forecast.Loading || !forecast.Fetched {
		reading.Status = SolarHoursLoading
		return reading
	}

	raw := forecast.SunnyHours
	if forecast.Mode == ForecastNow {
		raw = forecast.NowHours
	}
	if raw == nil {
		reading.Status = SolarHoursNoData
		return reading
	}

	v := *raw
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > MaxPlausibleSolarHours {
		reading.Status = SolarHoursInvalid
		return reading
	}

	reading.Status = SolarHoursOK
	reading.Value = &v
	return reading
}

// usableHours filters a raw forecast field down to a finite in-range value,
// or nil when the field is absent or implausible
func usableHours(raw *float64) *float64 {
	if raw == nil {
		return nil
	}
	v := *raw
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > MaxPlausibleSolarHours {
		return nil
	}
	return &v
}
