package engine

// InverterCapacityW is the rated capacity of the reference inverter that
// the efficiency curve is banded against.
const InverterCapacityW = 2000.0

// InverterEfficiency returns the DC-to-AC conversion efficiency fraction for
// a per-unit AC wattage. The bands reflect measured inverter behaviour: poor
// efficiency at light load, a broad peak through mid-load, and a small dip
// near full load. Non-positive wattage means no conversion occurs and the
// result is 1, which also keeps downstream division safe.
func InverterEfficiency(watts float64) float64 {
	w := finiteOrZero(watts)
	if w <= 0 {
		return 1
	}

	ratio := w / InverterCapacityW
	switch {
	case ratio < 0.05:
		return 0.75
	case ratio < 0.15:
		return 0.85
	case ratio < 0.40:
		return 0.90
	case ratio < 0.80:
		return 0.94
	default:
		return 0.91
	}
}
