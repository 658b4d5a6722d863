package engine

// EffectiveHours resolves the generation hours a source contributes today.
// Non-solar sources use their manual hours as-is. Solar sources without the
// auto flag use manual hours, except that an exact manual 0 is treated as
// "unset" and falls back to DefaultSolarHours. Auto-solar sources consult
// the normalizer: an OK reading wins outright (0.0 is genuine darkness),
// otherwise a positive manual value, otherwise the fallback.
func EffectiveHours(src GenerationSource, battery BatteryConfig) float64 {
	manual := finiteOrZero(src.HoursPerDay)
	if manual < 0 {
		manual = 0
	}

	if src.Type != SourceSolar {
		return manual
	}

	if !src.AutoSolar {
		if manual == 0 {
			return DefaultSolarHours
		}
		return manual
	}

	reading := NormalizeSolarHours(battery)
	if reading.Status == SolarHoursOK {
		return *reading.Value
	}
	if manual > 0 {
		return manual
	}
	return reading.Fallback
}
