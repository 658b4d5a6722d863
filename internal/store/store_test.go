package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m0rg5/SolSum-1.9/internal/document"
	"github.com/m0rg5/SolSum-1.9/internal/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "solsum.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	l := engine.LoadItem{
		ID:           uuid.New(),
		Category:     engine.LoadAC,
		Name:         "Microwave",
		Quantity:     1,
		Watts:        1500,
		HoursPerDay:  0.5,
		DutyCyclePct: 100,
		Enabled:      true,
		Notes:        "galley",
	}
	require.NoError(t, s.SaveLoad(&l))

	got, err := s.GetLoad(l.ID.String())
	require.NoError(t, err)
	assert.Equal(t, l, got)

	loads, err := s.GetLoads()
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, l, loads[0])
}

func TestSaveLoadUpserts(t *testing.T) {
	s := newTestStore(t)

	l := engine.LoadItem{ID: uuid.New(), Category: engine.LoadDC, Name: "Fridge", Quantity: 1, Watts: 50, HoursPerDay: 24, DutyCyclePct: 33, Enabled: true}
	require.NoError(t, s.SaveLoad(&l))

	l.Watts = 45
	l.Enabled = false
	require.NoError(t, s.SaveLoad(&l))

	got, err := s.GetLoad(l.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 45.0, got.Watts)
	assert.False(t, got.Enabled)

	loads, err := s.GetLoads()
	require.NoError(t, err)
	assert.Len(t, loads, 1)
}

func TestDeleteLoad(t *testing.T) {
	s := newTestStore(t)

	l := engine.LoadItem{ID: uuid.New(), Category: engine.LoadDC, Name: "Lights", Quantity: 4, Watts: 10, HoursPerDay: 5, DutyCyclePct: 100, Enabled: true}
	require.NoError(t, s.SaveLoad(&l))
	require.NoError(t, s.DeleteLoad(l.ID.String()))

	loads, err := s.GetLoads()
	require.NoError(t, err)
	assert.Empty(t, loads)
}

func TestSourceRoundTrip(t *testing.T) {
	s := newTestStore(t)

	src := engine.GenerationSource{
		ID:          uuid.New(),
		Name:        "Roof panels",
		Quantity:    2,
		InputWatts:  200,
		HoursPerDay: 5,
		Efficiency:  0.85,
		Type:        engine.SourceSolar,
		AutoSolar:   true,
		Enabled:     true,
	}
	require.NoError(t, s.SaveSource(&src))

	got, err := s.GetSource(src.ID.String())
	require.NoError(t, err)
	assert.Equal(t, src, got)

	require.NoError(t, s.DeleteSource(src.ID.String()))
	sources, err := s.GetSources()
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestBatteryDefaultsWhenUnset(t *testing.T) {
	s := newTestStore(t)

	b, err := s.GetBattery()
	require.NoError(t, err)
	assert.Equal(t, 12.0, b.Voltage)
	assert.Equal(t, 100.0, b.InitialSoC)
	assert.Nil(t, b.Forecast)
}

func TestBatteryRoundTripWithForecast(t *testing.T) {
	s := newTestStore(t)

	hours := 5.2
	b := engine.BatteryConfig{
		CapacityAh:  280,
		Voltage:     24,
		InitialSoC:  80,
		TargetMonth: 7,
		Forecast: &engine.IrradianceForecast{
			Mode:     engine.ForecastNow,
			Fetched:  true,
			NowHours: &hours,
		},
	}
	require.NoError(t, s.SaveBattery(b))

	got, err := s.GetBattery()
	require.NoError(t, err)
	assert.Equal(t, b.CapacityAh, got.CapacityAh)
	assert.Equal(t, b.Voltage, got.Voltage)
	assert.Equal(t, b.TargetMonth, got.TargetMonth)
	require.NotNil(t, got.Forecast)
	assert.Equal(t, engine.ForecastNow, got.Forecast.Mode)
	require.NotNil(t, got.Forecast.NowHours)
	assert.Equal(t, 5.2, *got.Forecast.NowHours)
}

func TestSnapshotAndReplace(t *testing.T) {
	s := newTestStore(t)

	stale := engine.LoadItem{ID: uuid.New(), Category: engine.LoadDC, Name: "Old pump", Quantity: 1, Watts: 30, HoursPerDay: 2, DutyCyclePct: 100, Enabled: true}
	require.NoError(t, s.SaveLoad(&stale))

	doc := document.Document{
		Version: document.CurrentVersion,
		Loads: []engine.LoadItem{
			{ID: uuid.New(), Category: engine.LoadDC, Name: "Fridge", Quantity: 1, Watts: 50, HoursPerDay: 24, DutyCyclePct: 33, Enabled: true},
		},
		Sources: []engine.GenerationSource{
			{ID: uuid.New(), Name: "Panels", Quantity: 1, InputWatts: 400, HoursPerDay: 4, Efficiency: 0.9, Type: engine.SourceSolar, AutoSolar: true, Enabled: true},
		},
		Battery: engine.BatteryConfig{CapacityAh: 200, Voltage: 12, InitialSoC: 100},
	}
	require.NoError(t, s.Replace(doc))

	got, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, document.CurrentVersion, got.Version)
	require.Len(t, got.Loads, 1)
	assert.Equal(t, "Fridge", got.Loads[0].Name)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "Panels", got.Sources[0].Name)
	assert.Equal(t, 200.0, got.Battery.CapacityAh)
}
