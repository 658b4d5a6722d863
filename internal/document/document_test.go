package document

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/m0rg5/SolSum-1.9/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaultsOlderDocuments(t *testing.T) {
	// A v1 document: no duty cycle, no efficiency, no enabled flags, no
	// forecast block, battery with only capacity.
	data := []byte(`{
		"version": 1,
		"loads": [{"name": "Fridge", "watts": 50, "hoursPerDay": 24}],
		"sources": [{"name": "Panels", "type": "solar", "inputWatts": 400, "hoursPerDay": 5}],
		"battery": {"capacityAh": 200}
	}`)

	doc, err := Decode(data)
	require.NoError(t, err)

	require.Len(t, doc.Loads, 1)
	load := doc.Loads[0]
	assert.Equal(t, engine.LoadDC, load.Category)
	assert.Equal(t, 100.0, load.DutyCyclePct)
	assert.Equal(t, 1.0, load.Quantity)
	assert.True(t, load.Enabled)
	assert.NotEqual(t, uuid.Nil, load.ID)

	require.Len(t, doc.Sources, 1)
	src := doc.Sources[0]
	assert.Equal(t, 1.0, src.Efficiency)
	assert.True(t, src.Enabled)

	assert.Equal(t, 200.0, doc.Battery.CapacityAh)
	assert.Equal(t, defaultVoltage, doc.Battery.Voltage)
	assert.Equal(t, defaultInitialSoC, doc.Battery.InitialSoC)
	assert.Nil(t, doc.Battery.Forecast)
	assert.Equal(t, CurrentVersion, doc.Version)
}

func TestDecodeMissingStaysDistinctFromZero(t *testing.T) {
	data := []byte(`{
		"version": 3,
		"battery": {
			"capacityAh": 400, "voltage": 24, "initialSoC": 90,
			"forecast": {"mode": "now", "fetched": true, "loading": false, "nowHours": ""}
		}
	}`)

	doc, err := Decode(data)
	require.NoError(t, err)

	// Empty string means absent, not zero sun
	require.NotNil(t, doc.Battery.Forecast)
	assert.Nil(t, doc.Battery.Forecast.NowHours)

	reading := engine.NormalizeSolarHours(doc.Battery)
	assert.Equal(t, engine.SolarHoursNoData, reading.Status)
}

func TestDecodeGenuineZeroSurvives(t *testing.T) {
	data := []byte(`{
		"version": 3,
		"battery": {
			"capacityAh": 400, "voltage": 24,
			"forecast": {"mode": "now", "fetched": true, "nowHours": 0}
		}
	}`)

	doc, err := Decode(data)
	require.NoError(t, err)

	require.NotNil(t, doc.Battery.Forecast.NowHours)
	assert.Equal(t, 0.0, *doc.Battery.Forecast.NowHours)

	reading := engine.NormalizeSolarHours(doc.Battery)
	assert.Equal(t, engine.SolarHoursOK, reading.Status)
}

func TestDecodeUnparseableNumberBecomesInvalid(t *testing.T) {
	data := []byte(`{
		"battery": {
			"forecast": {"mode": "now", "fetched": true, "nowHours": "cloudy"}
		}
	}`)

	doc, err := Decode(data)
	require.NoError(t, err)

	require.NotNil(t, doc.Battery.Forecast.NowHours)
	assert.True(t, math.IsNaN(*doc.Battery.Forecast.NowHours))

	reading := engine.NormalizeSolarHours(doc.Battery)
	assert.Equal(t, engine.SolarHoursInvalid, reading.Status)
}

func TestDecodeNumericStrings(t *testing.T) {
	data := []byte(`{
		"loads": [{"name": "Pump", "watts": "120", "hoursPerDay": "2.5"}]
	}`)

	doc, err := Decode(data)
	require.NoError(t, err)

	require.Len(t, doc.Loads, 1)
	assert.Equal(t, 120.0, doc.Loads[0].Watts)
	assert.Equal(t, 2.5, doc.Loads[0].HoursPerDay)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown load category", `{"loads": [{"category": "hydro"}]}`},
		{"unknown source type", `{"sources": [{"type": "fusion"}]}`},
		{"unknown forecast mode", `{"battery": {"forecast": {"mode": "weekly"}}}`},
		{"newer schema version", `{"version": 99}`},
		{"not json", `}{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sunny := 6.5
	doc := Document{
		Loads: []engine.LoadItem{{
			ID: uuid.New(), Category: engine.LoadAC, Name: "Kettle",
			Quantity: 1, Watts: 1500, HoursPerDay: 0.5, DutyCyclePct: 100, Enabled: true,
		}},
		Sources: []engine.GenerationSource{{
			ID: uuid.New(), Name: "Array", Quantity: 2, InputWatts: 590,
			HoursPerDay: 5, Efficiency: 0.85, Type: engine.SourceSolar,
			AutoSolar: true, Enabled: true,
		}},
		Battery: engine.BatteryConfig{
			CapacityAh: 400, Voltage: 24, InitialSoC: 80,
			Forecast: &engine.IrradianceForecast{
				Mode: engine.ForecastMonthAvg, Fetched: true, SunnyHours: &sunny,
			},
		},
	}

	data, err := Encode(doc)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, doc.Loads, decoded.Loads)
	assert.Equal(t, doc.Sources, decoded.Sources)
	assert.Equal(t, doc.Battery, decoded.Battery)

	// Identical totals either side of the round trip
	before := engine.Totals(doc.Loads, doc.Sources, doc.Battery)
	after := engine.Totals(decoded.Loads, decoded.Sources, decoded.Battery)
	assert.Equal(t, before, after)
}
