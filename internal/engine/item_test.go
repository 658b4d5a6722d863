package engine

import (
	"math"
	"testing"
)

func TestInverterEfficiency(t *testing.T) {
	tests := []struct {
		name  string
		watts float64
		want  float64
	}{
		{"zero watts means no conversion", 0, 1},
		{"negative watts means no conversion", -50, 1},
		{"NaN coerces to zero watts", math.NaN(), 1},
		{"trickle load", 60, 0.75},    // ratio 0.03
		{"light load", 200, 0.85},     // ratio 0.10
		{"mid load", 600, 0.90},       // ratio 0.30
		{"peak band", 1500, 0.94},     // ratio 0.75
		{"near capacity", 1900, 0.91}, // ratio 0.95
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InverterEfficiency(tt.watts)
			if got != tt.want {
				t.Errorf("InverterEfficiency(%v) = %v, want %v", tt.watts, got, tt.want)
			}
		})
	}
}

func TestEnergyForItem(t *testing.T) {
	tests := []struct {
		name    string
		item    LoadItem
		voltage float64
		wantWh  float64
		wantAh  float64
		wantEff float64
	}{
		{
			name: "DC fridge at one-third duty",
			item: LoadItem{
				Category:     LoadDC,
				Quantity:     1,
				Watts:        50,
				HoursPerDay:  24,
				DutyCyclePct: 33,
			},
			voltage: 24,
			wantWh:  396,
			wantAh:  16.5,
			wantEff: 1,
		},
		{
			name: "AC kettle through the inverter",
			item: LoadItem{
				Category:     LoadAC,
				Quantity:     1,
				Watts:        1500,
				HoursPerDay:  0.5,
				DutyCyclePct: 100,
			},
			voltage: 24,
			wantWh:  797.87,
			wantAh:  33.24,
			wantEff: 0.94,
		},
		{
			name: "AC load with non-positive watts keeps efficiency 1",
			item: LoadItem{
				Category:     LoadAC,
				Quantity:     1,
				Watts:        0,
				HoursPerDay:  4,
				DutyCyclePct: 100,
			},
			voltage: 12,
			wantWh:  0,
			wantAh:  0,
			wantEff: 1,
		},
		{
			name: "quantity floors at 1",
			item: LoadItem{
				Category:     LoadDC,
				Quantity:     0,
				Watts:        10,
				HoursPerDay:  10,
				DutyCyclePct: 100,
			},
			voltage: 12,
			wantWh:  100,
			wantAh:  8.333,
			wantEff: 1,
		},
		{
			name: "non-finite fields collapse to zero",
			item: LoadItem{
				Category:     LoadDC,
				Quantity:     1,
				Watts:        math.NaN(),
				HoursPerDay:  math.Inf(1),
				DutyCyclePct: 100,
			},
			voltage: 12,
			wantWh:  0,
			wantAh:  0,
			wantEff: 1,
		},
		{
			name: "zero voltage never produces Inf amp-hours",
			item: LoadItem{
				Category:     LoadDC,
				Quantity:     1,
				Watts:        100,
				HoursPerDay:  1,
				DutyCyclePct: 100,
			},
			voltage: 0,
			wantWh:  100,
			wantAh:  0,
			wantEff: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnergyForItem(tt.item, tt.voltage)
			if !approx(got.Wh, tt.wantWh, 0.01) {
				t.Errorf("Wh = %v, want %v", got.Wh, tt.wantWh)
			}
			if !approx(got.Ah, tt.wantAh, 0.01) {
				t.Errorf("Ah = %v, want %v", got.Ah, tt.wantAh)
			}
			if got.Efficiency != tt.wantEff {
				t.Errorf("Efficiency = %v, want %v", got.Efficiency, tt.wantEff)
			}
		})
	}
}

// For any item at voltage v > 0, amp-hours must equal watt-hours over volts
func TestAmpHoursTrackWattHours(t *testing.T) {
	items := []LoadItem{
		{Category: LoadDC, Quantity: 2, Watts: 15, HoursPerDay: 8, DutyCyclePct: 50},
		{Category: LoadAC, Quantity: 1, Watts: 300, HoursPerDay: 3, DutyCyclePct: 80},
		{Category: LoadSystem, Quantity: 1, Watts: 2, HoursPerDay: 24, DutyCyclePct: 100},
	}
	for _, v := range []float64{12, 24, 48} {
		for _, item := range items {
			got := EnergyForItem(item, v)
			if !approx(got.Ah, got.Wh/v, 1e-9) {
				t.Errorf("voltage %v: Ah %v != Wh/v %v", v, got.Ah, got.Wh/v)
			}
		}
	}
}

func approx(got, want, tolerance float64) bool {
	return math.Abs(got-want) <= tolerance
}

func ptrFloat(f float64) *float64 {
	return &f
}
