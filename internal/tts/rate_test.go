package tts

import "testing"

func TestClampRate(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 1.0},
		{-1, 1.0},
		{0.1, 0.5},
		{0.8, 0.8},
		{3, 2.0},
	}
	for _, tt := range tests {
		if got := ClampRate(tt.in); got != tt.want {
			t.Errorf("ClampRate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRateSteps(t *testing.T) {
	tests := []struct {
		name string
		fn   func(float64) float64
		in   float64
		want float64
	}{
		{"faster from normal", FasterRate, 1.0, 1.25},
		{"faster between steps", FasterRate, 1.1, 1.25},
		{"faster at max", FasterRate, 2.0, 2.0},
		{"slower from normal", SlowerRate, 1.0, 0.75},
		{"slower between steps", SlowerRate, 1.1, 1.0},
		{"slower at min", SlowerRate, 0.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRateLabel(t *testing.T) {
	tests := map[float64]string{
		1.0:  "1.0x (Normal)",
		0.5:  "0.5x (Half Speed)",
		1.25: "1.25x",
		0.75: "0.75x",
	}
	for in, want := range tests {
		if got := RateLabel(in); got != want {
			t.Errorf("RateLabel(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestLengthScale(t *testing.T) {
	tests := map[float64]string{
		1.0: "1.00",
		2.0: "0.50",
		0.5: "2.00",
		1.5: "0.67",
	}
	for in, want := range tests {
		if got := LengthScale(in); got != want {
			t.Errorf("LengthScale(%v) = %q, want %q", in, got, want)
		}
	}
}
