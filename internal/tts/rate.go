package tts

import (
	"fmt"
	"strconv"
)

// Speaking rate limits supported by every engine.
const (
	MinRate     = 0.5
	MaxRate     = 2.0
	DefaultRate = 1.0
)

var rateSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0}

// ClampRate brings rate into [MinRate, MaxRate]. Non-positive rates mean
// normal speed.
func ClampRate(rate float64) float64 {
	switch {
	case rate <= 0:
		return DefaultRate
	case rate < MinRate:
		return MinRate
	case rate > MaxRate:
		return MaxRate
	default:
		return rate
	}
}

// FasterRate returns the next rate step above rate.
func FasterRate(rate float64) float64 {
	for _, step := range rateSteps {
		if step > rate {
			return step
		}
	}
	return MaxRate
}

// SlowerRate returns the next rate step below rate.
func SlowerRate(rate float64) float64 {
	for i := len(rateSteps) - 1; i >= 0; i-- {
		if rateSteps[i] < rate {
			return rateSteps[i]
		}
	}
	return MinRate
}

// RateLabel returns a human-readable rate, e.g. "1.25x".
func RateLabel(rate float64) string {
	switch ClampRate(rate) {
	case 0.5:
		return "0.5x (Half Speed)"
	case 1.0:
		return "1.0x (Normal)"
	case 2.0:
		return "2.0x (Double Speed)"
	default:
		return strconv.FormatFloat(ClampRate(rate), 'f', -1, 64) + "x"
	}
}

// LengthScale converts rate to Piper's --length-scale argument.
// Piper uses inverse scaling: faster speech means a smaller length scale.
func LengthScale(rate float64) string {
	return fmt.Sprintf("%.2f", 1.0/ClampRate(rate))
}
