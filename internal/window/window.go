package window

import (
	"time"

	"goft8/internal/ft8"
)

// FullScale is the magnitude of the largest 16-bit sample
const FullScale = 32768.0

// Window is an immutable block of mono 16-bit samples at ft8.SampleRate.
type Window struct {
	samples []int16
}

// New copies samples into a new window
func New(samples []int16) *Window {
	owned := make([]int16, len(samples))
	copy(owned, samples)
	return &Window{samples: owned}
}

// FromFloat64 builds a window from samples scaled to [-1, 1], clipping out-of-range values
func FromFloat64(samples []float64) *Window {
	owned := make([]int16, len(samples))
	for i, v := range samples {
		owned[i] = toInt16(v * FullScale)
	}
	return &Window{samples: owned}
}

// Len returns the number of samples
func (w *Window) Len() int {
	return len(w.samples)
}

// Duration returns the window length in time
func (w *Window) Duration() time.Duration {
	return time.Duration(len(w.samples)) * time.Second / ft8.SampleRate
}

// At returns sample i
func (w *Window) At(i int) int16 {
	return w.samples[i]
}

// Float64 returns a copy of the samples scaled to [-1, 1)
func (w *Window) Float64() []float64 {
	out := make([]float64, len(w.samples))
	for i, s := range w.samples {
		out[i] = float64(s) / FullScale
	}
	return out
}

// Slice returns a new window holding samples [from, to)
func (w *Window) Slice(from, to int) *Window {
	if from < 0 {
		from = 0
	}
	if to > len(w.samples) {
		to = len(w.samples)
	}
	if from >= to {
		return &Window{}
	}
	return New(w.samples[from:to])
}

// Split cuts the window into consecutive slot-length windows. The last
// element holds any remainder and may be shorter than a slot.
func (w *Window) Split() []*Window {
	var parts []*Window
	for from := 0; from < len(w.samples); from += ft8.SlotSamples {
		parts = append(parts, w.Slice(from, from+ft8.SlotSamples))
	}
	return parts
}

func toInt16(v float64) int16 {
	switch {
	case v >= 32767:
		return 32767
	case v <= -32768:
		return -32768
	case v >= 0:
		return int16(v + 0.5)
	default:
		return int16(v - 0.5)
	}
}
