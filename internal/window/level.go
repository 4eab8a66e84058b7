package window

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Level classification thresholds relative to full scale
const (
	LowPeakThreshold  = 0.01
	ClipPeakThreshold = 0.95
)

// LevelStatus classifies an audio level measurement
type LevelStatus string

// Level states
const (
	LevelOK       LevelStatus = "ok"
	LevelTooLow   LevelStatus = "too-low"
	LevelClipping LevelStatus = "clipping"
	LevelEmpty    LevelStatus = "empty"
)

// Level is the RMS and peak of a window relative to full scale
type Level struct {
	RMS    float64
	Peak   float64
	Status LevelStatus
}

// RMSdBFS returns the RMS level in dB relative to full scale
func (l Level) RMSdBFS() float64 {
	if l.RMS <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(l.RMS)
}

// PeakdBFS returns the peak level in dB relative to full scale
func (l Level) PeakdBFS() float64 {
	if l.Peak <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(l.Peak)
}

// Level measures the window's audio level
func (w *Window) Level() Level {
	if len(w.samples) == 0 {
		return Level{Status: LevelEmpty}
	}

	x := w.Float64()
	level := Level{
		RMS:  floats.Norm(x, 2) / math.Sqrt(float64(len(x))),
		Peak: floats.Norm(x, math.Inf(1)),
	}

	switch {
	case level.Peak < LowPeakThreshold:
		level.Status = LevelTooLow
	case level.Peak > ClipPeakThreshold:
		level.Status = LevelClipping
	default:
		level.Status = LevelOK
	}

	return level
}
