package window

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"goft8/internal/ft8"
)

// Band-pass defaults for narrowband ("sniper") decoding
const (
	DefaultBandwidth = 60.0 // Hz around the target frequency
	bandTaper        = 5.0  // Hz of raised-cosine roll-off on each edge
)

// Bandpass returns a copy of the window filtered to center±width/2 Hz.
// The filter is applied in the frequency domain and has zero phase.
func (w *Window) Bandpass(center, width float64) (*Window, error) {
	nyquist := float64(ft8.SampleRate) / 2

	if width <= 0 {
		width = DefaultBandwidth
	}
	if center <= 0 || center >= nyquist {
		return nil, fmt.Errorf("band-pass centre %.1f Hz outside (0, %.0f)", center, nyquist)
	}

	low := math.Max(center-width/2, 1)
	high := math.Min(center+width/2, nyquist-1)
	if low >= high {
		return nil, fmt.Errorf("empty pass band %.1f..%.1f Hz", low, high)
	}

	n := len(w.samples)
	if n == 0 {
		return &Window{}, nil
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, w.Float64())

	binHz := float64(ft8.SampleRate) / float64(n)
	for i := range coeff {
		coeff[i] *= complex(bandGain(float64(i)*binHz, low, high), 0)
	}

	seq := fft.Sequence(nil, coeff)
	scale := 1 / float64(n)
	for i := range seq {
		seq[i] *= scale
	}

	return FromFloat64(seq), nil
}

// bandGain is 1 inside [low, high] and rolls off over bandTaper outside it
func bandGain(f, low, high float64) float64 {
	switch {
	case f >= low && f <= high:
		return 1
	case f < low && f > low-bandTaper:
		return 0.5 * (1 + math.Cos(math.Pi*(low-f)/bandTaper))
	case f > high && f < high+bandTaper:
		return 0.5 * (1 + math.Cos(math.Pi*(f-high)/bandTaper))
	default:
		return 0
	}
}
