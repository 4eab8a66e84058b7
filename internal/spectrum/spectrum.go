package spectrum

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"goft8/internal/ft8"
	"goft8/internal/window"
)

// Default front-end configuration
const (
	DefaultTimeOSR = 2      // time steps per symbol
	DefaultFreqOSR = 2      // frequency bins per tone spacing
	DefaultMinFreq = 200.0  // lowest base tone searched (Hz)
	DefaultMaxFreq = 3000.0 // highest base tone searched (Hz)

	floorPower = 1e-12 // keeps log10 finite on digital silence
)

// ErrInsufficientSamples is returned for windows too short to hold a transmission
var ErrInsufficientSamples = errors.New("insufficient samples")

// InsufficientSamplesError reports the window length that was rejected
type InsufficientSamplesError struct {
	Got  int
	Want int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("insufficient samples: got %d, need at least %d", e.Got, e.Want)
}

// Is makes errors.Is match ErrInsufficientSamples
func (e *InsufficientSamplesError) Is(target error) bool {
	return target == ErrInsufficientSamples
}

// Config controls the short-time spectral analysis
type Config struct {
	TimeOSR int
	FreqOSR int
	MinFreq float64
	MaxFreq float64
}

// DefaultConfig returns the standard front-end configuration
func DefaultConfig() Config {
	return Config{
		TimeOSR: DefaultTimeOSR,
		FreqOSR: DefaultFreqOSR,
		MinFreq: DefaultMinFreq,
		MaxFreq: DefaultMaxFreq,
	}
}

// Validate checks the configuration for unusable values
func (c Config) Validate() error {
	if c.TimeOSR < 1 || ft8.SymbolSamples%c.TimeOSR != 0 {
		return fmt.Errorf("spectrum: time oversampling %d must divide %d", c.TimeOSR, ft8.SymbolSamples)
	}
	if c.FreqOSR < 1 {
		return fmt.Errorf("spectrum: frequency oversampling must be positive, got %d", c.FreqOSR)
	}
	if c.MinFreq < 0 || c.MaxFreq <= c.MinFreq {
		return fmt.Errorf("spectrum: empty search band %.1f..%.1f Hz", c.MinFreq, c.MaxFreq)
	}
	top := c.MaxFreq + (ft8.NumTones-1)*ft8.ToneSpacing
	if top >= ft8.SampleRate/2 {
		return fmt.Errorf("spectrum: search band reaches %.1f Hz, above Nyquist", top)
	}
	return nil
}

// Grid is a time x frequency power map in dB. Row t describes the symbol
// starting at sample t*Hop; column c is the bin at (MinBin+c)*BinHz.
type Grid struct {
	Rows    int
	Cols    int
	MinBin  int
	Hop     int     // samples between rows
	BinHz   float64 // bin spacing
	TimeOSR int
	FreqOSR int

	power []float32
	noise []float64 // linear mean noise power per row
}

// At returns the power in dB at (row, col)
func (g *Grid) At(row, col int) float32 {
	return g.power[row*g.Cols+col]
}

// Row returns the read-only power slice of one time step
func (g *Grid) Row(row int) []float32 {
	return g.power[row*g.Cols : (row+1)*g.Cols]
}

// Noise returns the mean noise power of a row on a linear scale. It is
// derived from the row median, which ignores the few bins a signal occupies.
func (g *Grid) Noise(row int) float64 {
	return g.noise[row]
}

// Seconds converts a row index into seconds from the window start
func (g *Grid) Seconds(row int) float64 {
	return float64(row*g.Hop) / ft8.SampleRate
}

// Frequency converts a column index into Hz
func (g *Grid) Frequency(col int) float64 {
	return float64(g.MinBin+col) * g.BinHz
}

// Contains reports whether (row, col) is inside the grid
func (g *Grid) Contains(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// Compute runs the short-time spectral analysis over a window.
// The analysis frame spans FreqOSR symbols with a Hann taper, centred on each symbol.
func Compute(w *window.Window, cfg Config) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if w.Len() < ft8.MinSamples {
		return nil, &InsufficientSamplesError{Got: w.Len(), Want: ft8.MinSamples}
	}

	hop := ft8.SymbolSamples / cfg.TimeOSR
	nfft := ft8.SymbolSamples * cfg.FreqOSR
	binHz := float64(ft8.SampleRate) / float64(nfft)

	minBin := int(math.Floor(cfg.MinFreq / binHz))
	maxBin := int(math.Ceil(cfg.MaxFreq / binHz))

	g := &Grid{
		Rows:    (w.Len()-ft8.SymbolSamples)/hop + 1,
		Cols:    maxBin - minBin + (ft8.NumTones-1)*cfg.FreqOSR + 1,
		MinBin:  minBin,
		Hop:     hop,
		BinHz:   binHz,
		TimeOSR: cfg.TimeOSR,
		FreqOSR: cfg.FreqOSR,
	}
	g.power = make([]float32, g.Rows*g.Cols)
	g.noise = make([]float64, g.Rows)

	samples := w.Float64()
	taper := hann(nfft)

	// normalise so a full-scale sine centred on a bin reads about 0 dB
	var gain float64
	for _, v := range taper {
		gain += v
	}
	norm := 4 / (gain * gain)

	fft := fourier.NewFFT(nfft)
	frame := make([]float64, nfft)
	coeff := make([]complex128, nfft/2+1)

	sorted := make([]float64, g.Cols)
	offset := ft8.SymbolSamples/2 - nfft/2
	firstFull, lastFull := -1, -1
	for row := 0; row < g.Rows; row++ {
		start := row*hop + offset
		if start >= 0 && start+nfft <= len(samples) {
			if firstFull < 0 {
				firstFull = row
			}
			lastFull = row
		}
		for i := range frame {
			j := start + i
			if j >= 0 && j < len(samples) {
				frame[i] = samples[j] * taper[i]
			} else {
				frame[i] = 0
			}
		}

		coeff = fft.Coefficients(coeff, frame)

		out := g.Row(row)
		for c := range out {
			mag := cmplx.Abs(coeff[minBin+c])
			out[c] = float32(10 * math.Log10(mag*mag*norm+floorPower))
			sorted[c] = float64(out[c])
		}

		// exponential noise power has median ln2 times its mean
		sort.Float64s(sorted)
		median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
		g.noise[row] = math.Pow(10, median/10) / math.Ln2
	}

	// zero-padded edge frames cut signals off abruptly and the splatter lifts
	// their median, so they borrow the floor of the nearest full frame
	if firstFull >= 0 {
		for row := 0; row < firstFull; row++ {
			g.noise[row] = g.noise[firstFull]
		}
		for row := lastFull + 1; row < g.Rows; row++ {
			g.noise[row] = g.noise[lastFull]
		}
	}

	return g, nil
}

// hann returns a periodic Hann window of length n
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		s := math.Sin(math.Pi * float64(i) / float64(n))
		w[i] = s * s
	}
	return w
}
