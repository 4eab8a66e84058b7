package spectrum

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goft8/internal/ft8"
	"goft8/internal/window"
)

func sineWindow(n int, freq, amplitude float64) *window.Window {
	x := make([]float64, n)
	for i := range x {
		x[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/ft8.SampleRate)
	}
	return window.FromFloat64(x)
}

func TestComputeInsufficientSamples(t *testing.T) {
	w := window.New(make([]int16, ft8.MinSamples-1))

	g, err := Compute(w, DefaultConfig())
	assert.Nil(t, g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientSamples))

	var short *InsufficientSamplesError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, ft8.MinSamples-1, short.Got)
	assert.Equal(t, ft8.MinSamples, short.Want)
}

func TestComputeMinimumWindow(t *testing.T) {
	g, err := Compute(window.New(make([]int16, ft8.MinSamples)), DefaultConfig())
	require.NoError(t, err)

	// exactly one admissible start for all 79 symbols
	assert.Equal(t, (ft8.NumSymbols-1)*DefaultTimeOSR+1, g.Rows)
}

// TestGridDimensions tests that dimensions depend only on length and configuration
func TestGridDimensions(t *testing.T) {
	g, err := Compute(window.New(make([]int16, ft8.SlotSamples)), DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 186, g.Rows)
	assert.Equal(t, 960, g.Hop)
	assert.Equal(t, 3.125, g.BinHz)
	assert.Equal(t, 64, g.MinBin)
	assert.Equal(t, 911, g.Cols)
	assert.Equal(t, 200.0, g.Frequency(0))
	assert.InDelta(t, 0.08, g.Seconds(1), 1e-12)
	assert.True(t, g.Contains(185, 910))
	assert.False(t, g.Contains(186, 0))
	assert.False(t, g.Contains(0, -1))
}

// TestToneLandsInExpectedBin tests frequency mapping of a steady tone
func TestToneLandsInExpectedBin(t *testing.T) {
	g, err := Compute(sineWindow(ft8.SlotSamples, 1500, 0.5), DefaultConfig())
	require.NoError(t, err)

	col := int(1500/g.BinHz) - g.MinBin
	row := g.Rows / 2

	peak := g.At(row, col)
	assert.InDelta(t, 20*math.Log10(0.5), float64(peak), 0.5)

	// one tone spacing away falls on a Hann null
	assert.Greater(t, peak-g.At(row, col+2), float32(40))
	assert.Greater(t, peak-g.At(row, col-2), float32(40))
	// half a tone away is the -6 dB Hann shoulder
	assert.InDelta(t, 6.0, float64(peak-g.At(row, col+1)), 0.5)
}

// TestComputeDeterministic tests the front end is a pure function
func TestComputeDeterministic(t *testing.T) {
	w := sineWindow(ft8.SlotSamples, 1000, 0.2)

	first, err := Compute(w, DefaultConfig())
	require.NoError(t, err)
	second, err := Compute(w, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSilenceIsFinite(t *testing.T) {
	g, err := Compute(window.New(make([]int16, ft8.SlotSamples)), DefaultConfig())
	require.NoError(t, err)

	v := g.At(10, 10)
	assert.False(t, math.IsInf(float64(v), 0))
	assert.InDelta(t, -120, float64(v), 0.1)
}

// TestNoiseFloor tests the per-row noise estimate against white noise
func TestNoiseFloor(t *testing.T) {
	const sigma = 0.02
	rng := rand.New(rand.NewSource(1))
	x := make([]float64, ft8.SlotSamples)
	for i := range x {
		x[i] = sigma * rng.NormFloat64()
	}
	// a strong tone must not lift the floor
	for i := range x {
		x[i] += 0.3 * math.Sin(2*math.Pi*1200*float64(i)/ft8.SampleRate)
	}

	g, err := Compute(window.FromFloat64(x), DefaultConfig())
	require.NoError(t, err)

	// Hann-weighted white noise reads 6*sigma^2/nfft per bin
	want := 6 * sigma * sigma / float64(ft8.SymbolSamples*DefaultFreqOSR)
	for _, row := range []int{0, 50, 100, 185} {
		assert.InDelta(t, 1, g.Noise(row)/want, 0.2, "row %d", row)
	}

	silent, err := Compute(window.New(make([]int16, ft8.SlotSamples)), DefaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, 1e-12/math.Ln2, silent.Noise(0), 1e-14)
}

// TestNoiseFloorEdgeRows tests that padded edge frames do not report the
// splatter of signals cut off at the window boundary as noise
func TestNoiseFloorEdgeRows(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := make([]float64, ft8.SlotSamples)
	for i := range x {
		x[i] = 0.01*rng.NormFloat64() + 0.4*math.Sin(2*math.Pi*900*float64(i)/ft8.SampleRate)
	}

	g, err := Compute(window.FromFloat64(x), DefaultConfig())
	require.NoError(t, err)

	last := g.Rows - 1
	assert.Equal(t, g.Noise(1), g.Noise(0))
	assert.Equal(t, g.Noise(last-1), g.Noise(last))
	assert.InDelta(t, 1, g.Noise(0)/g.Noise(g.Rows/2), 0.3)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero time OSR", func(c *Config) { c.TimeOSR = 0 }},
		{"time OSR not dividing symbol", func(c *Config) { c.TimeOSR = 7 }},
		{"zero freq OSR", func(c *Config) { c.FreqOSR = 0 }},
		{"inverted band", func(c *Config) { c.MinFreq, c.MaxFreq = 2000, 1000 }},
		{"above nyquist", func(c *Config) { c.MaxFreq = 5990 }},
	}

	assert.NoError(t, DefaultConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())

			_, err := Compute(window.New(make([]int16, ft8.SlotSamples)), cfg)
			assert.Error(t, err)
			assert.False(t, errors.Is(err, ErrInsufficientSamples))
		})
	}
}

func BenchmarkCompute(b *testing.B) {
	w := sineWindow(ft8.SlotSamples, 1200, 0.3)
	cfg := DefaultConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compute(w, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
