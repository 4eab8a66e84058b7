package demod

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"goft8/internal/ft8"
	"goft8/internal/spectrum"
)

// SNR reporting
const (
	ReferenceBandwidth = 2500.0 // Hz
	MinSNR             = -30.0  // dB, reported when no excess power is seen

	// hannENBW is the equivalent noise bandwidth of the Hann taper in bins
	hannENBW = 1.5
)

// EstimateSNR compares the power on the transmitted tones with the noise
// floor of the same rows and scales the ratio to ReferenceBandwidth.
func EstimateSNR(g *spectrum.Grid, pos Position, tones [ft8.NumSymbols]int) float64 {
	signal := make([]float64, 0, ft8.NumSymbols)
	noise := make([]float64, 0, ft8.NumSymbols)

	for s, tone := range tones {
		row := pos.Row + s*g.TimeOSR
		col := pos.Col + tone*g.FreqOSR
		if !g.Contains(row, col) {
			continue
		}
		signal = append(signal, math.Pow(10, float64(g.At(row, col))/10))
		noise = append(noise, g.Noise(row))
	}

	if len(signal) == 0 {
		return MinSNR
	}

	n := stat.Mean(noise, nil)
	excess := (stat.Mean(signal, nil) - n) / symbolGain(g.FreqOSR)
	if excess <= 0 || n <= 0 {
		return MinSNR
	}

	snr := 10*math.Log10(excess/n) + 10*math.Log10(hannENBW*g.BinHz/ReferenceBandwidth)
	return math.Max(snr, MinSNR)
}

// symbolGain is the power a one-symbol tone keeps in a Hann frame spanning
// span symbols, relative to a tone filling the frame.
func symbolGain(span int) float64 {
	f := float64(span)
	a := 1/f + math.Sin(math.Pi/f)/math.Pi
	return a * a
}
