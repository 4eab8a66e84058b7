package demod

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"goft8/internal/costas"
	"goft8/internal/ft8"
	"goft8/internal/spectrum"
)

// Default fine search radius in grid steps
const (
	DefaultFineTime = 1
	DefaultFineFreq = 1
)

// llrVariance is the variance the soft metrics are scaled to before decoding
const llrVariance = 24.0

// Config controls candidate refinement
type Config struct {
	FineTime int // time steps searched either side of the coarse position
	FineFreq int // frequency bins searched either side of the coarse position
}

// DefaultConfig returns the standard refinement radius
func DefaultConfig() Config {
	return Config{FineTime: DefaultFineTime, FineFreq: DefaultFineFreq}
}

// Validate checks the configuration for unusable values
func (c Config) Validate() error {
	if c.FineTime < 0 || c.FineFreq < 0 {
		return fmt.Errorf("demod: fine search radius must not be negative, got %d/%d", c.FineTime, c.FineFreq)
	}
	return nil
}

// LLRs holds one soft metric per codeword bit; positive favours a 1
type LLRs [ft8.CodewordBits]float64

// Position is a refined transmission start on the grid
type Position struct {
	Row   int
	Col   int
	Score float64
}

// Refine re-scores the sync pattern around a candidate and moves to the best
// position. Ties keep the coarse position, then prefer earlier, then lower.
func Refine(g *spectrum.Grid, cand costas.Candidate, cfg Config) Position {
	best := Position{Row: cand.Row, Col: cand.Col, Score: costas.Score(g, cand.Row, cand.Col)}

	for dr := -cfg.FineTime; dr <= cfg.FineTime; dr++ {
		for dc := -cfg.FineFreq; dc <= cfg.FineFreq; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			row, col := cand.Row+dr, cand.Col+dc
			if !g.Contains(row, col) {
				continue
			}
			if score := costas.Score(g, row, col); score > best.Score {
				best = Position{Row: row, Col: col, Score: score}
			}
		}
	}
	return best
}

// Extract refines a candidate and computes the soft metrics of its data
// symbols. It returns false when the refined transmission does not lie
// entirely inside the grid.
func Extract(g *spectrum.Grid, cand costas.Candidate, cfg Config) (LLRs, Position, bool) {
	pos := Refine(g, cand, cfg)
	if !costas.Fits(g, pos.Row, pos.Col) {
		return LLRs{}, pos, false
	}

	var llrs LLRs
	var s [ft8.NumTones]float64
	for k := 0; k < ft8.NumDataSymbols; k++ {
		row := pos.Row + ft8.DataSymbol(k)*g.TimeOSR

		// s[v] is the power of the tone carrying 3-bit value v
		for v, tone := range ft8.GrayMap {
			s[v] = float64(g.At(row, pos.Col+tone*g.FreqOSR))
		}

		for b := 0; b < ft8.BitsPerSymbol; b++ {
			mask := 1 << (ft8.BitsPerSymbol - 1 - b)
			one, zero := math.Inf(-1), math.Inf(-1)
			for v, p := range s {
				if v&mask != 0 {
					one = math.Max(one, p)
				} else {
					zero = math.Max(zero, p)
				}
			}
			llrs[ft8.BitsPerSymbol*k+b] = one - zero
		}
	}

	normalize(llrs[:])
	return llrs, pos, true
}

// normalize scales the metrics to a fixed variance; constant input becomes zero
func normalize(llrs []float64) {
	_, variance := stat.PopMeanVariance(llrs, nil)
	if variance <= 0 || math.IsNaN(variance) {
		clear(llrs)
		return
	}
	floats.Scale(math.Sqrt(llrVariance/variance), llrs)
}
