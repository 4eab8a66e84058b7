package costas

import (
	"fmt"
	"sort"

	"goft8/internal/ft8"
	"goft8/internal/spectrum"
)

// Default search settings
const (
	DefaultThreshold     = 2.0 // mean sync contrast in dB
	DefaultMaxCandidates = 140
)

// Config controls the sync search
type Config struct {
	Threshold     float64
	MaxCandidates int
}

// DefaultConfig returns the standard sync search settings
func DefaultConfig() Config {
	return Config{
		Threshold:     DefaultThreshold,
		MaxCandidates: DefaultMaxCandidates,
	}
}

// Validate checks the configuration for unusable values
func (c Config) Validate() error {
	if c.MaxCandidates < 1 {
		return fmt.Errorf("costas: candidate cap must be positive, got %d", c.MaxCandidates)
	}
	return nil
}

// Candidate is a hypothesised transmission start in grid coordinates
type Candidate struct {
	Row   int     // time step of symbol 0
	Col   int     // frequency bin of tone 0
	Score float64 // mean sync contrast in dB
}

// Less orders candidates by score, then earlier time, then lower frequency
func (c Candidate) Less(o Candidate) bool {
	if c.Score != o.Score {
		return c.Score > o.Score
	}
	if c.Row != o.Row {
		return c.Row < o.Row
	}
	return c.Col < o.Col
}

// Rows returns the time steps a full transmission spans on the grid
func Rows(g *spectrum.Grid) int {
	return (ft8.NumSymbols-1)*g.TimeOSR + 1
}

// Fits reports whether all 79 symbols and 8 tones at (row, col) lie inside the grid
func Fits(g *spectrum.Grid, row, col int) bool {
	lastRow := row + (ft8.NumSymbols-1)*g.TimeOSR
	lastCol := col + (ft8.NumTones-1)*g.FreqOSR
	return row >= 0 && col >= 0 && lastRow < g.Rows && lastCol < g.Cols
}

// Score measures how well the Costas pattern matches at (row, col).
// For each sync symbol the expected tone is compared with the neighbouring
// tones and with the same tone in the adjacent symbols of the sync block;
// the result is the mean of those differences in dB.
func Score(g *spectrum.Grid, row, col int) float64 {
	var sum float64
	var count int

	for b := 0; b < ft8.CostasBlocks; b++ {
		for i, tone := range ft8.Costas {
			r := row + ft8.SyncSymbol(b, i)*g.TimeOSR
			if r < 0 || r >= g.Rows {
				continue
			}

			c := col + tone*g.FreqOSR
			if c < 0 || c >= g.Cols {
				continue
			}
			expected := float64(g.At(r, c))

			if tone > 0 && c-g.FreqOSR >= 0 {
				sum += expected - float64(g.At(r, c-g.FreqOSR))
				count++
			}
			if tone < ft8.NumTones-1 && c+g.FreqOSR < g.Cols {
				sum += expected - float64(g.At(r, c+g.FreqOSR))
				count++
			}
			if i > 0 && r-g.TimeOSR >= 0 {
				sum += expected - float64(g.At(r-g.TimeOSR, c))
				count++
			}
			if i < ft8.CostasLength-1 && r+g.TimeOSR < g.Rows {
				sum += expected - float64(g.At(r+g.TimeOSR, c))
				count++
			}
		}
	}

	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// Search scores every admissible start position and returns the best
// candidates above the threshold, strongest first.
func Search(g *spectrum.Grid, cfg Config) []Candidate {
	maxRow := g.Rows - Rows(g)
	maxCol := g.Cols - (ft8.NumTones-1)*g.FreqOSR - 1

	var found []Candidate
	for row := 0; row <= maxRow; row++ {
		for col := 0; col <= maxCol; col++ {
			score := Score(g, row, col)
			if score > cfg.Threshold {
				found = append(found, Candidate{Row: row, Col: col, Score: score})
			}
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].Less(found[j])
	})

	if cfg.MaxCandidates > 0 && len(found) > cfg.MaxCandidates {
		found = found[:cfg.MaxCandidates]
	}
	return found
}
