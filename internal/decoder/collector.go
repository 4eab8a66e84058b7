package decoder

import (
	"math"
	"sort"
	"sync"

	"goft8/internal/demod"
)

// collector gathers worker output for one window
type collector struct {
	mu         sync.Mutex
	dedupeTime float64
	dedupeFreq float64
	attempted  map[[2]int]struct{}
	decodes    []Decode
	stats      Stats
}

func newCollector(dedupeTime, dedupeFreq float64) *collector {
	return &collector{
		dedupeTime: dedupeTime,
		dedupeFreq: dedupeFreq,
		attempted:  make(map[[2]int]struct{}),
	}
}

// claim reserves a refined position; false means another candidate got there first
func (c *collector) claim(pos demod.Position) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := [2]int{pos.Row, pos.Col}
	if _, seen := c.attempted[key]; seen {
		c.stats.Repeated++
		return false
	}
	c.attempted[key] = struct{}{}
	return true
}

func (c *collector) count(field *int) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// add stores a decode; duplicates are resolved once every worker is done
func (c *collector) add(d Decode) {
	c.mu.Lock()
	c.decodes = append(c.decodes, d)
	c.mu.Unlock()
}

func (c *collector) duplicate(a, b Decode) bool {
	return a.Message.Text == b.Message.Text &&
		math.Abs(a.Time-b.Time) < c.dedupeTime &&
		math.Abs(a.Frequency-b.Frequency) < c.dedupeFreq
}

// dedupe returns the decodes strongest first. Each decode is kept unless a
// stronger kept decode of the same message lies within the dedupe window,
// so the outcome does not depend on the order workers finished in.
func (c *collector) dedupe() []Decode {
	c.mu.Lock()
	defer c.mu.Unlock()

	sorted := make([]Decode, len(c.decodes))
	copy(sorted, c.decodes)
	sort.Slice(sorted, func(i, j int) bool {
		return better(sorted[i], sorted[j])
	})

	out := make([]Decode, 0, len(sorted))
	c.stats.Duplicates = 0
next:
	for _, d := range sorted {
		for _, kept := range out {
			if c.duplicate(kept, d) {
				c.stats.Duplicates++
				continue next
			}
		}
		out = append(out, d)
	}
	return out
}

// better orders by SNR, then earlier time, lower frequency and text
func better(a, b Decode) bool {
	if a.SNR != b.SNR {
		return a.SNR > b.SNR
	}
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	if a.Frequency != b.Frequency {
		return a.Frequency < b.Frequency
	}
	return a.Message.Text < b.Message.Text
}
