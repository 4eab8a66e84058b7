package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goft8/internal/demod"
	"goft8/internal/message"
)

func decodeAt(text string, dt, freq, snr float64) Decode {
	return Decode{Time: dt, Frequency: freq, SNR: snr, Message: message.Message{Text: text}}
}

func TestCollectorDedupe(t *testing.T) {
	tests := []struct {
		name    string
		second  Decode
		want    int
		keepSNR float64
	}{
		{"same place weaker", decodeAt("CQ K1ABC FN42", 0.58, 1503, -15), 1, -10},
		{"same place stronger", decodeAt("CQ K1ABC FN42", 0.40, 1497, -8), 1, -8},
		{"far in time", decodeAt("CQ K1ABC FN42", 0.80, 1500, -8), 2, -8},
		{"far in frequency", decodeAt("CQ K1ABC FN42", 0.48, 1520, -8), 2, -8},
		{"different text", decodeAt("CQ W9XYZ EN37", 0.48, 1500, -8), 2, -8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCollector(DefaultDedupeTime, DefaultDedupeFreq)
			c.add(decodeAt("CQ K1ABC FN42", 0.48, 1500, -10))
			c.add(tt.second)

			out := c.dedupe()
			assert.Len(t, out, tt.want)
			assert.Equal(t, tt.keepSNR, out[0].SNR)
			assert.Equal(t, 2-tt.want, c.stats.Duplicates)
		})
	}
}

func TestCollectorOrdering(t *testing.T) {
	c := newCollector(DefaultDedupeTime, DefaultDedupeFreq)
	c.add(decodeAt("B", 1.0, 1000, -10))
	c.add(decodeAt("A", 0.5, 2000, -5))
	c.add(decodeAt("D", 0.5, 1500, -10))
	c.add(decodeAt("C", 0.5, 1500, -10))

	assert.Equal(t, []string{"A", "C", "D", "B"}, texts(c.dedupe()))
}

// TestCollectorDedupeOrderIndependent tests a chain of near duplicates
// resolves the same way whatever order the workers delivered it in
func TestCollectorDedupeOrderIndependent(t *testing.T) {
	a := decodeAt("CQ K1ABC FN42", 0.5, 1000, -12)
	b := decodeAt("CQ K1ABC FN42", 0.5, 1008, -10)
	cc := decodeAt("CQ K1ABC FN42", 0.5, 1016, -14)

	orders := [][]Decode{
		{a, b, cc}, {a, cc, b}, {b, a, cc}, {b, cc, a}, {cc, a, b}, {cc, b, a},
	}

	for _, order := range orders {
		c := newCollector(DefaultDedupeTime, DefaultDedupeFreq)
		for _, d := range order {
			c.add(d)
		}

		out := c.dedupe()
		// b covers both neighbours, a and c are 16 Hz apart
		require.Len(t, out, 1)
		assert.Equal(t, b, out[0])
		assert.Equal(t, 2, c.stats.Duplicates)
	}
}

func TestCollectorClaim(t *testing.T) {
	c := newCollector(DefaultDedupeTime, DefaultDedupeFreq)

	assert.True(t, c.claim(demod.Position{Row: 5, Col: 100}))
	assert.False(t, c.claim(demod.Position{Row: 5, Col: 100, Score: 3}))
	assert.True(t, c.claim(demod.Position{Row: 5, Col: 101}))
	assert.Equal(t, 1, c.stats.Repeated)
}
