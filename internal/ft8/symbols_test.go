package ft8

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataSymbol(t *testing.T) {
	tests := []struct {
		k    int
		want int
	}{
		{0, 7},
		{28, 35},
		{29, 43},
		{57, 71},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DataSymbol(tt.k), "data symbol %d", tt.k)
	}
}

func TestDataAndSyncSlotsPartitionFrame(t *testing.T) {
	seen := make(map[int]bool)
	for b := 0; b < CostasBlocks; b++ {
		for i := 0; i < CostasLength; i++ {
			seen[SyncSymbol(b, i)] = true
		}
	}
	for k := 0; k < NumDataSymbols; k++ {
		slot := DataSymbol(k)
		assert.False(t, seen[slot], "slot %d used twice", slot)
		seen[slot] = true
	}
	assert.Len(t, seen, NumSymbols)
}

func TestTones(t *testing.T) {
	t.Run("all zero codeword", func(t *testing.T) {
		tones, err := Tones(make([]uint8, CodewordBits))
		require.NoError(t, err)

		assert.Equal(t, Costas[:], tones[0:7])
		assert.Equal(t, Costas[:], tones[36:43])
		assert.Equal(t, Costas[:], tones[72:79])
		for k := 0; k < NumDataSymbols; k++ {
			assert.Equal(t, 0, tones[DataSymbol(k)])
		}
	})

	t.Run("gray mapping", func(t *testing.T) {
		cw := make([]uint8, CodewordBits)
		// first data symbol carries 0b011, second 0b110
		cw[1], cw[2] = 1, 1
		cw[3], cw[4] = 1, 1

		tones, err := Tones(cw)
		require.NoError(t, err)
		assert.Equal(t, 2, tones[7])
		assert.Equal(t, 4, tones[8])
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := Tones(make([]uint8, 91))
		assert.Error(t, err)
	})
}
