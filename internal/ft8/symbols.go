package ft8

import "fmt"

// DataSymbol returns the frame slot of the k-th data symbol (0..57).
func DataSymbol(k int) int {
	if k < HalfDataLength {
		return k + CostasLength
	}
	return k + 2*CostasLength
}

// SyncSymbol returns the frame slot of the i-th position of sync block b.
func SyncSymbol(b, i int) int {
	return b*CostasSpacing + i
}

// Tones maps a 174-bit codeword onto the 79 channel tones.
func Tones(codeword []uint8) ([NumSymbols]int, error) {
	var tones [NumSymbols]int

	if len(codeword) != CodewordBits {
		return tones, fmt.Errorf("codeword has %d bits, want %d", len(codeword), CodewordBits)
	}

	for b := 0; b < CostasBlocks; b++ {
		for i, tone := range Costas {
			tones[SyncSymbol(b, i)] = tone
		}
	}

	for k := 0; k < NumDataSymbols; k++ {
		v := codeword[3*k]<<2 | codeword[3*k+1]<<1 | codeword[3*k+2]
		tones[DataSymbol(k)] = GrayMap[v&7]
	}

	return tones, nil
}
