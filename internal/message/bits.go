package message

import (
	"math/big"
	"strings"
)

// readBits returns n bits starting at from as an unsigned integer (MSB first)
func readBits(bits []uint8, from, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<1 | uint64(bits[from+i]&1)
	}
	return v
}

// writeBits stores the low n bits of v at from (MSB first)
func writeBits(bits []uint8, from, n int, v uint64) {
	for i := 0; i < n; i++ {
		bits[from+i] = uint8(v>>(n-1-i)) & 1
	}
}

// readBig returns n bits starting at from as a big integer
func readBig(bits []uint8, from, n int) *big.Int {
	v := new(big.Int)
	for i := 0; i < n; i++ {
		v.Lsh(v, 1)
		if bits[from+i]&1 == 1 {
			v.SetBit(v, 0, 1)
		}
	}
	return v
}

// writeBig stores the low n bits of v at from
func writeBig(bits []uint8, from, n int, v *big.Int) {
	for i := 0; i < n; i++ {
		bits[from+i] = uint8(v.Bit(n - 1 - i))
	}
}

// hexString formats bits as upper-case hex, padding on the left to whole nibbles
func hexString(bits []uint8) string {
	pad := (4 - len(bits)%4) % 4
	var sb strings.Builder
	var nibble uint8
	for i := 0; i < pad+len(bits); i++ {
		var b uint8
		if i >= pad {
			b = bits[i-pad] & 1
		}
		nibble = nibble<<1 | b
		if i%4 == 3 {
			sb.WriteByte("0123456789ABCDEF"[nibble])
			nibble = 0
		}
	}
	return sb.String()
}
