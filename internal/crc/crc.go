package crc

import "goft8/internal/ft8"

// FT8 CRC-14 generator polynomial (x^14 + x^13 + x^10 + x^9 + x^8 + x^6 + x^4 + x^2 + x + 1)
const Polynomial = 0x2757

const (
	width   = ft8.CRCBits
	topBit  = 1 << (width - 1)
	mask    = 1<<width - 1
	covered = 82 // payload zero-extended from 77 bits
)

// Checksum computes the CRC-14 of a 77-bit payload given one bit per byte.
// The payload is zero-extended to 82 bits before the division.
func Checksum(payload []uint8) uint16 {
	var rem uint16

	for i := 0; i < covered; i++ {
		var bit uint16
		if i < len(payload) && i < ft8.PayloadBits {
			bit = uint16(payload[i] & 1)
		}

		feedback := (rem&topBit != 0) != (bit != 0)
		rem = (rem << 1) & mask
		if feedback {
			rem ^= Polynomial
		}
	}

	return rem & mask
}

// Append returns the 91-bit message block: payload followed by its checksum.
func Append(payload []uint8) []uint8 {
	block := make([]uint8, ft8.MessageBits)
	copy(block, payload[:ft8.PayloadBits])

	sum := Checksum(payload)
	for i := 0; i < width; i++ {
		block[ft8.PayloadBits+i] = uint8(sum>>(width-1-i)) & 1
	}

	return block
}

// Extract reads the checksum carried in bits 77..90 of a message block.
func Extract(block []uint8) uint16 {
	var sum uint16
	for i := 0; i < width; i++ {
		sum = sum<<1 | uint16(block[ft8.PayloadBits+i]&1)
	}
	return sum
}

// Valid reports whether a 91-bit (or longer) block carries a matching checksum.
func Valid(block []uint8) bool {
	if len(block) < ft8.MessageBits {
		return false
	}
	return Extract(block) == Checksum(block[:ft8.PayloadBits])
}
