package message

import "strings"

// Character tables used by the 77-bit field encodings
const (
	charsFreeText     = " 0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ+-./?" // 42
	charsCallsign     = " 0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ/"     // 38, nonstandard calls and hashes
	charsAlnumSpace   = " 0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"      // 37
	charsAlnum        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"       // 36
	charsDigits       = "0123456789"                                 // 10
	charsLettersSpace = " ABCDEFGHIJKLMNOPQRSTUVWXYZ"                // 27
)

// Field limits of the standard message layout
const (
	NTokens  = 2063592 // special tokens (DE, QRZ, CQ, CQ nnn, CQ abcd) in c28
	Max22    = 4194304 // 22-bit callsign hashes in c28
	MaxGrid4 = 32400   // 4-character grid squares in g15

	cqNumbered = 3    // first "CQ nnn" token
	cqLettered = 1003 // first "CQ abcd" token
	cqEnd      = 532443
)

// charIndex returns the position of c in table, or -1
func charIndex(table string, c byte) int {
	return strings.IndexByte(table, c)
}

// validChars reports whether every byte of s is in table
func validChars(table, s string) bool {
	for i := 0; i < len(s); i++ {
		if charIndex(table, s[i]) < 0 {
			return false
		}
	}
	return true
}
