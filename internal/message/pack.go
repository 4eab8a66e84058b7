package message

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"goft8/internal/ft8"
)

// ErrUnpackable is returned for text that fits no supported message layout
var ErrUnpackable = errors.New("text cannot be packed into a message")

// Pack encodes message text into a 77-bit payload, one bit per byte.
// Standard exchanges (calls, grids, reports, acknowledgements) use the
// i3=1/2 layout; anything else up to 13 characters is sent as free text.
func Pack(text string) ([]uint8, error) {
	norm := strings.ToUpper(strings.TrimSpace(text))

	if payload, ok := packStandard(strings.Fields(norm)); ok {
		return payload, nil
	}
	if payload, err := PackFreeText(norm); err == nil {
		return payload, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnpackable, text)
}

// PackFreeText encodes up to 13 characters from the free-text alphabet
func PackFreeText(text string) ([]uint8, error) {
	text = strings.ToUpper(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty free text", ErrUnpackable)
	}
	if len(text) > 13 {
		return nil, fmt.Errorf("%w: free text longer than 13 characters", ErrUnpackable)
	}
	if !validChars(charsFreeText, text) {
		return nil, fmt.Errorf("%w: free text has unsupported characters", ErrUnpackable)
	}

	padded := text + strings.Repeat(" ", 13-len(text))
	n := new(big.Int)
	base := big.NewInt(int64(len(charsFreeText)))
	for i := 0; i < len(padded); i++ {
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(charIndex(charsFreeText, padded[i]))))
	}

	payload := make([]uint8, ft8.PayloadBits)
	writeBig(payload, 0, 71, n)
	writeBits(payload, 71, 3, 0)
	writeBits(payload, 74, 3, 0)
	return payload, nil
}

// PackTelemetry encodes up to 71 bits of hex data (18 digits, first at most 7)
func PackTelemetry(hex string) ([]uint8, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(hex), 16)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: invalid telemetry hex %q", ErrUnpackable, hex)
	}
	if n.BitLen() > 71 {
		return nil, fmt.Errorf("%w: telemetry exceeds 71 bits", ErrUnpackable)
	}

	payload := make([]uint8, ft8.PayloadBits)
	writeBig(payload, 0, 71, n)
	writeBits(payload, 71, 3, 5)
	writeBits(payload, 74, 3, 0)
	return payload, nil
}

// packStandard encodes CALL1 CALL2 [EXTRA]
func packStandard(fields []string) ([]uint8, bool) {
	if len(fields) >= 3 && fields[0] == "CQ" && isCQModifier(fields[1]) {
		fields = append([]string{"CQ " + fields[1]}, fields[2:]...)
	}

	var extra string
	switch {
	case len(fields) == 2:
	case len(fields) == 3:
		extra = fields[2]
	case len(fields) == 4 && fields[2] == "R" && isGrid(fields[3]):
		extra = "R " + fields[3]
	default:
		return nil, false
	}

	n28a, sufA, ok := pack28(fields[0])
	if !ok {
		return nil, false
	}
	n28b, sufB, ok := pack28(fields[1])
	if !ok || n28b < NTokens {
		return nil, false
	}

	i3 := uint64(1)
	if sufA == "/P" || sufB == "/P" {
		if sufA == "/R" || sufB == "/R" {
			return nil, false
		}
		i3 = 2
	}

	igrid4, ir, ok := packExtra(extra)
	if !ok {
		return nil, false
	}

	payload := make([]uint8, ft8.PayloadBits)
	writeBits(payload, 0, 28, n28a)
	writeBits(payload, 28, 1, boolBit(sufA != ""))
	writeBits(payload, 29, 28, n28b)
	writeBits(payload, 57, 1, boolBit(sufB != ""))
	writeBits(payload, 58, 1, ir)
	writeBits(payload, 59, 15, igrid4)
	writeBits(payload, 74, 3, i3)
	return payload, true
}

// pack28 encodes a token or standard callsign, returning any /R or /P suffix
func pack28(token string) (uint64, string, bool) {
	switch token {
	case "DE":
		return 0, "", true
	case "QRZ":
		return 1, "", true
	case "CQ":
		return 2, "", true
	}

	if strings.HasPrefix(token, "CQ ") {
		mod := token[3:]
		if isDigits(mod) && len(mod) == 3 {
			n, _ := strconv.Atoi(mod)
			return uint64(cqNumbered + n), "", true
		}
		if isLetters(mod) && len(mod) <= 4 {
			padded := strings.Repeat(" ", 4-len(mod)) + mod
			var n uint64
			for i := 0; i < 4; i++ {
				n = n*27 + uint64(charIndex(charsLettersSpace, padded[i]))
			}
			return cqLettered + n, "", true
		}
		return 0, "", false
	}

	var suffix string
	if strings.HasSuffix(token, "/R") || strings.HasSuffix(token, "/P") {
		suffix = token[len(token)-2:]
		token = token[:len(token)-2]
	}

	n, ok := packBasecall(token)
	if !ok {
		return 0, "", false
	}
	return NTokens + Max22 + n, suffix, true
}

// packBasecall encodes a standard callsign into the 6-character layout
func packBasecall(call string) (uint64, bool) {
	switch {
	case strings.HasPrefix(call, "3DA0") && len(call) > 4:
		call = "3D0" + call[4:]
	case strings.HasPrefix(call, "3X") && len(call) > 2 && isLetters(call[2:3]):
		call = "Q" + call[2:]
	}

	switch {
	case len(call) >= 3 && isDigits(call[2:3]):
	case len(call) >= 2 && isDigits(call[1:2]):
		call = " " + call
	default:
		return 0, false
	}
	if len(call) > 6 {
		return 0, false
	}
	call += strings.Repeat(" ", 6-len(call))

	i0 := charIndex(charsAlnumSpace, call[0])
	i1 := charIndex(charsAlnum, call[1])
	i2 := charIndex(charsDigits, call[2])
	if i0 < 0 || i1 < 0 || i2 < 0 {
		return 0, false
	}

	n := uint64(i0)
	n = n*36 + uint64(i1)
	n = n*10 + uint64(i2)

	suffix := strings.TrimRight(call[3:], " ")
	if !isLetters(suffix) {
		return 0, false
	}
	for i := 3; i < 6; i++ {
		n = n*27 + uint64(charIndex(charsLettersSpace, call[i]))
	}
	return n, true
}

// packExtra encodes the grid/report field and its R flag
func packExtra(extra string) (uint64, uint64, bool) {
	switch extra {
	case "":
		return MaxGrid4 + 1, 0, true
	case "RRR":
		return MaxGrid4 + 2, 0, true
	case "RR73":
		return MaxGrid4 + 3, 0, true
	case "73":
		return MaxGrid4 + 4, 0, true
	}

	if isGrid(extra) {
		return packGrid(extra), 0, true
	}
	if strings.HasPrefix(extra, "R ") && isGrid(extra[2:]) {
		return packGrid(extra[2:]), 1, true
	}

	var ir uint64
	report := extra
	if strings.HasPrefix(report, "R") {
		ir = 1
		report = report[1:]
	}
	if len(report) < 2 || (report[0] != '+' && report[0] != '-') {
		return 0, 0, false
	}
	r, err := strconv.Atoi(report)
	if err != nil || r < -30 || r > 49 {
		return 0, 0, false
	}
	return MaxGrid4 + uint64(r+35), ir, true
}

func packGrid(grid string) uint64 {
	n := uint64(grid[0]-'A')*18 + uint64(grid[1]-'A')
	n = n*10 + uint64(grid[2]-'0')
	n = n*10 + uint64(grid[3]-'0')
	return n
}

func isGrid(s string) bool {
	return len(s) == 4 &&
		s[0] >= 'A' && s[0] <= 'R' && s[1] >= 'A' && s[1] <= 'R' &&
		s[2] >= '0' && s[2] <= '9' && s[3] >= '0' && s[3] <= '9'
}

func isCQModifier(s string) bool {
	return (len(s) == 3 && isDigits(s)) || (len(s) >= 1 && len(s) <= 4 && isLetters(s))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
