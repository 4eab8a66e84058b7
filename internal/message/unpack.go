package message

import (
	"fmt"
	"math/big"
	"strings"

	"goft8/internal/crc"
	"goft8/internal/ft8"
)

// Unpack validates the checksum of a decoded codeword (at least 91 bits) and
// unpacks its payload. It returns false for checksum failures and for the
// reserved all-zero payload. Hashes are resolved through lookup, which may be nil.
func Unpack(codeword []uint8, lookup HashLookup) (Message, bool) {
	if len(codeword) < ft8.MessageBits || !crc.Valid(codeword) {
		return Message{}, false
	}

	payload := codeword[:ft8.PayloadBits]
	if readBits(payload, 0, 64) == 0 && readBits(payload, 64, ft8.PayloadBits-64) == 0 {
		return Message{}, false
	}

	return UnpackPayload(payload, lookup), true
}

// UnpackPayload interprets a 77-bit payload. Layouts that are reserved or
// not understood come back as TypeUnparsed with the raw bits in Hex.
func UnpackPayload(payload []uint8, lookup HashLookup) Message {
	i3 := uint8(readBits(payload, 74, 3))
	n3 := uint8(readBits(payload, 71, 3))

	var msg Message
	var ok bool

	switch {
	case i3 == 0 && n3 == 0:
		msg, ok = unpackFreeText(payload), true
	case i3 == 0 && n3 == 1:
		msg, ok = unpackDXpedition(payload, lookup)
	case i3 == 0 && n3 == 5:
		msg, ok = unpackTelemetry(payload), true
	case i3 == 0 && n3 == 6:
		msg, ok = unpackContest(payload, lookup)
	case i3 == 1 || i3 == 2:
		msg, ok = unpackStandard(payload, i3, lookup)
	case i3 == 4:
		msg, ok = unpackNonstandard(payload, lookup)
	}

	if !ok {
		msg = Message{Type: TypeUnparsed, Hex: hexString(payload)}
		msg.Text = fmt.Sprintf("<%s %s>", labelFor(i3, n3), msg.Hex)
	}

	msg.I3, msg.N3 = i3, n3
	return msg
}

func labelFor(i3, n3 uint8) string {
	if i3 == 0 {
		return fmt.Sprintf("%d.%d", i3, n3)
	}
	return fmt.Sprintf("%d", i3)
}

// unpackStandard decodes c28 r1 c28 r1 R1 g15 (i3 = 1 for /R, 2 for /P)
func unpackStandard(payload []uint8, i3 uint8, lookup HashLookup) (Message, bool) {
	n28a := readBits(payload, 0, 28)
	ipa := readBits(payload, 28, 1)
	n28b := readBits(payload, 29, 28)
	ipb := readBits(payload, 57, 1)
	ir := readBits(payload, 58, 1)
	igrid4 := readBits(payload, 59, 15)

	call1, ok := unpack28(n28a, ipa == 1, i3, lookup)
	if !ok {
		return Message{}, false
	}
	call2, ok := unpack28(n28b, ipb == 1, i3, lookup)
	if !ok {
		return Message{}, false
	}

	msg := Message{Type: TypeStandard, Call1: call1, Call2: call2}

	var extra string
	if igrid4 <= MaxGrid4 {
		msg.Grid = unpackGrid(igrid4)
		extra = msg.Grid
		if ir == 1 {
			extra = "R " + extra
		}
	} else {
		extra = unpackReport(int(igrid4-MaxGrid4), ir == 1)
		msg.Report = extra
	}

	msg.Text = joinFields(call1, call2, extra)
	return msg, true
}

// unpackContest decodes c28 c28 g15 (0.6), a bare exchange with an optional grid
func unpackContest(payload []uint8, lookup HashLookup) (Message, bool) {
	call1, ok := unpack28(readBits(payload, 0, 28), false, 0, lookup)
	if !ok {
		return Message{}, false
	}
	call2, ok := unpack28(readBits(payload, 28, 28), false, 0, lookup)
	if !ok {
		return Message{}, false
	}

	msg := Message{Type: TypeContest, Call1: call1, Call2: call2}
	switch igrid4 := readBits(payload, 56, 15); {
	case igrid4 <= MaxGrid4:
		msg.Grid = unpackGrid(igrid4)
	case igrid4 != MaxGrid4+1:
		return Message{}, false
	}

	msg.Text = joinFields(call1, call2, msg.Grid)
	return msg, true
}

// unpack28 decodes a 28-bit callsign field
func unpack28(n28 uint64, suffix bool, i3 uint8, lookup HashLookup) (string, bool) {
	if n28 < NTokens {
		switch {
		case n28 == 0:
			return "DE", true
		case n28 == 1:
			return "QRZ", true
		case n28 == 2:
			return "CQ", true
		case n28 < cqLettered:
			return fmt.Sprintf("CQ %03d", n28-cqNumbered), true
		case n28 <= cqEnd:
			n := n28 - cqLettered
			var aaaa [4]byte
			for i := 3; i >= 0; i-- {
				aaaa[i] = charsLettersSpace[n%27]
				n /= 27
			}
			return "CQ " + strings.TrimSpace(string(aaaa[:])), true
		default:
			return "", false
		}
	}

	n28 -= NTokens
	if n28 < Max22 {
		return resolveHash(lookup, Hash22, uint32(n28)), true
	}

	n := n28 - Max22
	var c [6]byte
	c[5] = charsLettersSpace[n%27]
	n /= 27
	c[4] = charsLettersSpace[n%27]
	n /= 27
	c[3] = charsLettersSpace[n%27]
	n /= 27
	c[2] = charsDigits[n%10]
	n /= 10
	c[1] = charsAlnum[n%36]
	n /= 36
	if n >= uint64(len(charsAlnumSpace)) {
		return "", false
	}
	c[0] = charsAlnumSpace[n]

	call := strings.TrimSpace(string(c[:]))
	if call == "" || strings.Contains(call, " ") {
		return "", false
	}

	// 3DA0 and 3X prefixes travel as 3D0 and Q
	switch {
	case strings.HasPrefix(call, "3D0") && len(call) > 3:
		call = "3DA0" + call[3:]
	case call[0] == 'Q' && len(call) > 1 && call[1] >= 'A' && call[1] <= 'Z':
		call = "3X" + call[1:]
	}

	if suffix {
		if i3 == 2 {
			call += "/P"
		} else {
			call += "/R"
		}
	}
	return call, true
}

func resolveHash(lookup HashLookup, bits int, hash uint32) string {
	if lookup != nil {
		if call, ok := lookup.Lookup(bits, hash); ok {
			return "<" + call + ">"
		}
	}
	return "<...>"
}

// unpackGrid decodes a 4-character Maidenhead locator
func unpackGrid(igrid4 uint64) string {
	n := igrid4
	var g [4]byte
	g[3] = '0' + byte(n%10)
	n /= 10
	g[2] = '0' + byte(n%10)
	n /= 10
	g[1] = 'A' + byte(n%18)
	n /= 18
	g[0] = 'A' + byte(n%18)
	return string(g[:])
}

// unpackReport decodes the non-grid values of g15
func unpackReport(irpt int, r bool) string {
	switch irpt {
	case 1:
		return ""
	case 2:
		return "RRR"
	case 3:
		return "RR73"
	case 4:
		return "73"
	}

	report := fmt.Sprintf("%+03d", irpt-35)
	if r {
		report = "R" + report
	}
	return report
}

// unpackFreeText decodes 13 characters packed base 42 in 71 bits
func unpackFreeText(payload []uint8) Message {
	n := readBig(payload, 0, 71)

	var text [13]byte
	base := big.NewInt(int64(len(charsFreeText)))
	rem := new(big.Int)
	for i := 12; i >= 0; i-- {
		n.DivMod(n, base, rem)
		text[i] = charsFreeText[rem.Int64()]
	}

	return Message{Type: TypeFreeText, Text: strings.TrimSpace(string(text[:]))}
}

// unpackTelemetry decodes 71 bits of free-form data shown as hex
func unpackTelemetry(payload []uint8) Message {
	hex := strings.TrimLeft(hexString(payload[:71]), "0")
	if hex == "" {
		hex = "0"
	}
	return Message{Type: TypeTelemetry, Text: hex, Hex: hex}
}

// unpackDXpedition decodes c28 c28 h10 r5: "CALL1 RR73; CALL2 <DXCALL> +NN"
func unpackDXpedition(payload []uint8, lookup HashLookup) (Message, bool) {
	n28a := readBits(payload, 0, 28)
	n28b := readBits(payload, 28, 28)
	h10 := uint32(readBits(payload, 56, 10))
	r5 := int(readBits(payload, 66, 5))

	call1, ok := unpack28(n28a, false, 0, lookup)
	if !ok {
		return Message{}, false
	}
	call2, ok := unpack28(n28b, false, 0, lookup)
	if !ok {
		return Message{}, false
	}
	dx := resolveHash(lookup, Hash10, h10)
	report := fmt.Sprintf("%+03d", 2*r5-30)

	return Message{
		Type:   TypeDXpedition,
		Call1:  call1,
		Call2:  call2,
		Report: report,
		Text:   fmt.Sprintf("%s RR73; %s %s %s", call1, call2, dx, report),
	}, true
}

// unpackNonstandard decodes h12 c58 h1 r2 c1
func unpackNonstandard(payload []uint8, lookup HashLookup) (Message, bool) {
	h12 := uint32(readBits(payload, 0, 12))
	n58 := readBits(payload, 12, 58)
	iflip := readBits(payload, 70, 1)
	nrpt := readBits(payload, 71, 2)
	icq := readBits(payload, 73, 1)

	var c11 [11]byte
	for i := 10; i >= 0; i-- {
		c11[i] = charsCallsign[n58%38]
		n58 /= 38
	}
	full := strings.TrimSpace(string(c11[:]))
	if full == "" {
		return Message{}, false
	}

	if icq == 1 {
		return Message{
			Type:  TypeNonstandard,
			Call1: "CQ",
			Call2: full,
			Text:  "CQ " + full,
		}, true
	}

	hashed := resolveHash(lookup, Hash12, h12)
	call1, call2 := hashed, full
	if iflip == 1 {
		call1, call2 = full, hashed
	}

	var report string
	switch nrpt {
	case 1:
		report = "RRR"
	case 2:
		report = "RR73"
	case 3:
		report = "73"
	}

	return Message{
		Type:   TypeNonstandard,
		Call1:  call1,
		Call2:  call2,
		Report: report,
		Text:   joinFields(call1, call2, report),
	}, true
}

func joinFields(fields ...string) string {
	var parts []string
	for _, f := range fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}
