package message

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"goft8/internal/crc"
	"goft8/internal/ft8"
)

// TestPackUnpackStandard tests round trips of common exchanges
func TestPackUnpackStandard(t *testing.T) {
	tests := []struct {
		text   string
		call1  string
		call2  string
		grid   string
		report string
		i3     uint8
	}{
		{"CQ K1ABC FN42", "CQ", "K1ABC", "FN42", "", 1},
		{"K1ABC W9XYZ EN37", "K1ABC", "W9XYZ", "EN37", "", 1},
		{"W9XYZ K1ABC -15", "W9XYZ", "K1ABC", "", "-15", 1},
		{"K1ABC W9XYZ R-11", "K1ABC", "W9XYZ", "", "R-11", 1},
		{"K1ABC W9XYZ +05", "K1ABC", "W9XYZ", "", "+05", 1},
		{"W9XYZ K1ABC RRR", "W9XYZ", "K1ABC", "", "RRR", 1},
		{"K1ABC W9XYZ RR73", "K1ABC", "W9XYZ", "", "RR73", 1},
		{"W9XYZ K1ABC 73", "W9XYZ", "K1ABC", "", "73", 1},
		{"K1ABC W9XYZ R EN37", "K1ABC", "W9XYZ", "EN37", "", 1},
		{"K1ABC W9XYZ", "K1ABC", "W9XYZ", "", "", 1},
		{"CQ DX VK2ABC QF56", "CQ DX", "VK2ABC", "QF56", "", 1},
		{"CQ 145 G4ABC IO91", "CQ 145", "G4ABC", "IO91", "", 1},
		{"QRZ KA1ABC", "QRZ", "KA1ABC", "", "", 1},
		{"DE 9A1A JN75", "DE", "9A1A", "JN75", "", 1},
		{"K1ABC/R W9XYZ EN37", "K1ABC/R", "W9XYZ", "EN37", "", 1},
		{"G4ABC/P DL1XYZ -03", "G4ABC/P", "DL1XYZ", "", "-03", 2},
		{"CQ 3DA0XYZ KG53", "CQ", "3DA0XYZ", "KG53", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			payload, err := Pack(tt.text)
			require.NoError(t, err)
			require.Len(t, payload, ft8.PayloadBits)

			msg := UnpackPayload(payload, nil)
			assert.Equal(t, TypeStandard, msg.Type)
			assert.Equal(t, tt.text, msg.Text)
			assert.Equal(t, tt.call1, msg.Call1)
			assert.Equal(t, tt.call2, msg.Call2)
			assert.Equal(t, tt.grid, msg.Grid)
			assert.Equal(t, tt.report, msg.Report)
			assert.Equal(t, tt.i3, msg.I3)
		})
	}
}

func TestPackLowercaseAndSpacing(t *testing.T) {
	payload, err := Pack("  cq   k1abc fn42 ")
	require.NoError(t, err)
	assert.Equal(t, "CQ K1ABC FN42", UnpackPayload(payload, nil).Text)
}

// TestPackFreeText tests fallback to the free-text layout
func TestPackFreeText(t *testing.T) {
	tests := []string{
		"TNX BOB 73 GL",
		"HELLO WORLD",
		"A",
		"1+2-3./?",
		"K1ABC  TEST",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			payload, err := Pack(text)
			require.NoError(t, err)

			msg := UnpackPayload(payload, nil)
			assert.Equal(t, TypeFreeText, msg.Type)
			assert.Equal(t, text, msg.Text)
			assert.Equal(t, uint8(0), msg.I3)
			assert.Equal(t, uint8(0), msg.N3)
		})
	}
}

func TestPackErrors(t *testing.T) {
	tests := []string{
		"THIS TEXT IS FAR TOO LONG",
		"BAD*CHAR",
		"",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := Pack(text)
			assert.ErrorIs(t, err, ErrUnpackable)
		})
	}
}

func TestTelemetry(t *testing.T) {
	tests := []struct {
		hex  string
		want string
	}{
		{"123456789ABCDEF012", "123456789ABCDEF012"},
		{"7FFFFFFFFFFFFFFFFF", "7FFFFFFFFFFFFFFFFF"},
		{"00000000000000ab", "AB"},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			payload, err := PackTelemetry(tt.hex)
			require.NoError(t, err)

			msg := UnpackPayload(payload, nil)
			assert.Equal(t, TypeTelemetry, msg.Type)
			assert.Equal(t, tt.want, msg.Text)
			assert.Equal(t, "0.5", msg.TypeLabel())
		})
	}

	_, err := PackTelemetry("FFFFFFFFFFFFFFFFFF")
	assert.ErrorIs(t, err, ErrUnpackable)
	_, err = PackTelemetry("XYZ")
	assert.ErrorIs(t, err, ErrUnpackable)
}

// TestUnpackNonstandard tests the h12 c58 layout with and without a known hash
func TestUnpackNonstandard(t *testing.T) {
	full := "PJ4/K1ABC"
	var n58 uint64
	padded := fmt.Sprintf("%11s", full)
	for i := 0; i < 11; i++ {
		n58 = n58*38 + uint64(charIndex(charsCallsign, padded[i]))
	}

	h22, ok := HashCallsign("W9XYZ")
	require.True(t, ok)

	build := func(iflip, nrpt, icq uint64) []uint8 {
		payload := make([]uint8, ft8.PayloadBits)
		writeBits(payload, 0, 12, uint64(truncateHash(h22, Hash12)))
		writeBits(payload, 12, 58, n58)
		writeBits(payload, 70, 1, iflip)
		writeBits(payload, 71, 2, nrpt)
		writeBits(payload, 73, 1, icq)
		writeBits(payload, 74, 3, 4)
		return payload
	}

	table := NewHashTable()
	table.Save("W9XYZ")

	tests := []struct {
		name   string
		iflip  uint64
		nrpt   uint64
		icq    uint64
		lookup HashLookup
		want   string
	}{
		{"cq", 0, 0, 1, nil, "CQ PJ4/K1ABC"},
		{"unknown hash", 0, 2, 0, nil, "<...> PJ4/K1ABC RR73"},
		{"known hash", 0, 1, 0, table, "<W9XYZ> PJ4/K1ABC RRR"},
		{"flipped", 1, 3, 0, table, "PJ4/K1ABC <W9XYZ> 73"},
		{"no report", 1, 0, 0, table, "PJ4/K1ABC <W9XYZ>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := UnpackPayload(build(tt.iflip, tt.nrpt, tt.icq), tt.lookup)
			assert.Equal(t, TypeNonstandard, msg.Type)
			assert.Equal(t, tt.want, msg.Text)
		})
	}
}

// TestUnpackDXpedition tests the 0.1 layout
func TestUnpackDXpedition(t *testing.T) {
	a, _, ok := pack28("K1ABC")
	require.True(t, ok)
	b, _, ok := pack28("W9XYZ")
	require.True(t, ok)
	h22, ok := HashCallsign("KH1/KH7Z")
	require.True(t, ok)

	payload := make([]uint8, ft8.PayloadBits)
	writeBits(payload, 0, 28, a)
	writeBits(payload, 28, 28, b)
	writeBits(payload, 56, 10, uint64(truncateHash(h22, Hash10)))
	writeBits(payload, 66, 5, 11) // 2*11-30 = -8
	writeBits(payload, 71, 3, 1)

	msg := UnpackPayload(payload, nil)
	assert.Equal(t, TypeDXpedition, msg.Type)
	assert.Equal(t, "K1ABC RR73; W9XYZ <...> -08", msg.Text)

	table := NewHashTable()
	table.Save("KH1/KH7Z")
	msg = UnpackPayload(payload, table)
	assert.Equal(t, "K1ABC RR73; W9XYZ <KH1/KH7Z> -08", msg.Text)
}

// TestUnpackContest tests the 0.6 layout with and without a grid
func TestUnpackContest(t *testing.T) {
	a, _, ok := pack28("W9XYZ")
	require.True(t, ok)
	b, _, ok := pack28("K1ABC")
	require.True(t, ok)

	tests := []struct {
		name   string
		igrid4 uint64
		want   string
		grid   string
	}{
		{"with grid", packGrid("FN42"), "W9XYZ K1ABC FN42", "FN42"},
		{"no grid", MaxGrid4 + 1, "W9XYZ K1ABC", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := make([]uint8, ft8.PayloadBits)
			writeBits(payload, 0, 28, a)
			writeBits(payload, 28, 28, b)
			writeBits(payload, 56, 15, tt.igrid4)
			writeBits(payload, 71, 3, 6)

			msg := UnpackPayload(payload, nil)
			assert.Equal(t, TypeContest, msg.Type)
			assert.Equal(t, tt.want, msg.Text)
			assert.Equal(t, tt.grid, msg.Grid)
			assert.Equal(t, "0.6", msg.TypeLabel())
			assert.Equal(t, []string{"W9XYZ", "K1ABC"}, msg.Callsigns())
		})
	}

	// a report value is not valid in this layout
	payload := make([]uint8, ft8.PayloadBits)
	writeBits(payload, 0, 28, a)
	writeBits(payload, 28, 28, b)
	writeBits(payload, 56, 15, MaxGrid4+40)
	writeBits(payload, 71, 3, 6)
	assert.Equal(t, TypeUnparsed, UnpackPayload(payload, nil).Type)
}

// TestUnpackHashedStandardCall tests 22-bit hashes inside a standard message
func TestUnpackHashedStandardCall(t *testing.T) {
	h22, ok := HashCallsign("YW18FIFA")
	require.True(t, ok)
	b, _, ok := pack28("K1ABC")
	require.True(t, ok)

	payload := make([]uint8, ft8.PayloadBits)
	writeBits(payload, 0, 28, NTokens+uint64(h22))
	writeBits(payload, 29, 28, b)
	writeBits(payload, 59, 15, MaxGrid4+3)
	writeBits(payload, 74, 3, 1)

	assert.Equal(t, "<...> K1ABC RR73", UnpackPayload(payload, nil).Text)

	table := NewHashTable()
	table.Save("YW18FIFA")
	assert.Equal(t, "<YW18FIFA> K1ABC RR73", UnpackPayload(payload, table).Text)
}

// TestUnpackReservedTypes tests that unknown layouts map to unparsed messages
func TestUnpackReservedTypes(t *testing.T) {
	tests := []struct {
		name  string
		i3    uint64
		n3    uint64
		label string
	}{
		{"field day", 0, 3, "0.3"},
		{"reserved n3", 0, 7, "0.7"},
		{"rtty roundup", 3, 0, "3"},
		{"eu vhf", 5, 0, "5"},
		{"reserved i3", 7, 0, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := make([]uint8, ft8.PayloadBits)
			payload[5] = 1
			writeBits(payload, 71, 3, tt.n3)
			writeBits(payload, 74, 3, tt.i3)

			msg := UnpackPayload(payload, nil)
			assert.Equal(t, TypeUnparsed, msg.Type)
			assert.Equal(t, tt.label, msg.TypeLabel())
			assert.Len(t, msg.Hex, 20)
			assert.True(t, strings.HasPrefix(msg.Text, "<"+tt.label+" "))
		})
	}
}

func TestUnpackInvalidCallsignIsUnparsed(t *testing.T) {
	payload := make([]uint8, ft8.PayloadBits)
	// a token value past the last "CQ abcd" entry
	writeBits(payload, 0, 28, NTokens-1)
	writeBits(payload, 74, 3, 1)

	msg := UnpackPayload(payload, nil)
	assert.Equal(t, TypeUnparsed, msg.Type)
}

// TestUnpackChecksum tests CRC validation and the reserved zero payload
func TestUnpackChecksum(t *testing.T) {
	payload, err := Pack("CQ K1ABC FN42")
	require.NoError(t, err)

	block := crc.Append(payload)
	msg, ok := Unpack(block, nil)
	require.True(t, ok)
	assert.Equal(t, "CQ K1ABC FN42", msg.Text)

	block[10] ^= 1
	_, ok = Unpack(block, nil)
	assert.False(t, ok)

	_, ok = Unpack(make([]uint8, ft8.CodewordBits), nil)
	assert.False(t, ok, "all-zero codeword is reserved")

	_, ok = Unpack(block[:40], nil)
	assert.False(t, ok)
}

// TestStandardRoundTripProperty tests random standard exchanges
func TestStandardRoundTripProperty(t *testing.T) {
	letters := "ABCDEFGHIJKLMNOPRSTUVWXYZ" // no Q: Q-prefixes are rewritten as 3X
	callGen := rapid.Custom(func(t *rapid.T) string {
		prefix := string(rapid.SampledFrom([]byte(letters)).Draw(t, "p0"))
		if rapid.Bool().Draw(t, "two") {
			prefix += string(rapid.SampledFrom([]byte(letters + "0123456789")).Draw(t, "p1"))
		}
		digit := string(rapid.ByteRange('0', '9').Draw(t, "digit"))
		n := rapid.IntRange(1, 3).Draw(t, "suffix")
		suffix := ""
		for i := 0; i < n; i++ {
			suffix += string(rapid.ByteRange('A', 'Z').Draw(t, "s"))
		}
		return prefix + digit + suffix
	})
	extraGen := rapid.OneOf(
		rapid.Just(""),
		rapid.Just("RRR"),
		rapid.Just("RR73"),
		rapid.Just("73"),
		rapid.Custom(func(t *rapid.T) string {
			return fmt.Sprintf("%c%c%d%d",
				rapid.ByteRange('A', 'R').Draw(t, "g0"),
				rapid.ByteRange('A', 'R').Draw(t, "g1"),
				rapid.IntRange(0, 9).Draw(t, "g2"),
				rapid.IntRange(0, 9).Draw(t, "g3"))
		}),
		rapid.Custom(func(t *rapid.T) string {
			r := rapid.IntRange(-30, 49).Draw(t, "report")
			prefix := ""
			if rapid.Bool().Draw(t, "roger") {
				prefix = "R"
			}
			return prefix + fmt.Sprintf("%+03d", r)
		}),
	)

	rapid.Check(t, func(t *rapid.T) {
		call1 := callGen.Draw(t, "call1")
		call2 := callGen.Draw(t, "call2")
		extra := extraGen.Draw(t, "extra")

		text := strings.TrimSpace(call1 + " " + call2 + " " + extra)
		payload, err := Pack(text)
		require.NoError(t, err)

		msg, ok := Unpack(crc.Append(payload), nil)
		require.True(t, ok)
		assert.Equal(t, TypeStandard, msg.Type)
		assert.Equal(t, text, msg.Text)
	})
}

// TestFreeTextRoundTripProperty tests random free text
func TestFreeTextRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.SampledFrom([]byte(charsFreeText)), 1, 13).Draw(t, "text")
		text := strings.TrimSpace(string(raw))
		if text == "" {
			t.Skip("blank text")
		}

		payload, err := PackFreeText(text)
		require.NoError(t, err)

		msg := UnpackPayload(payload, nil)
		assert.Equal(t, TypeFreeText, msg.Type)
		assert.Equal(t, text, msg.Text)
	})
}

// TestHashTable tests saving and looking up hashed callsigns
func TestHashTable(t *testing.T) {
	table := NewHashTable()
	table.Save("K1ABC/R")
	table.Save("<...>")
	table.Save("CQ DX")
	table.Save("")

	assert.Equal(t, 1, table.Len())

	h22, ok := HashCallsign("K1ABC")
	require.True(t, ok)
	assert.Less(t, h22, uint32(1<<22))

	for _, bits := range []int{Hash10, Hash12, Hash22} {
		call, ok := table.Lookup(bits, truncateHash(h22, bits))
		assert.True(t, ok, "width %d", bits)
		assert.Equal(t, "K1ABC", call)
	}

	_, ok = table.Lookup(16, 0)
	assert.False(t, ok)

	_, ok = HashCallsign("TOO*LONG")
	assert.False(t, ok)
}

func TestHashTableConcurrentAccess(t *testing.T) {
	table := NewHashTable()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				call := fmt.Sprintf("K%dA%c", id, 'A'+j%26)
				table.Save(call)
				h, _ := HashCallsign(call)
				table.Lookup(Hash22, h)
			}
		}(i)
	}
	wg.Wait()

	assert.Greater(t, table.Len(), 0)
}

func TestCallsigns(t *testing.T) {
	msg := Message{Call1: "CQ DX", Call2: "K1ABC"}
	assert.Equal(t, []string{"K1ABC"}, msg.Callsigns())

	msg = Message{Call1: "<...>", Call2: "W9XYZ/R"}
	assert.Equal(t, []string{"W9XYZ/R"}, msg.Callsigns())

	msg = Message{Call1: "G4ABC", Call2: "W9XYZ"}
	assert.Equal(t, []string{"G4ABC", "W9XYZ"}, msg.Callsigns())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "standard", TypeStandard.String())
	assert.Equal(t, "contest", TypeContest.String())
	assert.Equal(t, "unparsed", Type(99).String())

	b, err := TypeFreeText.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "free-text", string(b))
}
