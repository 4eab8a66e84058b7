package message

import "fmt"

// Type identifies the payload layout of a message
type Type int

// Message types
const (
	TypeUnparsed Type = iota
	TypeFreeText
	TypeDXpedition
	TypeTelemetry
	TypeStandard
	TypeNonstandard
	TypeContest
)

// String returns the type name
func (t Type) String() string {
	switch t {
	case TypeFreeText:
		return "free-text"
	case TypeDXpedition:
		return "dxpedition"
	case TypeTelemetry:
		return "telemetry"
	case TypeStandard:
		return "standard"
	case TypeNonstandard:
		return "nonstandard"
	case TypeContest:
		return "contest"
	default:
		return "unparsed"
	}
}

// MarshalText encodes the type by name
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Message is the unpacked content of a 77-bit payload
type Message struct {
	Type   Type   `json:"type"`
	I3     uint8  `json:"i3"`
	N3     uint8  `json:"n3"`
	Text   string `json:"text"`
	Call1  string `json:"call1,omitempty"`  // addressee, CQ token or first call
	Call2  string `json:"call2,omitempty"`  // sender
	Grid   string `json:"grid,omitempty"`   // 4-character locator
	Report string `json:"report,omitempty"` // signal report or acknowledgement
	Hex    string `json:"hex,omitempty"`    // raw payload for telemetry and unparsed types
}

// Callsigns returns the plain (unhashed, non-token) callsigns in the message
func (m Message) Callsigns() []string {
	var calls []string
	for _, c := range []string{m.Call1, m.Call2} {
		if c == "" || c[0] == '<' || c == "DE" || c == "QRZ" || len(c) >= 2 && c[:2] == "CQ" {
			continue
		}
		calls = append(calls, c)
	}
	return calls
}

// TypeLabel returns the i3.n3 label used for diagnostics
func (m Message) TypeLabel() string {
	if m.I3 == 0 {
		return fmt.Sprintf("%d.%d", m.I3, m.N3)
	}
	return fmt.Sprintf("%d", m.I3)
}
