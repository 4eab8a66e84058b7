package ft8

// Timing and modulation constants for the FT8 protocol
const (
	SampleRate    = 12000 // canonical processing rate (Hz)
	SlotSeconds   = 15    // one transmission period
	SlotSamples   = SampleRate * SlotSeconds
	SymbolSamples = 1920 // 0.16 s per symbol
	SymbolPeriod  = float64(SymbolSamples) / SampleRate
	ToneSpacing   = 1 / SymbolPeriod // 6.25 Hz
	NumTones      = 8
	BitsPerSymbol = 3
)

// Frame layout: S7 D29 S7 D29 S7
const (
	NumSymbols     = 79
	NumSyncSymbols = 21
	NumDataSymbols = 58
	CostasLength   = 7
	CostasBlocks   = 3
	CostasSpacing  = 36 // symbols between the start of consecutive sync blocks
	HalfDataLength = 29

	// MinSamples is the shortest window that can hold a complete transmission.
	MinSamples = NumSymbols * SymbolSamples
)

// Code dimensions
const (
	PayloadBits  = 77
	CRCBits      = 14
	MessageBits  = PayloadBits + CRCBits // 91
	CodewordBits = 174
	ParityBits   = CodewordBits - MessageBits // 83
)

// Costas is the sync tone sequence sent at symbols 0, 36 and 72.
var Costas = [CostasLength]int{3, 1, 4, 0, 6, 5, 2}

// GrayMap maps a 3-bit symbol value to the transmitted tone.
var GrayMap = [NumTones]int{0, 1, 3, 2, 5, 6, 4, 7}
