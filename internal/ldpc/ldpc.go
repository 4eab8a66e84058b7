package ldpc

import (
	"fmt"
	"strconv"

	"goft8/internal/ft8"
)

// Code dimensions
const (
	CodewordBits   = ft8.CodewordBits
	MessageBits    = ft8.MessageBits
	ParityChecks   = ft8.ParityBits
	ColumnWeight   = 3
	MaxCheckWeight = 7
)

// Default decoder settings
const (
	DefaultMaxIterations = 25
	DefaultLLRLimit      = 20.0

	// maxLLRLimit keeps tanh(limit/2) representable below 1 in float64.
	maxLLRLimit = 30.0
)

// Config holds belief propagation settings
type Config struct {
	MaxIterations int
	LLRLimit      float64
}

// DefaultConfig returns the standard decoder settings
func DefaultConfig() Config {
	return Config{
		MaxIterations: DefaultMaxIterations,
		LLRLimit:      DefaultLLRLimit,
	}
}

// Validate checks the configuration for unusable values
func (c Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("ldpc: iteration cap must be positive, got %d", c.MaxIterations)
	}
	if c.LLRLimit <= 0 || c.LLRLimit > maxLLRLimit {
		return fmt.Errorf("ldpc: LLR limit must be in (0, %.0f], got %g", maxLLRLimit, c.LLRLimit)
	}
	return nil
}

// edge locates one variable inside a check's variable list
type edge struct {
	check int
	slot  int
}

// Tables derived once from the parity-check lists
var (
	checks    [ParityChecks][]int           // 0-based variables per check
	variables [CodewordBits][ColumnWeight]edge // checks touching each variable
	generator [ParityChecks][MessageBits]uint8
)

func init() {
	var fill [CodewordBits]int

	for m, vars := range checkVariables {
		checks[m] = make([]int, len(vars))
		for slot, v := range vars {
			n := v - 1
			checks[m][slot] = n
			if fill[n] >= ColumnWeight {
				panic(fmt.Sprintf("ldpc: variable %d appears in more than %d checks", n, ColumnWeight))
			}
			variables[n][fill[n]] = edge{check: m, slot: slot}
			fill[n]++
		}
	}

	for n, count := range fill {
		if count != ColumnWeight {
			panic(fmt.Sprintf("ldpc: variable %d appears in %d checks", n, count))
		}
	}

	for i, row := range generatorRows {
		for j := 0; j < MessageBits; j++ {
			digit, err := strconv.ParseUint(row[j/4:j/4+1], 16, 8)
			if err != nil {
				panic(fmt.Sprintf("ldpc: generator row %d: %v", i, err))
			}
			generator[i][j] = uint8(digit>>(3-uint(j%4))) & 1
		}
	}
}

// Check counts the parity checks a hard-decision codeword fails
func Check(bits []uint8) int {
	errors := 0
	for _, vars := range checks {
		var parity uint8
		for _, n := range vars {
			parity ^= bits[n]
		}
		if parity != 0 {
			errors++
		}
	}
	return errors
}

// Encode computes the 174-bit codeword for a 91-bit message block
func Encode(message []uint8) ([]uint8, error) {
	if len(message) != MessageBits {
		return nil, fmt.Errorf("ldpc: message has %d bits, want %d", len(message), MessageBits)
	}

	codeword := make([]uint8, CodewordBits)
	copy(codeword, message)

	for i := range generator {
		var parity uint8
		for j, g := range generator[i] {
			parity ^= g & message[j]
		}
		codeword[MessageBits+i] = parity & 1
	}

	return codeword, nil
}
