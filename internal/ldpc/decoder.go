package ldpc

import (
	"fmt"
	"math"
)

// State is a belief propagation decoder state
type State int

// Decoder states
const (
	StateInit State = iota
	StateIterate
	StateCheck
	StateConverged
	StateMaxIterationsExceeded
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateIterate:
		return "iterate"
	case StateCheck:
		return "check"
	case StateConverged:
		return "converged"
	case StateMaxIterationsExceeded:
		return "max-iterations-exceeded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Codeword is the outcome of one decode attempt
type Codeword struct {
	Bits         []uint8 // hard decisions, one bit per byte
	Valid        bool    // all parity checks satisfied
	Iterations   int     // belief updates performed
	ParityErrors int     // unsatisfied checks in Bits
	State        State   // terminal state
}

// Message returns the 91 systematic bits (payload and checksum)
func (c Codeword) Message() []uint8 {
	return c.Bits[:MessageBits]
}

// Decoder runs sum-product belief propagation on the FT8 code.
// A Decoder holds no per-call state and may be shared between goroutines.
type Decoder struct {
	maxIterations int
	limit         float64
	maxTanh       float64
}

// NewDecoder creates a decoder with the given configuration
func NewDecoder(cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Decoder{
		maxIterations: cfg.MaxIterations,
		limit:         cfg.LLRLimit,
		maxTanh:       math.Tanh(cfg.LLRLimit / 2),
	}, nil
}

// session is the message state of a single decode
type session struct {
	llr   [CodewordBits]float64
	toVar [CodewordBits][ColumnWeight]float64 // check -> variable LLRs
	toChk [ParityChecks][MaxCheckWeight]float64
	bits  []uint8
}

// Decode runs belief propagation on 174 channel LLRs (positive favours bit 1).
// It never fails: a non-convergent decode returns the last hard decision with Valid unset.
func (d *Decoder) Decode(llrs []float64) Codeword {
	s := &session{bits: make([]uint8, CodewordBits)}

	state := StateInit
	iterations := 0
	errors := 0

	for {
		switch state {
		case StateInit:
			for n := 0; n < CodewordBits; n++ {
				if n < len(llrs) {
					s.llr[n] = d.clamp(llrs[n])
				}
			}
			state = StateCheck

		case StateCheck:
			d.harden(s)
			errors = Check(s.bits)
			switch {
			case errors == 0:
				state = StateConverged
			case iterations >= d.maxIterations:
				state = StateMaxIterationsExceeded
			default:
				state = StateIterate
			}

		case StateIterate:
			d.variableUpdate(s)
			d.checkUpdate(s)
			iterations++
			state = StateCheck

		case StateConverged, StateMaxIterationsExceeded:
			return Codeword{
				Bits:         s.bits,
				Valid:        state == StateConverged,
				Iterations:   iterations,
				ParityErrors: errors,
				State:        state,
			}
		}
	}
}

// harden takes the sign of each variable's total belief
func (d *Decoder) harden(s *session) {
	for n := 0; n < CodewordBits; n++ {
		total := s.llr[n]
		for j := 0; j < ColumnWeight; j++ {
			total += s.toVar[n][j]
		}
		if total > 0 {
			s.bits[n] = 1
		} else {
			s.bits[n] = 0
		}
	}
}

// variableUpdate sends each check the variable belief excluding that check's own message
func (d *Decoder) variableUpdate(s *session) {
	for n := 0; n < CodewordBits; n++ {
		for j, e := range variables[n] {
			belief := s.llr[n]
			for k := 0; k < ColumnWeight; k++ {
				if k != j {
					belief += s.toVar[n][k]
				}
			}
			s.toChk[e.check][e.slot] = math.Tanh(-d.clamp(belief) / 2)
		}
	}
}

// checkUpdate sends each variable the check's extrinsic LLR
func (d *Decoder) checkUpdate(s *session) {
	for n := 0; n < CodewordBits; n++ {
		for j, e := range variables[n] {
			product := 1.0
			for slot := range checks[e.check] {
				if slot != e.slot {
					product *= s.toChk[e.check][slot]
				}
			}
			// keep atanh finite
			product = math.Max(-d.maxTanh, math.Min(d.maxTanh, product))
			s.toVar[n][j] = d.clamp(-2 * math.Atanh(product))
		}
	}
}

func (d *Decoder) clamp(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	if x > d.limit {
		return d.limit
	}
	if x < -d.limit {
		return -d.limit
	}
	return x
}
