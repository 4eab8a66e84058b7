package decoder

import (
	"fmt"
	"runtime"
	"time"

	"goft8/internal/costas"
	"goft8/internal/demod"
	"goft8/internal/ldpc"
	"goft8/internal/spectrum"
)

// Default orchestration settings
const (
	DefaultDeadline   = 10 * time.Second
	DefaultDedupeTime = 0.2  // seconds
	DefaultDedupeFreq = 10.0 // Hz
)

// Config collects the settings of every pipeline stage
type Config struct {
	Spectrum spectrum.Config
	Sync     costas.Config
	Demod    demod.Config
	LDPC     ldpc.Config

	Deadline   time.Duration // compute budget per window
	Workers    int           // concurrent candidate attempts
	DedupeTime float64       // decodes closer than this in time may merge (s)
	DedupeFreq float64       // decodes closer than this in frequency may merge (Hz)
}

// DefaultConfig returns the standard pipeline settings
func DefaultConfig() Config {
	return Config{
		Spectrum:   spectrum.DefaultConfig(),
		Sync:       costas.DefaultConfig(),
		Demod:      demod.DefaultConfig(),
		LDPC:       ldpc.DefaultConfig(),
		Deadline:   DefaultDeadline,
		Workers:    runtime.NumCPU(),
		DedupeTime: DefaultDedupeTime,
		DedupeFreq: DefaultDedupeFreq,
	}
}

// Validate checks every stage configuration
func (c Config) Validate() error {
	if err := c.Spectrum.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.Demod.Validate(); err != nil {
		return err
	}
	if err := c.LDPC.Validate(); err != nil {
		return err
	}
	if c.Deadline <= 0 {
		return fmt.Errorf("decoder: deadline must be positive, got %s", c.Deadline)
	}
	if c.Workers < 1 {
		return fmt.Errorf("decoder: worker count must be positive, got %d", c.Workers)
	}
	if c.DedupeTime < 0 || c.DedupeFreq < 0 {
		return fmt.Errorf("decoder: dedupe tolerances must not be negative")
	}
	return nil
}
