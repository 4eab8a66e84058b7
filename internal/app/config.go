package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"goft8/internal/costas"
	"goft8/internal/decoder"
	"goft8/internal/ldpc"
	"goft8/internal/locator"
	"goft8/internal/publish"
	"goft8/internal/report"
	"goft8/internal/spectrum"
)

// Default configuration constants
const (
	DefaultLogDir      = "./logs"
	DefaultDialMHz     = 14.074 // 20 m FT8 calling frequency
	DefaultFormat      = report.LineWSJTX
	DefaultSelfTestSNR = -12.0
)

// Config holds application configuration
type Config struct {
	Threshold     float64       `yaml:"threshold"`
	MaxCandidates int           `yaml:"max_candidates"`
	Iterations    int           `yaml:"iterations"`
	MinFreq       float64       `yaml:"min_freq"`
	MaxFreq       float64       `yaml:"max_freq"`
	Deadline      time.Duration `yaml:"deadline"`
	Workers       int           `yaml:"workers"`

	SniperFreq  float64 `yaml:"sniper_freq"` // 0 disables the band-pass
	SniperWidth float64 `yaml:"sniper_width"`

	Format       string  `yaml:"format"`
	DialMHz      float64 `yaml:"dial_mhz"`
	Locator      string  `yaml:"locator"`
	LogDir       string  `yaml:"log_dir"` // empty disables the decode log
	LogRotateUTC bool    `yaml:"log_rotate_utc"`
	LogKeepDays  int     `yaml:"log_keep_days"` // 0 keeps every log

	MetricsAddr string         `yaml:"metrics_addr"`
	MQTT        publish.Config `yaml:"mqtt"`

	Verbose     bool `yaml:"verbose"`
	ShowVersion bool `yaml:"-"`
}

// DefaultConfig returns the configuration used when no file or flag overrides it
func DefaultConfig() Config {
	return Config{
		Threshold:     costas.DefaultThreshold,
		MaxCandidates: costas.DefaultMaxCandidates,
		Iterations:    ldpc.DefaultMaxIterations,
		MinFreq:       spectrum.DefaultMinFreq,
		MaxFreq:       spectrum.DefaultMaxFreq,
		Deadline:      decoder.DefaultDeadline,
		Workers:       runtime.NumCPU(),
		Format:        DefaultFormat,
		DialMHz:       DefaultDialMHz,
		LogDir:        DefaultLogDir,
		LogRotateUTC:  true,
		MQTT: publish.Config{
			Topic:   publish.DefaultTopic,
			Timeout: publish.DefaultTimeout,
		},
	}
}

// LoadConfigFile overlays the YAML file at path onto cfg. Unknown keys are errors.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// DecoderConfig maps the application settings onto the decoder
func (c Config) DecoderConfig() decoder.Config {
	cfg := decoder.DefaultConfig()
	cfg.Sync.Threshold = c.Threshold
	cfg.Sync.MaxCandidates = c.MaxCandidates
	cfg.LDPC.MaxIterations = c.Iterations
	cfg.Spectrum.MinFreq = c.MinFreq
	cfg.Spectrum.MaxFreq = c.MaxFreq
	cfg.Deadline = c.Deadline
	cfg.Workers = c.Workers
	return cfg
}

// Validate checks settings the decoder does not see
func (c Config) Validate() error {
	if err := c.DecoderConfig().Validate(); err != nil {
		return err
	}
	switch c.Format {
	case report.LineWSJTX, report.LineAllTxt:
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	if c.Locator != "" && !locator.Valid(c.Locator) {
		return fmt.Errorf("invalid locator %q", c.Locator)
	}
	if c.SniperFreq < 0 || c.SniperWidth < 0 {
		return errors.New("sniper frequency and width must not be negative")
	}
	if c.LogKeepDays < 0 {
		return errors.New("log retention must not be negative")
	}
	return nil
}
