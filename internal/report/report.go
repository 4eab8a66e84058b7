// Package report formats decodes as text lines for the console and decode logs.
package report

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"goft8/internal/decoder"
	"goft8/internal/locator"
)

// Line formats
const (
	LineWSJTX  = "wsjtx"  // HHMMSS SNR DT FREQ ~ TEXT
	LineAllTxt = "alltxt" // YYMMDD_HHMMSS DIAL Rx FT8 SNR DT FREQ TEXT
)

// NominalStart is where a transmission begins inside its slot; DT is reported relative to it
const NominalStart = 0.5

// Spot is a decode placed in wall-clock time
type Spot struct {
	decoder.Decode
	Slot time.Time      `json:"slot"`
	Path *locator.Path `json:"path,omitempty"` // from the home locator when the message carries a grid
}

// NewSpot builds a spot; home may be empty
func NewSpot(slot time.Time, d decoder.Decode, home string) Spot {
	s := Spot{Decode: d, Slot: slot}
	if home != "" && d.Message.Grid != "" {
		if p, err := locator.Between(home, d.Message.Grid); err == nil {
			s.Path = &p
		}
	}
	return s
}

// DT returns the start offset relative to the nominal start
func (s Spot) DT() float64 {
	return s.Time - NominalStart
}

func (s Spot) snr() int {
	return int(math.Round(s.SNR))
}

func (s Spot) audioFreq() int {
	return int(math.Round(s.Frequency))
}

// FormatWSJTX formats a spot like the WSJT-X band activity list
func FormatWSJTX(s Spot) string {
	line := fmt.Sprintf("%s %3d %4.1f %4d ~  %s",
		s.Slot.Format("150405"), s.snr(), s.DT(), s.audioFreq(), s.Message.Text)
	if s.Path != nil {
		line += "  (" + s.Path.String() + ")"
	}
	return line
}

// FormatAllTxt formats a spot like a line of the WSJT-X ALL.TXT log
func FormatAllTxt(s Spot, dialMHz float64) string {
	return fmt.Sprintf("%s %10.3f Rx FT8 %6d %4.1f %4d %s",
		s.Slot.Format("060102_150405"), dialMHz, s.snr(), s.DT(), s.audioFreq(), s.Message.Text)
}

// Writer writes decode lines to an output
type Writer struct {
	out     io.Writer
	logger  *logrus.Logger
	format  string
	dialMHz float64
	home    string
	mu      sync.Mutex
}

// NewWriter creates a writer for one of the line formats
func NewWriter(out io.Writer, format string, logger *logrus.Logger) (*Writer, error) {
	switch format {
	case LineWSJTX, LineAllTxt:
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}

	return &Writer{
		out:    out,
		logger: logger,
		format: format,
	}, nil
}

// SetDial sets the dial frequency written to ALL.TXT lines
func (w *Writer) SetDial(mhz float64) {
	w.dialMHz = mhz
}

// SetHome sets the station locator used for distance and bearing
func (w *Writer) SetHome(grid string) error {
	if grid != "" && !locator.Valid(grid) {
		return fmt.Errorf("invalid home locator %q", grid)
	}
	w.home = grid
	return nil
}

// WriteResult writes one line per decode and returns the spots written
func (w *Writer) WriteResult(slot time.Time, res *decoder.Result) ([]Spot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	spots := make([]Spot, 0, len(res.Decodes))
	for _, d := range res.Decodes {
		spot := NewSpot(slot, d, w.home)

		var line string
		switch w.format {
		case LineAllTxt:
			line = FormatAllTxt(spot, w.dialMHz)
		default:
			line = FormatWSJTX(spot)
		}

		if _, err := io.WriteString(w.out, line+"\n"); err != nil {
			return spots, fmt.Errorf("failed to write report line: %w", err)
		}
		spots = append(spots, spot)
	}

	if res.Truncated {
		w.logger.WithFields(logrus.Fields{
			"slot":       slot.Format("150405"),
			"processed":  res.Processed,
			"candidates": res.Candidates,
		}).Warn("Decode deadline reached before all candidates were tried")
	}
	return spots, nil
}
