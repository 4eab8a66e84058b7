package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"goft8/internal/ft8"
	"goft8/internal/synth"
)

// selfTestSignals are placed in the synthetic slot; SNR is relative to the requested level
var selfTestSignals = []struct {
	text   string
	freq   float64
	start  float64
	offset float64
}{
	{"CQ K1ABC FN42", 800, 0.5, 0},
	{"K1ABC W9XYZ -15", 1400, 0.8, 3},
	{"W9XYZ K1ABC R-12", 2000, 0.3, -2},
	{"TNX BOB 73 GL", 2500, 0.6, 4},
}

// SelfTestResult lists what the self test sent and recovered
type SelfTestResult struct {
	Sent    []string
	Missing []string
	Decodes int
}

// SelfTest synthesizes a slot of known messages at snr dB, decodes it
// through the configured outputs and reports any message not recovered.
// Start must have been called.
func (app *Application) SelfTest(ctx context.Context, snr float64, seed int64) (SelfTestResult, error) {
	var result SelfTestResult
	if app.decoder == nil {
		return result, fmt.Errorf("application not started")
	}

	scene := synth.NewSlot(seed)
	for _, s := range selfTestSignals {
		if err := scene.AddMessage(s.text, s.freq, s.start, snr+s.offset); err != nil {
			return result, err
		}
		result.Sent = append(result.Sent, s.text)
	}

	res, err := app.decoder.Decode(ctx, scene.Window())
	if err != nil {
		return result, err
	}
	result.Decodes = len(res.Decodes)

	slot := time.Now().UTC().Truncate(ft8.SlotSeconds * time.Second)
	if err := app.emit(slot, res); err != nil {
		return result, err
	}

	for _, s := range selfTestSignals {
		found := false
		for _, d := range res.Decodes {
			if d.Message.Text == s.text && math.Abs(d.Frequency-s.freq) < 10 {
				found = true
				break
			}
		}
		if !found {
			result.Missing = append(result.Missing, s.text)
		}
	}

	app.logger.WithFields(logrus.Fields{
		"snr":     snr,
		"sent":    len(result.Sent),
		"decodes": result.Decodes,
		"missing": len(result.Missing),
	}).Info("Self test complete")

	if len(result.Missing) > 0 {
		return result, fmt.Errorf("self test missed %d of %d messages: %s",
			len(result.Missing), len(result.Sent), strings.Join(result.Missing, ", "))
	}
	return result, nil
}
