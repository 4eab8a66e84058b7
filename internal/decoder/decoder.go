// Package decoder runs the FT8 receive pipeline over one audio window:
// spectral analysis and sync search once, then demodulation, LDPC decoding
// and unpacking of every candidate on a bounded worker pool.
package decoder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"goft8/internal/costas"
	"goft8/internal/demod"
	"goft8/internal/ft8"
	"goft8/internal/ldpc"
	"goft8/internal/message"
	"goft8/internal/spectrum"
	"goft8/internal/window"
)

// Decode is one message recovered from a window
type Decode struct {
	Time       float64         `json:"time"`      // transmission start from window start (s)
	Frequency  float64         `json:"frequency"` // tone 0 (Hz)
	SNR        float64         `json:"snr"`       // dB in 2500 Hz
	Sync       float64         `json:"sync"`      // sync score of the refined position
	Iterations int             `json:"iterations"`
	Message    message.Message `json:"message"`
}

// Stats counts why candidates did not become decodes
type Stats struct {
	Discarded    int `json:"discarded"`     // refined position outside the grid
	Repeated     int `json:"repeated"`      // refined position already attempted
	LDPCFailures int `json:"ldpc_failures"` // belief propagation did not converge
	CRCFailures  int `json:"crc_failures"`  // converged to a codeword with a bad checksum
	Duplicates   int `json:"duplicates"`    // dropped for a stronger copy nearby
}

// Result is the outcome of one window
type Result struct {
	Decodes    []Decode
	Candidates int
	Processed  int
	Truncated  bool // the deadline expired before every candidate was tried
	Elapsed    time.Duration
	Stats      Stats
}

// Observer receives every window result
type Observer interface {
	ObserveResult(*Result)
}

// Decoder decodes audio windows. It is safe for concurrent use; the grid
// and all tables are read-only while a window is in flight.
type Decoder struct {
	cfg      Config
	logger   *logrus.Logger
	bp       *ldpc.Decoder
	hashes   *message.HashTable
	observer Observer
}

// NewDecoder validates the configuration and builds a decoder
func NewDecoder(cfg Config, logger *logrus.Logger) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid decoder configuration: %w", err)
	}

	bp, err := ldpc.NewDecoder(cfg.LDPC)
	if err != nil {
		return nil, err
	}

	return &Decoder{
		cfg:    cfg,
		logger: logger,
		bp:     bp,
	}, nil
}

// SetHashTable enables resolution of hashed callsigns. Callsigns of each
// window's decodes are saved after the window completes.
func (d *Decoder) SetHashTable(t *message.HashTable) {
	d.hashes = t
}

// SetObserver registers a receiver for window results
func (d *Decoder) SetObserver(o Observer) {
	d.observer = o
}

// Config returns the decoder configuration
func (d *Decoder) Config() Config {
	return d.cfg
}

// Decode runs the pipeline on one window. The only error is a window too
// short to hold a transmission; an expired deadline or cancelled context
// marks the result truncated instead.
func (d *Decoder) Decode(ctx context.Context, w *window.Window) (*Result, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Deadline)
	defer cancel()

	grid, err := spectrum.Compute(w, d.cfg.Spectrum)
	if err != nil {
		return nil, err
	}
	candidates := costas.Search(grid, d.cfg.Sync)

	var lookup message.HashLookup
	if d.hashes != nil {
		lookup = d.hashes
	}

	c := newCollector(d.cfg.DedupeTime, d.cfg.DedupeFreq)
	var processed atomic.Int64

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)

	for _, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		cand := cand
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			d.attempt(grid, cand, lookup, c)
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	decodes := c.dedupe()
	result := &Result{
		Decodes:    decodes,
		Candidates: len(candidates),
		Processed:  int(processed.Load()),
		Stats:      c.stats,
		Elapsed:    time.Since(start),
	}
	result.Truncated = result.Processed < result.Candidates

	if d.hashes != nil {
		for _, dec := range result.Decodes {
			for _, call := range dec.Message.Callsigns() {
				d.hashes.Save(call)
			}
		}
	}

	d.logger.WithFields(logrus.Fields{
		"candidates": result.Candidates,
		"processed":  result.Processed,
		"decodes":    len(result.Decodes),
		"truncated":  result.Truncated,
		"elapsed":    result.Elapsed,
	}).Info("Window decoded")

	if d.observer != nil {
		d.observer.ObserveResult(result)
	}
	return result, nil
}

// attempt takes one candidate through demodulation, LDPC and unpacking
func (d *Decoder) attempt(grid *spectrum.Grid, cand costas.Candidate, lookup message.HashLookup, c *collector) {
	log := d.logger.WithFields(logrus.Fields{
		"row":   cand.Row,
		"col":   cand.Col,
		"score": cand.Score,
	})

	llrs, pos, ok := demod.Extract(grid, cand, d.cfg.Demod)
	if !ok {
		c.count(&c.stats.Discarded)
		log.Debug("Candidate outside grid after refinement")
		return
	}
	if !c.claim(pos) {
		return
	}

	cw := d.bp.Decode(llrs[:])
	if !cw.Valid {
		c.count(&c.stats.LDPCFailures)
		log.WithFields(logrus.Fields{
			"state":         cw.State,
			"parity_errors": cw.ParityErrors,
		}).Debug("LDPC did not converge")
		return
	}

	msg, ok := message.Unpack(cw.Bits, lookup)
	if !ok {
		c.count(&c.stats.CRCFailures)
		log.Debug("Checksum mismatch")
		return
	}

	dec := Decode{
		Time:       grid.Seconds(pos.Row),
		Frequency:  grid.Frequency(pos.Col),
		Sync:       pos.Score,
		Iterations: cw.Iterations,
		Message:    msg,
		SNR:        demod.MinSNR,
	}
	if tones, err := ft8.Tones(cw.Bits); err == nil {
		dec.SNR = demod.EstimateSNR(grid, pos, tones)
	}

	log.WithFields(logrus.Fields{
		"text":       msg.Text,
		"snr":        dec.SNR,
		"iterations": cw.Iterations,
	}).Debug("Message decoded")

	c.add(dec)
}
