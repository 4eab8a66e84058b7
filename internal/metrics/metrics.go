// Package metrics exports decoder results as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"goft8/internal/decoder"
)

const namespace = "goft8"

// Rejection reasons used as the "reason" label
const (
	ReasonDiscarded = "discarded"
	ReasonRepeated  = "repeated"
	ReasonLDPC      = "ldpc"
	ReasonCRC       = "crc"
	ReasonDuplicate = "duplicate"
)

// Collector records window results. It implements decoder.Observer.
type Collector struct {
	windows    prometheus.Counter
	truncated  prometheus.Counter
	candidates prometheus.Counter
	processed  prometheus.Counter
	decodes    *prometheus.CounterVec // by message type
	rejected   *prometheus.CounterVec // by reason
	lastCount  prometheus.Gauge
	elapsed    prometheus.Histogram
	snr        prometheus.Histogram
}

// NewCollector registers the decoder metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		windows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_total",
			Help:      "Audio windows decoded",
		}),
		truncated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_truncated_total",
			Help:      "Windows where the deadline expired before every candidate was tried",
		}),
		candidates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Sync candidates found",
		}),
		processed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_processed_total",
			Help:      "Sync candidates attempted",
		}),
		decodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decodes_total",
			Help:      "Messages decoded",
		}, []string{"type"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_rejected_total",
			Help:      "Candidates that did not produce a new decode",
		}, []string{"reason"}),
		lastCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_window_decodes",
			Help:      "Decodes in the most recent window",
		}),
		elapsed: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "window_duration_seconds",
			Help:      "Time spent decoding one window",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		snr: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_snr_db",
			Help:      "SNR of decoded messages in 2500 Hz",
			Buckets:   prometheus.LinearBuckets(-30, 5, 11),
		}),
	}
}

// ObserveResult records one window
func (c *Collector) ObserveResult(res *decoder.Result) {
	c.windows.Inc()
	if res.Truncated {
		c.truncated.Inc()
	}
	c.candidates.Add(float64(res.Candidates))
	c.processed.Add(float64(res.Processed))
	c.lastCount.Set(float64(len(res.Decodes)))
	c.elapsed.Observe(res.Elapsed.Seconds())

	for _, d := range res.Decodes {
		c.decodes.WithLabelValues(d.Message.Type.String()).Inc()
		c.snr.Observe(d.SNR)
	}

	c.rejected.WithLabelValues(ReasonDiscarded).Add(float64(res.Stats.Discarded))
	c.rejected.WithLabelValues(ReasonRepeated).Add(float64(res.Stats.Repeated))
	c.rejected.WithLabelValues(ReasonLDPC).Add(float64(res.Stats.LDPCFailures))
	c.rejected.WithLabelValues(ReasonCRC).Add(float64(res.Stats.CRCFailures))
	c.rejected.WithLabelValues(ReasonDuplicate).Add(float64(res.Stats.Duplicates))
}

// Handler serves the metrics gathered from g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *logrus.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Metrics server shutdown failed")
		}
	}()

	logger.WithField("addr", addr).Info("Serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
