package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goft8/internal/decoder"
	"goft8/internal/message"
)

func sampleResult() *decoder.Result {
	return &decoder.Result{
		Decodes: []decoder.Decode{
			{SNR: -12, Message: message.Message{Type: message.TypeStandard, Text: "CQ K1ABC FN42"}},
			{SNR: -3, Message: message.Message{Type: message.TypeStandard, Text: "K1ABC W9XYZ -10"}},
			{SNR: -20, Message: message.Message{Type: message.TypeFreeText, Text: "TNX BOB 73 GL"}},
		},
		Candidates: 40,
		Processed:  32,
		Truncated:  true,
		Elapsed:    750 * time.Millisecond,
		Stats: decoder.Stats{
			Discarded:    1,
			Repeated:     4,
			LDPCFailures: 22,
			CRCFailures:  1,
			Duplicates:   1,
		},
	}
}

func TestObserveResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveResult(sampleResult())
	c.ObserveResult(&decoder.Result{Candidates: 5, Processed: 5, Elapsed: time.Millisecond})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.windows))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.truncated))
	assert.Equal(t, 45.0, testutil.ToFloat64(c.candidates))
	assert.Equal(t, 37.0, testutil.ToFloat64(c.processed))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.lastCount))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.decodes.WithLabelValues("standard")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decodes.WithLabelValues("free-text")))
	assert.Equal(t, 22.0, testutil.ToFloat64(c.rejected.WithLabelValues(ReasonLDPC)))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.rejected.WithLabelValues(ReasonRepeated)))

	assert.Equal(t, 1, testutil.CollectAndCount(c.snr))
}

func TestCollectorImplementsObserver(t *testing.T) {
	var _ decoder.Observer = NewCollector(prometheus.NewRegistry())
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg).ObserveResult(sampleResult())

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := server.Client().Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `goft8_decodes_total{type="standard"} 2`))
	assert.True(t, strings.Contains(text, "goft8_windows_truncated_total 1"))
	assert.True(t, strings.Contains(text, "goft8_window_duration_seconds_count 1"))
}

func TestServeStopsOnCancel(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", prometheus.NewRegistry(), logger)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
