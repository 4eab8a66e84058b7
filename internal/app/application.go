package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"goft8/internal/decoder"
	"goft8/internal/ft8"
	"goft8/internal/logging"
	"goft8/internal/message"
	"goft8/internal/metrics"
	"goft8/internal/publish"
	"goft8/internal/report"
	"goft8/internal/spectrum"
	"goft8/internal/wavfile"
	"goft8/internal/window"
)

// SpotPublisher forwards spots to an external consumer
type SpotPublisher interface {
	PublishSpots([]report.Spot) error
	Close()
}

// Summary totals one decode run
type Summary struct {
	Pass      string
	Files     int
	Windows   int
	Skipped   int // trailing remainders too short to decode
	Decodes   int
	Truncated int
}

// Application wires the decoder to its inputs and outputs
type Application struct {
	config     Config
	logger     *logrus.Logger
	out        io.Writer
	reader     *wavfile.Reader
	decoder    *decoder.Decoder
	hashes     *message.HashTable
	console    *report.Writer
	decodeLog  *report.Writer
	logRotator *logging.LogRotator
	publisher  SpotPublisher
	registry   *prometheus.Registry
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewApplication creates a new application instance
func NewApplication(config Config) *Application {
	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config: config,
		logger: logger,
		out:    os.Stdout,
		reader: wavfile.NewReader(logger),
		hashes: message.NewHashTable(),
	}
}

// SetOutput redirects decode lines and level reports
func (app *Application) SetOutput(w io.Writer) {
	app.out = w
}

// SetLogOutput redirects diagnostic logging
func (app *Application) SetLogOutput(w io.Writer) {
	app.logger.SetOutput(w)
}

// SetPublisher replaces the MQTT publisher
func (app *Application) SetPublisher(p SpotPublisher) {
	app.publisher = p
}

// Registry returns the metrics registry, nil before Start
func (app *Application) Registry() *prometheus.Registry {
	return app.registry
}

// Start initializes components and launches background services
func (app *Application) Start(ctx context.Context) error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Debug("Starting FT8 decoder")

	if err := app.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app.ctx, app.cancel = context.WithCancel(ctx)

	if err := app.initializeComponents(); err != nil {
		app.cancel()
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	if app.logRotator != nil {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.logRotator.Start(app.ctx)
		}()
	}

	if app.config.MetricsAddr != "" {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			if err := metrics.Serve(app.ctx, app.config.MetricsAddr, app.registry, app.logger); err != nil {
				app.logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	return nil
}

// initializeComponents builds the decoder and every configured output
func (app *Application) initializeComponents() error {
	var err error

	app.decoder, err = decoder.NewDecoder(app.config.DecoderConfig(), app.logger)
	if err != nil {
		return err
	}
	app.decoder.SetHashTable(app.hashes)

	app.registry = prometheus.NewRegistry()
	app.decoder.SetObserver(metrics.NewCollector(app.registry))

	app.console, err = report.NewWriter(app.out, app.config.Format, app.logger)
	if err != nil {
		return err
	}
	app.console.SetDial(app.config.DialMHz)
	if err := app.console.SetHome(app.config.Locator); err != nil {
		return err
	}

	if app.config.LogDir != "" {
		app.logRotator, err = logging.NewLogRotator(app.config.LogDir, app.config.LogRotateUTC, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize log rotator: %w", err)
		}
		if app.config.LogKeepDays > 0 {
			if err := app.logRotator.CleanupOldLogs(app.config.LogKeepDays); err != nil {
				app.logger.WithError(err).Warn("Failed to clean up old decode logs")
			}
		}

		app.decodeLog, err = report.NewWriter(app.logRotator, report.LineAllTxt, app.logger)
		if err != nil {
			return err
		}
		app.decodeLog.SetDial(app.config.DialMHz)
	}

	if app.publisher == nil && app.config.MQTT.Broker != "" {
		app.publisher, err = publish.Connect(app.config.MQTT, app.logger)
		if err != nil {
			return err
		}
	}

	return nil
}

// Run starts the application, decodes every file and shuts down
func (app *Application) Run(ctx context.Context, paths []string) (Summary, error) {
	if err := app.Start(ctx); err != nil {
		return Summary{}, err
	}
	defer app.Shutdown()

	return app.DecodeFiles(app.ctx, paths)
}

// DecodeFiles decodes each WAV file in turn. A file that cannot be read is
// logged and counted as an error; the remaining files are still decoded.
func (app *Application) DecodeFiles(ctx context.Context, paths []string) (Summary, error) {
	summary := Summary{Pass: uuid.New().String()}
	var errs []error

	for _, path := range paths {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		if err := app.decodeFile(ctx, path, &summary); err != nil {
			app.logger.WithError(err).WithField("file", path).Error("Failed to decode file")
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		summary.Files++
	}

	app.logger.WithFields(logrus.Fields{
		"pass":      summary.Pass,
		"files":     summary.Files,
		"windows":   summary.Windows,
		"skipped":   summary.Skipped,
		"decodes":   summary.Decodes,
		"truncated": summary.Truncated,
	}).Info("Decode pass complete")

	return summary, errors.Join(errs...)
}

// decodeFile splits one recording into slots and decodes each
func (app *Application) decodeFile(ctx context.Context, path string, summary *Summary) error {
	w, info, err := app.readWindow(path)
	if err != nil {
		return err
	}

	if app.config.SniperFreq > 0 {
		w, err = w.Bandpass(app.config.SniperFreq, app.config.SniperWidth)
		if err != nil {
			return err
		}
		app.logger.WithFields(logrus.Fields{
			"center": app.config.SniperFreq,
			"width":  app.config.SniperWidth,
		}).Debug("Applied sniper band-pass")
	}

	base := SlotTime(filepath.Base(path), info.ModTime())
	for i, part := range w.Split() {
		slot := base.Add(time.Duration(i*ft8.SlotSeconds) * time.Second)

		res, err := app.decoder.Decode(ctx, part)
		if errors.Is(err, spectrum.ErrInsufficientSamples) {
			entry := app.logger.WithFields(logrus.Fields{
				"file":    path,
				"window":  i,
				"samples": part.Len(),
			})
			if i == 0 {
				entry.Warn("Recording is shorter than one decodable window")
			} else {
				entry.Debug("Skipping short trailing window")
			}
			summary.Skipped++
			continue
		}
		if err != nil {
			return err
		}

		summary.Windows++
		summary.Decodes += len(res.Decodes)
		if res.Truncated {
			summary.Truncated++
		}

		if err := app.emit(slot, res); err != nil {
			return err
		}
	}
	return nil
}

// readWindow loads a WAV file as a 12 kHz window
func (app *Application) readWindow(path string) (*window.Window, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	audio, err := app.reader.Read(f)
	if err != nil {
		return nil, nil, err
	}
	if audio.SampleRate != ft8.SampleRate {
		return nil, nil, fmt.Errorf("sample rate %d Hz, need %d Hz", audio.SampleRate, ft8.SampleRate)
	}

	return window.New(audio.Samples), info, nil
}

// emit writes a window's decodes to every configured output
func (app *Application) emit(slot time.Time, res *decoder.Result) error {
	spots, err := app.console.WriteResult(slot, res)
	if err != nil {
		return err
	}

	if app.decodeLog != nil {
		if _, err := app.decodeLog.WriteResult(slot, res); err != nil {
			return err
		}
	}

	if app.publisher != nil {
		if err := app.publisher.PublishSpots(spots); err != nil {
			app.logger.WithError(err).Warn("Failed to publish spots")
		}
	}
	return nil
}

// Shutdown stops background services and releases outputs
func (app *Application) Shutdown() {
	app.logger.Debug("Shutting down application")
	if app.cancel != nil {
		app.cancel()
	}

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		app.logger.Warn("Shutdown timeout, forcing exit")
	}

	if app.publisher != nil {
		app.publisher.Close()
	}
	if app.logRotator != nil {
		if err := app.logRotator.Close(); err != nil {
			app.logger.WithError(err).Warn("Failed to close decode log")
		}
	}
}
