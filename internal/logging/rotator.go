package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/lestrrat-go/strftime"
	"github.com/sirupsen/logrus"
)

// DefaultPattern names one decode log per day
const DefaultPattern = "ft8_%Y-%m-%d.log"

var strftimeVerb = regexp.MustCompile(`%[A-Za-z]`)

// LogRotator writes decode lines to a file named after the current time
// and compresses each file once its name goes out of date
type LogRotator struct {
	logDir      string
	pattern     *strftime.Strftime
	glob        string
	useUTC      bool
	logger      *logrus.Logger
	currentFile *os.File
	currentName string
	mutex       sync.RWMutex
	compressing sync.WaitGroup
	now         func() time.Time
}

// NewLogRotator creates a daily log rotator in logDir
func NewLogRotator(logDir string, useUTC bool, logger *logrus.Logger) (*LogRotator, error) {
	return NewPatternRotator(logDir, DefaultPattern, useUTC, logger)
}

// NewPatternRotator creates a rotator whose file names follow a strftime pattern
func NewPatternRotator(logDir, pattern string, useUTC bool, logger *logrus.Logger) (*LogRotator, error) {
	p, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid log file pattern %q: %w", pattern, err)
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &LogRotator{
		logDir:  logDir,
		pattern: p,
		glob:    strftimeVerb.ReplaceAllString(pattern, "*") + "*",
		useUTC:  useUTC,
		logger:  logger,
		now:     time.Now,
	}

	rotator.mutex.Lock()
	defer rotator.mutex.Unlock()
	if err := rotator.rotateLogFile(); err != nil {
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}

	return rotator, nil
}

// Start checks for rotation every minute until ctx is done
func (r *LogRotator) Start(ctx context.Context) {
	r.logger.Info("Starting log rotator")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Log rotator stopping")
			return
		case <-ticker.C:
			r.checkRotation()
		}
	}
}

func (r *LogRotator) currentTime() time.Time {
	if r.useUTC {
		return r.now().UTC()
	}
	return r.now()
}

// checkRotation opens a new file when the pattern yields a new name
func (r *LogRotator) checkRotation() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.currentFile == nil {
		return
	}
	if name := r.pattern.FormatString(r.currentTime()); name != r.currentName {
		r.logger.WithFields(logrus.Fields{
			"old_file": r.currentName,
			"new_file": name,
		}).Info("Rotating log file")

		if err := r.rotateLogFile(); err != nil {
			r.logger.WithError(err).Error("Failed to rotate log file")
		}
	}
}

// rotateLogFile switches to the file for the current time. Callers hold the lock.
func (r *LogRotator) rotateLogFile() error {
	name := r.pattern.FormatString(r.currentTime())
	if r.currentFile != nil && name == r.currentName {
		return nil
	}

	if r.currentFile != nil {
		if err := r.currentFile.Close(); err != nil {
			r.logger.WithError(err).Error("Failed to close old log file")
		}

		old := r.currentName
		r.compressing.Add(1)
		go func() {
			defer r.compressing.Done()
			r.compressLogFile(old)
		}()
	}

	path := filepath.Join(r.logDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file %s: %w", path, err)
	}

	r.currentFile = file
	r.currentName = name

	r.logger.WithField("file", path).Info("Created new log file")
	return nil
}

// compressLogFile replaces a finished log file with its gzip copy
func (r *LogRotator) compressLogFile(name string) {
	logFile := filepath.Join(r.logDir, name)
	gzipFile := logFile + ".gz"

	log := r.logger.WithFields(logrus.Fields{
		"source": logFile,
		"target": gzipFile,
	})

	src, err := os.Open(logFile)
	if err != nil {
		log.WithError(err).Debug("Log file not available for compression")
		return
	}
	defer src.Close()

	dst, err := os.Create(gzipFile)
	if err != nil {
		log.WithError(err).Error("Failed to create compressed file")
		return
	}

	gz, err := gzip.NewWriterLevel(dst, gzip.BestCompression)
	if err != nil {
		dst.Close()
		log.WithError(err).Error("Failed to create gzip writer")
		return
	}
	gz.Name = name
	gz.ModTime = time.Now()

	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		dst.Close()
		log.WithError(err).Error("Failed to compress log file")
		return
	}
	if err := gz.Close(); err != nil {
		dst.Close()
		log.WithError(err).Error("Failed to close gzip writer")
		return
	}
	if err := dst.Close(); err != nil {
		log.WithError(err).Error("Failed to close compressed file")
		return
	}

	if err := os.Remove(logFile); err != nil {
		log.WithError(err).Error("Failed to remove original log file")
		return
	}

	log.Info("Log file compressed")
}

// Write appends p to the current log file, rotating first if needed
func (r *LogRotator) Write(p []byte) (int, error) {
	r.checkRotation()

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.currentFile == nil {
		return 0, fmt.Errorf("log rotator is closed")
	}
	return r.currentFile.Write(p)
}

// GetWriter returns the current log file
func (r *LogRotator) GetWriter() (io.Writer, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.currentFile == nil {
		return nil, fmt.Errorf("no current log file")
	}
	return r.currentFile, nil
}

// GetCurrentLogFile returns the path of the file being written
func (r *LogRotator) GetCurrentLogFile() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.currentName == "" {
		return ""
	}
	return filepath.Join(r.logDir, r.currentName)
}

// GetLogFiles lists plain and compressed files matching the pattern
func (r *LogRotator) GetLogFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(r.logDir, r.glob))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}
	return files, nil
}

// CleanupOldLogs removes log files last modified more than maxDays ago
func (r *LogRotator) CleanupOldLogs(maxDays int) error {
	if maxDays <= 0 {
		return fmt.Errorf("maxDays must be positive")
	}

	files, err := r.GetLogFiles()
	if err != nil {
		return err
	}

	cutoff := r.currentTime().AddDate(0, 0, -maxDays)
	current := r.GetCurrentLogFile()

	removed := 0
	for _, file := range files {
		if file == current {
			continue
		}

		info, err := os.Stat(file)
		if err != nil {
			r.logger.WithError(err).WithField("file", file).Warn("Failed to stat log file")
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err != nil {
				r.logger.WithError(err).WithField("file", file).Error("Failed to remove old log file")
				continue
			}
			r.logger.WithField("file", file).Info("Removed old log file")
			removed++
		}
	}

	r.logger.WithField("count", removed).Info("Cleaned up old log files")
	return nil
}

// Close closes the current file and waits for pending compression
func (r *LogRotator) Close() error {
	r.mutex.Lock()
	var err error
	if r.currentFile != nil {
		err = r.currentFile.Close()
		r.currentFile = nil
	}
	r.mutex.Unlock()

	r.compressing.Wait()

	if err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}
