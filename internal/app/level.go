package app

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"goft8/internal/window"
)

// CheckLevels reports the audio level of each file
func (app *Application) CheckLevels(paths []string) ([]window.Level, error) {
	levels := make([]window.Level, 0, len(paths))
	var errs []error

	for _, path := range paths {
		w, _, err := app.readWindow(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}

		level := w.Level()
		levels = append(levels, level)

		fmt.Fprintf(app.out, "%s: RMS %.1f dBFS, peak %.1f dBFS, %s\n",
			path, level.RMSdBFS(), level.PeakdBFS(), level.Status)

		if level.Status != window.LevelOK {
			app.logger.WithFields(logrus.Fields{
				"file":   path,
				"peak":   level.Peak,
				"status": level.Status,
			}).Warn("Audio level outside the usable range")
		}
	}

	return levels, errors.Join(errs...)
}
