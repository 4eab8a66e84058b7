package app

import (
	"strings"
	"time"

	"goft8/internal/ft8"
)

// savedFileLayout is the timestamp prefix of recordings saved by WSJT-X
const savedFileLayout = "060102_150405"

// SlotTime returns the start of the first slot of a recording. The time is
// taken from a WSJT-X style name when present, otherwise from fallback
// aligned down to a slot boundary.
func SlotTime(name string, fallback time.Time) time.Time {
	base := strings.TrimSuffix(name, ".wav")
	if len(base) >= len(savedFileLayout) {
		if t, err := time.Parse(savedFileLayout, base[:len(savedFileLayout)]); err == nil {
			return t
		}
	}
	return fallback.UTC().Truncate(ft8.SlotSeconds * time.Second)
}
