package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// maxFlightLogs bounds the three-digit suffix.
const maxFlightLogs = 1000

var ErrNoFreeLogName = errors.New("no unused flight log name")

// CreateFlightLog creates dir/<prefix>NNN using the lowest NNN not already
// present. Existing logs are never opened for writing.
func CreateFlightLog(dir, prefix string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	for i := 0; i < maxFlightLogs; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%s%03d", prefix, i))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return nil, fmt.Errorf("%s: %w", filepath.Join(dir, prefix+"NNN"), ErrNoFreeLogName)
}
