// Package framing wraps payloads in record headers for the flight log and
// packs them into size-bounded telemetry packets.
package framing

import (
	"fmt"
	"io"
	"sync"

	"av-fc-core/flight_computer/messages"
)

// RecordLog appends framed records to an append-only writer, usually the
// flight log file.
type RecordLog struct {
	mu       sync.Mutex
	w        io.Writer
	buf      []byte
	failures uint64
}

func NewRecordLog(w io.Writer) *RecordLog {
	return &RecordLog{w: w, buf: make([]byte, 0, 256)}
}

// Write frames payload and writes header and payload with one call to the
// underlying writer.
func (l *RecordLog) Write(tag messages.Tag, timestamp uint64, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = messages.AppendFrame(l.buf[:0], tag, timestamp, payload)
	if _, err := l.w.Write(l.buf); err != nil {
		l.failures++
		return fmt.Errorf("log %s record: %w", tag, err)
	}
	return nil
}

// Failures returns how many writes have failed.
func (l *RecordLog) Failures() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}

// Close closes the underlying writer if it is an io.Closer.
func (l *RecordLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
