package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, WARN)

	log.Info("hidden %d", 1)
	log.Warn("shown %d", 2)
	log.Critical("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 2")
	assert.Contains(t, out, "[CRITICAL] also shown")
	assert.False(t, log.Enabled(DEBUG))
	assert.True(t, log.Enabled(ERROR))
}

func TestLoggerFlightID(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, TRACE)
	log.SetFlightID("abc")
	log.Trace("tick")
	assert.Contains(t, buf.String(), "[TRACE] flight=abc tick")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, TRACE, ParseLevel("trace"))
	assert.Equal(t, WARN, ParseLevel("Warning"))
	assert.Equal(t, CRITICAL, ParseLevel("critical"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
	assert.Equal(t, "ERROR", ERROR.String())
}
