package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"av-fc-core/flight_computer/messages"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		expected uint32
		received uint32
		class    Class
		next     uint32
	}{
		{"in order", 5, 5, InOrder, 6},
		{"stale", 5, 3, Stale, 5},
		{"duplicate", 6, 5, Stale, 6},
		{"gapped", 5, 9, Gapped, 10},
		{"first packet", 0, 0, InOrder, 1},
		{"first packet late start", 0, 100, Gapped, 101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, next := Classify(tt.expected, tt.received)
			assert.Equal(t, tt.class, class)
			assert.Equal(t, tt.next, next)
		})
	}
}

func TestClassAccept(t *testing.T) {
	assert.True(t, InOrder.Accept())
	assert.True(t, Gapped.Accept())
	assert.False(t, Stale.Accept())
}

func TestTrackerPerPort(t *testing.T) {
	tr := NewTracker()

	for seq := uint32(0); seq < 3; seq++ {
		class, rec := tr.Check(35020, seq)
		assert.Equal(t, InOrder, class)
		assert.Nil(t, rec)
	}
	assert.Equal(t, uint32(3), tr.Expected(35020))
	assert.Equal(t, uint32(0), tr.Expected(35001))

	class, rec := tr.Check(35001, 0)
	assert.Equal(t, InOrder, class)
	assert.Nil(t, rec)
}

func TestTrackerGapThenStale(t *testing.T) {
	tr := NewTracker()
	tr.Check(35020, 0)
	tr.Check(35020, 1)

	class, rec := tr.Check(35020, 5)
	assert.Equal(t, Gapped, class)
	require.NotNil(t, rec)
	assert.Equal(t, messages.SequenceError{Port: 35020, Expected: 2, Received: 5}, *rec)
	assert.Equal(t, uint32(6), tr.Expected(35020))

	class, rec = tr.Check(35020, 3)
	assert.Equal(t, Stale, class)
	require.NotNil(t, rec)
	assert.Equal(t, messages.SequenceError{Port: 35020, Expected: 6, Received: 3}, *rec)
	assert.Equal(t, uint32(6), tr.Expected(35020))
}
