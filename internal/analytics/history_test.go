package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryRecordAndSnapshot(t *testing.T) {
	h := NewHistory()
	h.Record(0.01)
	h.Record(0.02)

	got := h.Snapshot()
	assert.Equal(t, []DeviationPoint{{MaxDeviation: 0.01}, {MaxDeviation: 0.02}}, got)
}

func TestHistoryEvictsOldestBeyondCapacity(t *testing.T) {
	h := NewHistory()
	for i := 0; i < maxHistorySize+10; i++ {
		h.Record(float64(i))
	}

	got := h.Snapshot()
	assert.Len(t, got, maxHistorySize)
	assert.Equal(t, float64(10), got[0].MaxDeviation)
}

func TestHistorySnapshotDoesNotAliasLiveSlice(t *testing.T) {
	h := NewHistory()
	h.Record(0.01)

	snap := h.Snapshot()
	snap[0].MaxDeviation = 99

	got := h.Snapshot()
	assert.Equal(t, 0.01, got[0].MaxDeviation)
}
