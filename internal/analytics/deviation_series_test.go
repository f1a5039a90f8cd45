package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil)
	assert.Equal(t, DeviationSeries{}, got)
}

func TestSummarizeComputesMeanAndStdDev(t *testing.T) {
	points := []DeviationPoint{{MaxDeviation: 0.01}, {MaxDeviation: 0.03}, {MaxDeviation: 0.05}}
	got := Summarize(points)
	assert.Equal(t, 3, got.Count)
	assert.InDelta(t, 0.03, got.Mean, 1e-9)
	assert.Greater(t, got.StdDev, 0.0)
}
