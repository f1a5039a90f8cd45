// Package analytics provides observability-only statistics over historical
// deviation snapshots. Nothing here feeds back into a rebalance decision —
// the engine reacts solely to the live deviation computed in
// internal/portfolio; this package exists for dashboards and alerting.
package analytics

import (
	"gonum.org/v1/gonum/stat"
)

// DeviationPoint is one recorded observation of a portfolio's maximum
// per-symbol deviation from target at a point in time.
type DeviationPoint struct {
	MaxDeviation float64
}

// DeviationSeries summarizes a sequence of DeviationPoint samples.
type DeviationSeries struct {
	Mean   float64
	StdDev float64
	Count  int
}

// Summarize computes the mean and (sample, n-1) standard deviation of a
// history of maximum deviations. Returns the zero value for an empty history.
func Summarize(points []DeviationPoint) DeviationSeries {
	if len(points) == 0 {
		return DeviationSeries{}
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.MaxDeviation
	}
	return DeviationSeries{
		Mean:   stat.Mean(values, nil),
		StdDev: stat.StdDev(values, nil),
		Count:  len(points),
	}
}
