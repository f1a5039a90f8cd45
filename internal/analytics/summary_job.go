package analytics

import "github.com/rs/zerolog"

// SummaryJob periodically logs a mean/stddev summary of recorded deviation
// history. It implements scheduler.Job. Purely observational — see the
// package doc comment.
type SummaryJob struct {
	history *History
	log     zerolog.Logger
}

// NewSummaryJob constructs the job.
func NewSummaryJob(history *History, log zerolog.Logger) *SummaryJob {
	return &SummaryJob{history: history, log: log.With().Str("component", "deviation_summary").Logger()}
}

func (j *SummaryJob) Name() string { return "deviation_summary" }

func (j *SummaryJob) Run() error {
	series := Summarize(j.history.Snapshot())
	j.log.Info().
		Float64("mean_deviation", series.Mean).
		Float64("stddev_deviation", series.StdDev).
		Int("sample_count", series.Count).
		Msg("deviation summary")
	return nil
}
