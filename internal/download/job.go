package download

import "time"

// Status is the terminal state of a processed Job.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFail    Status = "FAIL"
	StatusSkipped Status = "SKIPPED"
)

// Job is one unit of work: fetch Target's snapshot and write it to
// Destination. Jobs are immutable once built and consumed by exactly
// one worker.
type Job struct {
	// Target is the original URL to look up in the archive.
	Target string

	// Destination is the local file path the snapshot is written to.
	Destination string
}

// Outcome is the terminal result record for one Job. Exactly one Outcome
// is produced per Job; skipped jobs get a synthesized Outcome without a
// network call.
type Outcome struct {
	Timestamp    time.Time
	Target       string
	FinalURL     string
	Status       Status
	Destination  string
	ErrorMessage string
}

// Summary aggregates the outcomes of a completed run.
// Success + Failed + Skipped == Total always holds at completion.
type Summary struct {
	Success int
	Failed  int
	Skipped int
	Total   int
}

// JobList is a prepared, ordered set of jobs plus the directory their
// destinations live under.
type JobList struct {
	Jobs []Job

	// OutputDir is the directory that must exist before any job runs.
	// In template mode this is the per-template subdirectory.
	OutputDir string
}
