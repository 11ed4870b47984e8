package download

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/waybackdl/waybackdl/internal/config"
	"github.com/waybackdl/waybackdl/internal/history"
	ioutils "github.com/waybackdl/waybackdl/internal/io"
	"github.com/waybackdl/waybackdl/internal/wayback"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Resolver builds the remote request URL for a target and an optional
// snapshot timestamp.
type Resolver func(target, timestamp string) string

// Manager coordinates one bulk download run: it fans jobs out to a bounded
// worker pool, serializes requests through the global rate limiter, and
// aggregates per-job outcomes into a Summary.
//
// A Manager owns its own counters and queue; no state is shared between
// Manager instances, so runs are independently testable.
type Manager struct {
	settings *config.Settings
	client   *wayback.Client
	limiter  *RateLimiter
	resolve  Resolver

	// retryBackoff is the base unit of the linear 429 backoff
	// (attempt * retryBackoff). Tests shrink it.
	retryBackoff time.Duration

	store *history.Store
	runID string

	// mu guards the aggregate counters.
	mu      sync.Mutex
	summary Summary
	settled int

	// sinkMu serializes audit/history appends and observer calls so each
	// settled job is recorded atomically, in completion order.
	sinkMu sync.Mutex
	audit  *AuditLog

	onProgress func(ProgressEvent)
	onOutcome  func(Outcome)
}

// NewManager creates a new download Manager. onProgress receives leveled
// status messages; onOutcome receives exactly one record per settled job,
// in completion order. Either callback may be nil.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent), onOutcome func(Outcome)) *Manager {
	settings.Normalize()

	return &Manager{
		settings:     settings,
		client:       wayback.NewClient(settings.UserAgent),
		limiter:      NewRateLimiter(time.Duration(settings.DelaySeconds * float64(time.Second))),
		resolve:      wayback.SnapshotURL,
		retryBackoff: 5 * time.Second,
		onProgress:   onProgress,
		onOutcome:    onOutcome,
	}
}

// SetResolver replaces the URL-addressing function. The default resolves
// against the public Wayback Machine; tests point it at a local stub.
func (m *Manager) SetResolver(r Resolver) {
	m.resolve = r
}

// SetHistory attaches a run-history store. Every settled outcome is
// appended under runID in addition to the CSV audit log.
func (m *Manager) SetHistory(store *history.Store, runID string) {
	m.store = store
	m.runID = runID
}

// Run executes a prepared job list to completion and returns the final
// summary. Per-job failures never abort the run; Run only returns an
// error for setup failures (output directory or audit log creation)
// before any job has executed.
//
// Cancelling ctx stops new fetches: jobs not yet attempted settle as FAIL
// with a cancellation message, so every job still produces exactly one
// outcome and the summary invariant holds.
func (m *Manager) Run(ctx context.Context, list JobList) (Summary, error) {
	m.mu.Lock()
	m.summary = Summary{Total: len(list.Jobs)}
	m.settled = 0
	m.mu.Unlock()

	if err := ioutils.EnsureDir(list.OutputDir); err != nil {
		return Summary{}, fmt.Errorf("create output directory: %w", err)
	}

	if m.settings.LogFile != "" {
		audit, err := NewAuditLog(m.settings.LogFile)
		if err != nil {
			return Summary{}, err
		}
		m.audit = audit
		defer func() {
			m.audit = nil
			audit.Close()
		}()
	}

	pending := make([]Job, 0, len(list.Jobs))
	for _, job := range list.Jobs {
		if m.settings.SkipExisting {
			if _, err := os.Stat(job.Destination); err == nil {
				m.settle(Outcome{
					Timestamp:    time.Now().UTC(),
					Target:       job.Target,
					Status:       StatusSkipped,
					Destination:  job.Destination,
					ErrorMessage: "File already exists",
				})
				continue
			}
		}
		pending = append(pending, job)
	}

	if len(pending) == 0 {
		return m.currentSummary(), nil
	}

	jobs := make(chan Job, len(pending))
	for _, job := range pending {
		jobs <- job
	}
	close(jobs)

	var g errgroup.Group
	for i := 0; i < m.settings.Threads; i++ {
		g.Go(func() error {
			for job := range jobs {
				if err := ctx.Err(); err != nil {
					m.settle(cancelledOutcome(job, err))
					continue
				}
				m.settle(m.fetch(ctx, job))
			}
			return nil
		})
	}
	g.Wait()

	return m.currentSummary(), nil
}

// Progress returns the number of settled jobs and the run total. Safe to
// call concurrently while Run is in flight; the TUI polls it.
func (m *Manager) Progress() (settled, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settled, m.summary.Total
}

// settle records one terminal outcome: counters, audit log, run history
// and the observer, in that order.
func (m *Manager) settle(o Outcome) {
	m.mu.Lock()
	switch o.Status {
	case StatusSuccess:
		m.summary.Success++
	case StatusSkipped:
		m.summary.Skipped++
	default:
		m.summary.Failed++
	}
	m.settled++
	m.mu.Unlock()

	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()

	if m.audit != nil {
		if err := m.audit.Record(o); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error writing audit log: %v", err), Level: LevelWarning})
		}
	}
	if m.store != nil {
		if err := m.store.AppendOutcome(m.runID, history.OutcomeRecord{
			Timestamp:   o.Timestamp,
			Target:      o.Target,
			FinalURL:    o.FinalURL,
			Status:      string(o.Status),
			Destination: o.Destination,
			Error:       o.ErrorMessage,
		}); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error writing run history: %v", err), Level: LevelWarning})
		}
	}
	if m.onOutcome != nil {
		m.onOutcome(o)
	}
}

func (m *Manager) currentSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}

func cancelledOutcome(job Job, err error) Outcome {
	return Outcome{
		Timestamp:    time.Now().UTC(),
		Target:       job.Target,
		Status:       StatusFail,
		Destination:  job.Destination,
		ErrorMessage: fmt.Sprintf("cancelled: %v", err),
	}
}
