package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/waybackdl/waybackdl/internal/wayback"
)

// fetch retrieves one job's snapshot and writes it to disk. Every failure
// mode is captured in the returned Outcome; nothing propagates past this
// boundary.
//
// HTTP 429 is the only retryable condition: the worker backs off
// 5*attempt seconds (on top of the global rate limit) and tries again, up
// to the configured retry count. Any other HTTP error, a transport error,
// the archive's "not archived" marker, or a disk write failure is
// terminal for the job.
func (m *Manager) fetch(ctx context.Context, job Job) Outcome {
	requestURL := m.resolve(job.Target, m.settings.Timestamp)

	if err := m.limiter.Wait(ctx); err != nil {
		return cancelledOutcome(job, err)
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Requesting %s", requestURL), Level: LevelVerbose})

	status := StatusFail
	finalURL := ""
	errMsg := "Unknown error"

	for attempt := 1; attempt <= m.settings.Retries; attempt++ {
		resp, err := m.client.Get(ctx, requestURL)
		if err != nil {
			errMsg = err.Error()

			var statusErr *wayback.StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
				if attempt == m.settings.Retries {
					break
				}
				delay := time.Duration(attempt) * m.retryBackoff
				m.progress(ProgressEvent{
					Message: fmt.Sprintf("Rate limit hit for %s. Retrying in %s...", job.Target, delay),
					Level:   LevelVerbose,
				})
				if werr := sleepCtx(ctx, delay); werr != nil {
					break
				}
				continue
			}

			// Other HTTP errors and transport failures are terminal.
			break
		}

		if strings.Contains(string(resp.Body), wayback.NotArchivedMarker) {
			errMsg = "No archive found"
			break
		}

		if werr := os.WriteFile(job.Destination, resp.Body, 0644); werr != nil {
			// A fetched-but-unwritten snapshot is a failed job.
			errMsg = fmt.Sprintf("write %s: %v", job.Destination, werr)
			break
		}

		status = StatusSuccess
		finalURL = resp.FinalURL
		errMsg = ""
		break
	}

	return Outcome{
		Timestamp:    time.Now().UTC(),
		Target:       job.Target,
		FinalURL:     finalURL,
		Status:       status,
		Destination:  job.Destination,
		ErrorMessage: errMsg,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
