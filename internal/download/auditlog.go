package download

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// AuditHeader is the fixed CSV header written at the start of every audit
// log file.
const AuditHeader = "download_timestamp_utc,original_url,final_url,status,local_path,error_message"

// AuditLog appends one CSV row per settled job. The file is created (or
// truncated) when the log is opened, so each run produces a fresh trail.
//
// Fields are double-quote-enclosed but embedded quotes are not escaped;
// a target or error message containing a literal quote produces a
// malformed row. Known limitation, kept for compatibility with existing
// log consumers.
type AuditLog struct {
	mu sync.Mutex
	f  *os.File
}

// NewAuditLog creates or truncates the audit log at path and writes the
// header row.
func NewAuditLog(path string) (*AuditLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}
	if _, err := fmt.Fprintln(f, AuditHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write audit header: %w", err)
	}
	return &AuditLog{f: f}, nil
}

// Record appends one row for a settled job. Rows are appended under an
// exclusive lock so concurrent workers never interleave partial lines.
func (l *AuditLog) Record(o Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := fmt.Fprintf(l.f, "\"%s\",\"%s\",\"%s\",\"%s\",\"%s\",\"%s\"\n",
		o.Timestamp.UTC().Format(time.RFC3339),
		o.Target,
		o.FinalURL,
		string(o.Status),
		o.Destination,
		o.ErrorMessage,
	)
	return err
}

// Close flushes and closes the underlying file.
func (l *AuditLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
