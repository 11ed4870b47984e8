package download

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAuditLog_HeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")

	log, err := NewAuditLog(path)
	if err != nil {
		t.Fatalf("NewAuditLog: %v", err)
	}

	outcome := Outcome{
		Timestamp:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Target:       "http://example.com",
		FinalURL:     "https://web.archive.org/web/20250601/http://example.com",
		Status:       StatusSuccess,
		Destination:  "out/example.com.html",
		ErrorMessage: "",
	}
	if err := log.Record(outcome); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != AuditHeader {
		t.Errorf("header = %q, want %q", lines[0], AuditHeader)
	}

	row := lines[1]
	if !strings.HasPrefix(row, `"2025-06-01T12:00:00Z",`) {
		t.Errorf("row timestamp field wrong: %q", row)
	}
	if !strings.Contains(row, `"http://example.com"`) || !strings.Contains(row, `"SUCCESS"`) {
		t.Errorf("row missing fields: %q", row)
	}
	// Every field is quoted: 12 quote characters for 6 fields.
	if got := strings.Count(row, `"`); got != 12 {
		t.Errorf("row has %d quote characters, want 12: %q", got, row)
	}
}

func TestNewAuditLog_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")
	if err := os.WriteFile(path, []byte("stale content\n"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	log, err := NewAuditLog(path)
	if err != nil {
		t.Fatalf("NewAuditLog: %v", err)
	}
	log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if strings.Contains(string(data), "stale") {
		t.Error("audit log was not truncated")
	}
}
