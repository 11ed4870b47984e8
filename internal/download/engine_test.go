package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/waybackdl/waybackdl/internal/config"
	"github.com/waybackdl/waybackdl/internal/history"
	"github.com/waybackdl/waybackdl/internal/wayback"
)

// archiveStub is a fake Wayback Machine: it serves canned responses per
// target and counts how many attempts each target received.
type archiveStub struct {
	t *testing.T

	mu       sync.Mutex
	attempts map[string]int
	handlers map[string]http.HandlerFunc

	server *httptest.Server
}

func newArchiveStub(t *testing.T) *archiveStub {
	s := &archiveStub{
		t:        t,
		attempts: make(map[string]int),
		handlers: make(map[string]http.HandlerFunc),
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("target")
		s.mu.Lock()
		s.attempts[target]++
		handler := s.handlers[target]
		s.mu.Unlock()

		if handler != nil {
			handler(w, r)
			return
		}
		w.Write([]byte("snapshot of " + target))
	}))
	t.Cleanup(s.server.Close)
	return s
}

// resolver returns a Resolver pointing at the stub.
func (s *archiveStub) resolver() Resolver {
	return func(target, timestamp string) string {
		return s.server.URL + "/?target=" + url.QueryEscape(target) + "&ts=" + url.QueryEscape(timestamp)
	}
}

func (s *archiveStub) respond(target string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[target] = h
}

func (s *archiveStub) attemptCount(target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[target]
}

func testSettings(outputDir string) *config.Settings {
	settings := config.DefaultSettings()
	settings.OutputDir = outputDir
	settings.DelaySeconds = 0
	settings.Retries = 1
	return settings
}

func newTestManager(t *testing.T, settings *config.Settings, stub *archiveStub) (*Manager, *[]Outcome) {
	t.Helper()

	var mu sync.Mutex
	outcomes := &[]Outcome{}
	m := NewManager(settings, nil, func(o Outcome) {
		mu.Lock()
		*outcomes = append(*outcomes, o)
		mu.Unlock()
	})
	m.SetResolver(stub.resolver())
	m.retryBackoff = time.Millisecond
	return m, outcomes
}

func checkInvariant(t *testing.T, s Summary) {
	t.Helper()
	if s.Success+s.Failed+s.Skipped != s.Total {
		t.Errorf("summary invariant violated: %+v", s)
	}
}

func TestManager_Run_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	stub := newArchiveStub(t)

	settings := testSettings(dir)
	m, outcomes := newTestManager(t, settings, stub)

	urls := []string{"http://example.com", "http://example.org"}
	list := BuildListJobs(urls, dir, "")

	summary, err := m.Run(context.Background(), list)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	checkInvariant(t, summary)
	if summary.Success != 2 || summary.Failed != 0 || summary.Skipped != 0 || summary.Total != 2 {
		t.Errorf("summary = %+v, want {2 0 0 2}", summary)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d files in output dir, want 2", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, "example.com.html"))
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "snapshot of http://example.com" {
		t.Errorf("file content = %q", data)
	}

	if len(*outcomes) != 2 {
		t.Errorf("observer saw %d outcomes, want 2", len(*outcomes))
	}
	for _, o := range *outcomes {
		if o.Status != StatusSuccess {
			t.Errorf("outcome for %s: status %s (%s)", o.Target, o.Status, o.ErrorMessage)
		}
		if o.FinalURL == "" {
			t.Errorf("outcome for %s: empty FinalURL", o.Target)
		}
	}
}

func TestManager_Run_SkipExistingIdempotence(t *testing.T) {
	dir := t.TempDir()
	stub := newArchiveStub(t)

	urls := []string{"http://example.com", "http://example.org"}

	settings := testSettings(dir)
	m, _ := newTestManager(t, settings, stub)
	summary, err := m.Run(context.Background(), BuildListJobs(urls, dir, ""))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if summary.Success != 2 {
		t.Fatalf("first run summary = %+v", summary)
	}

	settings2 := testSettings(dir)
	settings2.SkipExisting = true
	m2, outcomes := newTestManager(t, settings2, stub)
	summary2, err := m2.Run(context.Background(), BuildListJobs(urls, dir, ""))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	checkInvariant(t, summary2)
	if summary2.Skipped != summary2.Total {
		t.Errorf("second run summary = %+v, want all skipped", summary2)
	}
	for _, o := range *outcomes {
		if o.Status != StatusSkipped {
			t.Errorf("outcome for %s: status %s", o.Target, o.Status)
		}
		if o.ErrorMessage != "File already exists" {
			t.Errorf("skip message = %q", o.ErrorMessage)
		}
	}

	// Skipped jobs never touch the network.
	if got := stub.attemptCount("http://example.com"); got != 1 {
		t.Errorf("attempts = %d, want 1 (from first run only)", got)
	}
}

func TestManager_Run_RateLimitedRetriesExhausted(t *testing.T) {
	dir := t.TempDir()
	stub := newArchiveStub(t)
	stub.respond("http://throttled.test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	settings := testSettings(dir)
	settings.Retries = 3
	m, outcomes := newTestManager(t, settings, stub)

	summary, err := m.Run(context.Background(), BuildListJobs([]string{"http://throttled.test"}, dir, ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	checkInvariant(t, summary)
	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failure", summary)
	}
	if got := stub.attemptCount("http://throttled.test"); got != 3 {
		t.Errorf("attempts = %d, want exactly 3", got)
	}

	o := (*outcomes)[0]
	if o.Status != StatusFail {
		t.Errorf("status = %s, want FAIL", o.Status)
	}
	if !strings.Contains(o.ErrorMessage, "429") {
		t.Errorf("error message %q should carry the 429 detail", o.ErrorMessage)
	}
}

func TestManager_Run_OtherHTTPErrorSingleAttempt(t *testing.T) {
	dir := t.TempDir()
	stub := newArchiveStub(t)
	stub.respond("http://gone.test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	settings := testSettings(dir)
	settings.Retries = 3
	m, outcomes := newTestManager(t, settings, stub)

	summary, err := m.Run(context.Background(), BuildListJobs([]string{"http://gone.test"}, dir, ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failure", summary)
	}
	if got := stub.attemptCount("http://gone.test"); got != 1 {
		t.Errorf("attempts = %d, want exactly 1 (non-429 errors are terminal)", got)
	}
	if o := (*outcomes)[0]; !strings.Contains(o.ErrorMessage, "404") {
		t.Errorf("error message = %q, want 404 detail", o.ErrorMessage)
	}
}

func TestManager_Run_NotArchivedMarker(t *testing.T) {
	dir := t.TempDir()
	stub := newArchiveStub(t)
	stub.respond("http://never-captured.test", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>" + wayback.NotArchivedMarker + "</html>"))
	})

	settings := testSettings(dir)
	settings.Retries = 3
	m, outcomes := newTestManager(t, settings, stub)

	list := BuildListJobs([]string{"http://never-captured.test"}, dir, "")
	summary, err := m.Run(context.Background(), list)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failure", summary)
	}
	if o := (*outcomes)[0]; o.ErrorMessage != "No archive found" {
		t.Errorf("error message = %q, want %q", o.ErrorMessage, "No archive found")
	}
	if got := stub.attemptCount("http://never-captured.test"); got != 1 {
		t.Errorf("attempts = %d, want 1 (marker is terminal)", got)
	}
	if _, err := os.Stat(list.Jobs[0].Destination); !os.IsNotExist(err) {
		t.Error("no file should be written for a missing capture")
	}
}

func TestManager_Run_WriteFailureIsJobFailure(t *testing.T) {
	dir := t.TempDir()
	stub := newArchiveStub(t)

	// A directory at the destination path makes the write fail after a
	// successful fetch.
	dest := filepath.Join(dir, "blocked.html")
	if err := os.Mkdir(dest, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	settings := testSettings(dir)
	m, outcomes := newTestManager(t, settings, stub)

	list := JobList{
		Jobs:      []Job{{Target: "http://example.com", Destination: dest}},
		OutputDir: dir,
	}
	summary, err := m.Run(context.Background(), list)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	checkInvariant(t, summary)
	if summary.Failed != 1 || summary.Success != 0 {
		t.Errorf("summary = %+v, want the write failure counted as FAIL", summary)
	}
	if o := (*outcomes)[0]; !strings.Contains(o.ErrorMessage, "write") {
		t.Errorf("error message = %q, want write failure detail", o.ErrorMessage)
	}
}

func TestManager_Run_ConcurrentWorkers(t *testing.T) {
	dir := t.TempDir()
	stub := newArchiveStub(t)

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = "http://site" + string(rune('a'+i)) + ".test"
	}

	settings := testSettings(dir)
	settings.Threads = 4
	m, outcomes := newTestManager(t, settings, stub)

	summary, err := m.Run(context.Background(), BuildListJobs(urls, dir, ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	checkInvariant(t, summary)
	if summary.Success != 8 {
		t.Errorf("summary = %+v, want 8 successes", summary)
	}
	if len(*outcomes) != 8 {
		t.Errorf("observer saw %d outcomes, want 8", len(*outcomes))
	}
	for _, u := range urls {
		if got := stub.attemptCount(u); got != 1 {
			t.Errorf("attempts for %s = %d, want 1 (each job consumed once)", u, got)
		}
	}
}

func TestManager_Run_CancelledJobsStillSettle(t *testing.T) {
	dir := t.TempDir()
	stub := newArchiveStub(t)

	settings := testSettings(dir)
	m, outcomes := newTestManager(t, settings, stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	urls := []string{"http://a.test", "http://b.test", "http://c.test"}
	summary, err := m.Run(ctx, BuildListJobs(urls, dir, ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	checkInvariant(t, summary)
	if summary.Failed != 3 {
		t.Errorf("summary = %+v, want all 3 failed as cancelled", summary)
	}
	if len(*outcomes) != 3 {
		t.Errorf("observer saw %d outcomes, want 3 (no job silently dropped)", len(*outcomes))
	}
	for _, o := range *outcomes {
		if !strings.Contains(o.ErrorMessage, "cancelled") {
			t.Errorf("error message = %q, want cancellation detail", o.ErrorMessage)
		}
	}
}

func TestManager_Run_AuditLog(t *testing.T) {
	dir := t.TempDir()
	stub := newArchiveStub(t)
	stub.respond("http://gone.test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	settings := testSettings(dir)
	settings.LogFile = filepath.Join(dir, "audit.csv")
	m, _ := newTestManager(t, settings, stub)

	urls := []string{"http://example.com", "http://gone.test"}
	if _, err := m.Run(context.Background(), BuildListJobs(urls, dir, "")); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(settings.LogFile)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d audit lines, want header + 2 rows", len(lines))
	}
	if lines[0] != AuditHeader {
		t.Errorf("header = %q", lines[0])
	}
	content := string(data)
	if !strings.Contains(content, `"SUCCESS"`) || !strings.Contains(content, `"FAIL"`) {
		t.Errorf("audit log missing statuses:\n%s", content)
	}
}

func TestManager_Run_RecordsHistory(t *testing.T) {
	dir := t.TempDir()
	stub := newArchiveStub(t)

	store, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()

	settings := testSettings(dir)
	m, _ := newTestManager(t, settings, stub)
	m.SetHistory(store, "run-1")

	urls := []string{"http://example.com", "http://example.org"}
	if _, err := m.Run(context.Background(), BuildListJobs(urls, dir, "")); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records, err := store.RunOutcomes("run-1")
	if err != nil {
		t.Fatalf("RunOutcomes: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d history records, want 2", len(records))
	}
	for _, rec := range records {
		if rec.Status != string(StatusSuccess) {
			t.Errorf("history record for %s: status %s", rec.Target, rec.Status)
		}
	}
}

func TestManager_Run_EmptyJobList(t *testing.T) {
	dir := t.TempDir()
	stub := newArchiveStub(t)

	settings := testSettings(dir)
	m, _ := newTestManager(t, settings, stub)

	summary, err := m.Run(context.Background(), JobList{OutputDir: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Total != 0 || summary.Success != 0 {
		t.Errorf("summary = %+v, want all zero", summary)
	}
}
