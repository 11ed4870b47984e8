package wayback

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BaseURL is the Wayback Machine snapshot endpoint prefix.
const BaseURL = "https://web.archive.org/web/"

// NotArchivedMarker is the literal string the Wayback Machine embeds in
// response bodies for URLs it has never captured. A 200 response whose
// body contains this marker is not a usable snapshot.
const NotArchivedMarker = "Wayback Machine has not archived that URL."

// SnapshotURL builds the remote request URL for a target and an optional
// snapshot timestamp (e.g. "20150101"). An empty timestamp requests the
// latest available capture.
func SnapshotURL(target, timestamp string) string {
	if timestamp != "" {
		return BaseURL + timestamp + "/" + target
	}
	return BaseURL + target
}

// Response holds the parts of an archive response the downloader cares about.
type Response struct {
	// Body is the raw snapshot bytes.
	Body []byte

	// FinalURL is the URL the request resolved to after redirects. The
	// Wayback Machine redirects to the nearest capture, so this usually
	// differs from the requested URL.
	FinalURL string
}

// StatusError is returned by Client.Get for non-200 responses. Callers
// inspect StatusCode to distinguish retryable statuses such as 429 from
// terminal ones.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %s for %s", e.Status, e.URL)
}

// Client wraps HTTP operations with Wayback Machine-specific configuration.
//
// Client provides:
//   - A configurable User-Agent header (the archive asks bulk clients to identify themselves)
//   - A generous fixed timeout sized for slow snapshot rendering
//   - Redirect-resolved final URLs
//
// A Client is safe for concurrent use; its configuration is fixed at
// construction and never mutated.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates an HTTP client configured for the Wayback Machine.
//
// The client is configured with a 45 second timeout. Snapshot responses
// can be slow because the archive renders them on demand.
func NewClient(userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 45 * time.Second,
		},
		userAgent: userAgent,
	}
}

// Get performs a GET request and returns the response body and final URL.
//
// Returns a *StatusError if the response status is not 200 OK, or the
// underlying transport error for network-level failures.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        url,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{Body: body, FinalURL: finalURL}, nil
}
