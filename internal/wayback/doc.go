// Package wayback provides the Wayback Machine addressing convention and
// an HTTP client configured for bulk snapshot retrieval.
//
// The Client in this package handles:
//   - User-Agent headers identifying the bulk downloader
//   - A fixed 45 second timeout for slow snapshot rendering
//   - Redirect-resolved final URLs
//
// # Basic Usage
//
//	client := wayback.NewClient("MyTool/1.0")
//
//	url := wayback.SnapshotURL("http://example.com", "20150101")
//	resp, err := client.Get(ctx, url)
//
// # Detecting Missing Captures
//
// The archive answers 200 OK even for URLs it has never captured; the body
// then contains NotArchivedMarker:
//
//	if strings.Contains(string(resp.Body), wayback.NotArchivedMarker) {
//	    // no snapshot exists for this URL
//	}
package wayback
