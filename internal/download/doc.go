// Package download implements the concurrent download job engine.
//
// A run starts from a prepared JobList (BuildListJobs, BuildTemplateJobs
// or BuildSingleJob), which maps targets to local destinations. The
// Manager fans the jobs out to a fixed-size worker pool; every worker
// serializes through a shared RateLimiter before each network request, so
// the aggregate request rate stays bounded no matter how many workers run.
//
// Each job settles exactly once, as SUCCESS, FAIL or SKIPPED, and the
// final Summary always satisfies Success+Failed+Skipped == Total.
// Settled jobs are counted, optionally appended to a CSV AuditLog and a
// bbolt-backed run history, and forwarded to an observer callback in
// completion order.
//
//	settings := config.DefaultSettings()
//	settings.Threads = 4
//
//	mgr := download.NewManager(settings, nil, func(o download.Outcome) {
//	    fmt.Println(o.Status, o.Target)
//	})
//
//	list := download.BuildListJobs(urls, settings.OutputDir, settings.Timestamp)
//	summary, err := mgr.Run(ctx, list)
//
// Note that the per-attempt 429 backoff and the global rate limit are
// independent delays and can stack: a worker that backs off after a 429
// has already paid its wait at the limiter for that job.
package download
