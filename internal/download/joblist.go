package download

import (
	"fmt"
	"path/filepath"
	"strings"

	ioutils "github.com/waybackdl/waybackdl/internal/io"
)

// TemplatePlaceholder is the substring substituted with each parameter in
// template mode.
const TemplatePlaceholder = "{}"

// BuildListJobs prepares a job list from URLs. Each URL maps to
// outputDir/<sanitized-url>[_<timestamp>].html, the timestamp suffix
// appearing only when a snapshot timestamp is configured. Input order is
// preserved and duplicates are kept; duplicate targets write to the same
// destination, last write wins.
func BuildListJobs(urls []string, outputDir, timestamp string) JobList {
	suffix := ""
	if timestamp != "" {
		suffix = "_" + timestamp
	}

	jobs := make([]Job, 0, len(urls))
	for _, u := range urls {
		name := ioutils.SanitizeName(u) + suffix + ".html"
		jobs = append(jobs, Job{
			Target:      u,
			Destination: filepath.Join(outputDir, name),
		})
	}
	return JobList{Jobs: jobs, OutputDir: outputDir}
}

// BuildSingleJob prepares a one-element job list for a single URL using
// list-mode naming.
func BuildSingleJob(url, outputDir, timestamp string) JobList {
	return BuildListJobs([]string{url}, outputDir, timestamp)
}

// BuildTemplateJobs prepares a job list from a URL template containing
// TemplatePlaceholder and a list of parameter values. Destinations live in
// a subdirectory named after the template (with the placeholder removed)
// and are named <param>.html.
//
// Parameters containing characters that are illegal in file names are
// excluded from the job list; one warning per excluded parameter is
// returned so the caller can surface them. A bad parameter never fails
// the whole job.
func BuildTemplateJobs(template string, params []string, outputDir string) (JobList, []string) {
	subdir := ioutils.SanitizeName(strings.ReplaceAll(template, TemplatePlaceholder, ""))
	jobDir := filepath.Join(outputDir, subdir)

	var warnings []string
	jobs := make([]Job, 0, len(params))
	for _, param := range params {
		if ioutils.ContainsUnsafeChars(param) {
			warnings = append(warnings, fmt.Sprintf("Skipping invalid parameter %q (contains illegal filename characters)", param))
			continue
		}
		jobs = append(jobs, Job{
			Target:      strings.Replace(template, TemplatePlaceholder, param, 1),
			Destination: filepath.Join(jobDir, param+".html"),
		})
	}
	return JobList{Jobs: jobs, OutputDir: jobDir}, warnings
}
