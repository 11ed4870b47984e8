// Package ioutils provides file system utilities for waybackdl.
//
// This package contains functions for:
//   - Turning URLs and templates into safe file/directory names
//   - Directory creation
//   - Reading line-per-entry input files (URL lists, parameter lists)
//
// # Name Sanitization
//
// Use SanitizeName to turn a URL into a path segment:
//
//	safe := ioutils.SanitizeName("https://example.com/foo/bar") // "example.com_foo_bar"
//
// The result is always at most 200 characters and contains none of the
// characters that are invalid in Windows file names.
//
// # Input Files
//
//	urls, err := ioutils.ReadLines("urls.txt")
//	// One entry per line, blank lines and surrounding whitespace dropped.
package ioutils
