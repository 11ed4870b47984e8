package ioutils

import (
	"bufio"
	"os"
	"strings"
)

// unsafeChars are the characters replaced by underscores in file names.
// They cover everything Windows forbids, which is the strictest set.
const unsafeChars = `\/:*?"<>|`

// maxNameLen bounds sanitized names so deep URLs cannot exceed
// filesystem name limits.
const maxNameLen = 200

// SanitizeName converts a URL (or any string) into a safe file name component.
//
// The following transformations are applied, in order:
//   - One trailing "/" is removed
//   - A leading "http://" or "https://" scheme prefix is removed
//   - Each of \ / : * ? " < > | is replaced with an underscore
//   - The result is truncated to at most 200 characters
//
// SanitizeName is total: it never fails, and any input yields a usable name.
//
// Example:
//
//	SanitizeName("https://example.com/foo/bar") // Returns "example.com_foo_bar"
func SanitizeName(s string) string {
	s = strings.TrimSuffix(s, "/")
	if rest, ok := strings.CutPrefix(s, "http://"); ok {
		s = rest
	} else if rest, ok := strings.CutPrefix(s, "https://"); ok {
		s = rest
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(unsafeChars, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	s = b.String()

	if runes := []rune(s); len(runes) > maxNameLen {
		return string(runes[:maxNameLen])
	}
	return s
}

// ContainsUnsafeChars reports whether s contains any character that
// SanitizeName would replace. Template parameters containing such
// characters are rejected rather than silently rewritten.
func ContainsUnsafeChars(s string) bool {
	return strings.ContainsAny(s, unsafeChars)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755. If the directory already exists,
// no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ReadLines reads a line-per-entry input file, such as a URL list or a
// template parameter list. Leading/trailing whitespace is trimmed and
// blank lines are dropped.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
