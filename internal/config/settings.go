package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultUserAgent identifies the downloader to the archive. Bulk clients
// are asked to use a descriptive User-Agent.
const DefaultUserAgent = "WaybackBulkDownloader/2.6 (Go; +https://github.com/waybackdl/waybackdl)"

// Settings holds all configuration options.
type Settings struct {
	// Output
	OutputDir string `json:"output_dir"`

	// Concurrency and pacing
	Threads      int     `json:"threads"`
	DelaySeconds float64 `json:"delay_seconds"`
	Retries      int     `json:"retries"`

	// Behavior
	SkipExisting bool   `json:"skip_existing"`
	Timestamp    string `json:"timestamp,omitempty"` // snapshot timestamp, "" = latest
	Verbose      bool   `json:"verbose"`

	// Identification
	UserAgent string `json:"user_agent"`

	// Audit trail
	LogFile     string `json:"log_file,omitempty"`     // CSV audit log, "" = disabled
	HistoryPath string `json:"history_path,omitempty"` // bbolt run history, "" = disabled
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		OutputDir:    "wayback_downloads",
		Threads:      1,
		DelaySeconds: 1.0,
		Retries:      3,
		SkipExisting: false,
		UserAgent:    DefaultUserAgent,
	}
}

// Load reads settings from a JSON file. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides settings from WAYBACKDL_* environment variables.
// Unset or malformed variables leave the current value untouched.
// Callers typically load a .env file first (via godotenv) so that both
// real environment variables and .env entries are honored.
func (s *Settings) ApplyEnv() {
	if v := os.Getenv("WAYBACKDL_OUTPUT_DIR"); v != "" {
		s.OutputDir = v
	}
	if v := os.Getenv("WAYBACKDL_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Threads = n
		}
	}
	if v := os.Getenv("WAYBACKDL_DELAY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.DelaySeconds = f
		}
	}
	if v := os.Getenv("WAYBACKDL_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Retries = n
		}
	}
	if v := os.Getenv("WAYBACKDL_USER_AGENT"); v != "" {
		s.UserAgent = v
	}
	if v := os.Getenv("WAYBACKDL_HISTORY"); v != "" {
		s.HistoryPath = v
	}
}

// Normalize clamps out-of-range values to their minimums: at least one
// worker, at least one attempt, and a non-negative delay.
func (s *Settings) Normalize() {
	if s.Threads < 1 {
		s.Threads = 1
	}
	if s.Retries < 1 {
		s.Retries = 1
	}
	if s.DelaySeconds < 0 {
		s.DelaySeconds = 0
	}
	if s.UserAgent == "" {
		s.UserAgent = DefaultUserAgent
	}
}
