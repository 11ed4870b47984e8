// Package config provides configuration management for waybackdl.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Environment variable overrides (WAYBACKDL_*)
//   - Clamping out-of-range values to safe minimums
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Downloads to ./wayback_downloads
//	// 1 worker, 1.0s global delay, 3 retries
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	// Uses defaults if the file doesn't exist
//
// # Environment Overrides
//
// ApplyEnv reads WAYBACKDL_OUTPUT_DIR, WAYBACKDL_THREADS, WAYBACKDL_DELAY,
// WAYBACKDL_RETRIES, WAYBACKDL_USER_AGENT and WAYBACKDL_HISTORY. The CLI
// loads a .env file first so either source works.
package config
