package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/waybackdl/waybackdl/internal/config"
	"github.com/waybackdl/waybackdl/internal/download"
	"github.com/waybackdl/waybackdl/internal/history"
	ioutils "github.com/waybackdl/waybackdl/internal/io"
)

func main() {
	// Pick up WAYBACKDL_* overrides from a .env file if one exists.
	_ = godotenv.Load()

	var (
		urlFlag       = flag.String("url", "", "Mode 1: a single URL to download")
		listFlag      = flag.String("list", "", "Mode 2: path to a text file with URLs (one per line)")
		templateFlag  = flag.String("template", "", "Mode 3: a URL template with a placeholder '{}' (requires -params)")
		paramsFlag    = flag.String("params", "", "Path to a text file with parameter values for template mode")
		outputFlag    = flag.String("output", "", "Directory to save downloads (default wayback_downloads)")
		timestampFlag = flag.String("timestamp", "", "Wayback Machine timestamp (e.g. 20150101); omit for the latest capture")
		threadsFlag   = flag.Int("threads", 0, "Number of concurrent download workers (default 1)")
		delayFlag     = flag.Float64("delay", -1, "Minimum time in seconds between requests across ALL workers (default 1.0)")
		retriesFlag   = flag.Int("retries", 0, "Number of attempts on rate-limit errors (default 3)")
		skipFlag      = flag.Bool("skip-existing", false, "Skip downloading if the output file already exists")
		logFlag       = flag.String("log", "", "Path to a CSV file to log all download attempts")
		historyFlag   = flag.String("history", "", "Path to a run-history database")
		showRunsFlag  = flag.Bool("show-runs", false, "List past runs from the history database and exit")
		uaFlag        = flag.String("user-agent", "", "Custom User-Agent string for requests")
		verboseFlag   = flag.Bool("verbose", false, "Enable verbose output")
		configFlag    = flag.String("config", "", "Path to a JSON config file")
	)
	flag.Parse()

	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	settings.ApplyEnv()

	// Flags override config file and environment, but only when passed.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			settings.OutputDir = *outputFlag
		case "timestamp":
			settings.Timestamp = *timestampFlag
		case "threads":
			settings.Threads = *threadsFlag
		case "delay":
			settings.DelaySeconds = *delayFlag
		case "retries":
			settings.Retries = *retriesFlag
		case "skip-existing":
			settings.SkipExisting = *skipFlag
		case "log":
			settings.LogFile = *logFlag
		case "history":
			settings.HistoryPath = *historyFlag
		case "user-agent":
			settings.UserAgent = *uaFlag
		case "verbose":
			settings.Verbose = *verboseFlag
		}
	})
	settings.Normalize()

	var store *history.Store
	if settings.HistoryPath != "" {
		var err error
		store, err = history.Open(settings.HistoryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening history: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	if *showRunsFlag {
		if store == nil {
			fmt.Fprintln(os.Stderr, "Error: -show-runs requires -history")
			os.Exit(1)
		}
		showRuns(store)
		return
	}

	mode, err := pickMode(*urlFlag, *listFlag, *templateFlag, *paramsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		os.Exit(1)
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	manager := download.NewManager(settings,
		func(event download.ProgressEvent) {
			if event.Level == download.LevelVerbose && !settings.Verbose {
				return
			}
			fmt.Println("  " + event.Message)
		},
		func(o download.Outcome) {
			switch o.Status {
			case download.StatusSuccess:
				fmt.Printf("  -> Successfully saved to: %s\n", o.Destination)
			case download.StatusSkipped:
				fmt.Printf("  -> Skipping existing file: %s\n", o.Destination)
			default:
				fmt.Printf("  -> FAILED to download %s (%s)\n", o.Target, o.ErrorMessage)
			}
		},
	)

	fmt.Println("--- Wayback Machine Bulk Downloader ---")

	list, err := buildJobs(mode, settings, *urlFlag, *listFlag, *templateFlag, *paramsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var run *history.RunRecord
	if store != nil {
		run = &history.RunRecord{
			ID:        uuid.New().String(),
			Mode:      mode,
			StartedAt: time.Now().UTC(),
			Total:     len(list.Jobs),
		}
		if err := store.SaveRun(run); err != nil {
			fmt.Fprintf(os.Stderr, "Error recording run: %v\n", err)
			os.Exit(1)
		}
		manager.SetHistory(store, run.ID)
	}

	summary, err := manager.Run(ctx, list)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if store != nil {
		run.FinishedAt = time.Now().UTC()
		run.Success = summary.Success
		run.Failed = summary.Failed
		run.Skipped = summary.Skipped
		if err := store.SaveRun(run); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record run summary: %v\n", err)
		}
	}

	fmt.Println("\n--- Download Complete ---")
	fmt.Printf("Successfully downloaded: %d\n", summary.Success)
	fmt.Printf("Failed to download:      %d\n", summary.Failed)
	fmt.Printf("Skipped (already exist): %d\n", summary.Skipped)
	fmt.Println("-------------------------")

	if ctx.Err() != nil {
		os.Exit(130)
	}
}

// pickMode validates that exactly one download mode was selected.
func pickMode(url, list, template, params string) (string, error) {
	var modes []string
	if url != "" {
		modes = append(modes, "url")
	}
	if list != "" {
		modes = append(modes, "list")
	}
	if template != "" {
		modes = append(modes, "template")
	}
	if len(modes) != 1 {
		return "", fmt.Errorf("exactly one of -url, -list or -template is required")
	}
	mode := modes[0]
	if (mode == "template") != (params != "") {
		return "", fmt.Errorf("-template and -params must be used together")
	}
	return mode, nil
}

func buildJobs(mode string, settings *config.Settings, url, listPath, template, paramsPath string) (download.JobList, error) {
	switch mode {
	case "url":
		fmt.Printf("Mode:                  Single URL: %s\n", url)
		return download.BuildSingleJob(url, settings.OutputDir, settings.Timestamp), nil

	case "list":
		fmt.Printf("Mode:                  URL List: %s\n", listPath)
		urls, err := ioutils.ReadLines(listPath)
		if err != nil {
			return download.JobList{}, fmt.Errorf("URL list file: %w", err)
		}
		return download.BuildListJobs(urls, settings.OutputDir, settings.Timestamp), nil

	default:
		fmt.Printf("Mode:                  Template: %s\n", template)
		params, err := ioutils.ReadLines(paramsPath)
		if err != nil {
			return download.JobList{}, fmt.Errorf("parameter file: %w", err)
		}
		list, warnings := download.BuildTemplateJobs(template, params, settings.OutputDir)
		for _, w := range warnings {
			fmt.Println("Warning: " + w)
		}
		return list, nil
	}
}

func showRuns(store *history.Store) {
	runs, err := store.ListRuns()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return
	}
	for _, run := range runs {
		fmt.Printf("%s  %-8s  started %s  success=%d failed=%d skipped=%d total=%d\n",
			run.ID, run.Mode, run.StartedAt.Format(time.RFC3339),
			run.Success, run.Failed, run.Skipped, run.Total)
	}
}

func usage() {
	fmt.Println("Wayback Machine Bulk Downloader")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  wayback-dl -url <URL> [options]")
	fmt.Println("  wayback-dl -list <urls.txt> [options]")
	fmt.Println("  wayback-dl -template <URL-with-{}> -params <params.txt> [options]")
	fmt.Println()
	fmt.Println("For interactive mode, use: wayback-tui")
	fmt.Println()
	flag.PrintDefaults()
}
