package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"verify-ovpn/internal/config"
	"verify-ovpn/internal/engine"
	"verify-ovpn/internal/geoip"
	"verify-ovpn/internal/probe"
	"verify-ovpn/internal/progress"
	"verify-ovpn/internal/sink"
	"verify-ovpn/internal/source"
	"verify-ovpn/internal/store"
)

var (
	inputDir    string
	outFile     string
	csvFile     string
	geoIPFile   string
	dbDSN       string
	concurrency int
	launchRate  float64
	timeout     time.Duration
	logLevel    string
	logFile     string
	debug       bool
	verbose     int

	progressInterval = 5 * time.Second
)

func newRootCmd() *cobra.Command {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = &config.Config{}
	}

	rootCmd := &cobra.Command{
		Use:   "verify-ovpn",
		Short: "Batch reachability check for OpenVPN client configs",
		Long: `verify-ovpn reads every client config in a directory, extracts the
remote endpoint and protocol, and reports which endpoints answer a TCP
handshake or a UDP round trip.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return cfgErr
			}
			return run(cmd, args)
		},
		SilenceUsage: true,
	}

	// Environment values (VERIFY_*) become the flag defaults.
	rootCmd.Flags().StringVarP(&inputDir, "input", "i", cfg.InputDir, "Directory of client config files (required)")
	rootCmd.Flags().StringVarP(&outFile, "output", "o", cfg.OutputPath, "File receiving the names of verified configs")
	rootCmd.Flags().StringVar(&csvFile, "csv", cfg.CSVPath, "Optional CSV report of verified configs")
	rootCmd.Flags().StringVar(&geoIPFile, "geoip", cfg.GeoIPPath, "Optional GeoLite2 country database for the CSV report")
	rootCmd.Flags().StringVar(&dbDSN, "db", cfg.DSN, "Optional MariaDB DSN to record verified configs")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "c", cfg.Concurrency, "Maximum number of configs verified at once")
	rootCmd.Flags().Float64Var(&launchRate, "rate", cfg.Rate, "Maximum verifications started per second (0 = unlimited)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", cfg.Timeout, "Timeout for a single probe")
	rootCmd.Flags().StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.Flags().StringVar(&logFile, "log-file", cfg.LogFile, "Log file path (default: stderr)")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Activate debug logging")
	rootCmd.Flags().CountVarP(&verbose, "verbose", "v", "Verbose mode (-v, -vv, ...); any level enables debug logging")

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// --- 1. Setup Logging ---
	level := logLevel
	if debug || verbose > 0 {
		level = "DEBUG"
	}
	logger := setupLogger(level, logFile)
	slog.SetDefault(logger)

	if inputDir == "" {
		return fmt.Errorf("input directory must be provided (--input or VERIFY_INPUT_DIR)")
	}

	slog.Info("Starting config verifier", "input", inputDir, "concurrency", concurrency, "timeout", timeout)
	startTime := time.Now()

	// --- 2. Enumerate Configs ---
	ids, err := source.List(inputDir)
	if err != nil {
		slog.Error("Failed to list configs", "path", inputDir, "error", err)
		return err
	}
	slog.Info("Configs discovered", "count", len(ids))

	// --- 3. Open Result Sinks ---
	results, closeSinks, err := openSinks(outFile, csvFile, geoIPFile, dbDSN)
	if err != nil {
		slog.Error("Failed to open result sinks", "error", err)
		return err
	}
	defer closeSinks()

	// --- 4. Verify ---
	ticker := progress.NewTicker(len(ids), progressInterval, logger)
	ticker.Start()

	verifier := engine.NewVerifier(
		source.Dir{Root: inputDir},
		probe.NewDispatcher(timeout, logger),
		engine.WithConcurrency(concurrency),
		engine.WithRate(launchRate),
		engine.WithProgress(ticker),
		engine.WithLogger(logger),
	)
	report, runErr := verifier.Run(cmd.Context(), ids, results)
	ticker.Stop()

	// --- 5. Report ---
	out := cmd.OutOrStdout()
	for _, id := range report.Succeeded {
		fmt.Fprintf(out, "%s : Connection successful\n", id)
	}
	fmt.Fprintf(out, "Total %d, successfully connected %d\n", report.Tally.Total, report.Tally.Successful)

	slog.Info("Verification complete", "total", report.Tally.Total, "successful", report.Tally.Successful, "duration", time.Since(startTime))
	return runErr
}

// openSinks builds the fan-out of result sinks. The returned closer
// releases every sink that was opened.
func openSinks(textPath, csvPath, geoIPPath, dsn string) (sink.Multi, func(), error) {
	var (
		sinks   sink.Multi
		closers []func() error
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Warn("Failed to close result sink", "error", err)
			}
		}
	}
	fail := func(err error) (sink.Multi, func(), error) {
		closeAll()
		return nil, func() {}, err
	}

	if textPath != "" {
		w, err := sink.NewText(textPath)
		if err != nil {
			return fail(fmt.Errorf("create output file: %w", err))
		}
		sinks = append(sinks, w)
		closers = append(closers, w.Close)
	}

	if csvPath != "" {
		var country sink.CountryLookup
		if geoIPPath != "" {
			db, err := geoip.Open(geoIPPath)
			if err != nil {
				return fail(err)
			}
			country = db
			closers = append(closers, db.Close)
		}
		w, err := sink.NewCSV(csvPath, country)
		if err != nil {
			return fail(fmt.Errorf("create csv report: %w", err))
		}
		sinks = append(sinks, w)
		closers = append(closers, w.Close)
	}

	if dsn != "" {
		db, err := store.NewMariaDB(dsn)
		if err != nil {
			return fail(fmt.Errorf("connect result database: %w", err))
		}
		sinks = append(sinks, db)
		closers = append(closers, db.Close)
	}

	return sinks, closeAll, nil
}

func setupLogger(level, logFilePath string) *slog.Logger {
	var logWriter io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logWriter = f
		}
		// We don't log an error here because the logger isn't set up yet.
		// It will just fall back to stderr.
	}

	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: lvl}))
}
