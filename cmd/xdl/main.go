package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/iconidentify/xdl/internal/config"
	"github.com/iconidentify/xdl/internal/console"
	"github.com/iconidentify/xdl/internal/domain"
	"github.com/iconidentify/xdl/internal/extractor"
	"github.com/iconidentify/xdl/internal/repository"
	"github.com/iconidentify/xdl/internal/service"
	"github.com/iconidentify/xdl/pkg/twitter"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// exit ends the process when a task aborts the run.
var exit = os.Exit

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	defaults := config.Defaults()

	// Parse flags
	fs := pflag.NewFlagSet("xdl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cookiesPath := fs.StringP("cookies", "c", defaults.Download.CookiesPath, "Cookie file path")
	output := fs.StringP("output", "o", defaults.Download.OutputTemplate, "Output filename template")
	threads := fs.IntP("threads", "t", defaults.Worker.Threads, "Number of parallel downloads")
	configPath := fs.String("config", "", "Path to config file")
	archivePath := fs.String("archive", "", "SQLite download archive; posts recorded there are skipped")
	engineCookies := fs.String("engine-cookies", defaults.Engine.CookieFile, "Cookie file handed to yt-dlp (empty: use the loaded cookies)")
	onCritical := fs.String("on-critical", defaults.Download.OnCritical, "Unexpected task error policy: abort or continue")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	logLevel := fs.String("log-level", defaults.Log.Level, "Diagnostic log level: debug, info, warn, error")
	showVersion := fs.Bool("version", false, "Show version and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: xdl [flags] URL [URL...]")
		fmt.Fprintln(stderr, "Download videos from X/Twitter posts.")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	if *showVersion {
		fmt.Fprintf(stdout, "xdl %s (built %s)\n", Version, BuildTime)
		return 0
	}

	urls := fs.Args()
	if len(urls) == 0 {
		fs.Usage()
		return 1
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	applyFlag(fs, "cookies", &cfg.Download.CookiesPath, *cookiesPath)
	applyFlag(fs, "output", &cfg.Download.OutputTemplate, *output)
	applyFlag(fs, "threads", &cfg.Worker.Threads, *threads)
	applyFlag(fs, "archive", &cfg.Archive.Path, *archivePath)
	applyFlag(fs, "engine-cookies", &cfg.Engine.CookieFile, *engineCookies)
	applyFlag(fs, "on-critical", &cfg.Download.OnCritical, *onCritical)
	applyFlag(fs, "no-color", &cfg.Log.NoColor, *noColor)
	applyFlag(fs, "log-level", &cfg.Log.Level, *logLevel)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid config: %v\n", err)
		return 1
	}

	// Setup logger
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))

	var reporterOpts console.Options
	if cfg.Log.NoColor {
		off := false
		reporterOpts.Color = &off
	}
	reporter := console.NewReporter(stdout, reporterOpts)

	validURLs := twitter.ValidatePostURLs(urls)
	if len(validURLs) == 0 {
		logger.Error("nothing to download", "given", len(urls), "error", domain.ErrNoValidURLs)
		reporter.Print("No valid Twitter URLs found", console.StatusError)
		return 1
	}
	logger.Info("validated urls", "valid", len(validURLs), "given", len(urls))

	cookies, err := twitter.LoadCookies(cfg.Download.CookiesPath)
	if err != nil {
		reporter.Print("Cookie error: "+err.Error(), console.StatusError)
		return 1
	}
	if cfg.CookiePathsDiverge() {
		logger.Warn("cookie file given to yt-dlp differs from the loaded cookie file",
			"loaded", cfg.Download.CookiesPath,
			"engine", cfg.Engine.CookieFile,
		)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run-level resources are released on return and before an abort exit.
	var cleanups []func()
	release := sync.OnceFunc(func() {
		cancel()
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	})
	defer release()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Warn("interrupted, cancelling downloads")
			cancel()
		case <-ctx.Done():
		}
	}()

	var archive repository.ArchiveRepository
	if cfg.Archive.Path != "" {
		sqliteArchive, err := repository.NewSQLiteArchiveRepository(ctx, cfg.Archive.Path)
		if err != nil {
			reporter.Print("Archive error: "+err.Error(), console.StatusError)
			return 1
		}
		cleanups = append(cleanups, func() { sqliteArchive.Close() })
		archive = sqliteArchive

		if n, err := sqliteArchive.Count(ctx); err == nil {
			logger.Info("download archive opened", "path", cfg.Archive.Path, "entries", n)
		}
	}

	engineCookieFile := cfg.Engine.CookieFile
	if engineCookieFile == "" {
		path, remove, err := extractor.WriteCookieJar(cookies)
		if err != nil {
			reporter.Print("Cookie error: "+err.Error(), console.StatusError)
			return 1
		}
		cleanups = append(cleanups, remove)
		engineCookieFile = path
		logger.Debug("rendered temporary cookie jar", "path", path)
	}

	accelerator := extractor.DetectAccelerator(cfg.Engine.Accelerator, cfg.Engine.AcceleratorArgs)
	if accelerator != nil {
		logger.Info("using accelerator", "name", accelerator.Name, "path", accelerator.Path)
	}

	opts := extractor.Options{
		OutputTemplate:           cfg.Download.OutputTemplate,
		Format:                   cfg.Engine.Format,
		CookieFile:               engineCookieFile,
		ConcurrentFragments:      cfg.Engine.ConcurrentFragments,
		HTTPChunkSize:            cfg.Engine.HTTPChunkSize,
		Retries:                  cfg.Engine.Retries,
		FragmentRetries:          cfg.Engine.FragmentRetries,
		SkipUnavailableFragments: true,
		RestrictFilenames:        true,
		Accelerator:              accelerator,
	}

	engine := extractor.NewYTDLP(cfg.Engine.Binary, logger)
	downloadSvc := service.NewDownloadService(engine, reporter, archive, opts, logger)
	dispatcher := service.NewDispatcher(downloadSvc, reporter, service.DispatcherConfig{
		Workers:    cfg.Worker.Threads,
		OnCritical: cfg.Download.OnCritical,
		Exit: func(code int) {
			release()
			exit(code)
		},
	}, logger)

	dispatcher.Run(ctx, validURLs)
	return 0
}

// applyFlag overrides a config value with an explicitly set flag.
func applyFlag[T any](fs *pflag.FlagSet, name string, dst *T, value T) {
	if fs.Changed(name) {
		*dst = value
	}
}
