package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/iconidentify/xdl/internal/config"
	"github.com/iconidentify/xdl/internal/console"
	"github.com/iconidentify/xdl/internal/domain"
	"github.com/iconidentify/xdl/internal/worker"
)

// Downloader runs one download task.
type Downloader interface {
	Download(ctx context.Context, url string) domain.TaskResult
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Workers int

	// OnCritical is config.OnCriticalAbort or config.OnCriticalContinue.
	OnCritical string

	// Exit terminates the process under the abort policy. It is called
	// once every running task has returned.
	Exit func(code int)
}

// Dispatcher fans post URLs out over a fixed-size worker pool.
type Dispatcher struct {
	downloader Downloader
	reporter   Reporter
	cfg        DispatcherConfig
	logger     *slog.Logger
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(dl Downloader, reporter Reporter, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.OnCritical == "" {
		cfg.OnCritical = config.OnCriticalAbort
	}
	if cfg.Exit == nil {
		cfg.Exit = os.Exit
	}
	return &Dispatcher{
		downloader: dl,
		reporter:   reporter,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run downloads every URL and waits for all tasks regardless of individual
// outcomes, then prints the summary line. Total always equals len(urls).
//
// Under the abort policy a critical error cancels the remaining tasks; Run
// waits for the running ones to return and then calls Exit(1).
func (d *Dispatcher) Run(ctx context.Context, urls []string) domain.Summary {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	summary := domain.Summary{Total: len(urls)}
	var mu sync.Mutex
	var aborted atomic.Bool

	pool := worker.NewPool(ctx, worker.Config{
		Workers: d.cfg.Workers,
		OnError: func(err error) {
			d.reporter.Print("Thread error: "+err.Error(), console.StatusError)
		},
	}, d.logger)
	pool.Start()
	d.logger.Debug("dispatching", "urls", len(urls), "workers", pool.Workers())

	for _, url := range urls {
		err := pool.Submit(func(ctx context.Context) {
			if aborted.Load() {
				return
			}
			result := d.downloader.Download(ctx, url)

			if ce := result.Critical(); ce != nil && d.cfg.OnCritical == config.OnCriticalAbort {
				if aborted.CompareAndSwap(false, true) {
					d.logger.Error("aborting on critical error", "url", url, "error", ce)
					cancel()
				}
				return
			}

			mu.Lock()
			summary.Add(result)
			mu.Unlock()
		})
		if err != nil {
			d.reporter.Print("Thread error: "+err.Error(), console.StatusError)
		}
	}

	pool.Wait()

	if aborted.Load() {
		d.cfg.Exit(1)
		return summary
	}

	d.logger.Info("dispatch finished",
		"success", summary.Success,
		"failed", summary.Failed(),
		"skipped", summary.Skipped,
		"total", summary.Total,
	)
	d.reporter.Print(fmt.Sprintf("\nDownload complete: %d/%d successful", summary.Success, summary.Total), console.StatusInfo)

	return summary
}
