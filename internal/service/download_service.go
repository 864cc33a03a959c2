package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/xdl/internal/console"
	"github.com/iconidentify/xdl/internal/domain"
	"github.com/iconidentify/xdl/internal/extractor"
	"github.com/iconidentify/xdl/internal/repository"
	"github.com/iconidentify/xdl/pkg/twitter"
)

// Reporter is the console sink shared by all download tasks.
type Reporter interface {
	Print(message string, status console.Status)
	ReportProgress(percent, speed, eta string)
}

// DownloadService downloads the video of a single post.
type DownloadService struct {
	extractor extractor.Extractor
	reporter  Reporter
	archive   repository.ArchiveRepository
	opts      extractor.Options
	logger    *slog.Logger
}

// NewDownloadService creates a new download service. archive may be nil.
func NewDownloadService(
	ext extractor.Extractor,
	reporter Reporter,
	archive repository.ArchiveRepository,
	opts extractor.Options,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		extractor: ext,
		reporter:  reporter,
		archive:   archive,
		opts:      opts,
		logger:    logger,
	}
}

// Download extracts and downloads one post URL. Engine-reported failures
// yield an unsuccessful result; any other failure yields a result carrying
// a *domain.CriticalError.
func (s *DownloadService) Download(ctx context.Context, url string) domain.TaskResult {
	start := time.Now()
	result := domain.TaskResult{
		ID:  domain.TaskID("task_" + uuid.New().String()[:8]),
		URL: url,
	}
	logger := s.logger.With("task_id", result.ID, "url", url)

	postID := twitter.ExtractPostID(url)
	if s.isArchived(ctx, logger, postID) {
		s.reporter.Print("Already downloaded: "+url, console.StatusWarning)
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	meta, err := s.extractor.Extract(ctx, url, s.opts)
	if err != nil {
		return s.fail(logger, result, start, err)
	}
	result.Title = meta.Title

	s.reporter.Print("Starting download: "+meta.Title, console.StatusInfo)
	logger.Info("download started", "title", meta.Title)

	if err := s.extractor.Download(ctx, url, s.opts, s.onProgress); err != nil {
		return s.fail(logger, result, start, err)
	}

	s.reporter.Print("Successfully downloaded: "+meta.Title, console.StatusSuccess)
	result.Success = true
	result.Duration = time.Since(start)
	logger.Info("download completed", "duration", result.Duration)

	s.record(ctx, logger, domain.ArchiveEntry{
		PostID:       postID,
		URL:          url,
		Title:        meta.Title,
		DownloadedAt: time.Now(),
	})

	return result
}

func (s *DownloadService) fail(logger *slog.Logger, result domain.TaskResult, start time.Time, err error) domain.TaskResult {
	result.Duration = time.Since(start)

	if errors.Is(err, domain.ErrDownloadFailed) {
		s.reporter.Print("Download failed: "+err.Error(), console.StatusError)
		logger.Warn("download failed", "error", err)
		result.Err = err
		return result
	}

	s.reporter.Print("Critical error: "+err.Error(), console.StatusError)
	logger.Error("critical download error", "error", err)
	result.Err = domain.NewCriticalError(result.URL, err)
	return result
}

func (s *DownloadService) onProgress(p extractor.Progress) {
	if p.Status != extractor.ProgressDownloading {
		return
	}
	s.reporter.ReportProgress(p.Percent, p.Speed, p.ETA)
}

func (s *DownloadService) isArchived(ctx context.Context, logger *slog.Logger, postID string) bool {
	if s.archive == nil || postID == "" {
		return false
	}
	has, err := s.archive.Has(ctx, postID)
	if err != nil {
		logger.Warn("archive lookup failed", "post_id", postID, "error", err)
		return false
	}
	return has
}

func (s *DownloadService) record(ctx context.Context, logger *slog.Logger, entry domain.ArchiveEntry) {
	if s.archive == nil || entry.PostID == "" {
		return
	}
	if err := s.archive.Record(ctx, entry); err != nil {
		logger.Warn("archive record failed", "post_id", entry.PostID, "error", err)
	}
}
