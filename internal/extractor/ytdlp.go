package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/iconidentify/xdl/internal/domain"
	"github.com/iconidentify/xdl/pkg/twitter"
)

// progressInterval throttles engine progress callbacks.
const progressInterval = 250 * time.Millisecond

// YTDLP runs extractions and downloads through the yt-dlp binary.
type YTDLP struct {
	binary string // Empty means resolve yt-dlp from PATH
	logger *slog.Logger
}

// NewYTDLP creates a yt-dlp engine. An empty binary resolves yt-dlp from PATH.
func NewYTDLP(binary string, logger *slog.Logger) *YTDLP {
	return &YTDLP{
		binary: binary,
		logger: logger,
	}
}

// Extract fetches metadata for url without downloading media.
func (y *YTDLP) Extract(ctx context.Context, url string, opts Options) (*Metadata, error) {
	cmd := y.newCommand().DumpJSON()
	if opts.CookieFile != "" {
		cmd.Cookies(opts.CookieFile)
	}

	result, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, classify(err)
	}

	infos, err := result.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse extracted info: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: no media found for %s", domain.ErrDownloadFailed, url)
	}

	meta := &Metadata{}
	if infos[0].Title != nil {
		meta.Title = *infos[0].Title
	}
	if infos[0].Filename != nil {
		meta.Filename = *infos[0].Filename
	}
	return meta, nil
}

// Download transfers the media behind url.
func (y *YTDLP) Download(ctx context.Context, url string, opts Options, onProgress ProgressFunc) error {
	cmd := y.newCommand().
		Output(opts.OutputTemplate).
		Format(opts.Format).
		ConcurrentFragments(opts.ConcurrentFragments).
		Retries(strconv.Itoa(opts.Retries)).
		FragmentRetries(strconv.Itoa(opts.FragmentRetries))

	if opts.CookieFile != "" {
		cmd.Cookies(opts.CookieFile)
	}
	if opts.HTTPChunkSize != "" {
		cmd.HTTPChunkSize(opts.HTTPChunkSize)
	}
	if opts.SkipUnavailableFragments {
		cmd.SkipUnavailableFragments()
	}
	if opts.RestrictFilenames {
		cmd.RestrictFilenames()
	}
	if opts.Accelerator != nil {
		cmd.Downloader(opts.Accelerator.Name).
			DownloaderArgs(opts.Accelerator.DownloaderArgs())
	}
	if onProgress != nil {
		cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			onProgress(convertProgress(update, time.Now()))
		})
	}

	y.logger.Debug("running yt-dlp", "url", url, "accelerator", opts.Accelerator != nil)

	if _, err := cmd.Run(ctx, url); err != nil {
		return classify(err)
	}
	return nil
}

func (y *YTDLP) newCommand() *ytdlp.Command {
	cmd := ytdlp.New()
	if y.binary != "" {
		cmd.SetExecutable(y.binary)
	}
	return cmd
}

// classify maps engine errors onto the download/critical split: a yt-dlp
// run that exits non-zero is an ordinary download failure, everything else
// (missing binary, misconfiguration, unparsable output) is unexpected.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domain.ErrDownloadFailed, err)
	}
	if _, ok := ytdlp.IsExitCodeError(err); ok {
		return fmt.Errorf("%w: %w", domain.ErrDownloadFailed, err)
	}
	return err
}

// WriteCookieJar renders cookies to a temporary cookie-jar file for the
// engine. The returned remove func deletes it and is safe to call twice.
func WriteCookieJar(cookies twitter.CookieSet) (string, func(), error) {
	f, err := os.CreateTemp("", "xdl-cookies-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("create cookie jar: %w", err)
	}
	remove := func() { os.Remove(f.Name()) }

	if err := cookies.WriteNetscape(f); err != nil {
		f.Close()
		remove()
		return "", nil, fmt.Errorf("write cookie jar: %w", err)
	}
	if err := f.Close(); err != nil {
		remove()
		return "", nil, fmt.Errorf("close cookie jar: %w", err)
	}
	return f.Name(), remove, nil
}

// convertProgress keeps the engine's status; byte counts only decide it
// when the engine sent none.
func convertProgress(update ytdlp.ProgressUpdate, now time.Time) Progress {
	p := formatProgress(
		int64(update.DownloadedBytes),
		int64(update.TotalBytes),
		now.Sub(update.Started),
		update.ETA(),
		update.Started.IsZero(),
	)

	switch update.Status {
	case "":
	case ytdlp.ProgressStatusDownloading:
		p.Status = ProgressDownloading
	case ytdlp.ProgressStatusFinished:
		p.Status = ProgressFinished
	case ytdlp.ProgressStatusStarting:
		p.Status = ProgressStarting
	case ytdlp.ProgressStatusPostProcessing:
		p.Status = ProgressPostProcessing
	case ytdlp.ProgressStatusError:
		p.Status = ProgressError
	default:
		p.Status = ProgressStatus(update.Status)
	}
	return p
}

// formatProgress renders byte counters in the engine's familiar style:
// "42.0%", "1.50MiB/s", "00:07".
func formatProgress(downloaded, total int64, elapsed, eta time.Duration, notStarted bool) Progress {
	p := Progress{Status: ProgressDownloading}

	if total > 0 {
		pct := float64(downloaded) / float64(total) * 100
		p.Percent = fmt.Sprintf("%.1f%%", pct)
		if downloaded >= total {
			p.Status = ProgressFinished
		}
	}

	if !notStarted && elapsed > 0 {
		bps := float64(downloaded) / elapsed.Seconds()
		p.Speed = fmt.Sprintf("%.2fMiB/s", bps/1024/1024)
	}

	if eta > 0 {
		p.ETA = formatETA(eta)
	}
	return p
}

func formatETA(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
