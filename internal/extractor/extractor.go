// Package extractor defines the capability xdl needs from a video
// extraction engine and provides the yt-dlp backed implementation.
package extractor

import (
	"context"
)

// Extractor resolves post metadata and performs the transfer.
type Extractor interface {
	// Extract fetches metadata for url without downloading media.
	Extract(ctx context.Context, url string, opts Options) (*Metadata, error)

	// Download transfers the media behind url, reporting progress to onProgress.
	// A failure the engine itself reports wraps domain.ErrDownloadFailed;
	// anything else is unexpected.
	Download(ctx context.Context, url string, opts Options, onProgress ProgressFunc) error
}

// Metadata describes an extracted post video.
type Metadata struct {
	Title    string
	Filename string
}

// ProgressStatus is the phase of a transfer.
type ProgressStatus string

const (
	ProgressStarting       ProgressStatus = "starting"
	ProgressDownloading    ProgressStatus = "downloading"
	ProgressPostProcessing ProgressStatus = "post_processing"
	ProgressFinished       ProgressStatus = "finished"
	ProgressError          ProgressStatus = "error"
)

// Progress is one transfer update. Empty strings mean unknown.
type Progress struct {
	Status  ProgressStatus
	Percent string
	Speed   string
	ETA     string
}

// ProgressFunc receives transfer updates. It may be called from engine goroutines.
type ProgressFunc func(Progress)

// Options configures a single extraction and download.
type Options struct {
	OutputTemplate string
	Format         string

	// CookieFile is handed to the engine as its cookie jar; empty means none.
	CookieFile string

	ConcurrentFragments int
	HTTPChunkSize       string
	Retries             int
	FragmentRetries     int

	SkipUnavailableFragments bool
	RestrictFilenames        bool

	// Accelerator, when non-nil, takes over the byte transfer.
	Accelerator *Accelerator
}
