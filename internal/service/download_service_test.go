package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/iconidentify/xdl/internal/console"
	"github.com/iconidentify/xdl/internal/domain"
	"github.com/iconidentify/xdl/internal/extractor"
)

const testURL = "https://twitter.com/alice/status/12345"

func TestDownloadService_Success(t *testing.T) {
	ext := &mockExtractor{title: "Cat video"}
	rep := &recordingReporter{}
	archive := newMemoryArchive()
	opts := extractor.Options{
		OutputTemplate: "%(title)s.%(ext)s",
		CookieFile:     "cookies.txt",
	}

	svc := NewDownloadService(ext, rep, archive, opts, testLogger())
	result := svc.Download(context.Background(), testURL)

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Err != nil {
		t.Errorf("unexpected error: %v", result.Err)
	}
	if result.Title != "Cat video" {
		t.Errorf("Title = %q", result.Title)
	}
	if result.ID == "" {
		t.Error("task ID should be set")
	}
	if !rep.has("Starting download: Cat video", console.StatusInfo) {
		t.Error("missing start line")
	}
	if !rep.has("Successfully downloaded: Cat video", console.StatusSuccess) {
		t.Error("missing success line")
	}
	if ext.lastOpts.OutputTemplate != "%(title)s.%(ext)s" || ext.lastOpts.CookieFile != "cookies.txt" {
		t.Errorf("options not passed through: %+v", ext.lastOpts)
	}

	entry, ok := archive.Get("12345")
	if !ok {
		t.Fatal("successful download should be archived")
	}
	if entry.URL != testURL || entry.Title != "Cat video" {
		t.Errorf("archive entry = %+v", entry)
	}
}

func TestDownloadService_DownloadFailure(t *testing.T) {
	ext := &mockExtractor{
		title:       "Clip",
		downloadErr: fmt.Errorf("%w: HTTP Error 404", domain.ErrDownloadFailed),
	}
	rep := &recordingReporter{}
	archive := newMemoryArchive()

	svc := NewDownloadService(ext, rep, archive, extractor.Options{}, testLogger())
	result := svc.Download(context.Background(), testURL)

	if result.Success {
		t.Error("expected failure")
	}
	if result.Critical() != nil {
		t.Error("engine-reported failure must not be critical")
	}
	if !errors.Is(result.Err, domain.ErrDownloadFailed) {
		t.Errorf("Err = %v", result.Err)
	}
	if !rep.has("Download failed: ", console.StatusError) {
		t.Error("missing failure line")
	}
	if _, ok := archive.Get("12345"); ok {
		t.Error("failed download should not be archived")
	}
}

func TestDownloadService_ExtractFailureIsRecoverable(t *testing.T) {
	ext := &mockExtractor{extractErr: fmt.Errorf("%w: private account", domain.ErrDownloadFailed)}
	rep := &recordingReporter{}

	svc := NewDownloadService(ext, rep, nil, extractor.Options{}, testLogger())
	result := svc.Download(context.Background(), testURL)

	if result.Success || result.Critical() != nil {
		t.Errorf("expected plain failure, got %+v", result)
	}
	if ext.downloadCalls != 0 {
		t.Error("download should not run after failed extraction")
	}
}

func TestDownloadService_UnexpectedErrorIsCritical(t *testing.T) {
	ext := &mockExtractor{extractErr: errors.New("yt-dlp binary not found")}
	rep := &recordingReporter{}

	svc := NewDownloadService(ext, rep, nil, extractor.Options{}, testLogger())
	result := svc.Download(context.Background(), testURL)

	if result.Success {
		t.Error("expected failure")
	}
	ce := result.Critical()
	if ce == nil {
		t.Fatalf("expected CriticalError, got %v", result.Err)
	}
	if ce.URL != testURL {
		t.Errorf("CriticalError.URL = %q", ce.URL)
	}
	if !rep.has("Critical error: yt-dlp binary not found", console.StatusError) {
		t.Error("missing critical line")
	}
}

func TestDownloadService_ProgressRouting(t *testing.T) {
	ext := &mockExtractor{
		title: "Clip",
		progress: []extractor.Progress{
			{Status: extractor.ProgressDownloading, Percent: "10.0%", Speed: "1.00MiB/s", ETA: "00:09"},
			{Status: extractor.ProgressDownloading, Percent: "50.0%"},
			{Status: extractor.ProgressError, Percent: "50.0%"},
			{Status: extractor.ProgressPostProcessing, Percent: "100.0%"},
			{Status: extractor.ProgressFinished, Percent: "100.0%"},
		},
	}
	rep := &recordingReporter{}

	svc := NewDownloadService(ext, rep, nil, extractor.Options{}, testLogger())
	svc.Download(context.Background(), testURL)

	if len(rep.progress) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(rep.progress))
	}
	if rep.progress[0] != [3]string{"10.0%", "1.00MiB/s", "00:09"} {
		t.Errorf("first update = %v", rep.progress[0])
	}
}

func TestDownloadService_ArchivedPostSkipped(t *testing.T) {
	ext := &mockExtractor{title: "Clip"}
	rep := &recordingReporter{}
	archive := newMemoryArchive()
	archive.Record(context.Background(), domain.ArchiveEntry{PostID: "12345", URL: testURL})

	svc := NewDownloadService(ext, rep, archive, extractor.Options{}, testLogger())
	result := svc.Download(context.Background(), testURL)

	if !result.Success || !result.Skipped {
		t.Errorf("expected skipped success, got %+v", result)
	}
	if ext.extractCalls != 0 {
		t.Error("archived post should not reach the engine")
	}
	if !rep.has("Already downloaded: "+testURL, console.StatusWarning) {
		t.Error("missing skip line")
	}
}

type failingArchive struct{}

func (failingArchive) Has(ctx context.Context, postID string) (bool, error) {
	return false, errors.New("disk I/O error")
}

func (failingArchive) Record(ctx context.Context, entry domain.ArchiveEntry) error {
	return errors.New("disk I/O error")
}

func (failingArchive) Close() error { return nil }

func TestDownloadService_ArchiveErrorsDoNotFailTask(t *testing.T) {
	ext := &mockExtractor{title: "Clip"}
	rep := &recordingReporter{}

	svc := NewDownloadService(ext, rep, failingArchive{}, extractor.Options{}, testLogger())
	result := svc.Download(context.Background(), testURL)

	if !result.Success {
		t.Errorf("archive errors should not fail the download: %+v", result)
	}
}
