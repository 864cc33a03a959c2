package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/iconidentify/xdl/internal/console"
	"github.com/iconidentify/xdl/internal/domain"
	"github.com/iconidentify/xdl/internal/extractor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type printedLine struct {
	message string
	status  console.Status
}

// recordingReporter captures reporter calls.
type recordingReporter struct {
	mu       sync.Mutex
	lines    []printedLine
	progress [][3]string
}

func (r *recordingReporter) Print(message string, status console.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, printedLine{message: message, status: status})
}

func (r *recordingReporter) ReportProgress(percent, speed, eta string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, [3]string{percent, speed, eta})
}

func (r *recordingReporter) has(prefix string, status console.Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l.status == status && strings.HasPrefix(l.message, prefix) {
			return true
		}
	}
	return false
}

func (r *recordingReporter) last() printedLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return printedLine{}
	}
	return r.lines[len(r.lines)-1]
}

// mockExtractor implements extractor.Extractor for testing.
type mockExtractor struct {
	mu            sync.Mutex
	title         string
	extractErr    error
	downloadErr   error
	progress      []extractor.Progress
	extractCalls  int
	downloadCalls int
	lastOpts      extractor.Options
}

func (m *mockExtractor) Extract(ctx context.Context, url string, opts extractor.Options) (*extractor.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractCalls++
	m.lastOpts = opts
	if m.extractErr != nil {
		return nil, m.extractErr
	}
	return &extractor.Metadata{Title: m.title}, nil
}

func (m *mockExtractor) Download(ctx context.Context, url string, opts extractor.Options, onProgress extractor.ProgressFunc) error {
	m.mu.Lock()
	m.downloadCalls++
	progress := m.progress
	err := m.downloadErr
	m.mu.Unlock()

	for _, p := range progress {
		onProgress(p)
	}
	return err
}

// memoryArchive implements repository.ArchiveRepository for testing.
type memoryArchive struct {
	mu      sync.Mutex
	entries map[string]domain.ArchiveEntry
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{entries: make(map[string]domain.ArchiveEntry)}
}

func (a *memoryArchive) Has(ctx context.Context, postID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.entries[postID]
	return ok, nil
}

func (a *memoryArchive) Record(ctx context.Context, entry domain.ArchiveEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[entry.PostID] = entry
	return nil
}

func (a *memoryArchive) Get(postID string) (domain.ArchiveEntry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.entries[postID]
	return entry, ok
}

func (a *memoryArchive) Close() error { return nil }
