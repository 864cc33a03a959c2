package domain

import (
	"errors"
	"time"
)

// TaskID identifies one download task in logs.
type TaskID string

// String returns the string representation of the TaskID.
func (id TaskID) String() string {
	return string(id)
}

// TaskResult is the outcome of downloading one post URL.
type TaskResult struct {
	ID       TaskID
	URL      string
	Title    string
	Success  bool
	Skipped  bool // Already present in the download archive
	Err      error
	Duration time.Duration
}

// Critical returns the task's CriticalError, if it ended with one.
func (r TaskResult) Critical() *CriticalError {
	if r.Err == nil {
		return nil
	}
	var ce *CriticalError
	if errors.As(r.Err, &ce) {
		return ce
	}
	return nil
}

// Summary aggregates the results of a dispatch run.
type Summary struct {
	Success int
	Skipped int
	Total   int
}

// Add folds one task result into the summary.
func (s *Summary) Add(r TaskResult) {
	if r.Success {
		s.Success++
	}
	if r.Skipped {
		s.Skipped++
	}
}

// Failed returns the number of unsuccessful tasks.
func (s Summary) Failed() int {
	return s.Total - s.Success
}

// ArchiveEntry records a post whose video has been downloaded.
type ArchiveEntry struct {
	PostID       string
	URL          string
	Title        string
	DownloadedAt time.Time
}
