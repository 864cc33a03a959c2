package domain

import "errors"

// Domain errors.
var (
	// ErrNoValidURLs is returned when none of the inputs is a post URL.
	ErrNoValidURLs = errors.New("no valid Twitter URLs found")

	// ErrCookieFileRead is returned when the cookie file cannot be read.
	ErrCookieFileRead = errors.New("cannot read cookie file")

	// ErrMissingCookie is returned when a required cookie is absent.
	ErrMissingCookie = errors.New("missing required cookies")

	// ErrDownloadFailed is returned when the engine reports a failure for one URL.
	// It is recoverable: sibling downloads carry on.
	ErrDownloadFailed = errors.New("video download failed")
)

// CriticalError is an unexpected failure inside a download task, as
// opposed to an engine-reported download failure.
type CriticalError struct {
	URL string
	Err error
}

func (e *CriticalError) Error() string {
	if e.URL != "" {
		return "critical [" + e.URL + "]: " + e.Err.Error()
	}
	return "critical: " + e.Err.Error()
}

func (e *CriticalError) Unwrap() error {
	return e.Err
}

// NewCriticalError creates a new CriticalError.
func NewCriticalError(url string, err error) *CriticalError {
	return &CriticalError{URL: url, Err: err}
}

// ThreadError is a failure surfacing from the worker pool itself rather
// than from a task's own result.
type ThreadError struct {
	Err error
}

func (e *ThreadError) Error() string {
	return e.Err.Error()
}

func (e *ThreadError) Unwrap() error {
	return e.Err
}
