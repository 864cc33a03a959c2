// Package console serializes user-facing status lines and a single-line
// download spinner shared by concurrent download tasks.
package console

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Status selects the color of a printed line.
type Status string

const (
	StatusNone    Status = ""
	StatusError   Status = "error"
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusInfo    Status = "info"
)

// SpinnerFrames is the cycle of spinner glyphs drawn by ReportProgress.
var SpinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

const (
	// clearWidth is how many columns are blanked before redrawing the progress line.
	clearWidth = 80

	notAvailable = "N/A"
)

// Options configures a Reporter.
type Options struct {
	// Color enables ANSI colors. When nil, colors are enabled only if the
	// output is a terminal.
	Color *bool
}

// Reporter writes colored status lines and progress updates. All methods
// are safe for concurrent use; each call reaches the output as a single
// write, so lines from different goroutines never interleave.
type Reporter struct {
	mu         sync.Mutex
	out        *bufio.Writer
	colors     map[Status]*color.Color
	spinnerPos int
	midLine    bool // A progress line without trailing newline is on screen
}

// NewReporter creates a Reporter writing to out.
func NewReporter(out io.Writer, opts Options) *Reporter {
	enabled := IsTerminal(out)
	if opts.Color != nil {
		enabled = *opts.Color
	}

	colors := map[Status]*color.Color{
		StatusError:   color.New(color.FgRed),
		StatusSuccess: color.New(color.FgGreen),
		StatusWarning: color.New(color.FgYellow),
		StatusInfo:    color.New(color.FgCyan),
	}
	for _, c := range colors {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return &Reporter{
		out:    bufio.NewWriter(out),
		colors: colors,
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Print writes message as one line in the color of status.
func (r *Reporter) Print(message string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.midLine {
		r.out.WriteString("\n")
		r.midLine = false
	}
	r.out.WriteString(r.paint(status, message))
	r.out.WriteString("\n")
	r.out.Flush()
}

// ReportProgress overwrites the current line with the next spinner frame
// followed by percent, speed and ETA.
func (r *Reporter) ReportProgress(percent, speed, eta string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	spin := SpinnerFrames[r.spinnerPos]
	r.spinnerPos = (r.spinnerPos + 1) % len(SpinnerFrames)

	line := string(spin) + " " + orNA(percent) + " | " + orNA(speed) + " | ETA: " + orNA(eta)

	r.out.WriteString("\r" + strings.Repeat(" ", clearWidth) + "\r")
	r.out.WriteString(r.paint(StatusInfo, line))
	r.out.Flush()
	r.midLine = true
}

func (r *Reporter) paint(status Status, s string) string {
	c, ok := r.colors[status]
	if !ok {
		return s
	}
	return c.Sprint(s)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
