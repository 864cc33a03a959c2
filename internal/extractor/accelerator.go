package extractor

import (
	"os/exec"
	"strings"
)

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Accelerator is an external transfer binary the engine can delegate to.
type Accelerator struct {
	Name string
	Path string
	Args []string
}

// DetectAccelerator returns the accelerator if name is found in PATH, or
// nil when it is absent or name is empty.
func DetectAccelerator(name string, args []string) *Accelerator {
	if name == "" {
		return nil
	}
	path, err := lookPath(name)
	if err != nil {
		return nil
	}
	return &Accelerator{
		Name: name,
		Path: path,
		Args: append([]string(nil), args...),
	}
}

// DownloaderArgs renders the engine's "NAME:ARGS" downloader argument.
func (a *Accelerator) DownloaderArgs() string {
	return a.Name + ":" + strings.Join(a.Args, " ")
}
