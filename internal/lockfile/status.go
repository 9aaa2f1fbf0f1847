package lockfile

import (
	"fmt"
	"os"
	"time"

	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
)

// Status is the completion marker sidecar for one unit. Its presence tells a
// directory-walking caller that the unit does not need recompiling.
type Status struct {
	path string
}

// NewStatus creates a status handle for the given sidecar path.
func NewStatus(path string) *Status {
	return &Status{path: path}
}

// Path returns the sidecar path.
func (s *Status) Path() string { return s.path }

// Write records a finished compile run.
func (s *Status) Write() error {
	content := fmt.Sprintf("finished: %s\n", time.Now().Format(time.RFC3339))
	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		return binderrors.FileSystemError(s.path, err)
	}
	return nil
}

// Remove deletes the completion marker. A missing marker is not an error.
func (s *Status) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return binderrors.FileSystemError(s.path, err)
	}
	return nil
}

// Exists reports whether the completion marker is present.
func (s *Status) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// ModTime returns the marker's modification time, or the zero time when the
// marker is absent.
func (s *Status) ModTime() time.Time {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
