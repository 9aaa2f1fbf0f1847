// Package lockfile implements the on-disk coordination sidecars for a
// compilation unit: an advisory lock keyed by process liveness, and a status
// marker recording that a compile run finished.
//
// The lock is not a mutex. A concurrent open fails fast instead of waiting,
// and a lock whose recorded process is dead is treated as absent.
package lockfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	binderrors "git.home.luguber.info/inful/bindery/internal/errors"
)

// ErrBusy is returned by Acquire when another live process holds the lock.
var ErrBusy = errors.New("unit is locked by a live process")

// Lock is the advisory lock sidecar for one unit.
type Lock struct {
	path string
}

// NewLock creates a lock handle for the given sidecar path.
func NewLock(path string) *Lock {
	return &Lock{path: path}
}

// Path returns the sidecar path.
func (l *Lock) Path() string { return l.path }

// Acquire writes a fresh lock owned by this process.
// If a valid lock already exists it returns ErrBusy without touching it.
func (l *Lock) Acquire() error {
	valid, err := l.Valid()
	if err != nil {
		return err
	}
	if valid {
		return ErrBusy
	}

	content := fmt.Sprintf("pid: %d\ntime: %s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	if err := os.WriteFile(l.path, []byte(content), 0o644); err != nil {
		return binderrors.LockError(l.path, err)
	}
	return nil
}

// Release removes the lock sidecar. A missing sidecar is not an error.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return binderrors.LockError(l.path, err)
	}
	return nil
}

// Valid reports whether the lock sidecar exists and its recorded process is
// still alive. A stale lock (dead process) counts as absent.
func (l *Lock) Valid() (bool, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, binderrors.LockError(l.path, err)
	}
	defer f.Close()

	pid, err := parsePid(f)
	if err != nil {
		return false, binderrors.LockError(l.path, err)
	}
	return processAlive(pid), nil
}

// Owner returns the pid recorded in the lock sidecar, or 0 when absent.
func (l *Lock) Owner() (int, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, binderrors.LockError(l.path, err)
	}
	defer f.Close()
	return parsePid(f)
}

func parsePid(f *os.File) (int, error) {
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "pid:"); ok {
			pid, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return 0, fmt.Errorf("malformed pid line %q: %w", line, err)
			}
			return pid, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("lock sidecar has no pid line")
}

// processAlive probes the pid with signal 0. EPERM still means the process
// exists, just owned by someone else.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
