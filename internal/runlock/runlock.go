// Package runlock guards a directory with a PID file so only one process
// clears or writes it at a time.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const FileName = ".diarscribe.lock"

// ErrLocked is returned when a live process holds the lock.
var ErrLocked = errors.New("directory is locked")

// Lock is a held PID file. The file carries an exclusive flock for as long
// as the Lock is held, so a holder that dies releases it with its process.
type Lock struct {
	path string
	f    *os.File
}

// Path returns the lock file location for dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Acquire takes the lock on dir. A PID file left by a dead process carries
// no flock and is taken over in place.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	p := Path(dir)

	for attempt := 0; attempt < 3; attempt++ {
		f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return nil, err
		}

		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			f.Close()
			if errors.Is(err, unix.EWOULDBLOCK) {
				if pid := holder(p); pid > 0 {
					return nil, fmt.Errorf("%w: %s held by PID %d", ErrLocked, dir, pid)
				}
				return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
			}
			return nil, fmt.Errorf("lock %s: %w", p, err)
		}

		// a releasing holder may have unlinked p between our open and flock
		if !samePath(f, p) {
			f.Close()
			continue
		}

		if err := writePID(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("write lock file: %w", err)
		}
		return &Lock{path: p, f: f}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
}

// Release removes the PID file and drops the flock. Safe to call more than
// once.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	// unlink before unlocking so a waiter never locks a file that is about
	// to disappear
	err := os.Remove(l.path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.path = ""
	l.f = nil
	return err
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		return err
	}
	return f.Sync()
}

// samePath reports whether f is still the file linked at p.
func samePath(f *os.File, p string) bool {
	held, err := f.Stat()
	if err != nil {
		return false
	}
	linked, err := os.Stat(p)
	if err != nil {
		return false
	}
	return os.SameFile(held, linked)
}

// holder reads the PID recorded in p, or 0 when it is unreadable.
func holder(p string) int {
	data, err := os.ReadFile(p)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}
