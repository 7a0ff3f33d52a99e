package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/powerhald/internal/errors"
)

// DefaultFile is used when the configured path is empty.
const DefaultFile = "powerhald.pid"

func resolve(path string) string {
	if path == "" {
		return filepath.Join(os.TempDir(), DefaultFile)
	}
	return path
}

// Write writes the current process ID to path. It fails with
// errors.ErrAlreadyRunning when path names a live process; a stale file
// is replaced.
func Write(path string) error {
	errFactory := errors.New()
	path = resolve(path)

	if bytes, err := os.ReadFile(path); err == nil {
		if running(strings.TrimSpace(string(bytes))) {
			return errFactory.WithData(errors.ErrAlreadyRunning, path)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func running(contents string) bool {
	pid, err := strconv.Atoi(contents)
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// EPERM still means the process exists
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Remove removes the PID file at path.
func Remove(path string) error {
	if err := os.Remove(resolve(path)); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}
