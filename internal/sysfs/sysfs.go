// Package sysfs reads and writes the kernel control files the power
// policy is expressed through. Every path is relative to a root so the
// same code runs against / on a device and against a temp tree in tests.
package sysfs

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/logger"
	"golang.org/x/sys/unix"
)

// Control-plane locations, relative to the filesystem root.
const (
	InteractivePath = "sys/devices/system/cpu/cpufreq/interactive"
	CPUQuietPath    = "sys/devices/system/cpu/cpuquiet/tegra_cpuquiet"
	CPUFreqPath     = "sys/devices/system/cpu/cpu0/cpufreq"
	NVAVPPath       = "sys/devices/platform/host1x/nvavp"
	InputPath       = "sys/class/input"
	TraceMarkerPath = "sys/kernel/debug/tracing/trace_marker"
)

// FS is the platform collaborator: best-effort numeric reads, text
// writes and existence probes, all rooted at one directory.
type FS struct {
	root   string
	logger logger.Logger
}

func New(root string, log logger.Logger) *FS {
	if root == "" {
		root = "/"
	}
	return &FS{root: root, logger: log}
}

// Path resolves rel against the root.
func (fs *FS) Path(rel string) string {
	return filepath.Join(fs.root, rel)
}

// Read returns the trimmed contents of rel.
func (fs *FS) Read(rel string) (string, error) {
	data, err := os.ReadFile(fs.Path(rel))
	if err != nil {
		return "", errors.New().WithData(ErrReadFailed, pathError{Path: rel, Error: err.Error()})
	}

	return strings.TrimSpace(string(data)), nil
}

// ReadInt parses rel as a decimal integer. Any I/O or parse failure
// yields 0 so callers keep going on hardware that lacks the node.
func (fs *FS) ReadInt(rel string) int {
	text, err := fs.Read(rel)
	if err != nil {
		fs.logger.Debug().Err(err).Str("path", rel).Msg("Read failed, using 0")
		return 0
	}

	value, err := strconv.Atoi(text)
	if err != nil {
		fs.logger.Debug().Str("path", rel).Str("value", text).Msg("Not a number, using 0")
		return 0
	}

	return value
}

// Write stores value into an existing node. Nodes are never created.
func (fs *FS) Write(rel, value string) error {
	f, err := os.OpenFile(fs.Path(rel), os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return errors.New().WithData(ErrOpenFailed, pathError{Path: rel, Error: err.Error()})
	}
	defer f.Close()

	if _, err := io.WriteString(f, value); err != nil {
		return errors.New().WithData(ErrWriteFailed, pathError{Path: rel, Error: err.Error()})
	}

	return nil
}

// WriteText is Write with failures logged instead of returned.
func (fs *FS) WriteText(rel, value string) {
	if err := fs.Write(rel, value); err != nil {
		fs.logger.Error().Err(err).Str("path", rel).Str("value", value).Msg("Failed to write control file")
		return
	}

	fs.logger.Debug().Str("path", rel).Str("value", value).Msg("Wrote control file")
}

// WriteInt is WriteText for integer knobs.
func (fs *FS) WriteInt(rel string, value int) {
	fs.WriteText(rel, strconv.Itoa(value))
}

// WriteBool writes "1" or "0".
func (fs *FS) WriteBool(rel string, value bool) {
	if value {
		fs.WriteText(rel, "1")
		return
	}
	fs.WriteText(rel, "0")
}

func (fs *FS) Exists(rel string) bool {
	_, err := os.Stat(fs.Path(rel))
	return err == nil
}

func (fs *FS) IsDir(rel string) bool {
	info, err := os.Stat(fs.Path(rel))
	return err == nil && info.IsDir()
}

// Writable reports whether the calling process may write rel.
func (fs *FS) Writable(rel string) bool {
	return unix.Access(fs.Path(rel), unix.W_OK) == nil
}

// OpenWriter opens rel for writing and leaves it open. Used for handles
// whose lifetime is managed by the caller (boost pulse, PM QoS).
func (fs *FS) OpenWriter(rel string) (io.WriteCloser, error) {
	f, err := os.OpenFile(fs.Path(rel), os.O_WRONLY, 0)
	if err != nil {
		return nil, errors.New().WithData(ErrOpenFailed, pathError{Path: rel, Error: err.Error()})
	}

	return f, nil
}

// ReadInts parses a whitespace separated list of integers, skipping
// tokens that are not numbers.
func (fs *FS) ReadInts(rel string) []int {
	text, err := fs.Read(rel)
	if err != nil {
		fs.logger.Debug().Err(err).Str("path", rel).Msg("Read failed")
		return nil
	}

	var values []int
	for _, field := range strings.Fields(text) {
		value, err := strconv.Atoi(field)
		if err != nil {
			fs.logger.Debug().Str("path", rel).Str("value", field).Msg("Skipping non-numeric entry")
			continue
		}
		values = append(values, value)
	}

	return values
}
