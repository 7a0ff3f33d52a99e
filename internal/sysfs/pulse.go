package sysfs

import (
	"io"

	"codeberg.org/mutker/powerhald/internal/errors"
)

// pulseTrigger is what the interactive governor expects on boostpulse.
const pulseTrigger = "1"

// Opener opens a write handle to an absolute path.
type Opener func(path string) (io.WriteCloser, error)

// Pulse is a lazily opened, cached write handle to a one-shot trigger
// node. A failed write drops the handle so the next Trigger reopens it.
// Pulse is not safe for concurrent use; callers serialize access.
type Pulse struct {
	path  string
	open  Opener
	w     io.WriteCloser
	opens int
}

// NewPulse returns a closed Pulse for rel under fs.
func (fs *FS) NewPulse(rel string) *Pulse {
	return NewPulse(fs.Path(rel), func(_ string) (io.WriteCloser, error) {
		return fs.OpenWriter(rel)
	})
}

// NewPulse returns a closed Pulse that opens path with open.
func NewPulse(path string, open Opener) *Pulse {
	return &Pulse{path: path, open: open}
}

// Trigger writes the trigger value, opening the handle first if needed.
func (p *Pulse) Trigger() error {
	errFactory := errors.New()

	if p.w == nil {
		w, err := p.open(p.path)
		if err != nil {
			return errFactory.Wrap(ErrOpenFailed, err)
		}
		p.w = w
		p.opens++
	}

	if _, err := io.WriteString(p.w, pulseTrigger); err != nil {
		p.w.Close()
		p.w = nil
		return errFactory.WithData(ErrWriteFailed, pathError{Path: p.path, Error: err.Error()})
	}

	return nil
}

// IsOpen reports whether a handle is cached.
func (p *Pulse) IsOpen() bool {
	return p.w != nil
}

// Opens returns how many times the handle has been opened.
func (p *Pulse) Opens() int {
	return p.opens
}

// Close releases the cached handle, if any.
func (p *Pulse) Close() error {
	if p.w == nil {
		return nil
	}

	err := p.w.Close()
	p.w = nil

	return err
}
