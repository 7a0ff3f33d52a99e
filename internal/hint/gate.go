package hint

import (
	"time"

	"codeberg.org/mutker/powerhald/internal/errors"
)

// DefaultInteractionInterval is slightly shorter than the interaction
// floor so back-to-back touches keep it held without gaps.
const DefaultInteractionInterval = 90 * time.Millisecond

// Gate suppresses a hint kind that fired more recently than its
// minimum interval. Gate does no locking: it is part of the dispatcher's
// protected state and is only touched with that lock held.
type Gate struct {
	intervals map[Kind]time.Duration
	last      map[Kind]time.Time
}

// NewGate returns a gate with the interaction interval set to
// DefaultInteractionInterval and every other interval zero.
func NewGate() *Gate {
	return &Gate{
		intervals: map[Kind]time.Duration{Interaction: DefaultInteractionInterval},
		last:      make(map[Kind]time.Time),
	}
}

// SetInterval configures the minimum spacing for k. Zero disables
// suppression for k.
func (g *Gate) SetInterval(k Kind, d time.Duration) error {
	errFactory := errors.New()
	if !k.Valid() {
		return errFactory.WithData(ErrInvalidHint, uint32(k))
	}
	if d < 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, d.String())
	}

	if d == 0 {
		delete(g.intervals, k)
		return nil
	}
	g.intervals[k] = d

	return nil
}

// SetIntervals replaces every interval with the given table. Kinds
// absent from intervals get zero. Nothing changes if any entry is
// invalid.
func (g *Gate) SetIntervals(intervals map[Kind]time.Duration) error {
	next := make(map[Kind]time.Duration, len(intervals))
	for k, d := range intervals {
		if !k.Valid() {
			return errors.New().WithData(ErrInvalidHint, uint32(k))
		}
		if d < 0 {
			return errors.New().WithData(errors.ErrInvalidInterval, d.String())
		}
		if d > 0 {
			next[k] = d
		}
	}
	g.intervals = next

	return nil
}

// Intervals returns a copy of the non-zero intervals.
func (g *Gate) Intervals() map[Kind]time.Duration {
	out := make(map[Kind]time.Duration, len(g.intervals))
	for k, d := range g.intervals {
		out[k] = d
	}
	return out
}

// Interval returns the configured spacing for k.
func (g *Gate) Interval(k Kind) time.Duration {
	return g.intervals[k]
}

// ShouldApply reports whether a hint of kind k arriving at now should
// be acted on. It never records; callers call Record once they commit.
func (g *Gate) ShouldApply(k Kind, now time.Time) (bool, error) {
	if !k.Valid() {
		return false, errors.New().WithData(ErrInvalidHint, uint32(k))
	}

	last, seen := g.last[k]
	interval := g.intervals[k]
	if seen && interval > 0 && now.Sub(last) < interval {
		return false, nil
	}

	return true, nil
}

// Record stores now as the last time k was applied.
func (g *Gate) Record(k Kind, now time.Time) error {
	if !k.Valid() {
		return errors.New().WithData(ErrInvalidHint, uint32(k))
	}

	g.last[k] = now

	return nil
}

// Last returns when k was last recorded.
func (g *Gate) Last(k Kind) (time.Time, bool) {
	t, ok := g.last[k]
	return t, ok
}
