package hint_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/hint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestGateFirstHintAlwaysApplies(t *testing.T) {
	g := hint.NewGate()

	ok, err := g.ShouldApply(hint.Interaction, t0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGateSuppressesWithinInterval(t *testing.T) {
	g := hint.NewGate()
	require.Equal(t, 90*time.Millisecond, g.Interval(hint.Interaction))

	require.NoError(t, g.Record(hint.Interaction, t0))

	tests := []struct {
		name  string
		after time.Duration
		want  bool
	}{
		{"same instant", 0, false},
		{"just inside", 89999 * time.Microsecond, false},
		{"exactly at interval", 90 * time.Millisecond, true},
		{"well after", time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := g.ShouldApply(hint.Interaction, t0.Add(tt.after))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestGateCheckDoesNotRecord(t *testing.T) {
	g := hint.NewGate()

	ok, err := g.ShouldApply(hint.Interaction, t0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.ShouldApply(hint.Interaction, t0.Add(time.Millisecond))
	require.NoError(t, err)
	assert.True(t, ok, "ShouldApply must not commit a timestamp")

	_, seen := g.Last(hint.Interaction)
	assert.False(t, seen)
}

func TestGateZeroIntervalNeverSuppresses(t *testing.T) {
	g := hint.NewGate()
	require.NoError(t, g.Record(hint.Launch, t0))

	ok, err := g.ShouldApply(hint.Launch, t0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGateKindsAreIndependent(t *testing.T) {
	g := hint.NewGate()
	require.NoError(t, g.SetInterval(hint.Launch, time.Second))
	require.NoError(t, g.Record(hint.Interaction, t0))

	ok, err := g.ShouldApply(hint.Launch, t0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGateSetInterval(t *testing.T) {
	g := hint.NewGate()
	require.NoError(t, g.SetInterval(hint.Interaction, 0))
	require.NoError(t, g.Record(hint.Interaction, t0))

	ok, err := g.ShouldApply(hint.Interaction, t0)
	require.NoError(t, err)
	assert.True(t, ok)

	err = g.SetInterval(hint.Launch, -time.Second)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInterval))
}

func TestGateRejectsOutOfRangeKinds(t *testing.T) {
	g := hint.NewGate()

	for _, k := range []hint.Kind{hint.Count, hint.Count + 1, 0xffffffff} {
		ok, err := g.ShouldApply(k, t0)
		assert.False(t, ok)
		assert.True(t, errors.HasCode(err, hint.ErrInvalidHint))

		err = g.Record(k, t0)
		assert.True(t, errors.HasCode(err, hint.ErrInvalidHint))

		_, seen := g.Last(k)
		assert.False(t, seen, "rejected kind must not be stored")

		assert.Error(t, g.SetInterval(k, time.Second))
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want hint.Kind
	}{
		{"launch", hint.Launch},
		{"set-profile", hint.SetProfile},
		{"INTERACTION", hint.Interaction},
		{"2", hint.Interaction},
		{"0x111", hint.SetProfile},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, err := hint.ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k)
		})
	}

	for _, bad := range []string{"warp", "0x112", "-1"} {
		_, err := hint.ParseKind(bad)
		assert.Error(t, err, bad)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "launch", hint.Launch.String())
	assert.Equal(t, "hint(0x42)", hint.Kind(0x42).String())
}

func TestGateSetIntervalsReplacesTable(t *testing.T) {
	g := hint.NewGate()

	require.NoError(t, g.SetIntervals(map[hint.Kind]time.Duration{
		hint.Launch: 2 * time.Second,
		hint.Vsync:  0,
	}))
	assert.Equal(t, map[hint.Kind]time.Duration{hint.Launch: 2 * time.Second}, g.Intervals())
	assert.Zero(t, g.Interval(hint.Interaction), "omitted kinds drop to zero")

	err := g.SetIntervals(map[hint.Kind]time.Duration{
		hint.Interaction: time.Second,
		hint.Count:       time.Second,
	})
	assert.True(t, errors.HasCode(err, hint.ErrInvalidHint))
	assert.Equal(t, map[hint.Kind]time.Duration{hint.Launch: 2 * time.Second}, g.Intervals(), "rejected table is not applied")
}
