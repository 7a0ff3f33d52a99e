package governor_test

import (
	"sync"
	"testing"

	"codeberg.org/mutker/powerhald/internal/device"
	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/governor"
	"codeberg.org/mutker/powerhald/internal/logger"
	"codeberg.org/mutker/powerhald/internal/profile"
	"codeberg.org/mutker/powerhald/internal/sysfs"
	"codeberg.org/mutker/powerhald/internal/sysfs/sysfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newController(t *testing.T, maxFreq int) (*governor.Controller, *sysfstest.Tree) {
	t.Helper()
	tree := sysfstest.Tegra(t, maxFreq)
	fs := sysfs.New(tree.Root, logger.Nop())
	state := device.Initialize(fs, device.Options{}, logger.Nop())
	return governor.New(fs, state, logger.Nop()), tree
}

func TestSetProfileEveryIDBecomesCurrent(t *testing.T) {
	c, _ := newController(t, 1300000)

	for id := profile.ID(0); id < profile.Max; id++ {
		require.NoError(t, c.SetProfile(id))
		assert.Equal(t, id, c.Current())
	}
}

func TestSetProfileWritesKnobs(t *testing.T) {
	c, tree := newController(t, 1300000)

	require.NoError(t, c.SetProfile(profile.Balanced))

	assert.Equal(t, "200000", tree.Knob(governor.KnobBoostPulseDuration))
	assert.Equal(t, "95", tree.Knob(governor.KnobGoHiSpeedLoad))
	assert.Equal(t, "1000000", tree.Knob(governor.KnobHiSpeedFreq))
	assert.Equal(t, "1", tree.Knob(governor.KnobIOIsBusy))
	assert.Equal(t, "40000", tree.Knob(governor.KnobMinSampleTime))
	assert.Equal(t, "70 1200000:80 1300000:85 1400000:90", tree.Knob(governor.KnobTargetLoads))
}

func TestSetProfileOverclockedHiSpeed(t *testing.T) {
	tests := []struct {
		name    string
		maxFreq int
		want    string
	}{
		{"stock", 1300000, "1000000"},
		{"overclocked", 1500000, "1200000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, tree := newController(t, tt.maxFreq)
			require.NoError(t, c.SetProfile(profile.Balanced))
			assert.Equal(t, tt.want, tree.Knob(governor.KnobHiSpeedFreq))
		})
	}
}

func TestSetProfileInvalidLeavesStateUntouched(t *testing.T) {
	c, tree := newController(t, 1300000)
	require.NoError(t, c.SetProfile(profile.PowerSave))
	before := tree.Knob(governor.KnobTargetLoads)

	for _, id := range []profile.ID{-1, profile.Max, 42} {
		err := c.SetProfile(id)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, profile.ErrInvalidProfile))
		assert.Equal(t, profile.PowerSave, c.Current())
		assert.Equal(t, before, tree.Knob(governor.KnobTargetLoads))
	}
}

func TestSetProfileContinuesPastFailedWrite(t *testing.T) {
	c, tree := newController(t, 1300000)
	tree.Remove(governor.KnobPath(governor.KnobHiSpeedFreq))

	require.NoError(t, c.SetProfile(profile.HighPerformance))

	assert.Equal(t, profile.HighPerformance, c.Current())
	assert.Equal(t, "1000000", tree.Knob(governor.KnobBoostPulseDuration))
	assert.Equal(t, "40000", tree.Knob(governor.KnobMinSampleTime))
	assert.Equal(t, "70", tree.Knob(governor.KnobTargetLoads))
}

func TestApplyInteractivityRoundTrip(t *testing.T) {
	for _, maxFreq := range []int{1300000, 1500000} {
		c, tree := newController(t, maxFreq)

		for id := profile.ID(0); id < profile.Max; id++ {
			require.NoError(t, c.SetProfile(id))
			active := tree.Knob(governor.KnobHiSpeedFreq)
			p, err := profile.Lookup(id)
			require.NoError(t, err)

			c.ApplyInteractivity(false)
			assert.Equal(t, p.Idle().TargetLoads.String(), tree.Knob(governor.KnobTargetLoads))

			c.ApplyInteractivity(true)
			assert.Equal(t, active, tree.Knob(governor.KnobHiSpeedFreq), "profile %s", id)
			assert.Equal(t, p.TargetLoads.String(), tree.Knob(governor.KnobTargetLoads))
		}
	}
}

func TestApplyInteractivityIdleValues(t *testing.T) {
	c, tree := newController(t, 1500000)
	require.NoError(t, c.SetProfile(profile.Balanced))

	c.ApplyInteractivity(false)

	assert.Equal(t, "760000", tree.Knob(governor.KnobHiSpeedFreq), "idle has no overclocked variant")
	assert.Equal(t, "95", tree.Knob(governor.KnobGoHiSpeedLoad))
	assert.Equal(t, "90 1200000:99", tree.Knob(governor.KnobTargetLoads))
}

func TestSnapshot(t *testing.T) {
	c, tree := newController(t, 1300000)
	require.NoError(t, c.SetProfile(profile.BiasPerformance))

	snap := c.Snapshot()
	assert.Equal(t, governor.Snapshot{
		BoostPulseDuration: 500000,
		GoHiSpeedLoad:      90,
		HiSpeedFreq:        1100000,
		IOIsBusy:           true,
		MinSampleTime:      40000,
		TargetLoads:        "70 1200000:75 1300000:80 1400000:90",
		TargetLoadsValid:   true,
	}, snap)

	tree.Node(governor.KnobPath(governor.KnobTargetLoads), "bogus")
	snap = c.Snapshot()
	assert.False(t, snap.TargetLoadsValid)
	assert.Equal(t, "bogus", snap.TargetLoads)
}

func TestConcurrentSetProfile(t *testing.T) {
	c, tree := newController(t, 1300000)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id profile.ID) {
			defer wg.Done()
			assert.NoError(t, c.SetProfile(id))
			c.ApplyInteractivity(id%2 == 0)
		}(profile.ID(i) % profile.Max)
	}
	wg.Wait()

	require.NoError(t, c.SetProfile(profile.PowerSave))
	assert.Equal(t, "95", tree.Knob(governor.KnobTargetLoads))
	assert.Equal(t, "60000", tree.Knob(governor.KnobMinSampleTime))
}
