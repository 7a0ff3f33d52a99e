package profile_test

import (
	"testing"

	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupValidRange(t *testing.T) {
	for id := profile.ID(0); id < profile.Max; id++ {
		p, err := profile.Lookup(id)
		require.NoError(t, err)
		assert.Equal(t, id, p.ID)
	}
}

func TestLookupInvalid(t *testing.T) {
	for _, id := range []profile.ID{-1, profile.Max, 100} {
		_, err := profile.Lookup(id)
		require.Error(t, err, "id %d", id)
		assert.True(t, errors.HasCode(err, profile.ErrInvalidProfile))
	}
}

func TestBalancedValues(t *testing.T) {
	p, err := profile.Lookup(profile.Balanced)
	require.NoError(t, err)

	assert.Equal(t, 200000, p.BoostPulseDuration)
	assert.Equal(t, 1000000, p.HiSpeed(false))
	assert.Equal(t, 1200000, p.HiSpeed(true))
	assert.Equal(t, 760000, p.Idle().HiSpeedFreq)
	assert.True(t, p.IOIsBusy)
	assert.Equal(t, 40000, p.MinSampleTime)
	assert.Equal(t, "70 1200000:80 1300000:85 1400000:90", p.TargetLoads.String())
	assert.Equal(t, "90 1200000:99", p.TargetLoadsIdle.String())
}

func TestPowerSaveHasNoBoostPulse(t *testing.T) {
	p, err := profile.Lookup(profile.PowerSave)
	require.NoError(t, err)

	assert.Zero(t, p.BoostPulseDuration)
	assert.False(t, p.IOIsBusy)
	assert.Equal(t, "95", p.TargetLoads.String())
}

func TestParamsSelection(t *testing.T) {
	p, err := profile.Lookup(profile.HighPerformance)
	require.NoError(t, err)

	assert.Equal(t, profile.Params{HiSpeedFreq: 1400000, GoHiSpeedLoad: 75, TargetLoads: profile.Loads(70)}, p.For(true, true))
	assert.Equal(t, profile.Params{HiSpeedFreq: 1200000, GoHiSpeedLoad: 75, TargetLoads: profile.Loads(70)}, p.For(true, false))
	assert.Equal(t, p.Idle(), p.For(false, true), "idle set ignores overclock")
}

func TestAllIsOrdered(t *testing.T) {
	all := profile.All()
	require.Len(t, all, int(profile.Max))
	for i, p := range all {
		assert.Equal(t, profile.ID(i), p.ID)
	}
}

func TestCallersCannotEditTable(t *testing.T) {
	p, err := profile.Lookup(profile.Balanced)
	require.NoError(t, err)
	want := p.TargetLoads.String()
	wantIdle := p.TargetLoadsIdle.String()

	p.TargetLoads[0].Load = 5
	p.Active(true).TargetLoads[1].Load = 6
	profile.All()[profile.Balanced].TargetLoadsIdle[0].Load = 1

	again, err := profile.Lookup(profile.Balanced)
	require.NoError(t, err)
	assert.Equal(t, want, again.TargetLoads.String())
	assert.Equal(t, wantIdle, again.TargetLoadsIdle.String())
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want profile.ID
	}{
		{"balanced", profile.Balanced},
		{"High-Performance", profile.HighPerformance},
		{"bias_power_save", profile.BiasPowerSave},
		{"0", profile.PowerSave},
		{" 4 ", profile.BiasPerformance},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, err := profile.ParseID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}

	for _, bad := range []string{"turbo", "5", "-1", ""} {
		_, err := profile.ParseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "balanced", profile.Balanced.String())
	assert.Equal(t, "profile(9)", profile.ID(9).String())
}

func TestParseTargetLoads(t *testing.T) {
	curve, err := profile.ParseTargetLoads("70 1200000:80 1300000:85")
	require.NoError(t, err)
	assert.Equal(t, profile.Loads(70, 1200000, 80, 1300000, 85), curve)

	for _, bad := range []string{"", "1200000:80", "70 80", "70 1300000:85 1200000:80", "120", "70 x:80"} {
		_, err := profile.ParseTargetLoads(bad)
		assert.Error(t, err, bad)
	}
}

func TestTargetLoadsRoundTripForTable(t *testing.T) {
	for _, p := range profile.All() {
		for _, curve := range []profile.TargetLoads{p.TargetLoads, p.TargetLoadsIdle} {
			parsed, err := profile.ParseTargetLoads(curve.String())
			require.NoError(t, err)
			assert.Equal(t, curve, parsed)
		}
	}
}
