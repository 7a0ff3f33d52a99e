// Package governor applies profile table rows to the interactive cpufreq
// governor and owns the current profile selection.
package governor

import (
	"path"

	"codeberg.org/mutker/powerhald/internal/device"
	"codeberg.org/mutker/powerhald/internal/logger"
	"codeberg.org/mutker/powerhald/internal/profile"
	"codeberg.org/mutker/powerhald/internal/sysfs"
)

// Interactive governor knobs.
const (
	KnobBoostPulseDuration = "boostpulse_duration"
	KnobGoHiSpeedLoad      = "go_hispeed_load"
	KnobHiSpeedFreq        = "hispeed_freq"
	KnobIOIsBusy           = "io_is_busy"
	KnobMinSampleTime      = "min_sample_time"
	KnobTargetLoads        = "target_loads"
)

// KnobPath returns the control file of knob.
func KnobPath(knob string) string {
	return path.Join(sysfs.InteractivePath, knob)
}

// Controller writes profiles through fs and records the selection in
// the device state.
type Controller struct {
	fs     *sysfs.FS
	state  *device.State
	logger logger.Logger
}

func New(fs *sysfs.FS, state *device.State, log logger.Logger) *Controller {
	return &Controller{
		fs:     fs,
		state:  state,
		logger: log,
	}
}

// SetProfile validates id and applies it under the device lock.
func (c *Controller) SetProfile(id profile.ID) error {
	p, err := profile.Lookup(id)
	if err != nil {
		c.logger.Error().Err(err).Msg("Unknown profile")
		return err
	}

	c.state.Lock()
	defer c.state.Unlock()

	c.apply(p)

	return nil
}

// SetProfileLocked is SetProfile for callers already holding the
// device lock.
func (c *Controller) SetProfileLocked(id profile.ID) error {
	p, err := profile.Lookup(id)
	if err != nil {
		c.logger.Error().Err(err).Msg("Unknown profile")
		return err
	}

	c.apply(p)

	return nil
}

func (c *Controller) apply(p profile.Profile) {
	c.logger.Info().Stringer("profile", p.ID).Msg("Setting profile")

	c.fs.WriteInt(KnobPath(KnobBoostPulseDuration), p.BoostPulseDuration)
	c.fs.WriteInt(KnobPath(KnobGoHiSpeedLoad), p.GoHiSpeedLoad)
	c.fs.WriteInt(KnobPath(KnobHiSpeedFreq), p.HiSpeed(c.state.Overclocked()))
	c.fs.WriteBool(KnobPath(KnobIOIsBusy), p.IOIsBusy)
	c.fs.WriteInt(KnobPath(KnobMinSampleTime), p.MinSampleTime)
	c.fs.WriteText(KnobPath(KnobTargetLoads), p.TargetLoads.String())

	c.state.SetCurrent(p.ID)
}

// ApplyInteractivity rewrites the current profile's active (on) or idle
// parameter set under the device lock.
func (c *Controller) ApplyInteractivity(on bool) {
	c.state.Lock()
	defer c.state.Unlock()

	c.ApplyInteractivityLocked(on)
}

// ApplyInteractivityLocked is ApplyInteractivity for callers already
// holding the device lock.
func (c *Controller) ApplyInteractivityLocked(on bool) {
	p, err := profile.Lookup(c.state.Current())
	if err != nil {
		// current is only ever set from a validated id
		c.logger.Error().Err(err).Msg("Current profile is invalid")
		return
	}

	params := p.For(on, c.state.Overclocked())

	c.fs.WriteInt(KnobPath(KnobHiSpeedFreq), params.HiSpeedFreq)
	c.fs.WriteInt(KnobPath(KnobGoHiSpeedLoad), params.GoHiSpeedLoad)
	c.fs.WriteText(KnobPath(KnobTargetLoads), params.TargetLoads.String())
}

// Current returns the selected profile.
func (c *Controller) Current() profile.ID {
	c.state.Lock()
	defer c.state.Unlock()

	return c.state.Current()
}
