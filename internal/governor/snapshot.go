package governor

import (
	"codeberg.org/mutker/powerhald/internal/profile"
)

// Snapshot is the live governor configuration as read back from sysfs.
type Snapshot struct {
	BoostPulseDuration int    `cbor:"boostpulse_duration" yaml:"boostpulse_duration"`
	GoHiSpeedLoad      int    `cbor:"go_hispeed_load" yaml:"go_hispeed_load"`
	HiSpeedFreq        int    `cbor:"hispeed_freq" yaml:"hispeed_freq"`
	IOIsBusy           bool   `cbor:"io_is_busy" yaml:"io_is_busy"`
	MinSampleTime      int    `cbor:"min_sample_time" yaml:"min_sample_time"`
	TargetLoads        string `cbor:"target_loads" yaml:"target_loads"`

	// TargetLoadsValid is false when the kernel reports a curve that
	// does not parse.
	TargetLoadsValid bool `cbor:"target_loads_valid" yaml:"target_loads_valid"`
}

// Snapshot reads every knob. Unreadable knobs read as zero.
func (c *Controller) Snapshot() Snapshot {
	loads, err := c.fs.Read(KnobPath(KnobTargetLoads))
	if err != nil {
		c.logger.Debug().Err(err).Msg("Failed to read target loads")
	}

	valid := false
	if loads != "" {
		curve, err := profile.ParseTargetLoads(loads)
		if err == nil {
			loads = curve.String()
			valid = true
		}
	}

	return Snapshot{
		BoostPulseDuration: c.fs.ReadInt(KnobPath(KnobBoostPulseDuration)),
		GoHiSpeedLoad:      c.fs.ReadInt(KnobPath(KnobGoHiSpeedLoad)),
		HiSpeedFreq:        c.fs.ReadInt(KnobPath(KnobHiSpeedFreq)),
		IOIsBusy:           c.fs.ReadInt(KnobPath(KnobIOIsBusy)) != 0,
		MinSampleTime:      c.fs.ReadInt(KnobPath(KnobMinSampleTime)),
		TargetLoads:        loads,
		TargetLoadsValid:   valid,
	}
}
