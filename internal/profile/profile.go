// Package profile holds the fixed table of interactive governor profiles.
package profile

import (
	"strconv"
	"strings"

	"codeberg.org/mutker/powerhald/internal/errors"
)

const ErrInvalidProfile = errors.ErrorCode("invalid_profile")

// ID selects a profile. Values match the host's profile enumeration.
type ID int32

const (
	PowerSave ID = iota
	Balanced
	HighPerformance
	BiasPowerSave
	BiasPerformance

	// Max is the number of profiles; valid ids are below it.
	Max
)

var names = [Max]string{
	PowerSave:       "power_save",
	Balanced:        "balanced",
	HighPerformance: "high_performance",
	BiasPowerSave:   "bias_power_save",
	BiasPerformance: "bias_performance",
}

func (id ID) Valid() bool {
	return id >= 0 && id < Max
}

func (id ID) String() string {
	if !id.Valid() {
		return "profile(" + strconv.Itoa(int(id)) + ")"
	}
	return names[id]
}

// ParseID accepts a profile name (either "high_performance" or
// "high-performance") or its number.
func ParseID(s string) (ID, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for id, name := range names {
		if name == key {
			return ID(id), nil
		}
	}

	n, err := strconv.Atoi(key)
	if err != nil || !ID(n).Valid() {
		return 0, errors.New().WithData(ErrInvalidProfile, s)
	}

	return ID(n), nil
}

// Profile is one row of the table. Frequencies are in kHz and times in
// microseconds, the units the governor takes.
type Profile struct {
	ID ID

	// interactive governor, active (screen on) and idle (screen off)
	BoostPulseDuration int
	GoHiSpeedLoad      int
	GoHiSpeedLoadIdle  int
	HiSpeedFreq        int
	HiSpeedFreqOC      int
	HiSpeedFreqIdle    int
	IOIsBusy           bool
	MinSampleTime      int
	TargetLoads        TargetLoads
	TargetLoadsIdle    TargetLoads

	// cpu limits; -1 means unconstrained
	MaxCPUFreq     int
	MinCPUFreq     int
	MinCPUFreqIdle int
	MaxCPUOnline   int
	MinCPUOnline   int
}

// Params is the subset of a profile rewritten on every interactivity
// transition.
type Params struct {
	HiSpeedFreq   int
	GoHiSpeedLoad int
	TargetLoads   TargetLoads
}

// HiSpeed returns the active hispeed frequency for the device class.
func (p Profile) HiSpeed(overclocked bool) int {
	if overclocked {
		return p.HiSpeedFreqOC
	}
	return p.HiSpeedFreq
}

// Active returns the screen-on parameter set.
func (p Profile) Active(overclocked bool) Params {
	return Params{
		HiSpeedFreq:   p.HiSpeed(overclocked),
		GoHiSpeedLoad: p.GoHiSpeedLoad,
		TargetLoads:   p.TargetLoads,
	}
}

// Idle returns the screen-off parameter set. The idle hispeed frequency
// has no overclocked variant.
func (p Profile) Idle() Params {
	return Params{
		HiSpeedFreq:   p.HiSpeedFreqIdle,
		GoHiSpeedLoad: p.GoHiSpeedLoadIdle,
		TargetLoads:   p.TargetLoadsIdle,
	}
}

// For returns Active when on is true and Idle otherwise.
func (p Profile) For(on, overclocked bool) Params {
	if on {
		return p.Active(overclocked)
	}
	return p.Idle()
}

// Lookup returns the profile for id.
func Lookup(id ID) (Profile, error) {
	if !id.Valid() {
		return Profile{}, errors.New().WithData(ErrInvalidProfile, int(id))
	}
	return table[id].clone(), nil
}

func (p Profile) clone() Profile {
	p.TargetLoads = p.TargetLoads.Clone()
	p.TargetLoadsIdle = p.TargetLoadsIdle.Clone()
	return p
}

// All returns every profile in id order.
func All() []Profile {
	out := make([]Profile, len(table))
	for i, p := range table {
		out[i] = p.clone()
	}
	return out
}
