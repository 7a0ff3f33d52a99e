package power

import (
	"time"

	"codeberg.org/mutker/powerhald/internal/governor"
	"codeberg.org/mutker/powerhald/internal/qos"
)

// Status is a point-in-time view of the policy state.
type Status struct {
	Profile       string             `cbor:"profile" yaml:"profile"`
	ProfileID     int32              `cbor:"profile_id" yaml:"profile_id"`
	Interactive   bool               `cbor:"interactive" yaml:"interactive"`
	Policy        string             `cbor:"interaction_policy" yaml:"interaction_policy"`
	Device        DeviceStatus       `cbor:"device" yaml:"device"`
	Inputs        []InputStatus      `cbor:"inputs" yaml:"inputs"`
	HintIntervals map[string]string  `cbor:"hint_intervals" yaml:"hint_intervals"`
	Floors        []FloorStatus      `cbor:"floors,omitempty" yaml:"floors,omitempty"`
	Governor      *governor.Snapshot `cbor:"governor,omitempty" yaml:"governor,omitempty"`
}

type DeviceStatus struct {
	MaxFrequency   int  `cbor:"max_freq" yaml:"max_freq"`
	LPMaxFrequency int  `cbor:"lp_max_freq" yaml:"lp_max_freq"`
	Overclocked    bool `cbor:"overclocked" yaml:"overclocked"`
	Governor       bool `cbor:"governor" yaml:"governor"`
	CPUQuiet       bool `cbor:"cpuquiet" yaml:"cpuquiet"`
	BoostClock     bool `cbor:"boost_sclk" yaml:"boost_sclk"`
}

type InputStatus struct {
	Name string `cbor:"name" yaml:"name"`
	ID   int    `cbor:"id" yaml:"id"`
}

// FloorStatus is an active PM QoS request.
type FloorStatus struct {
	Device    string `cbor:"device" yaml:"device"`
	Value     int32  `cbor:"value" yaml:"value"`
	Remaining string `cbor:"remaining" yaml:"remaining"`
}

// Status collects the current state. Governor knobs are read back from
// the kernel, not from the profile table.
func (h *HAL) Status() Status {
	h.state.Lock()
	current := h.state.Current()
	interactive := h.interactive
	intervals := h.gate.Intervals()
	var snapshot *governor.Snapshot
	if h.state.Caps.Governor {
		snap := h.governor.Snapshot()
		snapshot = &snap
	}
	h.state.Unlock()

	status := Status{
		Profile:     current.String(),
		ProfileID:   int32(current),
		Interactive: interactive,
		Policy:      string(h.policy),
		Device: DeviceStatus{
			MaxFrequency:   h.state.MaxFrequency,
			LPMaxFrequency: h.state.LPMaxFrequency,
			Overclocked:    h.state.Overclocked(),
			Governor:       h.state.Caps.Governor,
			CPUQuiet:       h.state.Caps.CPUQuiet,
			BoostClock:     h.state.Caps.BoostClock,
		},
		HintIntervals: make(map[string]string, len(intervals)),
		Governor:      snapshot,
	}

	for _, in := range h.state.Inputs() {
		status.Inputs = append(status.Inputs, InputStatus{Name: in.Name, ID: in.ID})
	}
	for kind, d := range intervals {
		status.HintIntervals[kind.String()] = d.String()
	}

	now := h.clock.Now()
	for _, dev := range []string{qos.CPUFreqMinPath, qos.MinOnlineCPUsPath} {
		value, expiry, ok := h.qos.Active(dev)
		if !ok {
			continue
		}
		status.Floors = append(status.Floors, FloorStatus{
			Device:    "/" + dev,
			Value:     value,
			Remaining: expiry.Sub(now).Round(time.Millisecond).String(),
		})
	}
	return status
}
