// Package device holds the process-wide power state: limits read from
// the platform at startup, capability probes, the current profile and
// the boost-pulse handle. Everything in State is guarded by its mutex.
package device

import (
	"path"
	"sort"
	"sync"

	"codeberg.org/mutker/powerhald/internal/logger"
	"codeberg.org/mutker/powerhald/internal/profile"
	"codeberg.org/mutker/powerhald/internal/sysfs"
)

// StockMaxFrequency is the highest stock cpu frequency in kHz. Devices
// reporting more are running an overclocked kernel.
const StockMaxFrequency = 1300000

// Unresolved marks an input that was not found during enumeration.
const Unresolved = -1

// Control files read or written through State.
var (
	MaxFreqPath     = path.Join(sysfs.CPUFreqPath, "scaling_max_freq")
	AvailFreqPath   = path.Join(sysfs.CPUFreqPath, "scaling_available_frequencies")
	IdleTopFreqPath = path.Join(sysfs.CPUQuietPath, "idle_top_freq")
	NoLPPath        = path.Join(sysfs.CPUQuietPath, "no_lp")
	BoostSclkPath   = path.Join(sysfs.NVAVPPath, "boost_sclk")
	BoostPulsePath  = path.Join(sysfs.InteractivePath, "boostpulse")
)

// Input is a logical input device and its enumeration index.
type Input struct {
	Name string
	ID   int
}

// Resolved reports whether the input was found.
func (in Input) Resolved() bool {
	return in.ID != Unresolved
}

// Capabilities records which control interfaces exist on this device.
// Probed once by Initialize.
type Capabilities struct {
	Governor   bool
	CPUQuiet   bool
	BoostClock bool
}

// Options select what Initialize resolves.
type Options struct {
	// Inputs lists input device names to gate on interactivity. Empty
	// means every enumerated input.
	Inputs []string
}

// State is the mutable device context. Lock it before touching any
// field other than the ones documented as immutable.
type State struct {
	sync.Mutex

	// Immutable after Initialize.
	MaxFrequency         int
	LPMaxFrequency       int
	AvailableFrequencies []int
	Caps                 Capabilities

	overclocked bool
	current     profile.ID
	pulse       *sysfs.Pulse
	inputs      []Input
}

// Initialize reads the device limits and resolves inputs. Read failures
// leave the affected value at zero and never abort.
func Initialize(fs *sysfs.FS, opts Options, log logger.Logger) *State {
	s := &State{
		MaxFrequency:         fs.ReadInt(MaxFreqPath),
		LPMaxFrequency:       fs.ReadInt(IdleTopFreqPath),
		AvailableFrequencies: fs.ReadInts(AvailFreqPath),
		Caps: Capabilities{
			Governor:   fs.IsDir(sysfs.InteractivePath),
			CPUQuiet:   fs.IsDir(sysfs.CPUQuietPath),
			BoostClock: fs.Exists(BoostSclkPath),
		},
		current: profile.Balanced,
		pulse:   fs.NewPulse(BoostPulsePath),
	}

	sort.Ints(s.AvailableFrequencies)
	if s.MaxFrequency == 0 && len(s.AvailableFrequencies) > 0 {
		s.MaxFrequency = s.AvailableFrequencies[len(s.AvailableFrequencies)-1]
		log.Warn().Int("max_freq", s.MaxFrequency).Msg("Max frequency unreadable, using highest available frequency")
	}

	s.overclocked = s.MaxFrequency > StockMaxFrequency
	s.inputs = resolveInputs(fs, opts.Inputs)

	resolved := 0
	for _, in := range s.inputs {
		if in.Resolved() {
			resolved++
			continue
		}
		log.Warn().Str("input", in.Name).Msg("Input device not found")
	}

	log.Info().
		Int("max_freq", s.MaxFrequency).
		Int("lp_max_freq", s.LPMaxFrequency).
		Bool("overclocked", s.overclocked).
		Bool("governor", s.Caps.Governor).
		Bool("cpuquiet", s.Caps.CPUQuiet).
		Bool("boost_sclk", s.Caps.BoostClock).
		Int("inputs", resolved).
		Msg("Device initialized")

	return s
}

func resolveInputs(fs *sysfs.FS, names []string) []Input {
	if len(names) == 0 {
		var all []Input
		fs.EnumerateInputs(func(index int, name string) bool {
			all = append(all, Input{Name: name, ID: index})
			return true
		})
		return all
	}

	inputs := make([]Input, len(names))
	for i, name := range names {
		inputs[i] = Input{Name: name, ID: Unresolved}
	}

	remaining := len(inputs)
	fs.EnumerateInputs(func(index int, name string) bool {
		for i := range inputs {
			if inputs[i].ID == Unresolved && inputs[i].Name == name {
				inputs[i].ID = index
				remaining--
			}
		}
		return remaining > 0
	})

	return inputs
}

// Overclocked reports whether MaxFrequency exceeds StockMaxFrequency.
// Fixed at Initialize.
func (s *State) Overclocked() bool {
	return s.overclocked
}

// Inputs returns a copy of the input table.
func (s *State) Inputs() []Input {
	out := make([]Input, len(s.inputs))
	copy(out, s.inputs)
	return out
}

// Current returns the selected profile. Caller holds the lock.
func (s *State) Current() profile.ID {
	return s.current
}

// SetCurrent commits id as the selected profile. Caller holds the lock
// and has validated id.
func (s *State) SetCurrent(id profile.ID) {
	s.current = id
}

// Pulse returns the boost-pulse handle. Caller holds the lock.
func (s *State) Pulse() *sysfs.Pulse {
	return s.pulse
}

// Close releases the cached boost-pulse handle.
func (s *State) Close() error {
	s.Lock()
	defer s.Unlock()

	return s.pulse.Close()
}
