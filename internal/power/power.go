// Package power is the top-level policy state machine. It receives
// interactivity transitions and power hints from the host and turns them
// into governor, cpuquiet, input and PM QoS writes under one lock.
package power

import (
	"context"
	"strings"
	"time"

	"codeberg.org/mutker/powerhald/internal/clock"
	"codeberg.org/mutker/powerhald/internal/device"
	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/governor"
	"codeberg.org/mutker/powerhald/internal/hint"
	"codeberg.org/mutker/powerhald/internal/logger"
	"codeberg.org/mutker/powerhald/internal/metrics"
	"codeberg.org/mutker/powerhald/internal/profile"
	"codeberg.org/mutker/powerhald/internal/qos"
	"codeberg.org/mutker/powerhald/internal/sysfs"
)

// InteractionPolicy selects what an interaction hint does.
type InteractionPolicy string

const (
	// PolicyNone leaves interaction to the governor's own boost.
	PolicyNone InteractionPolicy = "none"
	// PolicyFloor holds max frequency and two online cpus for
	// InteractionFloorDuration.
	PolicyFloor InteractionPolicy = "floor"
)

const (
	InteractionFloorDuration = 500 * time.Millisecond
	InteractionMinOnlineCPUs = 2
	BootBoostMinOnlineCPUs   = 4
)

const ErrInvalidPolicy = errors.ErrorCode("invalid_interaction_policy")

// ParsePolicy accepts "none" or "floor". Empty means none.
func ParsePolicy(s string) (InteractionPolicy, error) {
	switch InteractionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyNone:
		return PolicyNone, nil
	case PolicyFloor:
		return PolicyFloor, nil
	default:
		return PolicyNone, errors.New().WithData(ErrInvalidPolicy, s)
	}
}

// Options configure a HAL.
type Options struct {
	InteractionPolicy InteractionPolicy
	// HintIntervals replaces the gate's defaults when non-nil.
	HintIntervals map[hint.Kind]time.Duration
	// Ftrace writes a trace marker on every applied interaction hint.
	Ftrace bool
}

// HAL owns the device state and every component that mutates it.
type HAL struct {
	fs        *sysfs.FS
	state     *device.State
	governor  *governor.Controller
	gate      *hint.Gate
	qos       *qos.Poker
	clock     clock.Clock
	collector metrics.Collector
	logger    logger.Logger

	policy      InteractionPolicy
	ftrace      bool
	interactive bool
}

// New wires a HAL around an initialized device state.
func New(fs *sysfs.FS, state *device.State, clk clock.Clock, collector metrics.Collector, log logger.Logger, opts Options) (*HAL, error) {
	policy := opts.InteractionPolicy
	if policy == "" {
		policy = PolicyNone
	}
	if policy != PolicyNone && policy != PolicyFloor {
		return nil, errors.New().WithData(ErrInvalidPolicy, string(policy))
	}

	gate := hint.NewGate()
	if opts.HintIntervals != nil {
		if err := gate.SetIntervals(opts.HintIntervals); err != nil {
			return nil, err
		}
	}

	if collector == nil {
		collector = metrics.Noop()
	}

	return &HAL{
		fs:          fs,
		state:       state,
		governor:    governor.New(fs, state, log.With("governor")),
		gate:        gate,
		qos:         qos.New(fs, clk, log.With("qos")),
		clock:       clk,
		collector:   collector,
		logger:      log,
		policy:      policy,
		ftrace:      opts.Ftrace,
		interactive: true,
	}, nil
}

// Start applies the initial profile and, when bootBoost is positive,
// holds max frequency and every cpu online for that long.
func (h *HAL) Start(ctx context.Context, initial profile.ID, bootBoost time.Duration) error {
	if h.state.Caps.Governor {
		if err := h.governor.SetProfile(initial); err != nil {
			return errors.New().Wrap(errors.ErrApplyProfile, err)
		}
		h.journal(ctx, &metrics.Event{
			Kind:        metrics.KindProfile,
			Profile:     int32(initial),
			Interactive: h.Interactive(),
			Outcome:     metrics.OutcomeApplied,
		})
	} else {
		h.logger.Warn().Msg("Interactive governor not present, profiles disabled")
	}

	if bootBoost <= 0 {
		return nil
	}
	if h.state.MaxFrequency <= 0 {
		h.logger.Warn().Msg("Max frequency unknown, skipping boot boost")
		return nil
	}

	outcome := metrics.OutcomeApplied
	if err := h.holdFloor(int32(h.state.MaxFrequency), BootBoostMinOnlineCPUs, bootBoost); err != nil {
		h.logger.Warn().Err(err).Msg("Boot boost failed")
		outcome = metrics.OutcomeRejected
	} else {
		h.logger.Info().
			Int("freq", h.state.MaxFrequency).
			Dur("duration", bootBoost).
			Msg("Boosting cpu_freq_min to make boot faster")
	}

	h.journal(ctx, &metrics.Event{
		Kind:    metrics.KindBoost,
		Payload: int32(bootBoost / time.Millisecond),
		Outcome: outcome,
	})

	return nil
}

// holdFloor requests a cpu frequency floor and a minimum online cpu
// count for d. Both requests are attempted.
func (h *HAL) holdFloor(freq, cpus int32, d time.Duration) error {
	freqErr := h.qos.RequestTimed(qos.CPUFreqMinPath, freq, d)
	cpusErr := h.qos.RequestTimed(qos.MinOnlineCPUsPath, cpus, d)
	if freqErr != nil {
		return freqErr
	}
	return cpusErr
}

// SetHintIntervals replaces the rate limiter table.
func (h *HAL) SetHintIntervals(intervals map[hint.Kind]time.Duration) error {
	h.state.Lock()
	defer h.state.Unlock()

	return h.gate.SetIntervals(intervals)
}

// Interactive returns the latched interactivity state.
func (h *HAL) Interactive() bool {
	h.state.Lock()
	defer h.state.Unlock()

	return h.interactive
}

// CurrentProfile returns the selected profile.
func (h *HAL) CurrentProfile() profile.ID {
	return h.governor.Current()
}

// Close drops PM QoS requests and the boost-pulse handle.
func (h *HAL) Close() error {
	h.qos.Close()
	return h.state.Close()
}

func (h *HAL) journal(ctx context.Context, event *metrics.Event) {
	if !h.collector.Enabled() {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = h.clock.Now()
	}
	if err := h.collector.Record(ctx, event); err != nil {
		h.logger.Debug().Err(err).Str("kind", string(event.Kind)).Msg("Failed to journal event")
	}
}
