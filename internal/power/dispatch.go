package power

import (
	"context"

	"codeberg.org/mutker/powerhald/internal/device"
	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/hint"
	"codeberg.org/mutker/powerhald/internal/metrics"
	"codeberg.org/mutker/powerhald/internal/profile"
	"codeberg.org/mutker/powerhald/internal/sysfs"
)

const interactionTraceMarker = "Start POWER_HINT_INTERACTION\n"

// SetInteractive latches on and gates the secondary cluster, the video
// co-processor boost clock, the controlled inputs and finally the
// governor's parameter set.
func (h *HAL) SetInteractive(ctx context.Context, on bool) {
	h.state.Lock()

	h.logger.Info().Bool("on", on).Msg("Setting interactive")

	if h.state.Caps.CPUQuiet {
		// the low power cluster is kept off while interactive
		h.fs.WriteBool(device.NoLPPath, on)
	}
	if h.state.Caps.BoostClock {
		h.fs.WriteBool(device.BoostSclkPath, on)
	}

	for _, in := range h.state.Inputs() {
		if !in.Resolved() {
			continue
		}
		enabled := sysfs.InputEnabledPath(in.ID)
		if !h.fs.Writable(enabled) {
			continue
		}
		h.logger.Debug().Int("input", in.ID).Str("name", in.Name).Bool("enabled", on).Msg("Gating input device")
		h.fs.WriteBool(enabled, on)
	}

	h.interactive = on

	if h.state.Caps.Governor {
		h.governor.ApplyInteractivityLocked(on)
	}

	current := h.state.Current()
	h.state.Unlock()

	h.journal(ctx, &metrics.Event{
		Kind:        metrics.KindInteractive,
		Profile:     int32(current),
		Interactive: on,
		Outcome:     metrics.OutcomeApplied,
	})
}

// PowerHint dispatches one hint. Suppressed hints return nil without
// acting. Kinds outside the hint space, and kinds with no handler,
// return hint.ErrInvalidHint without touching any state. A SetProfile
// hint with an invalid profile id returns profile.ErrInvalidProfile and
// is not recorded by the gate.
func (h *HAL) PowerHint(ctx context.Context, kind hint.Kind, payload int32) error {
	event := &metrics.Event{
		Kind:    metrics.KindHint,
		Hint:    uint32(kind),
		Payload: payload,
	}

	outcome, err := h.dispatch(kind, payload, event)
	event.Outcome = outcome
	if err != nil {
		event.Detail = err.Error()
	}
	h.journal(ctx, event)

	return err
}

func (h *HAL) dispatch(kind hint.Kind, payload int32, event *metrics.Event) (metrics.Outcome, error) {
	h.state.Lock()
	defer h.state.Unlock()

	event.Profile = int32(h.state.Current())
	event.Interactive = h.interactive

	now := h.clock.Now()
	event.Timestamp = now

	apply, err := h.gate.ShouldApply(kind, now)
	if err != nil {
		h.logger.Error().Err(err).Msg("Unknown power hint")
		return metrics.OutcomeRejected, err
	}
	if !apply {
		h.logger.Debug().Stringer("hint", kind).Msg("Hint suppressed")
		return metrics.OutcomeSuppressed, nil
	}

	outcome := metrics.OutcomeApplied

	switch kind {
	case hint.Vsync, hint.LowPower:
		outcome = metrics.OutcomeIgnored

	case hint.Interaction:
		outcome = h.interactionLocked()

	case hint.Launch:
		outcome = h.launchLocked()

	case hint.SetProfile:
		if !h.state.Caps.Governor {
			outcome = metrics.OutcomeIgnored
			break
		}
		if err := h.governor.SetProfileLocked(profile.ID(payload)); err != nil {
			return metrics.OutcomeRejected, err
		}
		event.Profile = payload

	default:
		err := errors.New().WithData(hint.ErrInvalidHint, kind.String())
		h.logger.Error().Err(err).Msg("Unknown power hint")
		return metrics.OutcomeRejected, err
	}

	if err := h.gate.Record(kind, now); err != nil {
		return metrics.OutcomeRejected, err
	}

	return outcome, nil
}

func (h *HAL) interactionLocked() metrics.Outcome {
	if h.ftrace {
		h.fs.WriteText(sysfs.TraceMarkerPath, interactionTraceMarker)
	}

	if h.policy != PolicyFloor {
		return metrics.OutcomeIgnored
	}
	if h.state.MaxFrequency <= 0 {
		h.logger.Debug().Msg("Max frequency unknown, no interaction floor")
		return metrics.OutcomeIgnored
	}

	if err := h.holdFloor(int32(h.state.MaxFrequency), InteractionMinOnlineCPUs, InteractionFloorDuration); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to hold interaction floor")
	}

	return metrics.OutcomeApplied
}

func (h *HAL) launchLocked() metrics.Outcome {
	if !h.state.Caps.Governor {
		return metrics.OutcomeIgnored
	}

	p, err := profile.Lookup(h.state.Current())
	if err != nil {
		return metrics.OutcomeIgnored
	}
	// the governor already boosts for boostpulse_duration
	if p.BoostPulseDuration != 0 {
		return metrics.OutcomeIgnored
	}

	h.boostPulseLocked()

	return metrics.OutcomeApplied
}

// BoostPulse triggers one governor boost pulse.
func (h *HAL) BoostPulse() {
	h.state.Lock()
	defer h.state.Unlock()

	h.boostPulseLocked()
}

func (h *HAL) boostPulseLocked() {
	if err := h.state.Pulse().Trigger(); err != nil {
		h.logger.Error().Err(err).Msg("Error writing to boostpulse")
	}
}
