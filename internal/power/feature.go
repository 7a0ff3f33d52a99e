package power

import (
	"context"
	"strconv"
	"strings"

	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/metrics"
	"codeberg.org/mutker/powerhald/internal/profile"
)

// Feature identifies an optional HAL capability. Values match the host
// enumeration.
type Feature uint32

const (
	FeatureDoubleTapToWake   Feature = 0x00000001
	FeatureSupportedProfiles Feature = 0x00001000
)

// FeatureUnsupported is what GetFeature reports for unknown features.
const FeatureUnsupported int32 = -1

func (f Feature) String() string {
	switch f {
	case FeatureDoubleTapToWake:
		return "double_tap_to_wake"
	case FeatureSupportedProfiles:
		return "supported_profiles"
	default:
		return "feature(0x" + strconv.FormatUint(uint64(f), 16) + ")"
	}
}

// ParseFeature accepts a feature name or number.
func ParseFeature(s string) (Feature, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case FeatureDoubleTapToWake.String():
		return FeatureDoubleTapToWake, nil
	case FeatureSupportedProfiles.String():
		return FeatureSupportedProfiles, nil
	}

	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, errors.New().WithData(errors.ErrInvalidArgument, s)
	}

	return Feature(n), nil
}

// GetFeature returns the number of profiles for FeatureSupportedProfiles
// and FeatureUnsupported for everything else.
func (h *HAL) GetFeature(f Feature) int32 {
	if f == FeatureSupportedProfiles {
		return int32(profile.Max)
	}
	return FeatureUnsupported
}

// SetFeature always fails: no settable feature exists on this device.
func (h *HAL) SetFeature(ctx context.Context, f Feature, state int32) error {
	switch f {
	case FeatureDoubleTapToWake:
		h.logger.Warn().Msg("Double tap to wake is not supported")
	default:
		h.logger.Warn().Stringer("feature", f).Msg("Error setting the feature, it doesn't exist")
	}

	err := errors.New().WithData(errors.ErrUnsupported, f.String())

	h.journal(ctx, &metrics.Event{
		Kind:    metrics.KindFeature,
		Hint:    uint32(f),
		Payload: state,
		Outcome: metrics.OutcomeRejected,
		Detail:  err.Error(),
	})

	return err
}
