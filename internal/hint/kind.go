// Package hint defines the host's power hint kinds and the per-kind
// rate limiter that suppresses hints arriving too close together.
package hint

import (
	"strconv"
	"strings"

	"codeberg.org/mutker/powerhald/internal/errors"
)

const ErrInvalidHint = errors.ErrorCode("invalid_hint")

// Kind is a power hint identifier. Values match the host power HAL
// enumeration so they can be passed through unchanged.
type Kind uint32

const (
	Vsync                Kind = 0x00000001
	Interaction          Kind = 0x00000002
	VideoEncode          Kind = 0x00000003
	VideoDecode          Kind = 0x00000004
	LowPower             Kind = 0x00000005
	SustainedPerformance Kind = 0x00000006
	VrMode               Kind = 0x00000007
	Launch               Kind = 0x00000008
	DisableTouch         Kind = 0x00000009
	SetProfile           Kind = 0x00000111

	// Count bounds the kind space; anything at or above it is rejected.
	Count = SetProfile + 1
)

var kindNames = map[Kind]string{
	Vsync:                "vsync",
	Interaction:          "interaction",
	VideoEncode:          "video_encode",
	VideoDecode:          "video_decode",
	LowPower:             "low_power",
	SustainedPerformance: "sustained_performance",
	VrMode:               "vr_mode",
	Launch:               "launch",
	DisableTouch:         "disable_touch",
	SetProfile:           "set_profile",
}

// Valid reports whether k is inside the kind space.
func (k Kind) Valid() bool {
	return k < Count
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "hint(0x" + strconv.FormatUint(uint64(k), 16) + ")"
}

// ParseKind accepts a kind name ("launch", "set-profile") or a number in
// decimal or 0x-prefixed hex.
func ParseKind(s string) (Kind, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for k, name := range kindNames {
		if name == key {
			return k, nil
		}
	}

	n, err := strconv.ParseUint(key, 0, 32)
	if err != nil || !Kind(n).Valid() {
		return 0, errors.New().WithData(ErrInvalidHint, s)
	}

	return Kind(n), nil
}
