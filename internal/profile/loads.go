package profile

import (
	"slices"
	"strconv"
	"strings"

	"codeberg.org/mutker/powerhald/internal/errors"
)

const ErrInvalidTargetLoads = errors.ErrorCode("invalid_target_loads")

// LoadPoint is one breakpoint of a target-load curve: at and above Freq
// the governor aims for Load percent. The first point has Freq 0.
type LoadPoint struct {
	Freq int
	Load int
}

// TargetLoads is an ordered target-load curve.
type TargetLoads []LoadPoint

// Loads builds a curve from a base load followed by freq/load pairs.
func Loads(base int, pairs ...int) TargetLoads {
	curve := TargetLoads{{Load: base}}
	for i := 0; i+1 < len(pairs); i += 2 {
		curve = append(curve, LoadPoint{Freq: pairs[i], Load: pairs[i+1]})
	}
	return curve
}

// Clone returns a copy that shares no storage with tl.
func (tl TargetLoads) Clone() TargetLoads {
	return slices.Clone(tl)
}

// String renders the curve in the governor's target_loads syntax,
// e.g. "70 1200000:80 1300000:85".
func (tl TargetLoads) String() string {
	var b strings.Builder
	for i, pt := range tl {
		if i > 0 {
			b.WriteByte(' ')
		}
		if pt.Freq > 0 {
			b.WriteString(strconv.Itoa(pt.Freq))
			b.WriteByte(':')
		}
		b.WriteString(strconv.Itoa(pt.Load))
	}
	return b.String()
}

// ParseTargetLoads reads the governor syntax back into a curve.
func ParseTargetLoads(s string) (TargetLoads, error) {
	errFactory := errors.New()
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, errFactory.WithData(ErrInvalidTargetLoads, s)
	}

	curve := make(TargetLoads, 0, len(fields))
	for i, field := range fields {
		freqText, loadText, hasFreq := strings.Cut(field, ":")
		if !hasFreq {
			loadText, freqText = freqText, ""
		}
		if hasFreq == (i == 0) {
			return nil, errFactory.WithData(ErrInvalidTargetLoads, s)
		}

		load, err := strconv.Atoi(loadText)
		if err != nil || load < 0 || load > 100 {
			return nil, errFactory.WithData(ErrInvalidTargetLoads, s)
		}

		pt := LoadPoint{Load: load}
		if hasFreq {
			if pt.Freq, err = strconv.Atoi(freqText); err != nil || pt.Freq <= curve[len(curve)-1].Freq {
				return nil, errFactory.WithData(ErrInvalidTargetLoads, s)
			}
		}
		curve = append(curve, pt)
	}

	return curve, nil
}
