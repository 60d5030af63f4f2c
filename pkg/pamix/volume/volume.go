// Package volume implements the native loudness encoding used by
// PulseAudio-compatible servers and the percentage codec built on it.
package volume

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Volume is a single channel's native loudness value. The mapping between
// Volume and perceived loudness follows the server's cubic software curve.
type Volume uint32

const (
	// Muted is the silence marker
	Muted Volume = 0

	// Norm is the nominal 100% volume
	Norm Volume = 0x10000

	// Max is the largest volume the server accepts
	Max Volume = math.MaxUint32 / 2
)

// ErrUnknownPercent is returned when a rendering holds no parseable percentage
var ErrUnknownPercent = errors.New("unknown volume percentage")

// FromLinear converts a linear amplitude factor into a native volume.
func FromLinear(l float64) Volume {
	if l <= 0 {
		return Muted
	}

	return clamp(math.Round(math.Cbrt(l) * float64(Norm)))
}

// FromDB converts a decibel value into a native volume. -Inf maps to Muted.
func FromDB(db float64) Volume {
	if math.IsInf(db, -1) {
		return Muted
	}

	return FromLinear(math.Pow(10, db/20))
}

// Linear returns v as a linear amplitude factor.
func (v Volume) Linear() float64 {
	if v <= Muted {
		return 0
	}

	f := float64(v) / float64(Norm)
	return f * f * f
}

// DB returns v in decibels, or -Inf when muted.
func (v Volume) DB() float64 {
	if v <= Muted {
		return math.Inf(-1)
	}

	return 20 * math.Log10(v.Linear())
}

// String renders v as an integer percentage, e.g. "54%".
func (v Volume) String() string {
	return fmt.Sprintf("%d%%", (uint64(v)*100+uint64(Norm)/2)/uint64(Norm))
}

// DBString renders v in decibels, e.g. "-16.01 dB".
func (v Volume) DBString() string {
	db := v.DB()
	if math.IsInf(db, -1) {
		return "-inf dB"
	}

	return fmt.Sprintf("%0.2f dB", db)
}

// ParsePercent extracts the integer immediately preceding the first '%' in a
// rendered volume.
func ParsePercent(rendered string) (uint8, error) {
	idx := strings.IndexByte(rendered, '%')
	if idx < 0 {
		return 0, fmt.Errorf("%w: no percent sign in %q", ErrUnknownPercent, rendered)
	}

	digits := rendered[:idx]
	start := len(digits)
	for start > 0 && digits[start-1] >= '0' && digits[start-1] <= '9' {
		start--
	}

	pct, err := strconv.ParseUint(digits[start:], 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPercent, rendered)
	}

	return uint8(pct), nil
}

func clamp(f float64) Volume {
	if f >= float64(Max) {
		return Max
	}
	if f <= 0 {
		return Muted
	}

	return Volume(f)
}
