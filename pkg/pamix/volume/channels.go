package volume

import (
	"fmt"
	"strings"
)

// ChannelVolumes holds one native volume per channel.
type ChannelVolumes []Volume

// Uniform returns n channels all set to v.
func Uniform(n int, v Volume) ChannelVolumes {
	cv := make(ChannelVolumes, n)
	cv.Set(v)

	return cv
}

// Set assigns v to every channel.
func (cv ChannelVolumes) Set(v Volume) {
	for i := range cv {
		cv[i] = v
	}
}

// Mute sets every channel to the silence marker.
func (cv ChannelVolumes) Mute() {
	cv.Set(Muted)
}

// IsMuted reports whether every channel is silent.
func (cv ChannelVolumes) IsMuted() bool {
	if len(cv) == 0 {
		return false
	}

	for _, v := range cv {
		if v > Muted {
			return false
		}
	}

	return true
}

// Max returns the loudest channel's volume.
func (cv ChannelVolumes) Max() Volume {
	m := Muted
	for _, v := range cv {
		if v > m {
			m = v
		}
	}

	return m
}

// Scale rescales all channels so that the loudest equals m, keeping the
// balance between channels.
func (cv ChannelVolumes) Scale(m Volume) {
	t := cv.Max()
	if t <= Muted {
		cv.Set(m)
		return
	}

	for i, v := range cv {
		cv[i] = clamp(float64(uint64(v) * uint64(m) / uint64(t)))
	}
}

// Increase raises the loudest channel by inc, clamped at Max.
func (cv ChannelVolumes) Increase(inc Volume) {
	m := cv.Max()
	if m >= Max-inc {
		m = Max
	} else {
		m += inc
	}

	cv.Scale(m)
}

// Decrease lowers the loudest channel by dec, floored at Muted.
func (cv ChannelVolumes) Decrease(dec Volume) {
	m := cv.Max()
	if m > Muted+dec {
		m -= dec
	} else {
		m = Muted
	}

	cv.Scale(m)
}

// Percent renders channel 0 and parses its percentage.
func (cv ChannelVolumes) Percent() (uint8, error) {
	if len(cv) == 0 {
		return 0, fmt.Errorf("%w: no channels", ErrUnknownPercent)
	}

	return ParsePercent(cv[0].String())
}

// Clone returns an independent copy.
func (cv ChannelVolumes) Clone() ChannelVolumes {
	out := make(ChannelVolumes, len(cv))
	copy(out, cv)

	return out
}

// Equal reports whether both hold the same per-channel values.
func (cv ChannelVolumes) Equal(other ChannelVolumes) bool {
	if len(cv) != len(other) {
		return false
	}

	for i := range cv {
		if cv[i] != other[i] {
			return false
		}
	}

	return true
}

// String renders every channel as a percentage, e.g. "0: 54%   1: 54%".
func (cv ChannelVolumes) String() string {
	return cv.render(Volume.String)
}

// DBString renders every channel in decibels, e.g. "0: -16.01 dB   1: -16.01 dB".
func (cv ChannelVolumes) DBString() string {
	return cv.render(Volume.DBString)
}

func (cv ChannelVolumes) render(f func(Volume) string) string {
	parts := make([]string, 0, len(cv))
	for i, v := range cv {
		parts = append(parts, fmt.Sprintf("%d: %s", i, f(v)))
	}

	return strings.Join(parts, "   ")
}
