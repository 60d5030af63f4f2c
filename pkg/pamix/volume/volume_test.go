package volume_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MixyLabs/pamix/pkg/pamix/volume"
)

const approx54PctDB = -16.01

func TestFromDBRendersPercent(t *testing.T) {
	v := volume.FromDB(approx54PctDB)

	require.Equal(t, "54%", v.String())
	require.Equal(t, "-16.01 dB", v.DBString())

	pct, err := volume.ParsePercent(v.String())
	require.NoError(t, err)
	require.Equal(t, uint8(54), pct)
}

func TestNormIsHundredPercent(t *testing.T) {
	require.Equal(t, "100%", volume.Norm.String())
	require.Equal(t, "0.00 dB", volume.Norm.DBString())
	require.InDelta(t, 1.0, volume.Norm.Linear(), 1e-12)
}

func TestMutedRendering(t *testing.T) {
	require.Equal(t, "0%", volume.Muted.String())
	require.Equal(t, "-inf dB", volume.Muted.DBString())
	require.True(t, math.IsInf(volume.Muted.DB(), -1))
	require.Equal(t, volume.Muted, volume.FromDB(math.Inf(-1)))
	require.Equal(t, volume.Muted, volume.FromLinear(-1))
}

func TestLinearRoundTrip(t *testing.T) {
	for n := 0; n <= 0x10000*2; n += 7 {
		v := volume.Volume(n)
		require.Equal(t, v, volume.FromLinear(v.Linear()), "volume %d", n)
	}
}

func TestDBRenderingRoundTripKeepsPercent(t *testing.T) {
	for pct := 1; pct <= 120; pct++ {
		v := volume.Volume(uint64(pct) * uint64(volume.Norm) / 100)
		want := v.String()

		restored := volume.FromDB(v.DB())
		require.Equal(t, want, restored.String(), "percent %d", pct)
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in      string
		want    uint8
		wantErr bool
	}{
		{in: "54%", want: 54},
		{in: "  7%", want: 7},
		{in: "0: 100%   1: 100%", want: 100},
		{in: "front-left: 120%", want: 120},
		{in: "54 %", wantErr: true},
		{in: "no percent here", wantErr: true},
		{in: "%", wantErr: true},
		{in: "300%", wantErr: true},
	}

	for _, tc := range tests {
		got, err := volume.ParsePercent(tc.in)
		if tc.wantErr {
			require.ErrorIs(t, err, volume.ErrUnknownPercent, tc.in)
			continue
		}

		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestChannelVolumesRendering(t *testing.T) {
	cv := volume.Uniform(2, volume.FromDB(approx54PctDB))

	require.Equal(t, "0: 54%   1: 54%", cv.String())
	require.Equal(t, "0: -16.01 dB   1: -16.01 dB", cv.DBString())

	pct, err := cv.Percent()
	require.NoError(t, err)
	require.Equal(t, uint8(54), pct)
}

func TestPercentWithoutChannels(t *testing.T) {
	_, err := volume.ChannelVolumes{}.Percent()
	require.ErrorIs(t, err, volume.ErrUnknownPercent)
}

func TestMuteAndIsMuted(t *testing.T) {
	cv := volume.Uniform(3, volume.Norm)
	require.False(t, cv.IsMuted())

	cv.Mute()
	require.True(t, cv.IsMuted())
	require.Len(t, cv, 3)

	require.False(t, volume.ChannelVolumes{}.IsMuted())
}

func TestDefaultStep(t *testing.T) {
	require.Equal(t, volume.Volume(655), volume.DefaultCodec().Step)
}

func TestIncreaseClampsAtMax(t *testing.T) {
	cv := volume.Uniform(2, volume.Max-10)
	cv.Increase(655)

	require.Equal(t, volume.Uniform(2, volume.Max), cv)
}

func TestDecreaseFloorsAtMuted(t *testing.T) {
	cv := volume.Uniform(2, 100)
	cv.Decrease(655)

	require.True(t, cv.IsMuted())
}

func TestStepKeepsChannelBalance(t *testing.T) {
	cv := volume.ChannelVolumes{volume.Norm, volume.Norm / 2}
	codec := volume.Codec{Step: volume.Norm / 4}

	codec.IncreaseByOneStep(cv)
	require.Equal(t, volume.ChannelVolumes{volume.Norm + volume.Norm/4, (volume.Norm + volume.Norm/4) / 2}, cv)

	codec.DecreaseByOneStep(cv)
	require.Equal(t, volume.ChannelVolumes{volume.Norm, volume.Norm / 2}, cv)
}

func TestStepFromMutedSetsAllChannels(t *testing.T) {
	cv := volume.Uniform(2, volume.Muted)
	volume.DefaultCodec().IncreaseByOneStep(cv)

	require.Equal(t, volume.Uniform(2, 655), cv)
}

func TestOneStepMovesAtMostOnePercent(t *testing.T) {
	codec := volume.DefaultCodec()
	cv := volume.Uniform(1, volume.Muted)

	prev, err := cv.Percent()
	require.NoError(t, err)

	for prev < 120 {
		codec.IncreaseByOneStep(cv)

		pct, err := cv.Percent()
		require.NoError(t, err)
		require.LessOrEqual(t, pct-prev, uint8(1))
		prev = pct
	}
}

func TestCloneAndEqual(t *testing.T) {
	cv := volume.Uniform(2, volume.Norm)
	cp := cv.Clone()
	require.True(t, cv.Equal(cp))

	cp[1] = volume.Muted
	require.False(t, cv.Equal(cp))
	require.Equal(t, volume.Norm, cv[1])
	require.False(t, cv.Equal(cv[:1]))
}
