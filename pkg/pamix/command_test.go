package pamix

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MixyLabs/pamix/pkg/pamix/device"
)

func TestParseCommandAliases(t *testing.T) {
	tests := []struct {
		args   []string
		verb   Verb
		amount uint8
	}{
		{args: []string{"increase", "5"}, verb: VerbIncrease, amount: 5},
		{args: []string{"inc", "5%"}, verb: VerbIncrease, amount: 5},
		{args: []string{"UP", "255"}, verb: VerbIncrease, amount: 255},
		{args: []string{"down", "10"}, verb: VerbDecrease, amount: 10},
		{args: []string{"dec", "0"}, verb: VerbDecrease},
		{args: []string{"set", "120"}, verb: VerbSet, amount: 120},
		{args: []string{"toggle-mute"}, verb: VerbMute},
		{args: []string{"print"}, verb: VerbGet},
		{args: []string{"list"}, verb: VerbList},
		{args: []string{"info"}, verb: VerbInfo},
		{args: []string{"watch"}, verb: VerbWatch},
	}

	for _, tc := range tests {
		cmd, err := ParseCommand(tc.args, Selector{Class: device.Source, Name: "mic"}, true)
		require.NoError(t, err, tc.args)
		require.Equal(t, tc.verb, cmd.Verb, tc.args)
		require.Equal(t, tc.amount, cmd.Amount, tc.args)
		require.True(t, cmd.Boost)
		require.Equal(t, device.Source, cmd.Target.Class)
		require.Equal(t, "mic", cmd.Target.Name)
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"louder"},
		{"up"},
		{"up", "5", "6"},
		{"set", "256"},
		{"set", "-1"},
		{"set", "half"},
		{"mute", "now"},
	} {
		_, err := ParseCommand(args, Selector{}, false)
		require.ErrorIs(t, err, ErrUsage, args)
	}
}

func TestKnownVerbsSorted(t *testing.T) {
	verbs := KnownVerbs()

	require.Len(t, verbs, len(verbAliases))
	require.Equal(t, "dec", verbs[0])
	require.Equal(t, "watch", verbs[len(verbs)-1])
}

func TestEventKindString(t *testing.T) {
	require.Equal(t, "added", DeviceAdded.String())
	require.Equal(t, "removed", DeviceRemoved.String())
	require.Equal(t, "kind(9)", EventKind(9).String())
}
