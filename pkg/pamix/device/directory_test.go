package device

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MixyLabs/pamix/pkg/pamix/volume"
)

func testInfo(index uint32, name string) Info {
	return Info{
		Index:       index,
		Name:        name,
		Description: name + " description",
		Volume:      volume.Uniform(2, volume.FromDB(approx54PctDB)),
		BaseVolume:  volume.Norm,
	}
}

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()

	dir := NewDirectory(zaptest.NewLogger(t).Sugar(), DefaultLimits())
	dir.AddSink(testInfo(7, "Seven"))
	dir.AddSink(testInfo(3, "Foo"))
	dir.AddSource(testInfo(7, "Mic"))
	dir.AddSource(testInfo(9, "Seven.monitor"))

	return dir
}

func u32(v uint32) *uint32 {
	return &v
}

func TestAddReturnsCount(t *testing.T) {
	dir := NewDirectory(zaptest.NewLogger(t).Sugar(), DefaultLimits())

	require.Equal(t, 1, dir.AddSink(testInfo(1, "a")))
	require.Equal(t, 2, dir.AddSink(testInfo(1, "a")))
	require.Equal(t, 1, dir.AddSource(testInfo(1, "a")))

	require.Equal(t, 2, dir.SinkCount())
	require.Equal(t, 1, dir.SourceCount())
	require.Len(t, dir.Sinks(), 2)
	require.Len(t, dir.Sources(), 1)
}

func TestIndexTakesPrecedenceOverName(t *testing.T) {
	dir := newTestDirectory(t)

	h, err := dir.GetSink(u32(7), "Foo")
	require.NoError(t, err)
	require.Equal(t, "Seven", dir.Device(h).Name)
	require.Equal(t, uint32(7), dir.Device(h).Index)
}

func TestGetByName(t *testing.T) {
	dir := newTestDirectory(t)

	h, err := dir.GetSink(nil, "Foo")
	require.NoError(t, err)
	require.Equal(t, uint32(3), dir.Device(h).Index)

	h, err = dir.GetSource(nil, "Mic")
	require.NoError(t, err)
	require.Equal(t, Source, dir.Device(h).Class)
}

func TestGetFallsBackToDefault(t *testing.T) {
	dir := newTestDirectory(t)

	_, err := dir.GetSink(nil, "")
	require.ErrorIs(t, err, ErrDefaultNotFound)

	require.NoError(t, dir.SetDefaultSink("Foo"))
	require.NoError(t, dir.SetDefaultSource("Seven.monitor"))

	h, err := dir.GetSink(nil, "")
	require.NoError(t, err)
	require.Equal(t, "Foo", dir.Device(h).Name)
	require.True(t, dir.IsDefault(h))

	h, err = dir.GetSource(nil, "")
	require.NoError(t, err)
	require.Equal(t, "Seven.monitor", dir.Device(h).Name)

	other, err := dir.GetSink(u32(7), "")
	require.NoError(t, err)
	require.False(t, dir.IsDefault(other))
}

func TestLookupErrors(t *testing.T) {
	dir := newTestDirectory(t)

	_, err := dir.GetSink(u32(42), "")
	require.ErrorIs(t, err, ErrIndexNotFound)

	_, err = dir.GetSource(nil, "missing")
	require.ErrorIs(t, err, ErrNameNotFound)

	require.ErrorIs(t, dir.SetDefaultSink("missing"), ErrNameNotFound)

	empty := NewDirectory(zaptest.NewLogger(t).Sugar(), DefaultLimits())
	_, err = empty.GetSink(u32(7), "")
	require.ErrorIs(t, err, ErrNoDevices)
	_, err = empty.GetSource(nil, "")
	require.ErrorIs(t, err, ErrNoDevices)
}

func TestMutationThroughHandleIsVisible(t *testing.T) {
	dir := newTestDirectory(t)
	require.NoError(t, dir.SetDefaultSink("Seven"))

	h, err := dir.GetSink(nil, "Foo")
	require.NoError(t, err)
	require.NoError(t, dir.Device(h).IncreaseVolume(10, false))

	again, err := dir.GetSink(u32(3), "")
	require.NoError(t, err)

	pct, err := dir.Device(again).Percent()
	require.NoError(t, err)
	require.Equal(t, uint8(64), pct)

	def, err := dir.GetSink(nil, "")
	require.NoError(t, err)
	pct, err = dir.Device(def).Percent()
	require.NoError(t, err)
	require.Equal(t, uint8(54), pct)
}

func TestResetThenResync(t *testing.T) {
	dir := newTestDirectory(t)
	require.NoError(t, dir.SetDefaultSink("Seven"))

	dir.Reset()
	require.Equal(t, 0, dir.SinkCount())
	require.Equal(t, 0, dir.SourceCount())
	_, err := dir.GetSink(nil, "")
	require.ErrorIs(t, err, ErrDefaultNotFound)

	dir.AddSink(testInfo(12, "New"))
	require.Equal(t, 1, dir.SinkCount())
	require.Equal(t, 0, dir.SourceCount())
}

func TestDeviceForStaleHandle(t *testing.T) {
	dir := newTestDirectory(t)
	h, err := dir.GetSink(u32(3), "")
	require.NoError(t, err)

	dir.Reset()
	require.Nil(t, dir.Device(h))
}

func TestSetLimitsAppliesToExistingDevices(t *testing.T) {
	dir := newTestDirectory(t)
	limits := DefaultLimits()
	limits.Ceiling = 60
	dir.SetLimits(limits)
	require.Equal(t, uint8(60), dir.Limits().Ceiling)

	h, err := dir.GetSink(u32(7), "")
	require.NoError(t, err)
	require.NoError(t, dir.Device(h).IncreaseVolume(20, false))

	pct, err := dir.Device(h).Percent()
	require.NoError(t, err)
	require.Equal(t, uint8(60), pct)
}
