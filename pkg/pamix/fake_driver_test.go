package pamix

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/MixyLabs/pamix/pkg/pamix/device"
	"github.com/MixyLabs/pamix/pkg/pamix/volume"
)

type setCall struct {
	class device.Class
	index uint32
	cv    volume.ChannelVolumes
}

// fakeDriver is an in-memory sound server
type fakeDriver struct {
	lock sync.Mutex

	info    ServerInfo
	sinks   []device.Info
	sources []device.Info

	sets     []setCall
	syncs    int
	setErr   error
	listErr  error
	events   chan DeviceEvent
	released bool
}

func newFakeDriver() *fakeDriver {
	loud := volume.Uniform(2, volume.FromDB(-16.01))

	return &fakeDriver{
		info: ServerInfo{
			PackageName:       "pulseaudio",
			PackageVersion:    "17.0",
			Username:          "pat",
			Hostname:          "desk",
			DefaultSinkName:   "alsa_output.analog-stereo",
			DefaultSourceName: "alsa_input.analog-stereo",
		},
		sinks: []device.Info{
			{Index: 7, Name: "alsa_output.analog-stereo", Description: "Built-in Audio Analog Stereo", Volume: loud.Clone(), BaseVolume: volume.Norm},
			{Index: 3, Name: "Foo", Description: "USB Headset", Volume: volume.Uniform(2, volume.FromLinear(0.008)), BaseVolume: volume.Norm},
		},
		sources: []device.Info{
			{Index: 7, Name: "alsa_input.analog-stereo", Description: "Built-in Microphone", Volume: volume.Uniform(1, volume.Norm), BaseVolume: volume.Norm},
		},
		events: make(chan DeviceEvent, 4),
	}
}

func (f *fakeDriver) ServerInfo(context.Context) (ServerInfo, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.syncs++

	return f.info, nil
}

func (f *fakeDriver) ListSinks(context.Context) ([]device.Info, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	return cloneInfos(f.sinks), nil
}

func (f *fakeDriver) ListSources(context.Context) ([]device.Info, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	return cloneInfos(f.sources), nil
}

func (f *fakeDriver) SetVolume(_ context.Context, class device.Class, index uint32, cv volume.ChannelVolumes) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.setErr != nil {
		return f.setErr
	}

	f.sets = append(f.sets, setCall{class: class, index: index, cv: cv.Clone()})

	infos := f.sinks
	if class == device.Source {
		infos = f.sources
	}

	for i := range infos {
		if infos[i].Index == index {
			infos[i].Volume = cv.Clone()
			return nil
		}
	}

	return errors.New("no such entity")
}

func (f *fakeDriver) Subscribe(ctx context.Context) (<-chan DeviceEvent, error) {
	out := make(chan DeviceEvent)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-f.events:
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (f *fakeDriver) Release() error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.released = true

	return nil
}

// setSinkVolume changes a sink behind pamix's back
func (f *fakeDriver) setSinkVolume(index uint32, cv volume.ChannelVolumes) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for i := range f.sinks {
		if f.sinks[i].Index == index {
			f.sinks[i].Volume = cv
		}
	}
}

func (f *fakeDriver) lastSet() setCall {
	f.lock.Lock()
	defer f.lock.Unlock()

	if len(f.sets) == 0 {
		return setCall{}
	}

	return f.sets[len(f.sets)-1]
}

func cloneInfos(infos []device.Info) []device.Info {
	out := make([]device.Info, len(infos))
	for i, info := range infos {
		info.Volume = info.Volume.Clone()
		out[i] = info
	}

	return out
}

// lockedBuffer lets the watch loop write while the test reads
type lockedBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.buf.Reset()
}
