package pamix

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jfreymuth/pulse/proto"
	"go.uber.org/zap"

	"github.com/MixyLabs/pamix/pkg/pamix/device"
	"github.com/MixyLabs/pamix/pkg/pamix/volume"
)

const eventBufferSize = 16

type paSessionDriver struct {
	logger *zap.SugaredLogger

	client  *proto.Client
	conn    net.Conn
	timeout time.Duration

	lock       sync.Mutex
	events     chan DeviceEvent
	subscribed bool
}

// NewSessionDriver connects to the PulseAudio server named by server (empty
// means $PULSE_SERVER or the default socket). Every request is bounded by
// timeout.
func NewSessionDriver(ctx context.Context, logger *zap.SugaredLogger, server string, timeout time.Duration) (SessionDriver, error) {
	logger = logger.Named("session_driver")

	client, conn, err := proto.Connect(server)
	if err != nil {
		logger.Warnw("Failed to establish PulseAudio connection", "server", server, "error", err)
		return nil, fmt.Errorf("establish PulseAudio connection: %w", err)
	}

	sd := &paSessionDriver{
		logger:  logger,
		client:  client,
		conn:    conn,
		timeout: timeout,
	}

	request := proto.SetClientName{
		Props: proto.PropList{
			"application.name":           proto.PropListString(appName),
			"application.process.binary": proto.PropListString(os.Args[0]),
			"application.process.id":     proto.PropListString(strconv.Itoa(os.Getpid())),
		},
	}
	reply := proto.SetClientNameReply{}

	if err := sd.request(ctx, &request, &reply); err != nil {
		_ = conn.Close()
		logger.Warnw("Failed to set client name", "error", err)
		return nil, fmt.Errorf("set client name: %w", err)
	}

	logger.Debug("Created PA session driver instance")

	return sd, nil
}

// request issues one server request and waits for it no longer than the
// driver timeout or ctx allows
func (sd *paSessionDriver) request(ctx context.Context, req proto.RequestArgs, rpl proto.Reply) error {
	ctx, cancel := context.WithTimeout(ctx, sd.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sd.client.Request(req, rpl)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("await server reply: %w", ctx.Err())
	}
}

func (sd *paSessionDriver) ServerInfo(ctx context.Context) (ServerInfo, error) {
	reply := proto.GetServerInfoReply{}

	if err := sd.request(ctx, &proto.GetServerInfo{}, &reply); err != nil {
		sd.logger.Warnw("Failed to get server info", "error", err)
		return ServerInfo{}, fmt.Errorf("get server info: %w", err)
	}

	return ServerInfo{
		PackageName:       reply.PackageName,
		PackageVersion:    reply.PackageVersion,
		Username:          reply.Username,
		Hostname:          reply.Hostname,
		DefaultSinkName:   reply.DefaultSinkName,
		DefaultSourceName: reply.DefaultSourceName,
	}, nil
}

func (sd *paSessionDriver) ListSinks(ctx context.Context) ([]device.Info, error) {
	reply := proto.GetSinkInfoListReply{}

	if err := sd.request(ctx, &proto.GetSinkInfoList{}, &reply); err != nil {
		sd.logger.Warnw("Failed to get sink list", "error", err)
		return nil, fmt.Errorf("get sink list: %w", err)
	}

	infos := make([]device.Info, 0, len(reply))
	for _, sink := range reply {
		infos = append(infos, device.Info{
			Index:       sink.SinkIndex,
			Name:        sink.SinkName,
			Description: sink.Device,
			Volume:      fromProtoVolumes(sink.ChannelVolumes),
			BaseVolume:  volume.Volume(sink.BaseVolume),
			Muted:       sink.Mute,
		})
	}

	sd.logger.Debugw("Listed sinks", "count", len(infos))

	return infos, nil
}

func (sd *paSessionDriver) ListSources(ctx context.Context) ([]device.Info, error) {
	reply := proto.GetSourceInfoListReply{}

	if err := sd.request(ctx, &proto.GetSourceInfoList{}, &reply); err != nil {
		sd.logger.Warnw("Failed to get source list", "error", err)
		return nil, fmt.Errorf("get source list: %w", err)
	}

	infos := make([]device.Info, 0, len(reply))
	for _, source := range reply {
		infos = append(infos, device.Info{
			Index:       source.SourceIndex,
			Name:        source.SourceName,
			Description: source.Device,
			Volume:      fromProtoVolumes(source.ChannelVolumes),
			BaseVolume:  volume.Volume(source.BaseVolume),
			Muted:       source.Mute,
		})
	}

	sd.logger.Debugw("Listed sources", "count", len(infos))

	return infos, nil
}

func (sd *paSessionDriver) SetVolume(ctx context.Context, class device.Class, index uint32, cv volume.ChannelVolumes) error {
	var request proto.RequestArgs

	switch class {
	case device.Sink:
		request = &proto.SetSinkVolume{SinkIndex: index, ChannelVolumes: toProtoVolumes(cv)}
	case device.Source:
		request = &proto.SetSourceVolume{SourceIndex: index, ChannelVolumes: toProtoVolumes(cv)}
	default:
		return fmt.Errorf("set volume: unsupported device class %s", class)
	}

	if err := sd.request(ctx, request, nil); err != nil {
		sd.logger.Warnw("Failed to set volume", "class", class, "index", index, "error", err)
		return fmt.Errorf("set %s %d volume: %w", class, index, err)
	}

	sd.logger.Debugw("Set volume", "class", class, "index", index, "volume", cv)

	return nil
}

func (sd *paSessionDriver) Subscribe(ctx context.Context) (<-chan DeviceEvent, error) {
	sd.lock.Lock()
	if sd.subscribed {
		sd.lock.Unlock()
		return nil, errors.New("already subscribed")
	}

	sd.events = make(chan DeviceEvent, eventBufferSize)
	sd.subscribed = true
	sd.lock.Unlock()

	sd.client.Callback = sd.onServerMessage

	mask := proto.SubscriptionMaskSink | proto.SubscriptionMaskSource
	if err := sd.request(ctx, &proto.Subscribe{Mask: mask}, nil); err != nil {
		sd.closeEvents()
		sd.logger.Warnw("Failed to subscribe to device events", "error", err)
		return nil, fmt.Errorf("subscribe to device events: %w", err)
	}

	go func() {
		<-ctx.Done()
		sd.closeEvents()
	}()

	sd.logger.Debug("Subscribed to device events")

	return sd.events, nil
}

func (sd *paSessionDriver) onServerMessage(msg interface{}) {
	event, ok := msg.(*proto.SubscribeEvent)
	if !ok {
		return
	}

	var de DeviceEvent

	switch event.Event.GetFacility() {
	case proto.EventSink:
		de.Class = device.Sink
	case proto.EventSource:
		de.Class = device.Source
	default:
		return
	}

	switch event.Event.GetType() {
	case proto.EventNew:
		de.Kind = DeviceAdded
	case proto.EventRemove:
		de.Kind = DeviceRemoved
	default:
		de.Kind = DeviceChanged
	}

	de.Index = event.Index

	sd.lock.Lock()
	defer sd.lock.Unlock()

	if !sd.subscribed {
		return
	}

	// a full buffer already has a re-sync pending
	select {
	case sd.events <- de:
	default:
		sd.logger.Debugw("Dropping device event, buffer full", "event", de)
	}
}

func (sd *paSessionDriver) closeEvents() {
	sd.lock.Lock()
	defer sd.lock.Unlock()

	if !sd.subscribed {
		return
	}

	sd.subscribed = false
	close(sd.events)
}

func (sd *paSessionDriver) Release() error {
	sd.closeEvents()

	if err := sd.conn.Close(); err != nil {
		sd.logger.Warnw("Failed to close PulseAudio connection", "error", err)
		return fmt.Errorf("close PulseAudio connection: %w", err)
	}

	sd.logger.Debug("Released PA session driver instance")

	return nil
}

func fromProtoVolumes(cv proto.ChannelVolumes) volume.ChannelVolumes {
	out := make(volume.ChannelVolumes, len(cv))
	for i, v := range cv {
		out[i] = volume.Volume(v)
	}

	return out
}

func toProtoVolumes(cv volume.ChannelVolumes) proto.ChannelVolumes {
	out := make(proto.ChannelVolumes, len(cv))
	for i, v := range cv {
		out[i] = uint32(v)
	}

	return out
}
