package pamix

import (
	"context"
	"fmt"

	"github.com/MixyLabs/pamix/pkg/pamix/device"
	"github.com/MixyLabs/pamix/pkg/pamix/volume"
)

// ServerInfo is what the sound server says about itself
type ServerInfo struct {
	PackageName    string
	PackageVersion string
	Username       string
	Hostname       string

	DefaultSinkName   string
	DefaultSourceName string
}

// EventKind says what happened to a device
type EventKind int

const (
	// DeviceAdded is sent when a device appears
	DeviceAdded EventKind = iota
	// DeviceChanged is sent when a device's state changes
	DeviceChanged
	// DeviceRemoved is sent when a device goes away
	DeviceRemoved
)

func (k EventKind) String() string {
	switch k {
	case DeviceAdded:
		return "added"
	case DeviceChanged:
		return "changed"
	case DeviceRemoved:
		return "removed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DeviceEvent reports a change to a sink or source
type DeviceEvent struct {
	Kind  EventKind
	Class device.Class
	Index uint32
}

// SessionDriver talks to the sound server on behalf of the mixer
type SessionDriver interface {
	ServerInfo(ctx context.Context) (ServerInfo, error)

	ListSinks(ctx context.Context) ([]device.Info, error)
	ListSources(ctx context.Context) ([]device.Info, error)

	// SetVolume pushes cv to the device of class with the given index
	SetVolume(ctx context.Context, class device.Class, index uint32, cv volume.ChannelVolumes) error

	// Subscribe delivers sink and source events until ctx is done
	Subscribe(ctx context.Context) (<-chan DeviceEvent, error)

	Release() error
}
