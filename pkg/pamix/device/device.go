// Package device holds the sinks and sources reported by the sound server and
// the logic that walks their volume toward a requested percentage.
package device

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/MixyLabs/pamix/pkg/pamix/volume"
)

// Class tells sinks and sources apart
type Class int

const (
	// Sink is a playback device
	Sink Class = iota
	// Source is a capture device
	Source
)

func (c Class) String() string {
	switch c {
	case Sink:
		return "sink"
	case Source:
		return "source"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

const (
	// DefaultCeiling is the highest percentage reachable without boost
	DefaultCeiling uint8 = 100

	// DefaultBoostCeiling is the highest percentage reachable with boost
	DefaultBoostCeiling uint8 = 120
)

// Limits bundles the step codec and the ceilings the engine enforces.
type Limits struct {
	Codec        volume.Codec
	Ceiling      uint8
	BoostCeiling uint8
}

// DefaultLimits returns the calibrated step with the 100/120 ceilings.
func DefaultLimits() Limits {
	return Limits{
		Codec:        volume.DefaultCodec(),
		Ceiling:      DefaultCeiling,
		BoostCeiling: DefaultBoostCeiling,
	}
}

// Info is a device as reported by the server.
type Info struct {
	Index       uint32
	Name        string
	Description string
	Volume      volume.ChannelVolumes
	BaseVolume  volume.Volume
	Muted       bool
}

// MuteStore keeps the pre-mute loudness of a device across processes. Load
// leaves the record in place; callers Drop it once the restored volume has
// reached the server.
type MuteStore interface {
	Save(key string, rendering string) error
	Load(key string) (volume.Volume, error)
	Drop(key string) error
}

// Device is one sink or source.
type Device struct {
	Class       Class
	Index       uint32
	Name        string
	Description string
	// Muted is the server's mute flag; the engine mutes through Volume instead
	Muted bool

	volume     volume.ChannelVolumes
	baseVolume volume.Volume

	limits *Limits
	logger *zap.SugaredLogger
}

// New builds a device of the given class. The channel count of info.Volume is
// fixed for the device's lifetime.
func New(logger *zap.SugaredLogger, class Class, info Info, limits *Limits) Device {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return Device{
		Class:       class,
		Index:       info.Index,
		Name:        info.Name,
		Description: info.Description,
		Muted:       info.Muted,
		volume:      info.Volume.Clone(),
		baseVolume:  info.BaseVolume,
		limits:      limits,
		logger:      logger,
	}
}

// Key identifies the device across server sessions.
func (d *Device) Key() string {
	return d.Class.String() + ":" + d.Name
}

// Volume returns a copy of the current channel volumes.
func (d *Device) Volume() volume.ChannelVolumes {
	return d.volume.Clone()
}

// BaseVolume returns the server's reference volume for the device.
func (d *Device) BaseVolume() volume.Volume {
	return d.baseVolume
}

// Percent returns the current volume of channel 0 as a percentage.
func (d *Device) Percent() (uint8, error) {
	return d.volume.Percent()
}

// IncreaseVolume steps the volume up by delta percentage points. The target
// is capped at the ceiling, or at the boost ceiling when boost is set.
func (d *Device) IncreaseVolume(delta uint8, boost bool) error {
	current, err := d.Percent()
	if err != nil {
		d.logger.Warnw("Failed to read device volume", "device", d.Name, "error", err)
		return fmt.Errorf("read %s volume: %w", d.Class, err)
	}

	var target uint8
	if delta > 255-current {
		target = d.limits.BoostCeiling
	} else {
		target = current + delta
	}

	ceiling := d.limits.Ceiling
	if boost {
		ceiling = d.limits.BoostCeiling
	}
	if target > ceiling {
		target = ceiling
	}

	if current >= d.limits.Ceiling && !boost && delta > 0 {
		d.logger.Infow("Volume is at the ceiling, use boost to go higher",
			"device", d.Name, "percent", current)
	}

	steps := 0
	for current < target {
		before := d.volume.Clone()
		d.limits.Codec.IncreaseByOneStep(d.volume)
		if d.volume.Equal(before) {
			return fmt.Errorf("increase %s volume at %d%%: %w", d.Class, current, ErrStepStalled)
		}

		if current, err = d.Percent(); err != nil {
			return fmt.Errorf("read %s volume: %w", d.Class, err)
		}
		steps++
	}

	d.logger.Debugw("Increased volume", "device", d.Name, "percent", current, "steps", steps)

	return nil
}

// DecreaseVolume steps the volume down by delta percentage points, stopping
// at zero.
func (d *Device) DecreaseVolume(delta uint8) error {
	current, err := d.Percent()
	if err != nil {
		d.logger.Warnw("Failed to read device volume", "device", d.Name, "error", err)
		return fmt.Errorf("read %s volume: %w", d.Class, err)
	}

	var target uint8
	if delta < current {
		target = current - delta
	}

	steps := 0
	for current > target {
		before := d.volume.Clone()
		d.limits.Codec.DecreaseByOneStep(d.volume)
		if d.volume.Equal(before) {
			return fmt.Errorf("decrease %s volume at %d%%: %w", d.Class, current, ErrStepStalled)
		}

		if current, err = d.Percent(); err != nil {
			return fmt.Errorf("read %s volume: %w", d.Class, err)
		}
		steps++
	}

	d.logger.Debugw("Decreased volume", "device", d.Name, "percent", current, "steps", steps)

	return nil
}

// SetVolume moves the volume to target percent.
func (d *Device) SetVolume(target uint8, boost bool) error {
	current, err := d.Percent()
	if err != nil {
		d.logger.Warnw("Failed to read device volume", "device", d.Name, "error", err)
		return fmt.Errorf("read %s volume: %w", d.Class, err)
	}

	switch {
	case target < current:
		return d.DecreaseVolume(current - target)
	case target > current:
		return d.IncreaseVolume(target-current, boost)
	default:
		d.logger.Infow("Volume already at target", "device", d.Name, "percent", current)
		return nil
	}
}

// ToggleMute silences the device, remembering its loudness in store, or
// restores the remembered loudness if the device is already silent. Restoring
// does not drop the record.
func (d *Device) ToggleMute(store MuteStore) error {
	if d.volume.IsMuted() {
		restored, err := store.Load(d.Key())
		if err != nil {
			d.logger.Warnw("Failed to load pre-mute volume", "device", d.Name, "error", err)
			return fmt.Errorf("load pre-mute volume of %s: %w", d.Key(), err)
		}

		d.volume.Set(restored)
		d.logger.Debugw("Unmuted device", "device", d.Name, "volume", d.volume)

		return nil
	}

	if err := store.Save(d.Key(), d.volume.DBString()); err != nil {
		d.logger.Warnw("Failed to save pre-mute volume", "device", d.Name, "error", err)
		return fmt.Errorf("save pre-mute volume of %s: %w", d.Key(), err)
	}

	d.volume.Mute()
	d.logger.Debugw("Muted device", "device", d.Name)

	return nil
}

// PrintVolume writes channel 0's percentage to w.
func (d *Device) PrintVolume(w io.Writer) error {
	if len(d.volume) == 0 {
		return fmt.Errorf("print %s volume: no channels", d.Class)
	}

	_, err := fmt.Fprintf(w, "The current volume is: %s\n", d.volume[0])
	return err
}

func (d *Device) String() string {
	return fmt.Sprintf("<%s #%d %s>", d.Class, d.Index, d.Name)
}
