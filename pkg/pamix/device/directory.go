package device

import (
	"fmt"

	"go.uber.org/zap"
)

// Handle addresses a device inside a Directory. Handles are invalidated by
// Reset.
type Handle struct {
	Class Class
	slot  int
}

const noDefault = -1

// Directory owns every device retrieved by the last sync. Other components
// refer to devices through handles.
type Directory struct {
	logger *zap.SugaredLogger
	limits *Limits

	sinks   []Device
	sources []Device

	defaultSink   int
	defaultSource int
}

// NewDirectory returns an empty directory whose devices step with limits.
func NewDirectory(logger *zap.SugaredLogger, limits Limits) *Directory {
	logger = logger.Named("directory")

	dir := &Directory{
		logger:        logger,
		limits:        &limits,
		defaultSink:   noDefault,
		defaultSource: noDefault,
	}

	logger.Debug("Created directory instance")

	return dir
}

// SetLimits replaces the step codec and ceilings for every device, including
// those already in the directory.
func (dir *Directory) SetLimits(limits Limits) {
	*dir.limits = limits
	dir.logger.Debugw("Updated volume limits",
		"step", limits.Codec.Step,
		"ceiling", limits.Ceiling,
		"boostCeiling", limits.BoostCeiling)
}

// Limits returns the limits currently applied to devices.
func (dir *Directory) Limits() Limits {
	return *dir.limits
}

// AddSink appends a sink and returns the new sink count.
func (dir *Directory) AddSink(info Info) int {
	dir.sinks = append(dir.sinks, New(dir.logger, Sink, info, dir.limits))
	dir.logger.Debugw("Added sink", "index", info.Index, "name", info.Name)

	return len(dir.sinks)
}

// AddSource appends a source and returns the new source count.
func (dir *Directory) AddSource(info Info) int {
	dir.sources = append(dir.sources, New(dir.logger, Source, info, dir.limits))
	dir.logger.Debugw("Added source", "index", info.Index, "name", info.Name)

	return len(dir.sources)
}

// SinkCount returns the number of sinks.
func (dir *Directory) SinkCount() int {
	return len(dir.sinks)
}

// SourceCount returns the number of sources.
func (dir *Directory) SourceCount() int {
	return len(dir.sources)
}

// Sinks returns handles to every sink in enumeration order.
func (dir *Directory) Sinks() []Handle {
	return handles(Sink, len(dir.sinks))
}

// Sources returns handles to every source in enumeration order.
func (dir *Directory) Sources() []Handle {
	return handles(Source, len(dir.sources))
}

// SetDefaultSink marks the sink called name as the default.
func (dir *Directory) SetDefaultSink(name string) error {
	return dir.setDefault(Sink, name)
}

// SetDefaultSource marks the source called name as the default.
func (dir *Directory) SetDefaultSource(name string) error {
	return dir.setDefault(Source, name)
}

// GetSink resolves a sink by index if given, else by name if non-empty, else
// the default sink.
func (dir *Directory) GetSink(index *uint32, name string) (Handle, error) {
	return dir.Get(Sink, index, name)
}

// GetSource resolves a source the same way GetSink resolves a sink.
func (dir *Directory) GetSource(index *uint32, name string) (Handle, error) {
	return dir.Get(Source, index, name)
}

// Get resolves a device of class: index first, then name, then default.
func (dir *Directory) Get(class Class, index *uint32, name string) (Handle, error) {
	if len(*dir.arena(class)) == 0 {
		return Handle{}, fmt.Errorf("%w: no %ss", ErrNoDevices, class)
	}

	switch {
	case index != nil:
		return dir.byIndex(class, *index)
	case name != "":
		return dir.byName(class, name)
	default:
		return dir.defaultOf(class)
	}
}

// Device returns the record addressed by h. The pointer stays valid until the
// next Add or Reset.
func (dir *Directory) Device(h Handle) *Device {
	arena := *dir.arena(h.Class)
	if h.slot < 0 || h.slot >= len(arena) {
		return nil
	}

	return &arena[h.slot]
}

// IsDefault reports whether h addresses the default device of its class.
func (dir *Directory) IsDefault(h Handle) bool {
	return *dir.defaultSlot(h.Class) == h.slot
}

// Reset clears every device and default so a fresh sync does not accumulate.
func (dir *Directory) Reset() {
	dir.sinks = nil
	dir.sources = nil
	dir.defaultSink = noDefault
	dir.defaultSource = noDefault

	dir.logger.Debug("Directory cleared")
}

func (dir *Directory) String() string {
	return fmt.Sprintf("<%d sinks, %d sources>", len(dir.sinks), len(dir.sources))
}

func (dir *Directory) arena(class Class) *[]Device {
	if class == Source {
		return &dir.sources
	}

	return &dir.sinks
}

func (dir *Directory) defaultSlot(class Class) *int {
	if class == Source {
		return &dir.defaultSource
	}

	return &dir.defaultSink
}

func (dir *Directory) setDefault(class Class, name string) error {
	h, err := dir.byName(class, name)
	if err != nil {
		dir.logger.Warnw("Failed to resolve default device", "class", class, "name", name, "error", err)
		return err
	}

	*dir.defaultSlot(class) = h.slot
	dir.logger.Debugw("Set default device", "class", class, "name", name)

	return nil
}

func (dir *Directory) defaultOf(class Class) (Handle, error) {
	slot := *dir.defaultSlot(class)
	if slot == noDefault {
		return Handle{}, fmt.Errorf("%w: no default %s is set", ErrDefaultNotFound, class)
	}

	return Handle{Class: class, slot: slot}, nil
}

func (dir *Directory) byIndex(class Class, index uint32) (Handle, error) {
	for slot, d := range *dir.arena(class) {
		if d.Index == index {
			return Handle{Class: class, slot: slot}, nil
		}
	}

	return Handle{}, fmt.Errorf("%w: no %s with index %d", ErrIndexNotFound, class, index)
}

func (dir *Directory) byName(class Class, name string) (Handle, error) {
	for slot, d := range *dir.arena(class) {
		if d.Name == name {
			return Handle{Class: class, slot: slot}, nil
		}
	}

	return Handle{}, fmt.Errorf("%w: no %s with name %q", ErrNameNotFound, class, name)
}

func handles(class Class, n int) []Handle {
	hs := make([]Handle, n)
	for i := range hs {
		hs[i] = Handle{Class: class, slot: i}
	}

	return hs
}
