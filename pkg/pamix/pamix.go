// Package pamix provides a command-line mixer for PulseAudio-compatible sound
// servers: it reads and steps sink and source volumes and toggles mute.
package pamix

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/MixyLabs/pamix/pkg/pamix/device"
	"github.com/MixyLabs/pamix/pkg/pamix/mutestore"
)

// Pamix is the main entity managing all subcomponents
type Pamix struct {
	logger    *zap.SugaredLogger
	notifier  *ToastNotifier
	configMan *ConfigManager
	driver    SessionDriver
	directory *device.Directory
	muteStore *mutestore.Store
	out       io.Writer

	serverInfo ServerInfo

	stopChannel chan bool
	version     string
}

// NewPamix creates the mixer. flags may carry the config path and overrides.
func NewPamix(logger *zap.SugaredLogger, flags *pflag.FlagSet) (*Pamix, error) {
	logger = logger.Named("pamix")

	notifier, err := NewToastNotifier(logger)
	if err != nil {
		logger.Errorw("Failed to create ToastNotifier", "error", err)
		return nil, fmt.Errorf("create new ToastNotifier: %w", err)
	}

	config, err := NewConfig(logger, notifier, flags)
	if err != nil {
		logger.Errorw("Failed to create Config", "error", err)
		return nil, fmt.Errorf("create new Config: %w", err)
	}

	p := &Pamix{
		logger:      logger,
		notifier:    notifier,
		configMan:   config,
		directory:   device.NewDirectory(logger, device.DefaultLimits()),
		out:         os.Stdout,
		stopChannel: make(chan bool, 1),
	}

	logger.Debug("Created pamix instance")

	return p, nil
}

func (p *Pamix) currConf() Config {
	return p.configMan.Current()
}

// SetVersion records the version string printed by the info command
func (p *Pamix) SetVersion(version string) {
	p.version = version
}

// SetOutput redirects command output, stdout by default
func (p *Pamix) SetOutput(w io.Writer) {
	p.out = w
}

// Initialize loads the config, opens the mute store and connects to the
// sound server
func (p *Pamix) Initialize(ctx context.Context) error {
	p.logger.Debug("Initializing")

	if err := p.configMan.Load(); err != nil {
		p.logger.Errorw("Failed to load config during initialization", "error", err)
		return fmt.Errorf("load config during init: %w", err)
	}

	p.applyConfig()

	store, err := mutestore.New(p.logger, p.currConf().StateDir)
	if err != nil {
		p.logger.Errorw("Failed to create mute store", "error", err)
		return fmt.Errorf("create mute store: %w", err)
	}

	p.muteStore = store

	// tests hand in their own driver
	if p.driver == nil {
		driver, err := NewSessionDriver(ctx, p.logger, p.currConf().Server, p.currConf().RequestTimeout)
		if err != nil {
			p.logger.Errorw("Failed to create SessionDriver", "error", err)
			return fmt.Errorf("create new SessionDriver: %w", err)
		}

		p.driver = driver
	}

	return nil
}

func (p *Pamix) applyConfig() {
	p.directory.SetLimits(p.configMan.Limits())
	p.notifier.SetEnabled(p.currConf().Notifications)
}

// sync rebuilds the directory from the server. A default the directory can't
// resolve is only logged; lookups relying on it fail later.
func (p *Pamix) sync(ctx context.Context) error {
	p.directory.Reset()

	info, err := p.driver.ServerInfo(ctx)
	if err != nil {
		p.logger.Warnw("Failed to get server info during sync", "error", err)
		return fmt.Errorf("get server info: %w", err)
	}

	p.serverInfo = info

	sources, err := p.driver.ListSources(ctx)
	if err != nil {
		p.logger.Warnw("Failed to list sources during sync", "error", err)
		return fmt.Errorf("list sources: %w", err)
	}

	for _, source := range sources {
		p.directory.AddSource(source)
	}

	if err := p.directory.SetDefaultSource(info.DefaultSourceName); err != nil {
		p.logger.Warnw("Server default source not found", "name", info.DefaultSourceName, "error", err)
	}

	sinks, err := p.driver.ListSinks(ctx)
	if err != nil {
		p.logger.Warnw("Failed to list sinks during sync", "error", err)
		return fmt.Errorf("list sinks: %w", err)
	}

	for _, sink := range sinks {
		p.directory.AddSink(sink)
	}

	if err := p.directory.SetDefaultSink(info.DefaultSinkName); err != nil {
		p.logger.Warnw("Server default sink not found", "name", info.DefaultSinkName, "error", err)
	}

	p.logger.Debugw("Synced with server", "directory", p.directory)

	return nil
}

func (p *Pamix) signalStop() {
	p.logger.Debug("Signalling stop channel")

	select {
	case p.stopChannel <- true:
	default:
	}
}

// Release closes the server connection
func (p *Pamix) Release() error {
	p.logger.Debug("Releasing")

	if p.driver != nil {
		if err := p.driver.Release(); err != nil {
			p.logger.Errorw("Failed to release session driver", "error", err)
			return fmt.Errorf("release session driver: %w", err)
		}
	}

	// attempt to sync on exit - this won't necessarily work but can't harm
	_ = p.logger.Sync()

	return nil
}
