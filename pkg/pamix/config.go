package pamix

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MixyLabs/pamix/pkg/pamix/device"
	"github.com/MixyLabs/pamix/pkg/pamix/util"
	"github.com/MixyLabs/pamix/pkg/pamix/volume"
)

// ConfigManager loads the user config and keeps it current while watching
type ConfigManager struct {
	logger             *zap.SugaredLogger
	notifier           Notifier
	stopWatcherChannel chan bool

	reloadConsumers []chan bool

	userConfig *viper.Viper
	explicit   string

	lock    sync.RWMutex
	current Config
}

// Config is the canonized user configuration
type Config struct {
	DefaultSink   string `mapstructure:"default_sink"`
	DefaultSource string `mapstructure:"default_source"`

	StepDB      float64 `mapstructure:"step_db"`
	MaxVolume   uint8   `mapstructure:"max_volume"`
	BoostVolume uint8   `mapstructure:"boost_volume"`

	StateDir       string        `mapstructure:"state_dir"`
	Server         string        `mapstructure:"server"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	Notifications bool `mapstructure:"notifications"`
}

const (
	appName = "pamix"

	userConfigName = "config"
	userConfigPath = "."
	configType     = "yaml"

	configKeyDefaultSink    = "default_sink"
	configKeyDefaultSource  = "default_source"
	configKeyStepDB         = "step_db"
	configKeyMaxVolume      = "max_volume"
	configKeyBoostVolume    = "boost_volume"
	configKeyStateDir       = "state_dir"
	configKeyServer         = "server"
	configKeyRequestTimeout = "request_timeout"
	configKeyNotifications  = "notifications"

	defaultRequestTimeout = 5 * time.Second
)

// flags that override their config key when given on the command line
var flagBindings = map[string]string{
	"server":    configKeyServer,
	"timeout":   configKeyRequestTimeout,
	"state-dir": configKeyStateDir,
}

// ErrInvalidConfig is returned when config values contradict each other
var ErrInvalidConfig = errors.New("invalid config")

// NewConfig creates a config manager. When flags is non-nil its "config" flag
// selects an explicit file and the bound flags override file values.
func NewConfig(logger *zap.SugaredLogger, notifier Notifier, flags *pflag.FlagSet) (*ConfigManager, error) {
	logger = logger.Named("config")

	cc := &ConfigManager{
		logger:             logger,
		notifier:           notifier,
		reloadConsumers:    []chan bool{},
		stopWatcherChannel: make(chan bool),
	}

	userConfig := viper.New()
	userConfig.SetConfigName(userConfigName)
	userConfig.SetConfigType(configType)
	userConfig.AddConfigPath(userConfigPath)
	userConfig.AddConfigPath(util.ConfigDir(appName))

	userConfig.SetDefault(configKeyDefaultSink, "")
	userConfig.SetDefault(configKeyDefaultSource, "")
	userConfig.SetDefault(configKeyStepDB, volume.DefaultStepDB)
	userConfig.SetDefault(configKeyMaxVolume, device.DefaultCeiling)
	userConfig.SetDefault(configKeyBoostVolume, device.DefaultBoostCeiling)
	userConfig.SetDefault(configKeyStateDir, util.StateDir(appName))
	userConfig.SetDefault(configKeyServer, "")
	userConfig.SetDefault(configKeyRequestTimeout, defaultRequestTimeout)
	userConfig.SetDefault(configKeyNotifications, false)

	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			cc.explicit = f.Value.String()
			userConfig.SetConfigFile(cc.explicit)
		}

		for flagName, key := range flagBindings {
			f := flags.Lookup(flagName)
			if f == nil {
				continue
			}

			if err := userConfig.BindPFlag(key, f); err != nil {
				logger.Warnw("Failed to bind flag", "flag", flagName, "error", err)
				return nil, fmt.Errorf("bind flag %s: %w", flagName, err)
			}
		}
	}

	cc.userConfig = userConfig

	logger.Debug("Created config instance")

	return cc, nil
}

// Current returns the last successfully loaded config
func (cc *ConfigManager) Current() Config {
	cc.lock.RLock()
	defer cc.lock.RUnlock()

	return cc.current
}

// Limits returns the volume limits the config asks for
func (cc *ConfigManager) Limits() device.Limits {
	current := cc.Current()

	return device.Limits{
		Codec:        volume.NewCodec(current.StepDB),
		Ceiling:      current.MaxVolume,
		BoostCeiling: current.BoostVolume,
	}
}

// Load reads the config file if there is one and canonizes it. A missing
// file is fine unless it was asked for explicitly.
func (cc *ConfigManager) Load() error {
	if cc.explicit != "" && !util.FileExists(cc.explicit) {
		cc.logger.Warnw("Config file not found", "path", cc.explicit)
		return fmt.Errorf("config file doesn't exist: %s", cc.explicit)
	}

	if err := cc.userConfig.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			cc.logger.Debugw("No config file found, using defaults", "reminder", "this is fine")
		} else {
			cc.logger.Warnw("Viper failed to read user config", "error", err)

			if strings.Contains(err.Error(), "yaml:") {
				cc.notifier.Notify("Invalid configuration!", "Please make sure the config file is in a valid YAML format.")
			}

			return fmt.Errorf("read user config: %w", err)
		}
	} else {
		cc.logger.Debugw("Loading config", "path", cc.userConfig.ConfigFileUsed())
	}

	if err := cc.populateFromViper(); err != nil {
		cc.logger.Warnw("Failed to populate config fields", "error", err)
		return fmt.Errorf("populate config fields: %w", err)
	}

	current := cc.Current()

	cc.logger.Info("Loaded config successfully")
	cc.logger.Infow("Config values",
		"defaultSink", current.DefaultSink,
		"defaultSource", current.DefaultSource,
		"stepDB", current.StepDB,
		"maxVolume", current.MaxVolume,
		"boostVolume", current.BoostVolume,
		"stateDir", current.StateDir,
		"requestTimeout", current.RequestTimeout)

	return nil
}

// SubscribeToChanges allows external components to receive updates when the config is reloaded
func (cc *ConfigManager) SubscribeToChanges() chan bool {
	c := make(chan bool, 1)
	cc.reloadConsumers = append(cc.reloadConsumers, c)

	return c
}

// WatchConfigFileChanges starts watching for configuration file changes
// and attempts reloading the config when they happen. Without a config file
// in use it only waits to be stopped.
func (cc *ConfigManager) WatchConfigFileChanges() {
	path := cc.userConfig.ConfigFileUsed()
	if path == "" || !util.FileExists(path) {
		cc.logger.Debug("No config file in use, not watching")
		<-cc.stopWatcherChannel
		return
	}

	cc.logger.Debugw("Starting to watch user config file for changes", "path", path)

	const (
		minTimeBetweenReloadAttempts = time.Millisecond * 500
		delayBetweenEventAndReload   = time.Millisecond * 50
	)

	lastAttemptedReload := time.Now()

	cc.userConfig.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}

		now := time.Now()

		// editors tend to write twice
		if !lastAttemptedReload.Add(minTimeBetweenReloadAttempts).Before(now) {
			return
		}

		cc.logger.Debugw("Config file modified, attempting reload", "event", event)

		// let the editor flush the new contents
		<-time.After(delayBetweenEventAndReload)

		if err := cc.Load(); err != nil {
			cc.logger.Warnw("Failed to reload config file", "error", err)
		} else {
			cc.logger.Info("Reloaded config successfully")
			cc.notifier.Notify("Configuration reloaded!", "Your changes have been applied.")

			cc.onConfigReloaded()
		}

		lastAttemptedReload = now
	})
	cc.userConfig.WatchConfig()

	<-cc.stopWatcherChannel
	cc.logger.Debug("Stopping user config file watcher")
	cc.userConfig.OnConfigChange(func(fsnotify.Event) {})
}

// StopWatchingConfigFile signals our filesystem watcher to stop
func (cc *ConfigManager) StopWatchingConfigFile() {
	cc.stopWatcherChannel <- true
}

func (cc *ConfigManager) populateFromViper() error {
	var next Config

	err := cc.userConfig.Unmarshal(&next, func(dConf *mapstructure.DecoderConfig) {
		dConf.WeaklyTypedInput = false
	})
	if err != nil {
		return err
	}

	if err := next.validate(); err != nil {
		return err
	}

	cc.lock.Lock()
	cc.current = next
	cc.lock.Unlock()

	cc.logger.Debug("Populated config fields from viper")

	return nil
}

func (c Config) validate() error {
	if c.MaxVolume == 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, configKeyMaxVolume)
	}

	if c.BoostVolume < c.MaxVolume {
		return fmt.Errorf("%w: %s (%d) is below %s (%d)", ErrInvalidConfig,
			configKeyBoostVolume, c.BoostVolume, configKeyMaxVolume, c.MaxVolume)
	}

	// a step above one percent could jump over a requested target
	step := volume.StepFromDB(c.StepDB)
	if step == 0 || uint64(step)*100 > uint64(volume.Norm) {
		return fmt.Errorf("%w: %s of %.2f gives a step of %d, want 1..%d", ErrInvalidConfig,
			configKeyStepDB, c.StepDB, step, volume.Norm/100)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, configKeyRequestTimeout)
	}

	if c.StateDir == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidConfig, configKeyStateDir)
	}

	return nil
}

func (cc *ConfigManager) onConfigReloaded() {
	cc.logger.Debug("Notifying consumers about configuration reload")

	for _, consumer := range cc.reloadConsumers {
		// a reload already pending covers this one
		select {
		case consumer <- true:
		default:
		}
	}
}
