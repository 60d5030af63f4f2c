package util

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

// EnsureDirExists creates the given directory path if it doesn't already exist
func EnsureDirExists(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("ensure directory exists (%s): %w", path, err)
	}

	return nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}

	return err == nil && !info.IsDir()
}

// SetupCloseHandler creates a 'listener' on a new goroutine which will notify the
// program if it receives an interrupt from the OS
func SetupCloseHandler() chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	return c
}

// StateDir returns $XDG_STATE_HOME/app, falling back to ~/.local/state/app
func StateDir(app string) string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"), app)
}

// ConfigDir returns $XDG_CONFIG_HOME/app, falling back to ~/.config/app
func ConfigDir(app string) string {
	return xdgDir("XDG_CONFIG_HOME", ".config", app)
}

func xdgDir(env string, fallback string, app string) string {
	if base := os.Getenv(env); filepath.IsAbs(base) {
		return filepath.Join(base, app)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// no home to speak of, keep things next to the binary
		return filepath.Join(".", app)
	}

	return filepath.Join(home, fallback, app)
}
