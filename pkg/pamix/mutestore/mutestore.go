// Package mutestore persists the loudness a device had before it was muted,
// so a later process can restore it.
package mutestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rogpeppe/go-internal/lockedfile"
	"go.uber.org/zap"

	"github.com/MixyLabs/pamix/pkg/pamix/volume"
)

const stateFilename = "mute.json"

var (
	// ErrNotFound is returned when no record exists for a device
	ErrNotFound = errors.New("mute record not found")

	// ErrInvalidData is returned when the state file or a record can't be parsed
	ErrInvalidData = errors.New("invalid mute record")
)

// Store keeps one restore record per device key in a JSON file. Every access
// holds an exclusive lock on the file.
type Store struct {
	logger *zap.SugaredLogger
	path   string
}

// New returns a store keeping its file in stateDir, creating the directory if
// needed.
func New(logger *zap.SugaredLogger, stateDir string) (*Store, error) {
	logger = logger.Named("mutestore")

	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		logger.Warnw("Failed to create state directory", "path", stateDir, "error", err)
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &Store{
		logger: logger,
		path:   filepath.Join(stateDir, stateFilename),
	}

	logger.Debugw("Created mute store instance", "path", s.path)

	return s, nil
}

// Path returns the location of the state file.
func (s *Store) Path() string {
	return s.path
}

// Save records rendering (a decibel rendering of the device's volume) under
// key, replacing any previous record.
func (s *Store) Save(key string, rendering string) error {
	err := lockedfile.Transform(s.path, func(old []byte) ([]byte, error) {
		records, err := decode(old)
		if err != nil {
			s.logger.Warnw("Discarding unreadable mute records", "path", s.path, "error", err)
			records = make(map[string]string)
		}

		records[key] = rendering

		return encode(records)
	})
	if err != nil {
		s.logger.Warnw("Failed to save mute record", "key", key, "error", err)
		return fmt.Errorf("save mute record: %w", err)
	}

	s.logger.Debugw("Saved mute record", "key", key, "rendering", rendering)

	return nil
}

// Load returns the loudness recorded under key. The record stays in place
// until Drop removes it.
func (s *Store) Load(key string) (volume.Volume, error) {
	rendering, ok, err := s.Peek(key)
	if err != nil {
		s.logger.Warnw("Failed to load mute record", "key", key, "error", err)
		return 0, fmt.Errorf("load mute record: %w", err)
	}

	if !ok {
		return 0, fmt.Errorf("load mute record: %w: %s", ErrNotFound, key)
	}

	restored, err := parseRendering(rendering)
	if err != nil {
		s.logger.Warnw("Failed to parse mute record", "key", key, "rendering", rendering, "error", err)
		return 0, fmt.Errorf("load mute record: %w", err)
	}

	s.logger.Debugw("Loaded mute record", "key", key, "volume", restored)

	return restored, nil
}

// Drop removes the record kept under key. Dropping a missing record is not an
// error.
func (s *Store) Drop(key string) error {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	err := lockedfile.Transform(s.path, func(old []byte) ([]byte, error) {
		records, err := decode(old)
		if err != nil {
			return nil, err
		}

		if _, ok := records[key]; !ok {
			return old, nil
		}

		delete(records, key)

		return encode(records)
	})
	if err != nil {
		s.logger.Warnw("Failed to drop mute record", "key", key, "error", err)
		return fmt.Errorf("drop mute record: %w", err)
	}

	s.logger.Debugw("Dropped mute record", "key", key)

	return nil
}

// Peek returns the rendering recorded under key without consuming it.
func (s *Store) Peek(key string) (string, bool, error) {
	data, err := lockedfile.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("read mute records: %w", err)
	}

	records, err := decode(data)
	if err != nil {
		return "", false, err
	}

	rendering, ok := records[key]

	return rendering, ok, nil
}

func decode(data []byte) (map[string]string, error) {
	records := make(map[string]string)
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}

	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	return records, nil
}

func encode(records map[string]string) ([]byte, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}

// parseRendering returns the first finite decibel token found in rendering.
// A rendering whose every channel is silent yields Muted.
func parseRendering(rendering string) (volume.Volume, error) {
	silent := false

	for _, tok := range strings.Fields(rendering) {
		if tok == "-inf" {
			silent = true
			continue
		}

		db, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsInf(db, 0) || math.IsNaN(db) {
			continue
		}

		return volume.FromDB(db), nil
	}

	if silent {
		return volume.Muted, nil
	}

	return 0, fmt.Errorf("%w: no loudness in %q", ErrInvalidData, rendering)
}
