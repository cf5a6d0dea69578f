// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     speech
// Description: Persistent listener settings
// Author:      Mike Stoffels
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package speech

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Settings are the user-tunable listener parameters. Durations are in
// seconds to keep the file easy to edit by hand.
type Settings struct {
	DeviceIndex     int     `json:"device_index"`
	EnergyThreshold float64 `json:"energy_threshold"`
	PauseThreshold  float64 `json:"pause_threshold"`
	PhraseTimeLimit float64 `json:"phrase_time_limit"`
	Timeout         float64 `json:"timeout"`
}

// DefaultSettings returns the settings written on first use
func DefaultSettings() Settings {
	return Settings{
		DeviceIndex:     0,
		EnergyThreshold: 5,
		PauseThreshold:  1.0,
		PhraseTimeLimit: 40,
		Timeout:         1,
	}
}

// Validate rejects negative values
func (s Settings) Validate() error {
	switch {
	case s.DeviceIndex < 0:
		return fmt.Errorf("device_index must not be negative")
	case s.EnergyThreshold < 0:
		return fmt.Errorf("energy_threshold must not be negative")
	case s.PauseThreshold < 0:
		return fmt.Errorf("pause_threshold must not be negative")
	case s.PhraseTimeLimit < 0:
		return fmt.Errorf("phrase_time_limit must not be negative")
	case s.Timeout < 0:
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// WaitTimeout is how long to wait for speech to start
func (s Settings) WaitTimeout() time.Duration { return seconds(s.Timeout) }

// PauseDuration is the trailing silence that ends a phrase
func (s Settings) PauseDuration() time.Duration { return seconds(s.PauseThreshold) }

// PhraseLimit caps the length of a phrase
func (s Settings) PhraseLimit() time.Duration { return seconds(s.PhraseTimeLimit) }

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// LoadSettings reads settings from path. A missing file is created with
// the defaults. Keys absent from the file keep their default values.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := SaveSettings(path, settings); err != nil {
			return settings, err
		}
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to read listener settings: %w", err)
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("failed to parse listener settings %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return DefaultSettings(), fmt.Errorf("invalid listener settings %s: %w", path, err)
	}
	return settings, nil
}

// SaveSettings writes settings as indented JSON, creating the directory
func SaveSettings(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode listener settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write listener settings: %w", err)
	}
	return nil
}
