// Package config manages the tool configuration file (~/.ui5rc) and the environment
// variables overriding it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Configuration keys as used on the command line and in the configuration file.
const (
	KeyMavenSnapshotEndpointURL = "mavenSnapshotEndpointUrl"
	KeyUI5DataDir               = "ui5DataDir"
)

// ErrUnknownKey is returned for keys not part of the configuration.
var ErrUnknownKey = errors.New("unknown configuration key")

// Config represents the tool configuration file
type Config struct {
	MavenSnapshotEndpointURL string `json:"mavenSnapshotEndpointUrl,omitempty"`
	UI5DataDir               string `json:"ui5DataDir,omitempty"`
}

// Keys returns the supported configuration keys in display order.
func Keys() []string {
	return []string{KeyMavenSnapshotEndpointURL, KeyUI5DataDir}
}

// Get returns the value stored for key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case KeyMavenSnapshotEndpointURL:
		return c.MavenSnapshotEndpointURL, nil
	case KeyUI5DataDir:
		return c.UI5DataDir, nil
	default:
		return "", unknownKey(key)
	}
}

// Set stores value for key. An empty value removes the setting.
func (c *Config) Set(key, value string) error {
	switch key {
	case KeyMavenSnapshotEndpointURL:
		c.MavenSnapshotEndpointURL = value
	case KeyUI5DataDir:
		c.UI5DataDir = value
	default:
		return unknownKey(key)
	}
	return nil
}

func unknownKey(key string) error {
	return fmt.Errorf("%w %q. Supported keys are: %v", ErrUnknownKey, key, Keys())
}

// IsKey reports whether key is a supported configuration key.
func IsKey(key string) bool {
	return slices.Contains(Keys(), key)
}

// FromFile loads a configuration file. A missing file yields an empty configuration.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if len(data) == 0 {
		return &cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// ToFile saves the configuration, replacing the file atomically.
func ToFile(path string, cfg *Config) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
