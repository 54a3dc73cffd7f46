package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/SAP/ui5-project-sub000/cache"
)

// Environment variables overriding the configuration file.
const (
	EnvDataDir                  = "UI5_DATA_DIR"
	EnvMavenSnapshotEndpointURL = "UI5_MAVEN_SNAPSHOT_ENDPOINT_URL"
	EnvCacheMode                = "UI5_CACHE_MODE"
)

const (
	// FileName is the name of the configuration file in the user's home directory.
	FileName = ".ui5rc"

	// DefaultDataDirName is the data directory below the home directory.
	DefaultDataDirName = ".ui5"
)

// DefaultConfigPath returns the user-level configuration file path
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// LoadEnv loads KEY=value files into the process environment. Missing files are
// skipped and variables that are already set are not overridden.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// DataDir resolves the tool data directory: UI5_DATA_DIR, then the ui5DataDir setting,
// then ~/.ui5. Relative paths are resolved against cwd.
func DataDir(cfg *Config, cwd string) (string, error) {
	dir := os.Getenv(EnvDataDir)
	if dir == "" && cfg != nil {
		dir = cfg.UI5DataDir
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("determine home directory: %w", err)
		}
		return filepath.Join(home, DefaultDataDirName), nil
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}
	return filepath.Join(cwd, dir), nil
}

// SnapshotEndpointURL returns the Maven snapshot endpoint from UI5_MAVEN_SNAPSHOT_ENDPOINT_URL
// or the configuration file, or "" when neither is set.
func SnapshotEndpointURL(cfg *Config) string {
	if url := os.Getenv(EnvMavenSnapshotEndpointURL); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.MavenSnapshotEndpointURL
	}
	return ""
}

// CacheMode returns the cache mode selected by UI5_CACHE_MODE, defaulting to cache.Default.
func CacheMode() (cache.Mode, error) {
	return cache.ParseMode(os.Getenv(EnvCacheMode))
}
