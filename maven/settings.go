package maven

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotProfileID is the settings.xml profile declaring the snapshot repository.
const SnapshotProfileID = "snapshot.build"

type settingsDocument struct {
	Profiles []struct {
		ID                 string `xml:"id"`
		PluginRepositories []struct {
			ID  string `xml:"id"`
			URL string `xml:"url"`
		} `xml:"pluginRepositories>pluginRepository"`
	} `xml:"profiles>profile"`
}

// DefaultSettingsPath returns the user's Maven settings file below homeDir.
func DefaultSettingsPath(homeDir string) string {
	return filepath.Join(homeDir, ".m2", "settings.xml")
}

// DiscoverSnapshotEndpoint returns the first plugin repository URL of the
// snapshot.build profile in the Maven settings file at path. A missing file or
// profile yields an empty URL.
func DiscoverSnapshotEndpoint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read Maven settings: %w", err)
	}

	var doc settingsDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse Maven settings %s: %w", path, err)
	}

	for _, profile := range doc.Profiles {
		if profile.ID != SnapshotProfileID {
			continue
		}
		for _, repo := range profile.PluginRepositories {
			if url := strings.TrimSpace(repo.URL); url != "" {
				return url, nil
			}
		}
	}
	return "", nil
}
