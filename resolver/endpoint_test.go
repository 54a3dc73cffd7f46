package resolver

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP/ui5-project-sub000/config"
	"github.com/SAP/ui5-project-sub000/maven"
	"github.com/SAP/ui5-project-sub000/prompt"
)

type staticTTYDetector bool

func (d staticTTYDetector) IsTerminal(any) bool { return bool(d) }

func nonInteractivePrompter() *prompt.Prompter {
	return &prompt.Prompter{In: strings.NewReader(""), Out: io.Discard, Detector: staticTTYDetector(false)}
}

func interactivePrompter(answer string, out io.Writer) *prompt.Prompter {
	return &prompt.Prompter{In: strings.NewReader(answer), Out: out, Detector: staticTTYDetector(true), Timeout: time.Second}
}

func writeMavenSettings(t *testing.T, home, url string) {
	t.Helper()
	settings := `<settings><profiles><profile><id>snapshot.build</id>
<pluginRepositories><pluginRepository><id>artifactory</id><url>` + url + `</url></pluginRepository></pluginRepositories>
</profile></profiles></settings>`
	path := maven.DefaultSettingsPath(home)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(settings), 0644))
}

func TestSnapshotEndpoint_Precedence(t *testing.T) {
	opts := testOptions(t, SAPUI5, "1.120.0-SNAPSHOT")
	require.NoError(t, config.ToFile(opts.ConfigPath, &config.Config{MavenSnapshotEndpointURL: "https://from-config"}))

	t.Setenv(config.EnvMavenSnapshotEndpointURL, "")
	url, err := SnapshotEndpoint(opts, nil)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://from-config", url)

	t.Setenv(config.EnvMavenSnapshotEndpointURL, "https://from-env")
	url, err = SnapshotEndpoint(opts, nil)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://from-env", url)

	opts.SnapshotEndpointURL = "https://from-option"
	url, err = SnapshotEndpoint(opts, nil)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://from-option", url)
}

func TestSnapshotEndpoint_NonInteractiveSkipsDiscovery(t *testing.T) {
	t.Setenv(config.EnvMavenSnapshotEndpointURL, "")
	opts := testOptions(t, SAPUI5, "1.120.0-SNAPSHOT")
	writeMavenSettings(t, opts.HomeDir, "https://from-settings")
	opts.Prompter = nonInteractivePrompter()

	_, err := SnapshotEndpoint(opts, nil)(context.Background())
	assert.ErrorIs(t, err, maven.ErrMissingEndpoint)
}

func TestSnapshotEndpoint_DiscoveryConfirmed(t *testing.T) {
	t.Setenv(config.EnvMavenSnapshotEndpointURL, "")
	opts := testOptions(t, SAPUI5, "1.120.0-SNAPSHOT")
	writeMavenSettings(t, opts.HomeDir, "https://from-settings")
	var out bytes.Buffer
	opts.Prompter = interactivePrompter("\n", &out)

	url, err := SnapshotEndpoint(opts, nil)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://from-settings", url)
	assert.Contains(t, out.String(), "Found Maven snapshot endpoint URL https://from-settings")

	cfg, err := config.FromFile(opts.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "https://from-settings", cfg.MavenSnapshotEndpointURL)
}

func TestSnapshotEndpoint_DiscoveryDeclined(t *testing.T) {
	t.Setenv(config.EnvMavenSnapshotEndpointURL, "")
	opts := testOptions(t, SAPUI5, "1.120.0-SNAPSHOT")
	writeMavenSettings(t, opts.HomeDir, "https://from-settings")
	opts.Prompter = interactivePrompter("n\n", io.Discard)

	_, err := SnapshotEndpoint(opts, nil)(context.Background())
	assert.ErrorIs(t, err, maven.ErrMissingEndpoint)
	assert.NoFileExists(t, opts.ConfigPath)
}

func TestSnapshotEndpoint_NoSettings(t *testing.T) {
	t.Setenv(config.EnvMavenSnapshotEndpointURL, "")
	opts := testOptions(t, SAPUI5, "1.120.0-SNAPSHOT")
	opts.Prompter = interactivePrompter("y\n", io.Discard)

	_, err := SnapshotEndpoint(opts, nil)(context.Background())
	assert.ErrorIs(t, err, maven.ErrMissingEndpoint)
}
