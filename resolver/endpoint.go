package resolver

import (
	"context"
	"fmt"
	"os"

	"github.com/SAP/ui5-project-sub000/config"
	"github.com/SAP/ui5-project-sub000/maven"
	"github.com/SAP/ui5-project-sub000/observability"
	"github.com/SAP/ui5-project-sub000/prompt"
)

// SnapshotEndpoint returns the EndpointFunc of the Maven snapshot backend. The URL is
// taken from opts.SnapshotEndpointURL, UI5_MAVEN_SNAPSHOT_ENDPOINT_URL or the tool
// configuration. As a last resort, and only on an interactive terminal, the user is
// offered the URL found in ~/.m2/settings.xml; an accepted URL is saved to the
// configuration.
func SnapshotEndpoint(opts Options, logger observability.Logger) maven.EndpointFunc {
	logger = observability.OrNull(logger)
	if opts.HomeDir == "" {
		opts.HomeDir, _ = os.UserHomeDir()
	}
	return func(ctx context.Context) (string, error) {
		if opts.SnapshotEndpointURL != "" {
			return opts.SnapshotEndpointURL, nil
		}

		configPath := opts.ConfigPath
		if configPath == "" {
			var err error
			if configPath, err = config.DefaultConfigPath(); err != nil {
				return "", err
			}
		}
		cfg, err := config.FromFile(configPath)
		if err != nil {
			return "", err
		}
		if url := config.SnapshotEndpointURL(cfg); url != "" {
			return url, nil
		}

		prompter := opts.Prompter
		if prompter == nil {
			prompter = prompt.New()
		}
		if !prompter.Interactive() {
			return "", maven.ErrMissingEndpoint
		}

		settingsPath := maven.DefaultSettingsPath(opts.HomeDir)
		url, err := maven.DiscoverSnapshotEndpoint(settingsPath)
		if err != nil {
			logger.Warn("Failed to read Maven settings {Path}: {Error}", settingsPath, err)
			return "", maven.ErrMissingEndpoint
		}
		if url == "" {
			return "", maven.ErrMissingEndpoint
		}

		question := fmt.Sprintf("Found Maven snapshot endpoint URL %s in %s. "+
			"Do you want to use it and save it to your UI5 configuration?", url, settingsPath)
		ok, err := prompter.Confirm(ctx, question, true)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", maven.ErrMissingEndpoint
		}

		if err := cfg.Set(config.KeyMavenSnapshotEndpointURL, url); err != nil {
			return "", err
		}
		if err := config.ToFile(configPath, cfg); err != nil {
			return "", err
		}
		logger.Info("Saved Maven snapshot endpoint URL {URL} to {Path}", url, configPath)
		return url, nil
	}
}
