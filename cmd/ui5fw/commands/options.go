// Package commands implements the ui5fw subcommands.
package commands

import (
	"fmt"
	"os"

	"github.com/SAP/ui5-project-sub000/cache"
	"github.com/SAP/ui5-project-sub000/cmd/ui5fw/output"
	"github.com/SAP/ui5-project-sub000/config"
	"github.com/SAP/ui5-project-sub000/observability"
	"github.com/SAP/ui5-project-sub000/resolver"
)

// GlobalOptions are the persistent flags of the root command.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	Trace      string
}

func (g *GlobalOptions) configPath() (string, error) {
	if g.ConfigPath != "" {
		return g.ConfigPath, nil
	}
	return config.DefaultConfigPath()
}

// frameworkOptions are the flags shared by commands that talk to a framework backend.
type frameworkOptions struct {
	framework string
	cacheMode string
}

// resolverOptions builds the backend options from flags, the configuration file and
// the environment.
func resolverOptions(console *output.Console, globals *GlobalOptions, opts *frameworkOptions) (resolver.Options, error) {
	framework, err := resolver.ParseFramework(opts.framework)
	if err != nil {
		return resolver.Options{}, err
	}

	configPath, err := globals.configPath()
	if err != nil {
		return resolver.Options{}, err
	}
	cfg, err := config.FromFile(configPath)
	if err != nil {
		return resolver.Options{}, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return resolver.Options{}, fmt.Errorf("determine working directory: %w", err)
	}
	dataDir, err := config.DataDir(cfg, cwd)
	if err != nil {
		return resolver.Options{}, err
	}

	mode, err := config.CacheMode()
	if err != nil {
		return resolver.Options{}, err
	}
	if opts.cacheMode != "" {
		if mode, err = cache.ParseMode(opts.cacheMode); err != nil {
			return resolver.Options{}, err
		}
	}

	logger := observability.NewLogger(console.ErrWriter(), observability.ParseLogLevel(globals.LogLevel))
	console.Debug("Using data directory %s (cache mode %s)", dataDir, mode)

	return resolver.Options{
		Framework:  framework,
		Cwd:        cwd,
		DataDir:    dataDir,
		CacheMode:  mode,
		ConfigPath: configPath,
		Logger:     logger,
	}, nil
}
