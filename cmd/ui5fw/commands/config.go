package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SAP/ui5-project-sub000/cmd/ui5fw/output"
	"github.com/SAP/ui5-project-sub000/config"
)

// NewConfigCommand creates the config command with get/set/list subcommands.
func NewConfigCommand(console *output.Console, globals *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the UI5 tool configuration",
		Long: `Gets, sets or lists values of the UI5 tool configuration (~/.ui5rc).

Supported keys: mavenSnapshotEndpointUrl, ui5DataDir

Examples:
  ui5fw config set mavenSnapshotEndpointUrl https://repo.example.com/snapshots/
  ui5fw config get ui5DataDir
  ui5fw config set ui5DataDir
  ui5fw config list`,
	}

	cmd.AddCommand(newConfigGetCommand(console, globals))
	cmd.AddCommand(newConfigSetCommand(console, globals))
	cmd.AddCommand(newConfigListCommand(console, globals))

	return cmd
}

func newConfigGetCommand(console *output.Console, globals *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(console, globals, args[0])
		},
	}
}

func runConfigGet(console *output.Console, globals *GlobalOptions, key string) error {
	cfg, _, err := loadConfig(globals)
	if err != nil {
		return err
	}
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}
	console.Println(value)
	return nil
}

func newConfigSetCommand(console *output.Console, globals *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> [<value>]",
		Short: "Set a configuration value; omit the value to unset it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 2 {
				value = args[1]
			}
			return runConfigSet(console, globals, args[0], value)
		},
	}
}

func runConfigSet(console *output.Console, globals *GlobalOptions, key, value string) error {
	cfg, configPath, err := loadConfig(globals)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := config.ToFile(configPath, cfg); err != nil {
		return err
	}

	if value == "" {
		console.Success("Configuration option %s has been unset", key)
	} else {
		console.Success("Configuration option %s has been updated:\n  %s = %s", key, key, value)
	}
	return nil
}

func newConfigListCommand(console *output.Console, globals *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(console, globals)
		},
	}
}

func runConfigList(console *output.Console, globals *GlobalOptions) error {
	cfg, configPath, err := loadConfig(globals)
	if err != nil {
		return err
	}
	console.Detail("Configuration file: %s", configPath)
	for _, key := range config.Keys() {
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if value == "" {
			value = "(not set)"
		}
		console.Printf("%s = %s\n", key, value)
	}
	return nil
}

func loadConfig(globals *GlobalOptions) (*config.Config, string, error) {
	configPath, err := globals.configPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.FromFile(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, configPath, nil
}
