// Package cli holds the root command of ui5fw.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/SAP/ui5-project-sub000/cmd/ui5fw/commands"
	"github.com/SAP/ui5-project-sub000/cmd/ui5fw/output"
	"github.com/SAP/ui5-project-sub000/observability"
)

var rootCmd = &cobra.Command{
	Use:   "ui5fw",
	Short: "UI5 framework library installer",
	Long: `ui5fw resolves UI5 framework versions and installs framework libraries
together with their dependencies from npm or a Maven snapshot repository.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		Console.SetVerbosity(output.ParseVerbosity(Globals.LogLevel))
		return startTracing(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return stopTracing(cmd.Context())
	},
}

// Console is the global console for CLI commands
var Console *output.Console

// Globals holds the persistent flags shared by all commands.
var Globals = &commands.GlobalOptions{}

var tracerProvider *sdktrace.TracerProvider

// Execute runs the root command
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if stopErr := stopTracing(ctx); err == nil {
		err = stopErr
	}
	return err
}

func init() {
	Console = output.DefaultConsole()

	rootCmd.PersistentFlags().StringVar(&Globals.ConfigPath, "config", "", "Tool configuration file (default ~/.ui5rc)")
	rootCmd.PersistentFlags().StringVar(&Globals.LogLevel, "log-level", "info", "Log level: silent, error, warn, info, perf, verbose or silly")
	rootCmd.PersistentFlags().StringVar(&Globals.Trace, "trace", "", "Export traces: stdout or otlp (endpoint from OTEL_EXPORTER_OTLP_ENDPOINT)")
}

func startTracing(ctx context.Context) error {
	cfg := observability.DefaultTracerConfig()
	cfg.ServiceVersion = Version
	switch Globals.Trace {
	case "":
		if cfg.ExporterType == "none" {
			return nil
		}
	default:
		cfg.ExporterType = Globals.Trace
	}
	tp, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	tracerProvider = tp
	return nil
}

func stopTracing(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}
	tp := tracerProvider
	tracerProvider = nil
	return observability.ShutdownTracing(context.WithoutCancel(ctx), tp)
}

// SetupVersion configures version information after variables are set
func SetupVersion() {
	rootCmd.SetVersionTemplate(GetFullVersion() + "\n")
	rootCmd.Version = GetVersion()
}

// AddCommand adds a command to the root command
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}
