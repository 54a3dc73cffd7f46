package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SAP/ui5-project-sub000/cmd/ui5fw/cli"
	"github.com/SAP/ui5-project-sub000/cmd/ui5fw/commands"
	"github.com/SAP/ui5-project-sub000/config"
)

// Version information (set via ldflags during build)
var (
	version = "0.0.0-dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date
	cli.SetupVersion()

	// Settings like UI5_DATA_DIR may also come from a .env file in the working directory
	if err := config.LoadEnv(".env"); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cli.AddCommand(commands.NewVersionCommand(cli.Console, cli.GetFullVersion))
	cli.AddCommand(commands.NewConfigCommand(cli.Console, cli.Globals))
	cli.AddCommand(commands.NewInstallCommand(cli.Console, cli.Globals))
	cli.AddCommand(commands.NewVersionsCommand(cli.Console, cli.Globals))
	cli.AddCommand(commands.NewResolveVersionCommand(cli.Console, cli.Globals))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		// SilenceErrors is set on the root command
		cli.Console.Error("%v", err)
		stop()
		os.Exit(1)
	}
}
