package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SAP/ui5-project-sub000/cmd/ui5fw/output"
	"github.com/SAP/ui5-project-sub000/resolver"
)

type installOptions struct {
	frameworkOptions
	version string
	sources bool
	json    bool
}

// NewInstallCommand creates the install command.
func NewInstallCommand(console *output.Console, globals *GlobalOptions) *cobra.Command {
	opts := &installOptions{}

	cmd := &cobra.Command{
		Use:   "install <library>...",
		Short: "Install framework libraries and their dependencies",
		Long: `Installs the given framework libraries together with all their dependencies
into the UI5 data directory.

The version may be an exact version, a range like "1.120", a tag like "latest" or,
for SAPUI5, a snapshot version like "1.120.0-SNAPSHOT" or "1-SNAPSHOT".

Examples:
  ui5fw install --framework OpenUI5 --version 1.120.0 sap.m sap.ui.table
  ui5fw install --framework SAPUI5 --version latest sap.ushell
  ui5fw install --framework SAPUI5 --version 1.121-SNAPSHOT --sources sap.m`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), console, globals, opts, args)
		},
	}

	addFrameworkFlags(cmd, &opts.frameworkOptions)
	cmd.Flags().StringVar(&opts.version, "version", "", "Framework version or version range")
	cmd.Flags().BoolVar(&opts.sources, "sources", false, "Install npm-sources instead of prebuilt artifacts (snapshots only)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Write the installed library metadata as JSON")
	_ = cmd.MarkFlagRequired("version")

	return cmd
}

func addFrameworkFlags(cmd *cobra.Command, opts *frameworkOptions) {
	cmd.Flags().StringVar(&opts.framework, "framework", string(resolver.OpenUI5), "Framework name: OpenUI5 or SAPUI5")
	cmd.Flags().StringVar(&opts.cacheMode, "cache-mode", "", "Snapshot metadata cache mode: Default, Force or Off")
}

func runInstall(ctx context.Context, console *output.Console, globals *GlobalOptions, opts *installOptions, libraries []string) error {
	resolverOpts, err := resolverOptions(console, globals, &opts.frameworkOptions)
	if err != nil {
		return err
	}
	resolverOpts.Sources = opts.sources

	frameworkVersion, err := resolver.ResolveVersion(ctx, opts.version, resolverOpts)
	if err != nil {
		return err
	}
	resolverOpts.Version = frameworkVersion
	console.Detail("Resolved %s version %s to %s", resolverOpts.Framework, opts.version, frameworkVersion)

	r, err := resolver.New(ctx, resolverOpts)
	if err != nil {
		return err
	}
	result, err := r.Install(ctx, libraries)
	if err != nil {
		return err
	}

	if opts.json {
		return console.WriteJSON(result)
	}

	console.Header("%s %s", resolverOpts.Framework, frameworkVersion)
	for _, name := range result.Names() {
		lib := result.LibraryMetadata[name]
		console.Printf("  %s %s\n", name, lib.Version)
		console.Detail("    %s", lib.Path)
	}
	console.Success("Installed %s", pluralize(len(result.LibraryMetadata), "library", "libraries"))
	return nil
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
