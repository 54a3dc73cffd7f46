package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/SAP/ui5-project-sub000/cmd/ui5fw/output"
	"github.com/SAP/ui5-project-sub000/resolver"
)

// NewResolveVersionCommand creates the resolve-version command.
func NewResolveVersionCommand(console *output.Console, globals *GlobalOptions) *cobra.Command {
	opts := &frameworkOptions{}

	cmd := &cobra.Command{
		Use:   "resolve-version <specifier>",
		Short: "Resolve a framework version specifier",
		Long: `Prints the highest available framework version matching a specifier.

Examples:
  ui5fw resolve-version --framework OpenUI5 1.120
  ui5fw resolve-version --framework SAPUI5 latest
  ui5fw resolve-version --framework SAPUI5 1-SNAPSHOT`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolveVersion(cmd.Context(), console, globals, opts, args[0])
		},
	}

	addFrameworkFlags(cmd, opts)
	return cmd
}

func runResolveVersion(ctx context.Context, console *output.Console, globals *GlobalOptions, opts *frameworkOptions, specifier string) error {
	resolverOpts, err := resolverOptions(console, globals, opts)
	if err != nil {
		return err
	}
	v, err := resolver.ResolveVersion(ctx, specifier, resolverOpts)
	if err != nil {
		return err
	}
	console.Println(v)
	return nil
}
