package commands

import (
	"github.com/spf13/cobra"

	"github.com/SAP/ui5-project-sub000/cmd/ui5fw/output"
)

// NewVersionCommand creates the version command. fullVersion supplies the text to print.
func NewVersionCommand(console *output.Console, fullVersion func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			console.Println(fullVersion())
			return nil
		},
	}
}
