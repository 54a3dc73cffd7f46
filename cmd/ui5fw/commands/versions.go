package commands

import (
	"context"
	"errors"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/SAP/ui5-project-sub000/cmd/ui5fw/output"
	"github.com/SAP/ui5-project-sub000/resolver"
	"github.com/SAP/ui5-project-sub000/version"
)

type versionsOptions struct {
	frameworkOptions
	snapshots bool
	json      bool
}

// NewVersionsCommand creates the versions command.
func NewVersionsCommand(console *output.Console, globals *GlobalOptions) *cobra.Command {
	opts := &versionsOptions{}

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List available framework versions",
		Long: `Lists the versions of a framework available in the configured registry, newest first.

Examples:
  ui5fw versions --framework OpenUI5
  ui5fw versions --framework SAPUI5 --snapshots`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersions(cmd.Context(), console, globals, opts)
		},
	}

	addFrameworkFlags(cmd, &opts.frameworkOptions)
	cmd.Flags().BoolVar(&opts.snapshots, "snapshots", false, "List snapshot versions from the Maven repository")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Write versions and tags as JSON")

	return cmd
}

type versionsOutput struct {
	Versions []string          `json:"versions"`
	Tags     map[string]string `json:"tags,omitempty"`
}

func runVersions(ctx context.Context, console *output.Console, globals *GlobalOptions, opts *versionsOptions) error {
	resolverOpts, err := resolverOptions(console, globals, &opts.frameworkOptions)
	if err != nil {
		return err
	}

	channel := ""
	if opts.snapshots {
		channel = version.SnapshotSuffix
	}
	catalog, err := resolver.Catalog(ctx, channel, resolverOpts)
	if err != nil {
		return err
	}

	versions, err := catalog.FetchAllVersions(ctx)
	if err != nil {
		return err
	}
	sorted := sortVersionsDescending(versions)

	tags, err := catalog.FetchAllTags(ctx)
	if err != nil && !errors.Is(err, version.ErrTagsUnsupported) {
		return err
	}

	if opts.json {
		return console.WriteJSON(versionsOutput{Versions: sorted, Tags: tags})
	}
	for tag, v := range tags {
		console.Detail("%s: %s", tag, v)
	}
	for _, v := range sorted {
		console.Println(v)
	}
	return nil
}

// sortVersionsDescending orders semantic versions newest first. Entries that are no
// semantic version are dropped.
func sortVersionsDescending(versions []string) []string {
	parsed := make(semver.Collection, 0, len(versions))
	for _, v := range versions {
		if sv, err := semver.NewVersion(v); err == nil {
			parsed = append(parsed, sv)
		}
	}
	sort.Sort(sort.Reverse(parsed))

	sorted := make([]string, len(parsed))
	for n, sv := range parsed {
		sorted[n] = sv.Original()
	}
	return sorted
}
