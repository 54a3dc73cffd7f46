package resolver

import (
	"context"
	"fmt"

	"github.com/SAP/ui5-project-sub000/cache"
	ui5http "github.com/SAP/ui5-project-sub000/http"
	"github.com/SAP/ui5-project-sub000/maven"
	"github.com/SAP/ui5-project-sub000/npm"
	"github.com/SAP/ui5-project-sub000/observability"
	"github.com/SAP/ui5-project-sub000/prompt"
	"github.com/SAP/ui5-project-sub000/version"
)

// Framework names a UI5 distribution.
type Framework string

// Supported frameworks.
const (
	OpenUI5 Framework = "OpenUI5"
	SAPUI5  Framework = "SAPUI5"
)

// ParseFramework validates a framework name.
func ParseFramework(name string) (Framework, error) {
	switch Framework(name) {
	case OpenUI5, SAPUI5:
		return Framework(name), nil
	default:
		return "", fmt.Errorf("unknown framework %q: expected %s or %s", name, OpenUI5, SAPUI5)
	}
}

// MinimumVersion is the oldest release of the framework the tooling can consume.
func (f Framework) MinimumVersion() string {
	if f == SAPUI5 {
		return "1.76.0"
	}
	return "1.52.5"
}

// Backend identifies where libraries come from.
type Backend int

const (
	// BackendNpm installs OpenUI5 libraries from npm.
	BackendNpm Backend = iota
	// BackendDistMetadata installs SAPUI5 libraries from npm via the distribution metadata package.
	BackendDistMetadata
	// BackendMavenSnapshot installs snapshot libraries from a Maven repository.
	BackendMavenSnapshot
)

func (b Backend) String() string {
	switch b {
	case BackendNpm:
		return "npm"
	case BackendDistMetadata:
		return "dist-metadata"
	case BackendMavenSnapshot:
		return "maven-snapshot"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// SelectBackend picks the backend for framework and a version or version specifier.
// Snapshot versions always use the Maven snapshot backend.
func SelectBackend(framework Framework, versionOrSpec string) Backend {
	switch {
	case version.IsSnapshot(versionOrSpec):
		return BackendMavenSnapshot
	case framework == SAPUI5:
		return BackendDistMetadata
	default:
		return BackendNpm
	}
}

// Options configures New and ResolveVersion.
type Options struct {
	Framework Framework
	// Version is the framework version to install. Without it only libraries in
	// ProvidedLibraryMetadata can be resolved.
	Version string
	// Sources installs npm-sources artifacts instead of prebuilt ones (snapshots only).
	Sources bool
	// ProvidedLibraryMetadata bypasses installation for the contained libraries.
	ProvidedLibraryMetadata map[string]*LibraryMetadata

	// Cwd is used to look up the project .npmrc.
	Cwd string
	// DataDir is the tool data directory.
	DataDir   string
	CacheMode cache.Mode

	// SnapshotEndpointURL takes precedence over all configured endpoints.
	SnapshotEndpointURL string
	// ConfigPath is the tool configuration file; it defaults to ~/.ui5rc.
	ConfigPath string
	// HomeDir is used to locate ~/.m2/settings.xml; it defaults to the user home.
	HomeDir  string
	Prompter *prompt.Prompter

	// NpmSource overrides the npm registry client.
	NpmSource npm.Source
	// HTTPClient is used for the Maven repository.
	HTTPClient *ui5http.Client
	Logger     observability.Logger
}

func (o *Options) validate() error {
	if _, err := ParseFramework(string(o.Framework)); err != nil {
		return err
	}
	if o.DataDir == "" {
		return fmt.Errorf("resolver: missing parameter \"DataDir\"")
	}
	return nil
}

// New creates a resolver for opts.Framework in opts.Version using the matching backend.
func New(ctx context.Context, opts Options) (*Resolver, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := observability.OrNull(opts.Logger)

	var source LibrarySource
	switch SelectBackend(opts.Framework, opts.Version) {
	case BackendMavenSnapshot:
		inst, err := newMavenInstaller(opts, logger)
		if err != nil {
			return nil, err
		}
		source = newSnapshotSource(inst, opts.Framework, opts.Version, opts.Sources, logger)
	case BackendDistMetadata:
		inst, err := newNpmInstaller(opts, logger)
		if err != nil {
			return nil, err
		}
		source = newSAPUI5Source(inst, opts.Version, logger)
	default:
		inst, err := newNpmInstaller(opts, logger)
		if err != nil {
			return nil, err
		}
		source = &openui5Source{installer: inst, version: opts.Version, logger: logger}
	}

	logger.Debug("Using {Backend} backend for {Framework} {Version}",
		SelectBackend(opts.Framework, opts.Version).String(), string(opts.Framework), opts.Version)
	return NewWithSource(source, opts.Version, opts.ProvidedLibraryMetadata, logger), nil
}

// Catalog returns the version catalog for framework and specifier.
func Catalog(ctx context.Context, specifier string, opts Options) (VersionCatalog, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := observability.OrNull(opts.Logger)

	switch SelectBackend(opts.Framework, specifier) {
	case BackendMavenSnapshot:
		inst, err := newMavenInstaller(opts, logger)
		if err != nil {
			return nil, err
		}
		coords := distributionCoordinates(opts.Framework, "")
		return &mavenCatalog{installer: inst, coords: coords}, nil
	case BackendDistMetadata:
		inst, err := newNpmInstaller(opts, logger)
		if err != nil {
			return nil, err
		}
		return &npmCatalog{installer: inst, pkgName: distMetadataPackage}, nil
	default:
		inst, err := newNpmInstaller(opts, logger)
		if err != nil {
			return nil, err
		}
		return &npmCatalog{installer: inst, pkgName: openui5CorePackage}, nil
	}
}

// ResolveVersion resolves specifier against the catalog of opts.Framework.
func ResolveVersion(ctx context.Context, specifier string, opts Options) (string, error) {
	catalog, err := Catalog(ctx, specifier, opts)
	if err != nil {
		return "", err
	}
	return version.Resolve(ctx, specifier, catalog, version.Options{
		FrameworkName:  string(opts.Framework),
		MinimumVersion: opts.Framework.MinimumVersion(),
	})
}

func newNpmInstaller(opts Options, logger observability.Logger) (*npm.Installer, error) {
	return npm.NewInstaller(npm.InstallerOptions{
		DataDir: opts.DataDir,
		Cwd:     opts.Cwd,
		Source:  opts.NpmSource,
		Logger:  logger,
	})
}

func newMavenInstaller(opts Options, logger observability.Logger) (*maven.Installer, error) {
	return maven.NewInstaller(maven.InstallerOptions{
		DataDir:      opts.DataDir,
		EndpointFunc: SnapshotEndpoint(opts, logger),
		CacheMode:    opts.CacheMode,
		Client:       opts.HTTPClient,
		Logger:       logger,
	})
}
