package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/SAP/ui5-project-sub000/observability"
	"github.com/SAP/ui5-project-sub000/packaging"
)

const backendName = "npm"

// Package identifies one version of an npm package.
type Package struct {
	Name    string
	Version string
}

func (p Package) String() string { return p.Name + "@" + p.Version }

// InstallerOptions configures an Installer.
type InstallerOptions struct {
	// DataDir is the tool data directory; framework files live below DataDir/framework.
	DataDir string
	// Cwd is used to look up the project .npmrc when Source is nil.
	Cwd    string
	Source Source
	Lock   packaging.LockOptions
	Logger observability.Logger
}

// Installer installs npm packages into the framework package directory.
type Installer struct {
	base        *packaging.Base
	source      Source
	packagesDir string
	stagingDir  string
	logger      observability.Logger
}

// NewInstaller creates an installer rooted at opts.DataDir.
func NewInstaller(opts InstallerOptions) (*Installer, error) {
	if opts.DataDir == "" {
		return nil, errors.New("installer: missing parameter \"DataDir\"")
	}
	logger := observability.OrNull(opts.Logger)

	source := opts.Source
	if source == nil {
		home, _ := os.UserHomeDir()
		reg, err := NewRegistry(RegistryOptions{Cwd: opts.Cwd, HomeDir: home, Logger: logger})
		if err != nil {
			return nil, err
		}
		source = reg
	}

	frameworkDir := filepath.Join(opts.DataDir, "framework")
	base := packaging.NewBase(filepath.Join(frameworkDir, "locks"))
	base.Lock = opts.Lock

	return &Installer{
		base:        base,
		source:      source,
		packagesDir: filepath.Join(frameworkDir, "packages"),
		stagingDir:  filepath.Join(frameworkDir, "staging"),
		logger:      logger,
	}, nil
}

// TargetDir returns the install directory of pkg.
func (i *Installer) TargetDir(pkg Package) string {
	parts := append(strings.Split(pkg.Name, "/"), pkg.Version)
	return filepath.Join(append([]string{i.packagesDir}, parts...)...)
}

func (i *Installer) stagingPath(pkg Package) string {
	return filepath.Join(i.stagingDir, strings.ReplaceAll(pkg.Name, "/", "-")+"@"+pkg.Version)
}

// IsInstalled reports whether pkg has been fully installed.
func (i *Installer) IsInstalled(pkg Package) (bool, error) {
	return packaging.PathExists(filepath.Join(i.TargetDir(pkg), "package.json"))
}

// InstallPackage installs pkg unless it is already present and returns its directory.
// Concurrent calls for the same package, in this or another process, install it once.
func (i *Installer) InstallPackage(ctx context.Context, pkg Package) (_ string, err error) {
	ctx, span := observability.StartPackageInstallSpan(ctx, backendName, pkg.Name, pkg.Version)
	defer func() { observability.EndSpanWithError(span, err) }()

	target := i.TargetDir(pkg)
	installed, err := i.IsInstalled(pkg)
	if err != nil {
		return "", err
	}
	if installed {
		i.logger.Verbose("Already installed: {Package} in version {Version}", pkg.Name, pkg.Version)
		observability.PackageInstallsTotal.WithLabelValues(backendName, "cached").Inc()
		return target, nil
	}

	err = i.base.Synchronize(ctx, "package-"+pkg.String(), func() error {
		// Another process may have finished the install while we waited for the lock
		installed, err := i.IsInstalled(pkg)
		if err != nil {
			return err
		}
		if installed {
			i.logger.Verbose("Package {Package} in version {Version} has been installed meanwhile", pkg.Name, pkg.Version)
			observability.PackageInstallsTotal.WithLabelValues(backendName, "cached").Inc()
			return nil
		}

		i.logger.Info("Installing {Package} in version {Version}", pkg.Name, pkg.Version)
		staging := i.stagingPath(pkg)
		if err := packaging.RemoveStale(staging, target); err != nil {
			return err
		}
		if err := i.source.Extract(ctx, pkg.Name, pkg.Version, staging); err != nil {
			return err
		}
		if err := packaging.Promote(staging, target); err != nil {
			return err
		}
		observability.PackageInstallsTotal.WithLabelValues(backendName, "installed").Inc()
		return nil
	})
	if err != nil {
		observability.PackageInstallsTotal.WithLabelValues(backendName, "failure").Inc()
		return "", fmt.Errorf("install %s: %w", pkg, err)
	}
	return target, nil
}

// FetchPackageVersions lists all published versions of name.
func (i *Installer) FetchPackageVersions(ctx context.Context, name string) ([]string, error) {
	p, err := i.source.Packument(ctx, name)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(p.Versions))
	for v := range p.Versions {
		versions = append(versions, v)
	}
	return versions, nil
}

// FetchPackageDistTags returns the distribution tags of name.
func (i *Installer) FetchPackageDistTags(ctx context.Context, name string) (map[string]string, error) {
	p, err := i.source.Packument(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.DistTags, nil
}

// FetchPackageManifest returns the manifest of pkg, reading the installed
// package.json when available.
func (i *Installer) FetchPackageManifest(ctx context.Context, pkg Package) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(i.TargetDir(pkg), "package.json"))
	switch {
	case err == nil:
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse package.json of %s: %w", pkg, err)
		}
		return &m, nil
	case errors.Is(err, fs.ErrNotExist):
		return i.source.Manifest(ctx, pkg.Name, pkg.Version)
	default:
		return nil, err
	}
}
