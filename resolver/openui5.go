package resolver

import (
	"context"
	"slices"
	"strings"

	"github.com/SAP/ui5-project-sub000/npm"
	"github.com/SAP/ui5-project-sub000/observability"
)

const (
	openui5Scope = "@openui5/"
	// openui5CorePackage carries the version list of the OpenUI5 framework.
	openui5CorePackage = openui5Scope + "sap.ui.core"
)

// npmInstaller is the part of *npm.Installer the npm backends use.
type npmInstaller interface {
	PackageInstaller[npm.Package]
	FetchPackageManifest(ctx context.Context, pkg npm.Package) (*npm.Manifest, error)
	FetchPackageVersions(ctx context.Context, name string) ([]string, error)
	FetchPackageDistTags(ctx context.Context, name string) (map[string]string, error)
}

// openui5Source serves OpenUI5 libraries, each published as npm package @openui5/<lib>.
type openui5Source struct {
	installer npmInstaller
	version   string
	logger    observability.Logger
}

func (s *openui5Source) HandleLibrary(_ context.Context, name string) (Handle, error) {
	pkg := npm.Package{Name: openui5Scope + name, Version: s.version}
	return Handle{
		Metadata: func(ctx context.Context) (*LibraryMetadata, error) {
			manifest, err := s.installer.FetchPackageManifest(ctx, pkg)
			if err != nil {
				return nil, err
			}
			return &LibraryMetadata{
				ID:                   name,
				Version:              manifest.Version,
				Dependencies:         scopedLibraries(manifest.Dependencies),
				OptionalDependencies: scopedLibraries(manifest.DevDependencies),
			}, nil
		},
		Install: func(ctx context.Context) (string, error) {
			return s.installer.InstallPackage(ctx, pkg)
		},
	}, nil
}

// KnownLibrary reports whether @openui5/<name> is published in the framework version.
// Lookup failures count as unknown.
func (s *openui5Source) KnownLibrary(ctx context.Context, name string) bool {
	versions, err := s.installer.FetchPackageVersions(ctx, openui5Scope+name)
	if err != nil {
		s.logger.Debug("Could not look up library {Library}: {Error}", name, err)
		return false
	}
	return slices.Contains(versions, s.version)
}

// scopedLibraries returns the library names of the @openui5 packages in deps.
func scopedLibraries(deps map[string]string) []string {
	libs := make([]string, 0, len(deps))
	for dep := range deps {
		if lib, ok := strings.CutPrefix(dep, openui5Scope); ok {
			libs = append(libs, lib)
		}
	}
	slices.Sort(libs)
	return libs
}

// npmCatalog lists the versions of the npm package that tracks a framework's releases.
type npmCatalog struct {
	installer npmInstaller
	pkgName   string
}

func (c *npmCatalog) FetchAllVersions(ctx context.Context) ([]string, error) {
	return c.installer.FetchPackageVersions(ctx, c.pkgName)
}

func (c *npmCatalog) FetchAllTags(ctx context.Context) (map[string]string, error) {
	return c.installer.FetchPackageDistTags(ctx, c.pkgName)
}
