package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/SAP/ui5-project-sub000/npm"
	"github.com/SAP/ui5-project-sub000/observability"
)

const (
	// distMetadataPackage lists the libraries of one SAPUI5 version.
	distMetadataPackage = "@sapui5/distribution-metadata"
	distMetadataFile    = "metadata.json"
)

// DistributionMetadata is the content of metadata.json in the distribution metadata package.
type DistributionMetadata struct {
	Libraries map[string]DistributionLibrary `json:"libraries"`
}

// DistributionLibrary is one library entry of DistributionMetadata.
type DistributionLibrary struct {
	NpmPackageName       string   `json:"npmPackageName"`
	Version              string   `json:"version"`
	Dependencies         []string `json:"dependencies"`
	OptionalDependencies []string `json:"optionalDependencies"`
	// GAV is "group:artifact:version" and is only present in snapshot distributions.
	GAV string `json:"gav"`
}

// distributionLoader installs the distribution metadata package once and memoizes
// the parsed metadata, including a failure.
type distributionLoader struct {
	install func(ctx context.Context) (string, error)

	once     sync.Once
	metadata *DistributionMetadata
	err      error
}

func (l *distributionLoader) load(ctx context.Context) (*DistributionMetadata, error) {
	l.once.Do(func() {
		l.metadata, l.err = l.read(ctx)
	})
	return l.metadata, l.err
}

func (l *distributionLoader) read(ctx context.Context) (*DistributionMetadata, error) {
	pkgPath, err := l.install(ctx)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(pkgPath, distMetadataFile))
	if err != nil {
		return nil, fmt.Errorf("read distribution metadata: %w", err)
	}
	var metadata DistributionMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("parse distribution metadata %s: %w", filepath.Join(pkgPath, distMetadataFile), err)
	}
	return &metadata, nil
}

func (l *distributionLoader) library(ctx context.Context, name string) (*DistributionLibrary, error) {
	metadata, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	lib, ok := metadata.Libraries[name]
	if !ok {
		return nil, fmt.Errorf("Could not find library \"%s\"", name)
	}
	return &lib, nil
}

func (l *distributionLoader) known(ctx context.Context, name string) bool {
	metadata, err := l.load(ctx)
	if err != nil {
		return false
	}
	_, ok := metadata.Libraries[name]
	return ok
}

func (l *distributionLoader) libraryMetadata(ctx context.Context, name string) (*LibraryMetadata, error) {
	lib, err := l.library(ctx, name)
	if err != nil {
		return nil, err
	}
	return &LibraryMetadata{
		ID:                   name,
		Version:              lib.Version,
		Dependencies:         lib.Dependencies,
		OptionalDependencies: lib.OptionalDependencies,
	}, nil
}

// sapui5Source serves SAPUI5 libraries from npm, using the distribution metadata
// package to map library names to npm packages.
type sapui5Source struct {
	installer npmInstaller
	dist      *distributionLoader
	logger    observability.Logger
}

func newSAPUI5Source(installer npmInstaller, frameworkVersion string, logger observability.Logger) *sapui5Source {
	s := &sapui5Source{installer: installer, logger: logger}
	s.dist = &distributionLoader{
		install: func(ctx context.Context) (string, error) {
			return installer.InstallPackage(ctx, npm.Package{Name: distMetadataPackage, Version: frameworkVersion})
		},
	}
	return s
}

func (s *sapui5Source) HandleLibrary(_ context.Context, name string) (Handle, error) {
	return Handle{
		Metadata: func(ctx context.Context) (*LibraryMetadata, error) {
			return s.dist.libraryMetadata(ctx, name)
		},
		Install: func(ctx context.Context) (string, error) {
			lib, err := s.dist.library(ctx, name)
			if err != nil {
				return "", err
			}
			s.logger.Debug("Installing library {Library} from {Package}", name, lib.NpmPackageName)
			return s.installer.InstallPackage(ctx, npm.Package{Name: lib.NpmPackageName, Version: lib.Version})
		},
	}, nil
}

func (s *sapui5Source) KnownLibrary(ctx context.Context, name string) bool {
	return s.dist.known(ctx, name)
}
