package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/SAP/ui5-project-sub000/maven"
	"github.com/SAP/ui5-project-sub000/observability"
	"github.com/SAP/ui5-project-sub000/version"
)

const (
	distGroupID    = "com.sap.ui5.dist"
	sourcesSuffix  = "npm-sources"
	prebuiltSuffix = "-prebuilt"
)

// errMissingGAV is returned for library entries without Maven coordinates.
var errMissingGAV = errors.New("Metadata is missing GAV (group, artifact and version) information. " +
	"This might indicate an unsupported SNAPSHOT version.")

// mavenInstaller is the part of *maven.Installer the snapshot backend uses.
type mavenInstaller interface {
	PackageInstaller[maven.PackageRequest]
	FetchVersions(ctx context.Context, coords maven.Coordinates) ([]string, error)
}

// distributionCoordinates returns the snapshot distribution artifact of a framework.
func distributionCoordinates(framework Framework, frameworkVersion string) maven.Coordinates {
	artifact := "sapui5-sdk-dist"
	if framework == OpenUI5 {
		artifact = "openui5-sdk-dist"
	}
	return maven.Coordinates{
		GroupID:    distGroupID,
		ArtifactID: artifact,
		Version:    frameworkVersion,
		Classifier: sourcesSuffix,
		Extension:  "zip",
	}
}

// snapshotSource serves snapshot libraries from a Maven repository.
type snapshotSource struct {
	installer mavenInstaller
	dist      *distributionLoader
	// sources selects the npm-sources zips instead of the prebuilt jars.
	sources bool
	logger  observability.Logger
}

func newSnapshotSource(installer mavenInstaller, framework Framework, frameworkVersion string, sources bool, logger observability.Logger) *snapshotSource {
	s := &snapshotSource{installer: installer, sources: sources, logger: logger}
	distReq := maven.PackageRequest{
		Name:        distMetadataPackage,
		Coordinates: distributionCoordinates(framework, frameworkVersion),
	}
	s.dist = &distributionLoader{
		install: func(ctx context.Context) (string, error) {
			return installer.InstallPackage(ctx, distReq)
		},
	}
	return s
}

func (s *snapshotSource) HandleLibrary(_ context.Context, name string) (Handle, error) {
	return Handle{
		Metadata: func(ctx context.Context) (*LibraryMetadata, error) {
			return s.dist.libraryMetadata(ctx, name)
		},
		Install: func(ctx context.Context) (string, error) {
			lib, err := s.dist.library(ctx, name)
			if err != nil {
				return "", err
			}
			req, err := s.packageRequest(lib)
			if err != nil {
				return "", err
			}
			s.logger.Debug("Installing library {Library} from {Artifact}", name, req.Coordinates.LogID())
			return s.installer.InstallPackage(ctx, req)
		},
	}, nil
}

func (s *snapshotSource) KnownLibrary(ctx context.Context, name string) bool {
	return s.dist.known(ctx, name)
}

// packageRequest maps a library entry to the artifact that provides its package.
func (s *snapshotSource) packageRequest(lib *DistributionLibrary) (maven.PackageRequest, error) {
	if lib.GAV == "" {
		return maven.PackageRequest{}, errMissingGAV
	}
	parts := strings.Split(lib.GAV, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return maven.PackageRequest{}, errMissingGAV
	}

	coords := maven.Coordinates{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}
	name := lib.NpmPackageName
	if s.sources {
		coords.Classifier = sourcesSuffix
		coords.Extension = "zip"
	} else {
		coords.Extension = "jar"
		name += prebuiltSuffix
	}
	return maven.PackageRequest{Name: name, Coordinates: coords}, nil
}

// mavenCatalog lists the versions of a snapshot distribution artifact.
type mavenCatalog struct {
	installer mavenInstaller
	coords    maven.Coordinates
}

func (c *mavenCatalog) FetchAllVersions(ctx context.Context) ([]string, error) {
	return c.installer.FetchVersions(ctx, c.coords)
}

func (c *mavenCatalog) FetchAllTags(context.Context) (map[string]string, error) {
	return nil, version.ErrTagsUnsupported
}
