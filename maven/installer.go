package maven

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/SAP/ui5-project-sub000/cache"
	ui5http "github.com/SAP/ui5-project-sub000/http"
	"github.com/SAP/ui5-project-sub000/observability"
	"github.com/SAP/ui5-project-sub000/packaging"
)

const backendName = "maven"

// EndpointFunc supplies the repository URL. It is called on first use, so resolving
// the endpoint (which may prompt the user) only happens when the repository is needed.
type EndpointFunc func(ctx context.Context) (string, error)

// StaticEndpoint returns an EndpointFunc for a fixed URL.
func StaticEndpoint(url string) EndpointFunc {
	return func(context.Context) (string, error) { return url, nil }
}

// InstallerOptions configures an Installer.
type InstallerOptions struct {
	// DataDir is the tool data directory; framework files live below DataDir/framework.
	DataDir      string
	EndpointFunc EndpointFunc
	// CacheMode is the default metadata cache mode; cache.WithMode overrides it per call.
	CacheMode cache.Mode
	Client    *ui5http.Client
	Lock      packaging.LockOptions
	Logger    observability.Logger

	// Now overrides the clock used for metadata expiry.
	Now func() time.Time
}

// PackageRequest names the package an artifact provides.
type PackageRequest struct {
	Name        string
	Coordinates Coordinates
}

func (r PackageRequest) String() string { return r.Name + " (" + r.Coordinates.LogID() + ")" }

// Installer installs artifacts from a Maven snapshot repository.
type Installer struct {
	base         *packaging.Base
	metadata     *cache.DocumentStore
	artifactsDir string
	packagesDir  string
	stagingDir   string
	endpointFunc EndpointFunc
	cacheMode    cache.Mode
	client       *ui5http.Client
	logger       observability.Logger
	now          func() time.Time

	mu       sync.Mutex
	registry *Registry
}

// NewInstaller creates an installer rooted at opts.DataDir.
func NewInstaller(opts InstallerOptions) (*Installer, error) {
	if opts.DataDir == "" {
		return nil, errors.New("installer: missing parameter \"DataDir\"")
	}
	if opts.EndpointFunc == nil {
		return nil, errors.New("installer: missing parameter \"EndpointFunc\"")
	}

	frameworkDir := filepath.Join(opts.DataDir, "framework")
	base := packaging.NewBase(filepath.Join(frameworkDir, "locks"))
	base.Lock = opts.Lock

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Installer{
		base:         base,
		metadata:     cache.NewDocumentStore(filepath.Join(frameworkDir, "metadata")),
		artifactsDir: filepath.Join(frameworkDir, "artifacts"),
		packagesDir:  filepath.Join(frameworkDir, "packages"),
		stagingDir:   filepath.Join(frameworkDir, "staging"),
		endpointFunc: opts.EndpointFunc,
		cacheMode:    opts.CacheMode,
		client:       opts.Client,
		logger:       observability.OrNull(opts.Logger),
		now:          now,
	}, nil
}

// Registry returns the repository client, resolving the endpoint on first use.
// A failed resolution is retried on the next call.
func (i *Installer) Registry(ctx context.Context) (*Registry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.registry != nil {
		return i.registry, nil
	}
	endpoint, err := i.endpointFunc(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(endpoint, i.client, i.logger)
	if err != nil {
		return nil, err
	}
	i.registry = reg
	return reg, nil
}

func (i *Installer) mode(ctx context.Context) cache.Mode {
	if m, ok := cache.ModeFromContext(ctx); ok {
		return m
	}
	return i.cacheMode
}

// ArtifactPath returns where the deployment of coords with the given revision is stored.
func (i *Installer) ArtifactPath(coords Coordinates, revision string) string {
	return filepath.Join(i.artifactsDir, coords.FsID(), revision+"."+coords.Extension)
}

// PackageDir returns the install directory of package name at the given revision.
func (i *Installer) PackageDir(name, revision string) string {
	parts := append(strings.Split(name, "/"), revision)
	return filepath.Join(append([]string{i.packagesDir}, parts...)...)
}

// FetchVersions lists the versions of the artifact named by coords, ignoring its version.
func (i *Installer) FetchVersions(ctx context.Context, coords Coordinates) ([]string, error) {
	reg, err := i.Registry(ctx)
	if err != nil {
		return nil, err
	}
	coords.Version = ""
	metadata, err := reg.RequestMetadata(ctx, coords)
	if err != nil {
		return nil, err
	}
	return metadata.Versioning.Versions, nil
}

// FetchArtifactMetadata returns the current revision of coords, honoring the cache
// mode. Metadata younger than MetadataCacheTime is used without asking the
// repository. When the revision changes, superseded revisions beyond
// MaxStaleRevisions are evicted together with their artifact files and, when pkgName
// is given, their package directories.
func (i *Installer) FetchArtifactMetadata(ctx context.Context, coords Coordinates, pkgName string) (_ *LocalMetadata, err error) {
	mode := i.mode(ctx)
	ctx, span := observability.StartArtifactMetadataSpan(ctx, coords.LogID(), mode.String())
	defer func() { observability.EndSpanWithError(span, err) }()

	fsID := coords.FsID()
	if mode != cache.Force {
		// Resolving the endpoint may prompt the user and must not happen under the lock
		cached := &LocalMetadata{}
		if _, err := i.metadata.Read(fsID, cached); err != nil {
			return nil, err
		}
		if mode == cache.Off || !cached.Fresh(i.now().UnixMilli()) {
			if _, err := i.Registry(ctx); err != nil {
				return nil, err
			}
		}
	}

	return packaging.Synchronized(ctx, i.base, "metadata-"+fsID, func() (*LocalMetadata, error) {
		local := &LocalMetadata{}
		if _, err := i.metadata.Read(fsID, local); err != nil {
			return nil, err
		}

		if mode == cache.Force {
			if local.Revision == "" {
				return nil, &NotCachedError{LogID: coords.LogID()}
			}
			i.recordCacheResult(ctx, "forced")
			return local, nil
		}

		now := i.now().UnixMilli()
		if mode == cache.Default && local.Fresh(now) {
			i.recordCacheResult(ctx, "hit")
			return local, nil
		}
		i.recordCacheResult(ctx, "miss")

		revision, lastUpdate, err := i.remoteRevision(ctx, coords)
		if err != nil {
			return nil, err
		}

		if revision != local.Revision {
			i.logger.Debug("New revision {Revision} for {Artifact}", revision, coords.LogID())
			evicted := local.rotate(revision, lastUpdate)
			if err := i.removeRevisions(coords, pkgName, evicted); err != nil {
				return nil, err
			}
		}
		if now > local.LastCheck {
			local.LastCheck = now
		}

		if err := i.metadata.Write(fsID, local); err != nil {
			return nil, err
		}
		return local, nil
	})
}

func (i *Installer) recordCacheResult(ctx context.Context, result string) {
	observability.MetadataCacheTotal.WithLabelValues(result).Inc()
	observability.RecordCacheResult(ctx, result)
}

func (i *Installer) remoteRevision(ctx context.Context, coords Coordinates) (revision string, lastUpdate int64, err error) {
	reg, err := i.Registry(ctx)
	if err != nil {
		return "", 0, err
	}
	metadata, err := reg.RequestMetadata(ctx, coords)
	if err != nil {
		return "", 0, err
	}

	for _, sv := range metadata.Versioning.SnapshotVersions {
		if sv.Classifier != coords.Classifier || sv.Extension != coords.Extension {
			continue
		}
		lastUpdate, err := parseUpdated(sv.Updated)
		if err != nil {
			i.logger.Warn("Ignoring deployment time of {Artifact}: {Error}", coords.LogID(), err)
		}
		return sv.Value, lastUpdate, nil
	}
	return "", 0, fmt.Errorf("Could not find %s in Maven metadata of %s", coords.LogID(), reg.MetadataURL(coords))
}

func (i *Installer) removeRevisions(coords Coordinates, pkgName string, revisions []string) error {
	for _, revision := range revisions {
		i.logger.Verbose("Removing stale revision {Revision} of {Artifact}", revision, coords.LogID())
		paths := []string{i.ArtifactPath(coords, revision)}
		if pkgName != "" {
			paths = append(paths, i.PackageDir(pkgName, revision))
		}
		if err := packaging.RemoveStale(paths...); err != nil {
			return err
		}
		observability.StaleRevisionsEvicted.Inc()
	}
	return nil
}

// IsInstalled reports whether the package of the cached revision of req is installed.
// It never contacts the repository; without cached metadata the package counts as
// not installed.
func (i *Installer) IsInstalled(req PackageRequest) (bool, error) {
	local := &LocalMetadata{}
	found, err := i.metadata.Read(req.Coordinates.FsID(), local)
	if err != nil || !found || local.Revision == "" {
		return false, err
	}
	return packaging.PathExists(filepath.Join(i.PackageDir(req.Name, local.Revision), "package.json"))
}

// InstallArtifact downloads the current revision of coords unless present and
// returns the local artifact path.
func (i *Installer) InstallArtifact(ctx context.Context, coords Coordinates) (string, error) {
	metadata, err := i.FetchArtifactMetadata(ctx, coords, "")
	if err != nil {
		return "", err
	}
	return i.installRevision(ctx, coords, metadata.Revision)
}

func (i *Installer) installRevision(ctx context.Context, coords Coordinates, revision string) (string, error) {
	target := i.ArtifactPath(coords, revision)
	if exists, err := packaging.PathExists(target); err != nil || exists {
		return target, err
	}

	fsID := coords.FsID()
	err := i.base.Synchronize(ctx, "artifact-"+fsID+"-"+revision, func() error {
		if exists, err := packaging.PathExists(target); err != nil || exists {
			return err
		}

		reg, err := i.Registry(ctx)
		if err != nil {
			return err
		}
		i.logger.Info("Downloading {Artifact} revision {Revision}", coords.LogID(), revision)
		staging := filepath.Join(i.stagingDir, fsID+"-"+revision+"."+coords.Extension)
		if err := packaging.RemoveStale(staging); err != nil {
			return err
		}
		if err := reg.RequestArtifact(ctx, coords, revision, staging); err != nil {
			return err
		}
		return packaging.Promote(staging, target)
	})
	if err != nil {
		return "", fmt.Errorf("install artifact %s: %w", coords.LogID(), err)
	}
	return target, nil
}

// InstallPackage installs the package contained in the current revision of the
// requested artifact and returns its directory. Jar artifacts contribute their
// META-INF directory only.
func (i *Installer) InstallPackage(ctx context.Context, req PackageRequest) (_ string, err error) {
	coords := req.Coordinates
	ctx, span := observability.StartPackageInstallSpan(ctx, backendName, req.Name, coords.Version)
	defer func() { observability.EndSpanWithError(span, err) }()

	metadata, err := i.FetchArtifactMetadata(ctx, coords, req.Name)
	if err != nil {
		return "", err
	}
	revision := metadata.Revision
	target := i.PackageDir(req.Name, revision)
	manifest := filepath.Join(target, "package.json")

	installed, err := packaging.PathExists(manifest)
	if err != nil {
		return "", err
	}
	if installed {
		i.logger.Verbose("Already installed: {Package} in revision {Revision}", req.Name, revision)
		observability.PackageInstallsTotal.WithLabelValues(backendName, "cached").Inc()
		return target, nil
	}

	err = i.base.Synchronize(ctx, "package-"+req.Name+"@"+revision, func() error {
		installed, err := packaging.PathExists(manifest)
		if err != nil || installed {
			return err
		}

		artifactPath, err := i.installRevision(ctx, coords, revision)
		if err != nil {
			return err
		}

		i.logger.Info("Installing {Package} in revision {Revision}", req.Name, revision)
		staging := filepath.Join(i.stagingDir, strings.ReplaceAll(req.Name, "/", "-")+"@"+revision)
		if err := packaging.RemoveStale(staging, target); err != nil {
			return err
		}
		subtree := ""
		if coords.Extension == "jar" {
			subtree = "META-INF/"
		}
		if err := packaging.ExtractZip(artifactPath, staging, subtree); err != nil {
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
		return "", fmt.Errorf("install %s: %w", req.Name, err)
	}
	return target, nil
}
