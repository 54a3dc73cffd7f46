// Package resolver walks the dependency graph of framework libraries and installs
// every library of the closure through a backend specific LibrarySource.
package resolver

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/SAP/ui5-project-sub000/observability"
	"github.com/SAP/ui5-project-sub000/version"
)

// LibraryMetadata describes one framework library.
type LibraryMetadata struct {
	ID                   string   `json:"id"`
	Version              string   `json:"version"`
	Path                 string   `json:"path"`
	Dependencies         []string `json:"dependencies"`
	OptionalDependencies []string `json:"optionalDependencies"`
}

// InstallResult maps each installed library name to its metadata.
type InstallResult struct {
	LibraryMetadata map[string]*LibraryMetadata `json:"libraryMetadata"`
}

// Handle gives access to one library of a backend. Metadata and Install are
// independent and may run concurrently.
type Handle struct {
	Metadata func(ctx context.Context) (*LibraryMetadata, error)
	// Install returns the directory the library package was installed to.
	Install func(ctx context.Context) (string, error)
}

// LibrarySource is the per-backend capability the walk depends on.
type LibrarySource interface {
	HandleLibrary(ctx context.Context, name string) (Handle, error)
	// KnownLibrary reports whether name exists in the backend; optional dependencies
	// on unknown libraries are skipped.
	KnownLibrary(ctx context.Context, name string) bool
}

// VersionCatalog lists the framework versions a backend can install.
type VersionCatalog = version.Catalog

// PackageInstaller installs packages of one backend.
type PackageInstaller[P fmt.Stringer] interface {
	InstallPackage(ctx context.Context, pkg P) (string, error)
	IsInstalled(pkg P) (bool, error)
}

// Resolver installs framework libraries of one version together with their dependencies.
type Resolver struct {
	source   LibrarySource
	version  string
	provided map[string]*LibraryMetadata
	logger   observability.Logger
}

// NewWithSource creates a resolver on top of an arbitrary library source. Libraries
// in provided are not installed; their metadata is used as is.
func NewWithSource(source LibrarySource, frameworkVersion string, provided map[string]*LibraryMetadata, logger observability.Logger) *Resolver {
	return &Resolver{
		source:   source,
		version:  frameworkVersion,
		provided: provided,
		logger:   observability.OrNull(logger),
	}
}

// Version returns the framework version the resolver installs.
func (r *Resolver) Version() string { return r.version }

type entryState int

const (
	entryPending entryState = iota
	entryDone
)

type entry struct {
	state    entryState
	metadata *LibraryMetadata
}

// walk is the state of one Install call.
type walk struct {
	r *Resolver

	mu      sync.Mutex
	entries map[string]*entry
	errs    []error
	seen    map[string]struct{}
}

// Install installs the named libraries and everything they depend on. Each library
// is processed once per call even when reached on several paths. Failures do not
// stop the walk: a single failure is returned as *LibraryError, several as
// *ResolutionError.
func (r *Resolver) Install(ctx context.Context, names []string) (*InstallResult, error) {
	w := &walk{
		r:       r,
		entries: make(map[string]*entry),
		seen:    make(map[string]struct{}),
	}
	w.processAll(ctx, names)

	switch len(w.errs) {
	case 0:
	case 1:
		return nil, w.errs[0]
	default:
		return nil, &ResolutionError{Errors: w.errs}
	}

	result := &InstallResult{LibraryMetadata: make(map[string]*LibraryMetadata, len(w.entries))}
	for name, e := range w.entries {
		if e.state == entryDone {
			result.LibraryMetadata[name] = e.metadata
		}
	}
	return result, nil
}

func (w *walk) processAll(ctx context.Context, names []string) {
	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			w.process(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
}

// claim registers name as pending. It returns false when name was already seen.
func (w *walk) claim(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entries[name]; ok {
		return false
	}
	w.entries[name] = &entry{state: entryPending}
	return true
}

func (w *walk) complete(name string, metadata *LibraryMetadata) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[name] = &entry{state: entryDone, metadata: metadata}
}

func (w *walk) fail(name string, err error) {
	libErr := &LibraryError{Library: name, Err: err}
	msg := libErr.Error()

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, dup := w.seen[msg]; dup {
		return
	}
	w.seen[msg] = struct{}{}
	w.errs = append(w.errs, libErr)
}

func (w *walk) process(ctx context.Context, name string) {
	if !w.claim(name) {
		return
	}

	ctx, span := observability.StartLibrarySpan(ctx, name)
	metadata, err := w.resolve(ctx, name)
	observability.EndSpanWithError(span, err)

	if err != nil {
		w.r.logger.Debug("Failed to resolve library {Library}: {Error}", name, err)
		observability.LibrariesResolvedTotal.WithLabelValues("failure").Inc()
		w.fail(name, err)
		return
	}
	observability.LibrariesResolvedTotal.WithLabelValues("success").Inc()
	w.complete(name, metadata)
}

func (w *walk) resolve(ctx context.Context, name string) (*LibraryMetadata, error) {
	if provided, ok := w.r.provided[name]; ok {
		w.r.logger.Verbose("Using provided metadata for library {Library}", name)
		metadata := *provided
		w.processDependencies(ctx, &metadata)
		return &metadata, nil
	}

	if w.r.version == "" {
		return nil, fmt.Errorf("Unable to install library %s. No framework version provided.", name)
	}
	if w.r.source == nil {
		return nil, fmt.Errorf("Unable to install library %s. No framework backend configured.", name)
	}

	handle, err := w.r.source.HandleLibrary(ctx, name)
	if err != nil {
		return nil, err
	}

	var (
		g        errgroup.Group
		metadata *LibraryMetadata
		path     string
	)
	g.Go(func() error {
		var err error
		if metadata, err = handle.Metadata(ctx); err != nil {
			return err
		}
		w.processDependencies(ctx, metadata)
		return nil
	})
	g.Go(func() error {
		var err error
		path, err = handle.Install(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolved := *metadata
	resolved.Path = path
	return &resolved, nil
}

// processDependencies processes all dependencies of metadata and those optional
// dependencies the backend knows. It returns once all of them are processed.
func (w *walk) processDependencies(ctx context.Context, metadata *LibraryMetadata) {
	deps := slices.Clone(metadata.Dependencies)
	for _, opt := range metadata.OptionalDependencies {
		if w.known(ctx, opt) {
			deps = append(deps, opt)
			continue
		}
		w.r.logger.Warn("Skipping unknown optional dependency {Dependency} of library {Library}", opt, metadata.ID)
	}
	w.processAll(ctx, deps)
}

func (w *walk) known(ctx context.Context, name string) bool {
	if _, ok := w.r.provided[name]; ok {
		return true
	}
	return w.r.source != nil && w.r.source.KnownLibrary(ctx, name)
}

// Names returns the sorted library names of the result.
func (r *InstallResult) Names() []string {
	return slices.Sorted(maps.Keys(r.LibraryMetadata))
}
