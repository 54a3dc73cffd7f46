// Package npm implements the npm-style registry backend: packument and manifest
// retrieval, tarball extraction and the package installer.
package npm

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	ui5http "github.com/SAP/ui5-project-sub000/http"
	"github.com/SAP/ui5-project-sub000/observability"
	"github.com/SAP/ui5-project-sub000/packaging"
)

const (
	// DefaultPackumentTTL bounds how long packuments are reused within one process.
	DefaultPackumentTTL = 5 * time.Minute

	packumentCacheSize = 128
)

// ErrIntegrity is returned when a downloaded tarball does not match its recorded digest.
var ErrIntegrity = errors.New("integrity check failed")

// Packument is the registry document listing all versions of a package.
type Packument struct {
	Name     string               `json:"name"`
	DistTags map[string]string    `json:"dist-tags"`
	Versions map[string]*Manifest `json:"versions"`
}

// Manifest is the package.json of one package version.
type Manifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
	Dist                 Dist              `json:"dist"`
}

// Dist describes the tarball of a published version.
type Dist struct {
	Tarball   string `json:"tarball"`
	Shasum    string `json:"shasum,omitempty"`
	Integrity string `json:"integrity,omitempty"`
}

// Source is the registry capability the installer depends on.
type Source interface {
	Packument(ctx context.Context, name string) (*Packument, error)
	Manifest(ctx context.Context, name, version string) (*Manifest, error)
	Extract(ctx context.Context, name, version, destDir string) error
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Cwd and HomeDir locate the project and user .npmrc files.
	Cwd     string
	HomeDir string

	// Config overrides configuration loading when set.
	Config *Config
	// Client overrides the HTTP client built from Config.
	Client *ui5http.Client

	PackumentTTL time.Duration
	Logger       observability.Logger
}

// Registry is an npm registry client honoring .npmrc registry, scope, auth and proxy
// settings.
type Registry struct {
	config     *Config
	client     *ui5http.Client
	packuments *expirable.LRU[string, *Packument]
	inflight   singleflight.Group
	logger     observability.Logger
}

// NewRegistry creates a registry client.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = LoadConfig(opts.Cwd, opts.HomeDir); err != nil {
			return nil, err
		}
	}

	client := opts.Client
	if client == nil {
		httpCfg := ui5http.DefaultConfig()
		httpCfg.Registry = "npm"
		httpCfg.Logger = opts.Logger
		httpCfg.Headers = http.Header{"Npm-Session": []string{uuid.NewString()}}
		if cfg.Proxy != "" {
			proxy, err := url.Parse(cfg.Proxy)
			if err != nil {
				return nil, fmt.Errorf("invalid npm proxy %q: %w", cfg.Proxy, err)
			}
			httpCfg.Proxy = proxy
		}
		client = ui5http.NewClient(httpCfg)
	}

	ttl := opts.PackumentTTL
	if ttl <= 0 {
		ttl = DefaultPackumentTTL
	}

	return &Registry{
		config:     cfg,
		client:     client,
		packuments: expirable.NewLRU[string, *Packument](packumentCacheSize, nil, ttl),
		logger:     observability.OrNull(opts.Logger).ForContext("Registry", "npm"),
	}, nil
}

// PackumentURL returns the document URL for name, encoding the scope separator.
func (r *Registry) PackumentURL(name string) string {
	return r.config.RegistryFor(name) + strings.Replace(name, "/", "%2f", 1)
}

// Packument fetches the packument of name. Concurrent requests for the same name
// share one network round-trip and results are reused for a short time.
func (r *Registry) Packument(ctx context.Context, name string) (*Packument, error) {
	if p, ok := r.packuments.Get(name); ok {
		return p, nil
	}

	v, err, _ := r.inflight.Do(name, func() (any, error) {
		p, err := r.fetchPackument(ctx, name)
		if err != nil {
			return nil, err
		}
		r.packuments.Add(name, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Packument), nil
}

func (r *Registry) fetchPackument(ctx context.Context, name string) (*Packument, error) {
	docURL := r.PackumentURL(name)
	r.logger.Verbose("Fetching packument of {Package}", name)

	resp, err := r.get(ctx, docURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("request packument of %s: %w", name, err)
	}
	if err := ui5http.CheckStatus(resp); err != nil {
		if errors.Is(err, ui5http.ErrNotFound) {
			return nil, fmt.Errorf("package %s not found in registry %s: %w", name, r.config.RegistryFor(name), err)
		}
		return nil, fmt.Errorf("request packument of %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var p Packument
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode packument of %s: %w", name, err)
	}
	return &p, nil
}

// Manifest returns the manifest of an exact package version.
func (r *Registry) Manifest(ctx context.Context, name, version string) (*Manifest, error) {
	p, err := r.Packument(ctx, name)
	if err != nil {
		return nil, err
	}
	m, ok := p.Versions[version]
	if !ok || m == nil {
		return nil, fmt.Errorf("no matching version found for %s@%s", name, version)
	}
	return m, nil
}

// Extract downloads the tarball of name@version and unpacks it into destDir, which
// then looks like an installed package (package.json at its root). The download is
// verified against the recorded integrity digest.
func (r *Registry) Extract(ctx context.Context, name, version, destDir string) error {
	m, err := r.Manifest(ctx, name, version)
	if err != nil {
		return err
	}
	if m.Dist.Tarball == "" {
		return fmt.Errorf("manifest of %s@%s has no tarball", name, version)
	}

	resp, err := r.get(ctx, m.Dist.Tarball, "")
	if err != nil {
		return fmt.Errorf("download %s@%s: %w", name, version, err)
	}
	if err := ui5http.CheckStatus(resp); err != nil {
		return fmt.Errorf("download %s@%s: %w", name, version, err)
	}
	defer func() { _ = resp.Body.Close() }()

	verifier, err := newVerifier(m.Dist)
	if err != nil {
		return fmt.Errorf("%s@%s: %w", name, version, err)
	}

	body := io.Reader(resp.Body)
	if verifier != nil {
		body = io.TeeReader(resp.Body, verifier.hash)
	}
	if err := packaging.ExtractTarball(body, destDir); err != nil {
		return fmt.Errorf("extract %s@%s: %w", name, version, err)
	}
	// Drain trailing padding so the digest covers the whole tarball
	if _, err := io.Copy(io.Discard, body); err != nil {
		return fmt.Errorf("download %s@%s: %w", name, version, err)
	}

	if verifier != nil && !verifier.ok() {
		return fmt.Errorf("%w for %s@%s: expected %s", ErrIntegrity, name, version, verifier.expected)
	}
	return nil
}

func (r *Registry) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if a := r.config.AuthenticatorFor(rawURL); a != nil {
		if err := a.Authenticate(req); err != nil {
			return nil, fmt.Errorf("authenticate %s: %w", rawURL, err)
		}
	}
	return r.client.Do(ctx, req)
}

type verifier struct {
	hash     hash.Hash
	digest   []byte
	expected string
}

func (v *verifier) ok() bool {
	return bytes.Equal(v.hash.Sum(nil), v.digest)
}

// newVerifier prefers the sha512 entry of dist.integrity and falls back to the
// sha1 shasum. Returns nil when the registry recorded no digest.
func newVerifier(d Dist) (*verifier, error) {
	for _, entry := range strings.Fields(d.Integrity) {
		algo, b64, ok := strings.Cut(entry, "-")
		if !ok || algo != "sha512" {
			continue
		}
		digest, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("invalid integrity %q: %w", entry, err)
		}
		return &verifier{hash: sha512.New(), digest: digest, expected: entry}, nil
	}

	if d.Shasum != "" {
		digest, err := hex.DecodeString(d.Shasum)
		if err != nil {
			return nil, fmt.Errorf("invalid shasum %q: %w", d.Shasum, err)
		}
		return &verifier{hash: sha1.New(), digest: digest, expected: "sha1 " + d.Shasum}, nil
	}
	return nil, nil
}
