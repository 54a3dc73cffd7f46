package maven

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	ui5http "github.com/SAP/ui5-project-sub000/http"
	"github.com/SAP/ui5-project-sub000/observability"
)

// Metadata is a maven-metadata.xml document.
type Metadata struct {
	XMLName    xml.Name   `xml:"metadata"`
	GroupID    string     `xml:"groupId"`
	ArtifactID string     `xml:"artifactId"`
	Version    string     `xml:"version"`
	Versioning Versioning `xml:"versioning"`
}

// Versioning lists the versions of an artifact, or the deployments of one snapshot version.
type Versioning struct {
	Latest           string            `xml:"latest"`
	Release          string            `xml:"release"`
	LastUpdated      string            `xml:"lastUpdated"`
	Versions         []string          `xml:"versions>version"`
	SnapshotVersions []SnapshotVersion `xml:"snapshotVersions>snapshotVersion"`
}

// SnapshotVersion is one timestamped deployment of a snapshot version.
type SnapshotVersion struct {
	Classifier string `xml:"classifier"`
	Extension  string `xml:"extension"`
	Value      string `xml:"value"`
	Updated    string `xml:"updated"`
}

// ConnectivityError reports that the configured repository could not be reached.
type ConnectivityError struct {
	URL string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("Failed to connect to Maven registry at %s. "+
		"Please check the correct endpoint URL is maintained and can be reached. "+
		"You can configure it using 'ui5 config set mavenSnapshotEndpointUrl <url>'", e.URL)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Registry reads metadata and artifacts from a Maven repository.
type Registry struct {
	endpointURL string
	client      *ui5http.Client
	logger      observability.Logger
}

// NewRegistry creates a registry client for endpointURL.
func NewRegistry(endpointURL string, client *ui5http.Client, logger observability.Logger) (*Registry, error) {
	if strings.TrimSpace(endpointURL) == "" {
		return nil, ErrMissingEndpoint
	}
	if client == nil {
		cfg := ui5http.DefaultConfig()
		cfg.Registry = "maven"
		cfg.Logger = logger
		client = ui5http.NewClient(cfg)
	}
	return &Registry{
		endpointURL: strings.TrimSuffix(endpointURL, "/") + "/",
		client:      client,
		logger:      observability.OrNull(logger).ForContext("Registry", "maven"),
	}, nil
}

// EndpointURL returns the repository base URL.
func (r *Registry) EndpointURL() string { return r.endpointURL }

// MetadataURL returns the maven-metadata.xml URL for coords. Without a version the
// document lists all versions of the artifact.
func (r *Registry) MetadataURL(coords Coordinates) string {
	return r.endpointURL + coords.artifactDir() + "/maven-metadata.xml"
}

// ArtifactURL returns the URL of the deployment of coords with the given revision.
func (r *Registry) ArtifactURL(coords Coordinates, revision string) string {
	return r.endpointURL + coords.artifactDir() + "/" + coords.fileName(revision)
}

// RequestMetadata fetches and decodes the maven-metadata.xml of coords.
func (r *Registry) RequestMetadata(ctx context.Context, coords Coordinates) (*Metadata, error) {
	metadataURL := r.MetadataURL(coords)
	r.logger.Verbose("Fetching Maven metadata {URL}", metadataURL)

	resp, err := r.get(ctx, metadataURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var metadata Metadata
	if err := xml.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("decode Maven metadata %s: %w", metadataURL, err)
	}
	return &metadata, nil
}

// RequestArtifact downloads the deployment of coords with the given revision to
// targetPath. A partially written file is removed on failure.
func (r *Registry) RequestArtifact(ctx context.Context, coords Coordinates, revision, targetPath string) (err error) {
	artifactURL := r.ArtifactURL(coords, revision)
	r.logger.Verbose("Downloading {URL}", artifactURL)

	resp, err := r.get(ctx, artifactURL)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	f, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", targetPath, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", targetPath, cerr)
		}
		if err != nil {
			_ = os.Remove(targetPath)
		}
	}()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("download %s: %w", artifactURL, err)
	}
	return nil
}

func (r *Registry) get(ctx context.Context, rawURL string) (*http.Response, error) {
	resp, err := r.client.Get(ctx, rawURL, nil)
	if err != nil {
		if errors.Is(err, ui5http.ErrConnectivity) {
			return nil, &ConnectivityError{URL: strings.TrimSuffix(r.endpointURL, "/"), Err: err}
		}
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}
	if err := ui5http.CheckStatus(resp); err != nil {
		return nil, err
	}
	return resp, nil
}
