package maven

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ui5http "github.com/SAP/ui5-project-sub000/http"
)

var (
	distCoords = Coordinates{
		GroupID:    "com.sap.ui5.dist",
		ArtifactID: "sapui5-sdk-dist",
		Version:    "1.120.0-SNAPSHOT",
		Classifier: "npm-sources",
		Extension:  "zip",
	}
	libCoords = Coordinates{
		GroupID:    "com.sap.openui5",
		ArtifactID: "sap.m-prebuilt",
		Version:    "1.120.0-SNAPSHOT",
		Extension:  "jar",
	}
)

// fakeRepository is an in-memory Maven snapshot repository.
type fakeRepository struct {
	server        *httptest.Server
	mu            sync.Mutex
	revisions     map[string]string // artifactId -> current revision
	versions      []string
	metadataCalls atomic.Int32
	artifactCalls atomic.Int32
}

func newFakeRepository(t *testing.T) *fakeRepository {
	t.Helper()
	repo := &fakeRepository{
		revisions: map[string]string{
			"sapui5-sdk-dist": "1.120.0-20231120.101010-1",
			"sap.m-prebuilt":  "1.120.0-20231120.101010-1",
		},
		versions: []string{"1.119.0-SNAPSHOT", "1.120.0-SNAPSHOT"},
	}
	repo.server = httptest.NewServer(http.HandlerFunc(repo.serve))
	t.Cleanup(repo.server.Close)
	return repo
}

func (r *fakeRepository) setRevision(artifactID, revision string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revisions[artifactID] = revision
}

func (r *fakeRepository) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch req.URL.Path {
	case "/com/sap/ui5/dist/sapui5-sdk-dist/maven-metadata.xml":
		r.metadataCalls.Add(1)
		var versions strings.Builder
		for _, v := range r.versions {
			fmt.Fprintf(&versions, "<version>%s</version>", v)
		}
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<metadata><groupId>com.sap.ui5.dist</groupId><artifactId>sapui5-sdk-dist</artifactId>
<versioning><versions>%s</versions></versioning></metadata>`, versions.String())
	case "/com/sap/ui5/dist/sapui5-sdk-dist/1.120.0-SNAPSHOT/maven-metadata.xml":
		r.metadataCalls.Add(1)
		fmt.Fprintf(w, `<metadata modelVersion="1.1.0">
<groupId>com.sap.ui5.dist</groupId><artifactId>sapui5-sdk-dist</artifactId><version>1.120.0-SNAPSHOT</version>
<versioning><snapshotVersions>
<snapshotVersion><extension>pom</extension><value>%[1]s</value><updated>20231120101010</updated></snapshotVersion>
<snapshotVersion><classifier>npm-sources</classifier><extension>zip</extension><value>%[1]s</value><updated>20231120101010</updated></snapshotVersion>
</snapshotVersions></versioning></metadata>`, r.revisions["sapui5-sdk-dist"])
	case "/com/sap/openui5/sap.m-prebuilt/1.120.0-SNAPSHOT/maven-metadata.xml":
		r.metadataCalls.Add(1)
		fmt.Fprintf(w, `<metadata><versioning><snapshotVersions>
<snapshotVersion><extension>jar</extension><value>%s</value><updated>20231120101010</updated></snapshotVersion>
</snapshotVersions></versioning></metadata>`, r.revisions["sap.m-prebuilt"])
	default:
		dir, file := path.Split(req.URL.Path)
		switch {
		case dir == "/com/sap/ui5/dist/sapui5-sdk-dist/1.120.0-SNAPSHOT/" && strings.HasSuffix(file, "-npm-sources.zip"):
			r.artifactCalls.Add(1)
			_, _ = w.Write(zipBytes(map[string]string{
				"package.json":  `{"name":"@sapui5/distribution-metadata"}`,
				"metadata.json": `{"libraries":{}}`,
			}))
		case dir == "/com/sap/openui5/sap.m-prebuilt/1.120.0-SNAPSHOT/" && strings.HasSuffix(file, ".jar"):
			r.artifactCalls.Add(1)
			_, _ = w.Write(zipBytes(map[string]string{
				"META-INF/package.json":           `{"name":"@openui5/sap.m"}`,
				"META-INF/resources/sap/m/lib.js": "lib",
				"com/sap/Some.class":              "bytecode",
			}))
		default:
			http.NotFound(w, req)
		}
	}
}

func zipBytes(files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, _ := zw.Create(name)
		_, _ = w.Write([]byte(content))
	}
	_ = zw.Close()
	return buf.Bytes()
}

func testClient() *ui5http.Client {
	cfg := ui5http.DefaultConfig()
	cfg.EnableTracing = false
	cfg.Registry = "maven"
	return ui5http.NewClient(cfg)
}

func TestNewRegistry_RequiresEndpoint(t *testing.T) {
	_, err := NewRegistry(" ", nil, nil)
	assert.ErrorIs(t, err, ErrMissingEndpoint)
}

func TestRegistry_URLs(t *testing.T) {
	reg, err := NewRegistry("https://repo.example.com/snapshots", testClient(), nil)
	require.NoError(t, err)

	assert.Equal(t, "https://repo.example.com/snapshots/", reg.EndpointURL())
	assert.Equal(t,
		"https://repo.example.com/snapshots/com/sap/ui5/dist/sapui5-sdk-dist/1.120.0-SNAPSHOT/maven-metadata.xml",
		reg.MetadataURL(distCoords))
	assert.Equal(t,
		"https://repo.example.com/snapshots/com/sap/ui5/dist/sapui5-sdk-dist/1.120.0-SNAPSHOT/sapui5-sdk-dist-1.120.0-20231120.101010-1-npm-sources.zip",
		reg.ArtifactURL(distCoords, "1.120.0-20231120.101010-1"))

	unversioned := distCoords
	unversioned.Version = ""
	assert.Equal(t,
		"https://repo.example.com/snapshots/com/sap/ui5/dist/sapui5-sdk-dist/maven-metadata.xml",
		reg.MetadataURL(unversioned))
}

func TestRegistry_RequestMetadata(t *testing.T) {
	repo := newFakeRepository(t)
	reg, err := NewRegistry(repo.server.URL, testClient(), nil)
	require.NoError(t, err)

	metadata, err := reg.RequestMetadata(context.Background(), distCoords)
	require.NoError(t, err)
	require.Len(t, metadata.Versioning.SnapshotVersions, 2)
	sv := metadata.Versioning.SnapshotVersions[1]
	assert.Equal(t, "npm-sources", sv.Classifier)
	assert.Equal(t, "zip", sv.Extension)
	assert.Equal(t, "1.120.0-20231120.101010-1", sv.Value)
	assert.Equal(t, "20231120101010", sv.Updated)
}

func TestRegistry_RequestArtifact(t *testing.T) {
	repo := newFakeRepository(t)
	reg, err := NewRegistry(repo.server.URL, testClient(), nil)
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "nested", "dist.zip")
	require.NoError(t, reg.RequestArtifact(context.Background(), distCoords, "1.120.0-20231120.101010-1", target))
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	missing := filepath.Join(t.TempDir(), "missing.zip")
	err = reg.RequestArtifact(context.Background(), Coordinates{GroupID: "x", ArtifactID: "y", Version: "1", Extension: "zip"}, "1", missing)
	assert.ErrorIs(t, err, ui5http.ErrNotFound)
	assert.NoFileExists(t, missing)
}

func TestRegistry_ConnectivityError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	reg, err := NewRegistry(endpoint, testClient(), nil)
	require.NoError(t, err)

	_, err = reg.RequestMetadata(context.Background(), distCoords)
	var connErr *ConnectivityError
	require.True(t, errors.As(err, &connErr), "got %v", err)
	assert.Equal(t, "Failed to connect to Maven registry at "+endpoint+". "+
		"Please check the correct endpoint URL is maintained and can be reached. "+
		"You can configure it using 'ui5 config set mavenSnapshotEndpointUrl <url>'", err.Error())
	assert.ErrorIs(t, err, ui5http.ErrConnectivity)
}
