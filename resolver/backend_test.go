package resolver

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ui5http "github.com/SAP/ui5-project-sub000/http"
	"github.com/SAP/ui5-project-sub000/maven"
	"github.com/SAP/ui5-project-sub000/npm"
	"github.com/SAP/ui5-project-sub000/observability"
	"github.com/SAP/ui5-project-sub000/version"
)

// memoryRegistry is an npm.Source serving packages from memory. Each package
// version is a set of files; package.json is also the manifest.
type memoryRegistry struct {
	packages     map[string]map[string]map[string]string // name -> version -> file -> content
	distTags     map[string]map[string]string
	extractCalls atomic.Int32
}

func (m *memoryRegistry) Packument(_ context.Context, name string) (*npm.Packument, error) {
	versions, ok := m.packages[name]
	if !ok {
		return nil, fmt.Errorf("package %s not found in registry: %w", name, ui5http.ErrNotFound)
	}
	p := &npm.Packument{Name: name, DistTags: m.distTags[name], Versions: map[string]*npm.Manifest{}}
	for v := range versions {
		p.Versions[v] = &npm.Manifest{Name: name, Version: v}
	}
	return p, nil
}

func (m *memoryRegistry) Manifest(_ context.Context, name, v string) (*npm.Manifest, error) {
	files, ok := m.packages[name][v]
	if !ok {
		return nil, fmt.Errorf("no matching version found for %s@%s", name, v)
	}
	var manifest npm.Manifest
	if err := json.Unmarshal([]byte(files["package.json"]), &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func (m *memoryRegistry) Extract(_ context.Context, name, v, destDir string) error {
	m.extractCalls.Add(1)
	files, ok := m.packages[name][v]
	if !ok {
		return fmt.Errorf("no matching version found for %s@%s", name, v)
	}
	for file, content := range files {
		target := filepath.Join(destDir, filepath.FromSlash(file))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(target, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func openui5Registry() *memoryRegistry {
	pkg := func(name, deps, devDeps string) map[string]string {
		return map[string]string{
			"package.json": fmt.Sprintf(`{"name":"@openui5/%s","version":"1.120.0","dependencies":{%s},"devDependencies":{%s}}`,
				name, deps, devDeps),
		}
	}
	return &memoryRegistry{
		packages: map[string]map[string]map[string]string{
			"@openui5/sap.ui.core": {
				"1.120.0": pkg("sap.ui.core", "", `"@openui5/themelib_sap_horizon":"1.120.0","eslint":"8.0.0"`),
				"1.119.1": pkg("sap.ui.core", "", ""),
				"1.52.4":  pkg("sap.ui.core", "", ""),
			},
			"@openui5/sap.m": {
				"1.120.0": pkg("sap.m", `"@openui5/sap.ui.core":"1.120.0"`, ""),
			},
			"@openui5/themelib_sap_horizon": {
				"1.120.0": pkg("themelib_sap_horizon", `"@openui5/sap.ui.core":"1.120.0"`, ""),
			},
		},
		distTags: map[string]map[string]string{
			"@openui5/sap.ui.core": {"latest": "1.120.0"},
		},
	}
}

func sapui5Registry() *memoryRegistry {
	return &memoryRegistry{
		packages: map[string]map[string]map[string]string{
			distMetadataPackage: {
				"1.120.0": {
					"package.json":  `{"name":"@sapui5/distribution-metadata","version":"1.120.0"}`,
					"metadata.json": `{"libraries":{
						"sap.ui.core":{"npmPackageName":"@openui5/sap.ui.core","version":"1.120.1","dependencies":[],"optionalDependencies":[]},
						"sap.ushell":{"npmPackageName":"@sapui5/sap.ushell","version":"1.120.0","dependencies":["sap.ui.core"],"optionalDependencies":["sap.ui.unknown"]}
					}}`,
				},
				"1.75.0": {"package.json": `{}`},
			},
			"@openui5/sap.ui.core": {
				"1.120.1": {"package.json": `{"name":"@openui5/sap.ui.core","version":"1.120.1"}`},
			},
			"@sapui5/sap.ushell": {
				"1.120.0": {"package.json": `{"name":"@sapui5/sap.ushell","version":"1.120.0"}`},
			},
		},
	}
}

func testOptions(t *testing.T, framework Framework, frameworkVersion string) Options {
	t.Helper()
	return Options{
		Framework:  framework,
		Version:    frameworkVersion,
		DataDir:    t.TempDir(),
		ConfigPath: filepath.Join(t.TempDir(), ".ui5rc"),
		HomeDir:    t.TempDir(),
	}
}

func TestSelectBackend(t *testing.T) {
	tests := []struct {
		framework Framework
		version   string
		want      Backend
	}{
		{OpenUI5, "1.120.0", BackendNpm},
		{SAPUI5, "1.120.0", BackendDistMetadata},
		{SAPUI5, "1.120.0-SNAPSHOT", BackendMavenSnapshot},
		{SAPUI5, "1-snapshot", BackendMavenSnapshot},
		{OpenUI5, "1.120-SNAPSHOT", BackendMavenSnapshot},
		{SAPUI5, "", BackendDistMetadata},
	}
	for _, tt := range tests {
		t.Run(string(tt.framework)+"_"+tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectBackend(tt.framework, tt.version))
		})
	}
}

func TestParseFramework(t *testing.T) {
	f, err := ParseFramework("SAPUI5")
	require.NoError(t, err)
	assert.Equal(t, SAPUI5, f)
	assert.Equal(t, "1.76.0", f.MinimumVersion())
	assert.Equal(t, "1.52.5", OpenUI5.MinimumVersion())

	_, err = ParseFramework("sapui5")
	assert.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Options{Framework: "UI5", DataDir: t.TempDir()})
	assert.Error(t, err)

	_, err = New(context.Background(), Options{Framework: OpenUI5})
	assert.Error(t, err)
}

func TestOpenUI5_Install(t *testing.T) {
	registry := openui5Registry()
	opts := testOptions(t, OpenUI5, "1.120.0")
	opts.NpmSource = registry

	r, err := New(context.Background(), opts)
	require.NoError(t, err)

	result, err := r.Install(context.Background(), []string{"sap.m"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sap.m", "sap.ui.core", "themelib_sap_horizon"}, result.Names())

	core := result.LibraryMetadata["sap.ui.core"]
	assert.Empty(t, core.Dependencies)
	assert.Equal(t, []string{"themelib_sap_horizon"}, core.OptionalDependencies, "only @openui5 devDependencies are optional libraries")
	assert.Equal(t, filepath.Join(opts.DataDir, "framework", "packages", "@openui5", "sap.ui.core", "1.120.0"), core.Path)
	assert.FileExists(t, filepath.Join(core.Path, "package.json"))
	assert.Equal(t, int32(3), registry.extractCalls.Load())

	// A second resolver reuses the installed packages
	r, err = New(context.Background(), opts)
	require.NoError(t, err)
	_, err = r.Install(context.Background(), []string{"sap.m"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), registry.extractCalls.Load())
}

func TestOpenUI5_UnknownLibrary(t *testing.T) {
	opts := testOptions(t, OpenUI5, "1.120.0")
	opts.NpmSource = openui5Registry()

	r, err := New(context.Background(), opts)
	require.NoError(t, err)

	_, err = r.Install(context.Background(), []string{"sap.xx"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to resolve library sap.xx: "), err.Error())
}

func TestOpenUI5_UnknownOptionalDependency(t *testing.T) {
	registry := openui5Registry()
	registry.packages["@openui5/sap.ui.core"]["1.120.0"]["package.json"] =
		`{"name":"@openui5/sap.ui.core","version":"1.120.0","devDependencies":{` +
			`"@openui5/sap.ui.unpublished":"1.120.0","@openui5/themelib_sap_belize":"1.119.0"}}`
	registry.packages["@openui5/themelib_sap_belize"] = map[string]map[string]string{
		"1.119.0": {"package.json": `{"name":"@openui5/themelib_sap_belize","version":"1.119.0"}`},
	}
	opts := testOptions(t, OpenUI5, "1.120.0")
	opts.NpmSource = registry

	r, err := New(context.Background(), opts)
	require.NoError(t, err)

	result, err := r.Install(context.Background(), []string{"sap.m"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sap.m", "sap.ui.core"}, result.Names())
	assert.Equal(t, []string{"sap.ui.unpublished", "themelib_sap_belize"},
		result.LibraryMetadata["sap.ui.core"].OptionalDependencies)
	assert.Equal(t, int32(2), registry.extractCalls.Load())
}

// countingNpmInstaller counts IsInstalled calls of the wrapped installer.
type countingNpmInstaller struct {
	npmInstaller
	isInstalledCalls atomic.Int32
}

func (c *countingNpmInstaller) IsInstalled(pkg npm.Package) (bool, error) {
	c.isInstalledCalls.Add(1)
	return c.npmInstaller.IsInstalled(pkg)
}

func TestOpenUI5_InstallLeavesInstalledCheckToInstaller(t *testing.T) {
	registry := openui5Registry()
	opts := testOptions(t, OpenUI5, "1.120.0")
	opts.NpmSource = registry
	inst, err := newNpmInstaller(opts, nil)
	require.NoError(t, err)
	counting := &countingNpmInstaller{npmInstaller: inst}

	source := &openui5Source{installer: counting, version: "1.120.0", logger: observability.NewNullLogger()}
	for range 2 {
		_, err = NewWithSource(source, "1.120.0", nil, nil).Install(context.Background(), []string{"sap.m"})
		require.NoError(t, err)
	}
	assert.Zero(t, counting.isInstalledCalls.Load())
	assert.Equal(t, int32(3), registry.extractCalls.Load())
}

func TestSAPUI5_Install(t *testing.T) {
	registry := sapui5Registry()
	opts := testOptions(t, SAPUI5, "1.120.0")
	opts.NpmSource = registry

	r, err := New(context.Background(), opts)
	require.NoError(t, err)

	result, err := r.Install(context.Background(), []string{"sap.ushell"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sap.ui.core", "sap.ushell"}, result.Names())

	core := result.LibraryMetadata["sap.ui.core"]
	assert.Equal(t, "1.120.1", core.Version)
	assert.Equal(t, filepath.Join(opts.DataDir, "framework", "packages", "@openui5", "sap.ui.core", "1.120.1"), core.Path)
	// distribution metadata, sap.ushell and sap.ui.core
	assert.Equal(t, int32(3), registry.extractCalls.Load())
}

func TestSAPUI5_UnknownLibrary(t *testing.T) {
	opts := testOptions(t, SAPUI5, "1.120.0")
	opts.NpmSource = sapui5Registry()

	r, err := New(context.Background(), opts)
	require.NoError(t, err)

	_, err = r.Install(context.Background(), []string{"sap.xx"})
	require.Error(t, err)
	assert.Equal(t, `Failed to resolve library sap.xx: Could not find library "sap.xx"`, err.Error())
}

func TestSAPUI5_DistributionMetadataFailureIsMemoized(t *testing.T) {
	registry := sapui5Registry()
	opts := testOptions(t, SAPUI5, "1.121.0")
	opts.NpmSource = registry

	r, err := New(context.Background(), opts)
	require.NoError(t, err)

	_, err = r.Install(context.Background(), []string{"sap.ushell", "sap.ui.core"})
	require.Error(t, err)
	assert.Equal(t, int32(1), registry.extractCalls.Load())
}

func TestResolveVersion_Npm(t *testing.T) {
	tests := []struct {
		framework Framework
		specifier string
		want      string
		wantErr   string
	}{
		{OpenUI5, "1.120.0", "1.120.0", ""},
		{OpenUI5, "1", "1.120.0", ""},
		{OpenUI5, "latest", "1.120.0", ""},
		{OpenUI5, "1.119", "1.119.1", ""},
		{OpenUI5, "1.52.4", "1.52.4", ""},
		{OpenUI5, "1.30.0", "", "Could not resolve framework version 1.30.0. Note that OpenUI5 framework libraries can only be consumed by the UI5 Tooling starting with OpenUI5 v1.52.5"},
		{SAPUI5, "1.75.0", "1.75.0", ""},
		{SAPUI5, "1.70.0", "", "Could not resolve framework version 1.70.0. Note that SAPUI5 framework libraries can only be consumed by the UI5 Tooling starting with SAPUI5 v1.76.0"},
	}
	for _, tt := range tests {
		t.Run(string(tt.framework)+"_"+tt.specifier, func(t *testing.T) {
			opts := testOptions(t, tt.framework, "")
			if tt.framework == OpenUI5 {
				opts.NpmSource = openui5Registry()
			} else {
				opts.NpmSource = sapui5Registry()
			}

			got, err := ResolveVersion(context.Background(), tt.specifier, opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// snapshotRepository is an httptest Maven repository holding the sapui5-sdk-dist
// distribution and library artifacts. Every artifact has a single revision.
type snapshotRepository struct {
	server        *httptest.Server
	metadataJSON  string
	artifactCalls atomic.Int32
}

const snapshotRevisionSuffix = "20240101.000000-1"

func newSnapshotRepository(t *testing.T, metadataJSON string) *snapshotRepository {
	t.Helper()
	repo := &snapshotRepository{metadataJSON: metadataJSON}
	repo.server = httptest.NewServer(http.HandlerFunc(repo.serve))
	t.Cleanup(repo.server.Close)
	return repo
}

func (r *snapshotRepository) serve(w http.ResponseWriter, req *http.Request) {
	dir, file := path.Split(req.URL.Path)
	segments := strings.Split(strings.Trim(dir, "/"), "/")

	switch {
	case file == "maven-metadata.xml" && req.URL.Path == "/com/sap/ui5/dist/sapui5-sdk-dist/maven-metadata.xml":
		fmt.Fprint(w, `<metadata><versioning><versions>`+
			`<version>1.119.0-SNAPSHOT</version><version>1.120.0-SNAPSHOT</version><version>1.121.0-SNAPSHOT</version>`+
			`</versions></versioning></metadata>`)
	case file == "maven-metadata.xml":
		v := segments[len(segments)-1]
		revision := strings.TrimSuffix(v, "-SNAPSHOT") + "-" + snapshotRevisionSuffix
		fmt.Fprintf(w, `<metadata><versioning><snapshotVersions>
<snapshotVersion><extension>jar</extension><value>%[1]s</value><updated>20240101000000</updated></snapshotVersion>
<snapshotVersion><classifier>npm-sources</classifier><extension>zip</extension><value>%[1]s</value><updated>20240101000000</updated></snapshotVersion>
</snapshotVersions></versioning></metadata>`, revision)
	case strings.HasSuffix(file, "-npm-sources.zip") && strings.HasPrefix(file, "sapui5-sdk-dist-"):
		r.artifactCalls.Add(1)
		_, _ = w.Write(zipArchive(map[string]string{
			"package.json":  `{"name":"@sapui5/distribution-metadata"}`,
			"metadata.json": r.metadataJSON,
		}))
	case strings.HasSuffix(file, "-npm-sources.zip"):
		r.artifactCalls.Add(1)
		artifact := segments[len(segments)-2]
		_, _ = w.Write(zipArchive(map[string]string{
			"package.json":            fmt.Sprintf(`{"name":%q}`, artifact),
			"src/" + artifact + ".js": "sources",
		}))
	case strings.HasSuffix(file, ".jar"):
		r.artifactCalls.Add(1)
		artifact := segments[len(segments)-2]
		_, _ = w.Write(zipArchive(map[string]string{
			"META-INF/package.json":                  fmt.Sprintf(`{"name":%q}`, artifact),
			"META-INF/resources/" + artifact + ".js": "prebuilt",
		}))
	default:
		http.NotFound(w, req)
	}
}

func zipArchive(files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, _ := zw.Create(name)
		_, _ = w.Write([]byte(content))
	}
	_ = zw.Close()
	return buf.Bytes()
}

func snapshotClient() *ui5http.Client {
	cfg := ui5http.DefaultConfig()
	cfg.EnableTracing = false
	cfg.Registry = "maven"
	return ui5http.NewClient(cfg)
}

const snapshotMetadataJSON = `{"libraries":{
	"sap.ui.core":{"npmPackageName":"@openui5/sap.ui.core","version":"1.120.0-SNAPSHOT","gav":"com.sap.openui5:sap.ui.core:1.120.0-SNAPSHOT","dependencies":[],"optionalDependencies":[]},
	"sap.m":{"npmPackageName":"@openui5/sap.m","version":"1.120.0-SNAPSHOT","gav":"com.sap.openui5:sap.m:1.120.0-SNAPSHOT","dependencies":["sap.ui.core"],"optionalDependencies":[]},
	"sap.legacy":{"npmPackageName":"@sapui5/sap.legacy","version":"1.120.0-SNAPSHOT","dependencies":[],"optionalDependencies":[]}
}}`

func snapshotOptions(t *testing.T, repo *snapshotRepository) Options {
	opts := testOptions(t, SAPUI5, "1.120.0-SNAPSHOT")
	opts.SnapshotEndpointURL = repo.server.URL
	opts.HTTPClient = snapshotClient()
	return opts
}

func TestSnapshot_InstallPrebuilt(t *testing.T) {
	repo := newSnapshotRepository(t, snapshotMetadataJSON)
	opts := snapshotOptions(t, repo)

	r, err := New(context.Background(), opts)
	require.NoError(t, err)

	result, err := r.Install(context.Background(), []string{"sap.m"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sap.m", "sap.ui.core"}, result.Names())

	m := result.LibraryMetadata["sap.m"]
	assert.Equal(t, filepath.Join(opts.DataDir, "framework", "packages", "@openui5", "sap.m-prebuilt", "1.120.0-"+snapshotRevisionSuffix), m.Path)
	assert.FileExists(t, filepath.Join(m.Path, "resources", "sap.m.js"))
	// distribution, sap.m and sap.ui.core
	assert.Equal(t, int32(3), repo.artifactCalls.Load())
}

func TestSnapshot_InstallSources(t *testing.T) {
	repo := newSnapshotRepository(t, snapshotMetadataJSON)
	opts := snapshotOptions(t, repo)
	opts.Sources = true

	r, err := New(context.Background(), opts)
	require.NoError(t, err)

	result, err := r.Install(context.Background(), []string{"sap.ui.core"})
	require.NoError(t, err)

	core := result.LibraryMetadata["sap.ui.core"]
	assert.Equal(t, filepath.Join(opts.DataDir, "framework", "packages", "@openui5", "sap.ui.core", "1.120.0-"+snapshotRevisionSuffix), core.Path)
	assert.FileExists(t, filepath.Join(core.Path, "src", "sap.ui.core.js"))
}

func TestSnapshot_MissingGAV(t *testing.T) {
	repo := newSnapshotRepository(t, snapshotMetadataJSON)

	r, err := New(context.Background(), snapshotOptions(t, repo))
	require.NoError(t, err)

	_, err = r.Install(context.Background(), []string{"sap.legacy"})
	require.Error(t, err)
	assert.Equal(t, "Failed to resolve library sap.legacy: Metadata is missing GAV (group, artifact and version) information. "+
		"This might indicate an unsupported SNAPSHOT version.", err.Error())
	assert.ErrorIs(t, err, errMissingGAV)
}

func TestSnapshot_MissingEndpoint(t *testing.T) {
	t.Setenv("UI5_MAVEN_SNAPSHOT_ENDPOINT_URL", "")
	opts := testOptions(t, SAPUI5, "1.120.0-SNAPSHOT")
	opts.Prompter = nonInteractivePrompter()

	r, err := New(context.Background(), opts)
	require.NoError(t, err)

	_, err = r.Install(context.Background(), []string{"sap.m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, maven.ErrMissingEndpoint)
}

func TestResolveVersion_Snapshot(t *testing.T) {
	repo := newSnapshotRepository(t, snapshotMetadataJSON)
	opts := snapshotOptions(t, repo)

	got, err := ResolveVersion(context.Background(), "1.120-SNAPSHOT", opts)
	require.NoError(t, err)
	assert.Equal(t, "1.120.0-SNAPSHOT", got)

	got, err = ResolveVersion(context.Background(), "1-SNAPSHOT", opts)
	require.NoError(t, err)
	assert.Equal(t, "1.121.0-SNAPSHOT", got)

	catalog, err := Catalog(context.Background(), "1-SNAPSHOT", opts)
	require.NoError(t, err)
	_, err = catalog.FetchAllTags(context.Background())
	assert.True(t, errors.Is(err, version.ErrTagsUnsupported))
}

func TestSnapshotSource_PackageRequest(t *testing.T) {
	s := &snapshotSource{}
	lib := &DistributionLibrary{NpmPackageName: "@openui5/sap.m", GAV: "com.sap.openui5:sap.m:1.120.0-SNAPSHOT"}

	req, err := s.packageRequest(lib)
	require.NoError(t, err)
	assert.Equal(t, "@openui5/sap.m-prebuilt", req.Name)
	assert.Equal(t, maven.Coordinates{GroupID: "com.sap.openui5", ArtifactID: "sap.m", Version: "1.120.0-SNAPSHOT", Extension: "jar"}, req.Coordinates)

	s.sources = true
	req, err = s.packageRequest(lib)
	require.NoError(t, err)
	assert.Equal(t, "@openui5/sap.m", req.Name)
	assert.Equal(t, "npm-sources", req.Coordinates.Classifier)
	assert.Equal(t, "zip", req.Coordinates.Extension)

	_, err = s.packageRequest(&DistributionLibrary{GAV: "only:two"})
	assert.ErrorIs(t, err, errMissingGAV)
}
