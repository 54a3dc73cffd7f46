package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SAP/ui5-project-sub000/cache"
)

func TestFromFile_Missing(t *testing.T) {
	cfg, err := FromFile(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}
	if *cfg != (Config{}) {
		t.Errorf("FromFile() = %+v, want empty config", cfg)
	}
}

func TestToFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	want := &Config{MavenSnapshotEndpointURL: "https://repo.example.com/snapshots/"}

	if err := ToFile(path, want); err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), `"mavenSnapshotEndpointUrl": "https://repo.example.com/snapshots/"`) {
		t.Errorf("config file content = %s", data)
	}
	if strings.Contains(string(data), "ui5DataDir") {
		t.Errorf("unset keys must be omitted, got %s", data)
	}

	got, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}
	if *got != *want {
		t.Errorf("FromFile() = %+v, want %+v", got, want)
	}
}

func TestFromFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := FromFile(path); err == nil {
		t.Error("FromFile() expected error for malformed file")
	}
}

func TestConfig_GetSet(t *testing.T) {
	cfg := &Config{}

	for _, key := range Keys() {
		if err := cfg.Set(key, "value-"+key); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
		got, err := cfg.Get(key)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", key, err)
		}
		if got != "value-"+key {
			t.Errorf("Get(%q) = %q", key, got)
		}
	}

	if err := cfg.Set(KeyUI5DataDir, ""); err != nil {
		t.Fatal(err)
	}
	if cfg.UI5DataDir != "" {
		t.Errorf("empty value must unset, got %q", cfg.UI5DataDir)
	}

	if err := cfg.Set("registry", "x"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set(unknown) error = %v, want ErrUnknownKey", err)
	}
	if _, err := cfg.Get("registry"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get(unknown) error = %v, want ErrUnknownKey", err)
	}
	if IsKey("registry") || !IsKey(KeyMavenSnapshotEndpointURL) {
		t.Error("IsKey() mismatch")
	}
}

func TestDataDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	cwd := t.TempDir()

	tests := []struct {
		name string
		env  string
		cfg  *Config
		want string
	}{
		{"default", "", nil, filepath.Join(home, DefaultDataDirName)},
		{"config relative", "", &Config{UI5DataDir: "data"}, filepath.Join(cwd, "data")},
		{"config absolute", "", &Config{UI5DataDir: filepath.Join(home, "abs")}, filepath.Join(home, "abs")},
		{"env wins", filepath.Join(home, "env"), &Config{UI5DataDir: "data"}, filepath.Join(home, "env")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.env)
			got, err := DataDir(tt.cfg, cwd)
			if err != nil {
				t.Fatalf("DataDir() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DataDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnapshotEndpointURL(t *testing.T) {
	cfg := &Config{MavenSnapshotEndpointURL: "https://from-config/"}

	t.Setenv(EnvMavenSnapshotEndpointURL, "")
	if got := SnapshotEndpointURL(cfg); got != "https://from-config/" {
		t.Errorf("SnapshotEndpointURL() = %q", got)
	}

	t.Setenv(EnvMavenSnapshotEndpointURL, "https://from-env/")
	if got := SnapshotEndpointURL(cfg); got != "https://from-env/" {
		t.Errorf("SnapshotEndpointURL() = %q", got)
	}
}

func TestCacheMode(t *testing.T) {
	t.Setenv(EnvCacheMode, "force")
	mode, err := CacheMode()
	if err != nil || mode != cache.Force {
		t.Errorf("CacheMode() = %v, %v", mode, err)
	}

	t.Setenv(EnvCacheMode, "sometimes")
	if _, err := CacheMode(); err == nil {
		t.Error("CacheMode() expected error")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("UI5FW_TEST_LOADENV=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("UI5FW_TEST_LOADENV", "")
	_ = os.Unsetenv("UI5FW_TEST_LOADENV")

	if err := LoadEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv("UI5FW_TEST_LOADENV"); got != "from-file" {
		t.Errorf("UI5FW_TEST_LOADENV = %q, want %q", got, "from-file")
	}
}
