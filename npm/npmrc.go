package npm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"

	"github.com/SAP/ui5-project-sub000/auth"
)

// DefaultRegistry is used when no registry is configured.
const DefaultRegistry = "https://registry.npmjs.org/"

// Config is the subset of npm configuration relevant for fetching packages.
type Config struct {
	// Registry is the default registry URL, always ending in "/".
	Registry string
	// ScopedRegistries maps "@scope" to a registry URL.
	ScopedRegistries map[string]string
	// Credentials holds the per-registry "//host/path/:_authToken", "_auth" and
	// "username"/"_password" settings.
	Credentials *auth.Credentials
	// Proxy is the proxy for https registries ("https-proxy", falling back to "proxy").
	Proxy string
}

// LoadConfig reads npm configuration from the user .npmrc in homeDir, then the
// project .npmrc in cwd, then npm_config_* environment variables; later sources win.
func LoadConfig(cwd, homeDir string) (*Config, error) {
	var sources []any
	for _, dir := range []string{homeDir, cwd} {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, ".npmrc")
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		sources = append(sources, p)
	}

	values := map[string]string{}
	if len(sources) > 0 {
		file, err := ini.LoadSources(ini.LoadOptions{
			Loose:               true,
			KeyValueDelimiters:  "=",
			IgnoreInlineComment: true,
		}, sources[0], sources[1:]...)
		if err != nil {
			return nil, fmt.Errorf("parse .npmrc: %w", err)
		}
		for _, key := range file.Section(ini.DefaultSection).Keys() {
			values[key.Name()] = os.ExpandEnv(key.String())
		}
	}

	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if len(name) > len("npm_config_") && strings.EqualFold(name[:len("npm_config_")], "npm_config_") {
			key := strings.ReplaceAll(strings.ToLower(name[len("npm_config_"):]), "_", "-")
			values[key] = value
		}
	}

	return newConfig(values)
}

func newConfig(values map[string]string) (*Config, error) {
	cfg := &Config{
		Registry:         DefaultRegistry,
		ScopedRegistries: map[string]string{},
		Credentials:      auth.NewCredentials(),
	}

	perPrefix := map[string]map[string]string{}
	for key, value := range values {
		switch {
		case key == "registry" && value != "":
			cfg.Registry = withTrailingSlash(value)
		case strings.HasPrefix(key, "@") && strings.HasSuffix(key, ":registry"):
			cfg.ScopedRegistries[strings.TrimSuffix(key, ":registry")] = withTrailingSlash(value)
		case strings.HasPrefix(key, "//"):
			sep := strings.LastIndex(key, ":")
			if sep < 0 {
				continue
			}
			prefix, setting := key[:sep], key[sep+1:]
			if perPrefix[prefix] == nil {
				perPrefix[prefix] = map[string]string{}
			}
			perPrefix[prefix][setting] = value
		}
	}

	for prefix, settings := range perPrefix {
		a, err := authenticatorFrom(settings)
		if err != nil {
			return nil, fmt.Errorf("credentials for %s: %w", prefix, err)
		}
		if a != nil {
			cfg.Credentials.Set(prefix, a)
		}
	}

	cfg.Proxy = values["https-proxy"]
	if cfg.Proxy == "" {
		cfg.Proxy = values["proxy"]
	}
	return cfg, nil
}

// authenticatorFrom prefers _authToken over _auth over username/_password.
func authenticatorFrom(settings map[string]string) (auth.Authenticator, error) {
	if token := settings["_authToken"]; token != "" {
		return auth.NewBearerAuthenticator(token), nil
	}
	if encoded := settings["_auth"]; encoded != "" {
		return auth.ParseAuth(encoded)
	}
	if username, password := settings["username"], settings["_password"]; username != "" && password != "" {
		return auth.ParsePassword(username, password)
	}
	return nil, nil
}

// RegistryFor returns the registry serving the package name.
func (c *Config) RegistryFor(name string) string {
	if scope, _, ok := strings.Cut(name, "/"); ok && strings.HasPrefix(scope, "@") {
		if reg, ok := c.ScopedRegistries[scope]; ok {
			return reg
		}
	}
	return c.Registry
}

// AuthenticatorFor returns the credentials configured for rawURL, matching the
// longest configured "//host/path/" prefix, or nil.
func (c *Config) AuthenticatorFor(rawURL string) auth.Authenticator {
	if c.Credentials == nil {
		return nil
	}
	return c.Credentials.For(rawURL)
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
