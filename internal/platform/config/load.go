package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix marks variables that override loaded keys.
	EnvPrefix = "APP_"

	// DefaultProfile is used when APP_ENVIRONMENT is unset.
	DefaultProfile = "local"

	// DefaultDir holds base.yaml and the profile files.
	DefaultDir = "configs"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// embedded serves the compiled-in defaults to koanf.
type embedded []byte

func (e embedded) ReadBytes() ([]byte, error) { return e, nil }

func (e embedded) Read() (map[string]any, error) {
	return nil, errors.New("embedded provider does not support Read")
}

type loader struct {
	dir       string
	overrides map[string]any
}

// Option adjusts Load.
type Option func(*loader)

// WithDir reads base.yaml and the profile file from dir instead of configs/.
func WithDir(dir string) Option {
	return func(l *loader) { l.dir = dir }
}

// WithOverrides sets keys above every other layer, APP_ variables included.
// Keys use dots: "log.format".
func WithOverrides(values map[string]any) Option {
	return func(l *loader) { l.overrides = values }
}

// Load layers, lowest first: defaults.yaml, <dir>/base.yaml,
// <dir>/<profile>.yaml, APP_ variables and overrides. Missing files are
// skipped. The result is not validated.
func Load(profile string, opts ...Option) (*Config, error) {
	l := loader{dir: DefaultDir}
	for _, opt := range opts {
		opt(&l)
	}

	k := koanf.New(".")

	if err := k.Load(embedded(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	layers := []string{"base"}
	if profile != "" {
		layers = append(layers, profile)
	}

	for _, name := range layers {
		path := filepath.Join(l.dir, name+".yaml")

		err := k.Load(file.Provider(path), yaml.Parser())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyMapper(k.Keys())), nil); err != nil {
		return nil, fmt.Errorf("loading %s variables: %w", EnvPrefix, err)
	}

	if len(l.overrides) > 0 {
		if err := k.Load(confmap.Provider(l.overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("loading overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// FromEnvironment loads the profile named by APP_ENVIRONMENT and validates
// the result. Both binaries start here.
func FromEnvironment(opts ...Option) (*Config, error) {
	profile := os.Getenv(EnvPrefix + "ENVIRONMENT")
	if profile == "" {
		profile = DefaultProfile
	}

	cfg, err := Load(profile, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading %q profile: %w", profile, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKeyMapper turns APP_SERVICES_REMOTE_BASE_URL into services.remote.base_url.
// Loaded keys are matched whole so underscores inside a key survive.
func envKeyMapper(known []string) func(string) string {
	byEnv := make(map[string]string, len(known))
	for _, key := range known {
		byEnv[strings.ReplaceAll(key, ".", "_")] = key
	}

	return func(name string) string {
		name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
		if key, ok := byEnv[name]; ok {
			return key
		}

		return strings.ReplaceAll(name, "_", ".")
	}
}
