package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion    = 1
	DefaultPath       = "~/.dilla/dilla.yaml"
	DefaultIterations = 20
	DefaultStagingDir = "~/.dilla/media"
)

// Config is the top-level configuration.
type Config struct {
	Version    int         `yaml:"version"`
	Store      StoreConfig `yaml:"store"`
	Catalog    string      `yaml:"catalog"`
	Debug      bool        `yaml:"debug,omitempty"`
	Iterations int         `yaml:"iterations,omitempty"`
	Seed       uint64      `yaml:"seed,omitempty"`
	SecretKey  string      `yaml:"secret_key,omitempty"`
	URLs       []string    `yaml:"urls,omitempty"`

	// UseExisting seeds reference pools from rows already in the store.
	UseExisting   bool              `yaml:"use_existing,omitempty"`
	Images        ImageConfig       `yaml:"images,omitempty"`
	Logging       LogConfig         `yaml:"logging,omitempty"`
	LockPath      string            `yaml:"lock_path,omitempty"`
	TypeOverrides map[string]string `yaml:"type_overrides,omitempty"`
}

// StoreConfig defines the database being populated.
type StoreConfig struct {
	Type     string `yaml:"type"` // postgresql, mysql, sqlite, mongodb or memory
	URL      string `yaml:"url"`
	Database string `yaml:"database,omitempty"` // mongodb only
	Schema   string `yaml:"schema,omitempty"`   // postgresql discovery, default public
}

// ImageConfig controls placeholder image synthesis.
type ImageConfig struct {
	Enabled    bool     `yaml:"enabled,omitempty"`
	StagingDir string   `yaml:"staging_dir,omitempty"`
	S3         S3Config `yaml:"s3,omitempty"`
}

// S3Config optionally mirrors generated images to a bucket.
type S3Config struct {
	Bucket  string `yaml:"bucket,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`
	Region  string `yaml:"region,omitempty"`
	Profile string `yaml:"profile,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // default ~/.dilla/logs/
}

// Load reads and parses the config file from the given path. A .env file in
// the working directory is loaded first so ${ENV:...} references can use it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses config YAML, resolves secrets and applies defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a starter configuration for `dilla init`.
func Default() *Config {
	cfg := &Config{
		Version: CurrentVersion,
		Store: StoreConfig{
			Type: "postgresql",
			URL:  "${ENV:DATABASE_URL}",
		},
		Catalog: "catalog.yaml",
	}
	cfg.applyDefaults()
	return cfg
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyDefaults() {
	if c.Store.Type == "" {
		c.Store.Type = "postgresql"
	}
	if c.Store.Schema == "" && c.Store.Type == "postgresql" {
		c.Store.Schema = "public"
	}
	if c.Iterations <= 0 {
		c.Iterations = DefaultIterations
	}
	if c.Images.StagingDir == "" {
		c.Images.StagingDir = DefaultStagingDir
	}
	c.Images.StagingDir = ExpandHome(c.Images.StagingDir)
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.dilla/logs/")
	}
	if c.LockPath == "" {
		c.LockPath = ExpandHome("~/.dilla/dilla.lock")
	}
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Store.URL, err = ResolveValue(c.Store.URL)
	if err != nil {
		return fmt.Errorf("store url: %w", err)
	}
	c.SecretKey, err = ResolveValue(c.SecretKey)
	if err != nil {
		return fmt.Errorf("secret key: %w", err)
	}
	return nil
}

// ResolveValue replaces every secret reference in a string value, so a
// reference may stand alone or sit inside a connection URL.
func ResolveValue(val string) (string, error) {
	var firstErr error
	out := secretPattern.ReplaceAllStringFunc(val, func(m string) string {
		if firstErr != nil {
			return m
		}
		parts := secretPattern.FindStringSubmatch(m)
		v, err := resolveRef(parts[1], parts[2])
		if err != nil {
			firstErr = err
			return m
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func resolveRef(provider, ref string) (string, error) {
	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
