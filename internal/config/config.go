package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.schemagraph/schemagraph.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version int          `yaml:"version"`
	Source  SourceConfig `yaml:"source"`
	Output  OutputConfig `yaml:"output,omitempty"`
	Logging LogConfig    `yaml:"logging,omitempty"`
}

// SourceConfig selects the database and the tables to introspect.
type SourceConfig struct {
	URL           string   `yaml:"url"` // postgres://, mysql://, sqlite:// or oracle://
	Schema        string   `yaml:"schema,omitempty"`
	Tables        []string `yaml:"tables,omitempty"`
	ExcludeTables []string `yaml:"exclude_tables,omitempty"`
	TablePattern  string   `yaml:"table_pattern,omitempty"`
}

// OutputConfig defines where and how the resolved schema is written.
type OutputConfig struct {
	Format         string `yaml:"format,omitempty"` // text, markdown or yaml
	Dir            string `yaml:"dir,omitempty"`
	File           string `yaml:"file,omitempty"`
	SplitThreshold int    `yaml:"split_threshold,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	path = ExpandHome(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

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

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}
	path = ExpandHome(path)

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
	if c.Output.Format == "" {
		c.Output.Format = "text"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Output.Dir = ExpandHome(c.Output.Dir)
	c.Output.File = ExpandHome(c.Output.File)
}

var secretPattern = regexp.MustCompile(`\$\{ENV:([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Source.URL, err = ResolveValue(c.Source.URL)
	if err != nil {
		return fmt.Errorf("source url: %w", err)
	}
	return nil
}

// ResolveValue replaces every ${ENV:NAME} reference in val with the value of
// the environment variable. A reference to an unset variable is an error.
func ResolveValue(val string) (string, error) {
	var missing string
	out := secretPattern.ReplaceAllStringFunc(val, func(ref string) string {
		name := secretPattern.FindStringSubmatch(ref)[1]
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			if missing == "" {
				missing = name
			}
			return ref
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("environment variable %s not set", missing)
	}
	return out, nil
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
