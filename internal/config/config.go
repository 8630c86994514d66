package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix scopes environment overrides, e.g. FUNCCENSUS_WORKERS=4.
	EnvPrefix = "FUNCCENSUS"

	// FileName is the config file looked up in the working and home
	// directories, without its .yaml extension.
	FileName = ".funccensus"

	DefaultFormat   = "json"
	DefaultDebounce = 250 * time.Millisecond
)

// Formats lists the accepted output formats.
var Formats = []string{"json", "yaml", "tree"}

// Config represents the full funccensus configuration
type Config struct {
	Extensions []string      `mapstructure:"extensions"`
	Exclude    []string      `mapstructure:"exclude"`
	Gitignore  bool          `mapstructure:"gitignore"`
	Workers    int           `mapstructure:"workers"`
	Format     string        `mapstructure:"format"`
	Debounce   time.Duration `mapstructure:"debounce"` // Watch mode quiet period
	Verbose    bool          `mapstructure:"verbose"`
}

// SetDefaults registers every key so environment overrides are visible to
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("extensions", []string{".py"})
	v.SetDefault("exclude", []string{})
	v.SetDefault("gitignore", false)
	v.SetDefault("workers", 0)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("debounce", DefaultDebounce)
	v.SetDefault("verbose", false)
}

// Init wires v to its config sources. An explicit cfgFile must exist;
// otherwise .funccensus.yaml is looked up in the working directory and then
// the home directory, and its absence is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load unmarshals v into a Config, applies defaults and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	cfg.Extensions = NormalizeExtensions(cfg.Extensions)
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".py"}
	}

	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}

	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}

	var exclude []string
	for _, p := range cfg.Exclude {
		if p = strings.TrimSpace(p); p != "" {
			exclude = append(exclude, p)
		}
	}
	cfg.Exclude = exclude
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	valid := false
	for _, f := range Formats {
		if c.Format == f {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unsupported format %q (want one of %s)", c.Format, strings.Join(Formats, ", "))
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must be >= 0, got %s", c.Debounce)
	}
	return nil
}

// NormalizeExtensions trims entries, adds a missing leading dot, and drops
// blanks and duplicates while keeping order.
func NormalizeExtensions(exts []string) []string {
	seen := make(map[string]bool, len(exts))
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		for _, part := range strings.Split(ext, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if !strings.HasPrefix(part, ".") {
				part = "." + part
			}
			if seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}
