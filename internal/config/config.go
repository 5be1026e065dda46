package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the default configuration file.
const FileName = "raket.yaml"

// EnvPrefix prefixes environment overrides: database.url is read from
// RAKET_DATABASE_URL.
const EnvPrefix = "RAKET"

// Rule sources.
const (
	SourceBuiltin  = "builtin"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the top-level raket.yaml configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Audit    AuditConfig    `yaml:"audit" mapstructure:"audit"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Address      string        `yaml:"address" mapstructure:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// LoggingConfig holds logging configuration options.
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format     string `yaml:"format" mapstructure:"format"` // json, console
	OutputFile string `yaml:"output_file,omitempty" mapstructure:"output_file"`
}

// RulesConfig selects where rule tables come from.
type RulesConfig struct {
	Source string `yaml:"source" mapstructure:"source"` // builtin, file, postgres
	Path   string `yaml:"path,omitempty" mapstructure:"path"`
}

// DatabaseConfig holds the Postgres connection.
type DatabaseConfig struct {
	URL string `yaml:"url,omitempty" mapstructure:"url"`
}

// AuditConfig controls the tax audit trail. An empty directory disables it.
type AuditConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			MaxBodyBytes: 10 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Rules: RulesConfig{
			Source: SourceBuiltin,
		},
		Audit: AuditConfig{
			Dir: "logs",
		},
	}
}

// Load reads configuration from path on top of the defaults, then applies
// RAKET_* environment overrides. An empty path uses defaults and
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_file", d.Logging.OutputFile)
	v.SetDefault("rules.source", d.Rules.Source)
	v.SetDefault("rules.path", d.Rules.Path)
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("audit.dir", d.Audit.Dir)
}

// LoadEnvFile loads KEY=value pairs from a .env file into the process
// environment. A missing file is not an error; variables already set win.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Validate checks that the rule source is usable.
func (c *Config) Validate() error {
	var problems []string
	switch c.Rules.Source {
	case SourceBuiltin:
	case SourceFile:
		if c.Rules.Path == "" {
			problems = append(problems, "rules.path is required for the file source")
		}
	case SourcePostgres:
		if c.Database.URL == "" {
			problems = append(problems, "database.url is required for the postgres source")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown rules.source %q", c.Rules.Source))
	}
	if c.Server.MaxBodyBytes <= 0 {
		problems = append(problems, "server.max_body_bytes must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("writing config: %s already exists", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
