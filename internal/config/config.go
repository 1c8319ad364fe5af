package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/gobwas/variant"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Limits   LimitsConfig   `yaml:"limits"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`

	// CORSOrigins lists origins allowed to call the API from browsers.
	// Empty list disables CORS handling.
	CORSOrigins []string `yaml:"cors_origins"`

	// FrontendDir is a directory with static frontend build. Frontend is
	// not served if empty.
	FrontendDir string `yaml:"frontend_dir"`
}

type AdminConfig struct {
	Addr        string `yaml:"addr"`
	EnablePprof bool   `yaml:"enable_pprof"`
}

type LogConfig struct {
	Level    zapcore.Level `yaml:"level"`
	Encoding string        `yaml:"encoding"`
}

type CacheConfig struct {
	Size int `yaml:"size"`
}

// DefaultsConfig holds values used when request omits them.
type DefaultsConfig struct {
	Algorithm    variant.Algorithm    `yaml:"algorithm"`
	Distribution variant.Distribution `yaml:"distribution"`
	TableSize    int                  `yaml:"table_size"`
}

type LimitsConfig struct {
	// MaxIdentifierLength and MaxSeedLength are measured in characters.
	MaxIdentifierLength int `yaml:"max_identifier_length"`
	MaxSeedLength       int `yaml:"max_seed_length"`
	MinTableSize        int `yaml:"min_table_size"`
	MaxTableSize        int `yaml:"max_table_size"`
	MaxBodyBytes        int `yaml:"max_body_bytes"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8000",
		},
		Admin: AdminConfig{
			Addr: ":9090",
		},
		Log: LogConfig{
			Level:    zapcore.InfoLevel,
			Encoding: "json",
		},
		Cache: CacheConfig{
			Size: variant.DefaultCacheSize,
		},
		Defaults: DefaultsConfig{
			Algorithm:    variant.DefaultAlgorithm,
			Distribution: variant.DefaultDistribution,
			TableSize:    variant.DefaultTableSize,
		},
		Limits: LimitsConfig{
			MaxIdentifierLength: 1000,
			MaxSeedLength:       500,
			MinTableSize:        100,
			MaxTableSize:        1000000,
			MaxBodyBytes:        64 << 10,
		},
	}
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML document over the defaults and validates the result.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if c.Admin.Addr != "" && c.Admin.Addr == c.Server.Addr {
		return errors.New("config: admin.addr must differ from server.addr")
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		return fmt.Errorf("config: unknown log.encoding %q", c.Log.Encoding)
	}
	if c.Cache.Size <= 0 {
		return errors.New("config: cache.size must be > 0")
	}
	if c.Limits.MaxIdentifierLength <= 0 {
		return errors.New("config: limits.max_identifier_length must be > 0")
	}
	if c.Limits.MaxSeedLength <= 0 {
		return errors.New("config: limits.max_seed_length must be > 0")
	}
	if c.Limits.MaxBodyBytes <= 0 {
		return errors.New("config: limits.max_body_bytes must be > 0")
	}
	if c.Limits.MinTableSize <= 0 {
		return errors.New("config: limits.min_table_size must be > 0")
	}
	if c.Limits.MaxTableSize < c.Limits.MinTableSize {
		return errors.New("config: limits.max_table_size must be >= limits.min_table_size")
	}
	if s := c.Defaults.TableSize; s < c.Limits.MinTableSize || s > c.Limits.MaxTableSize {
		return fmt.Errorf(
			"config: defaults.table_size must be within [%d, %d]",
			c.Limits.MinTableSize, c.Limits.MaxTableSize,
		)
	}
	if _, err := c.Defaults.Algorithm.MarshalText(); err != nil {
		return fmt.Errorf("config: defaults.algorithm: %w", err)
	}
	if _, err := c.Defaults.Distribution.MarshalText(); err != nil {
		return fmt.Errorf("config: defaults.distribution: %w", err)
	}
	return nil
}
