// Package config resolves runtime settings from defaults, an optional YAML
// file, a .env file, BACKCOURT_* environment variables and CLI flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/backcourt/backcourt/pkg/httpclient"
)

const (
	envPrefix = "BACKCOURT"

	// defaultConfigName is looked up in the working directory when no
	// config file is given.
	defaultConfigName = "config"

	// DefaultUserAgent is the browser identifier sent when none is configured.
	DefaultUserAgent = httpclient.DefaultUserAgent
)

// Config is the fully resolved application configuration.
type Config struct {
	Log        LogConfig     `mapstructure:"log"`
	HTTP       HTTPConfig    `mapstructure:"http"`
	Scraper    ScraperConfig `mapstructure:"scraper"`
	Server     ServerConfig  `mapstructure:"server"`
	Adapters   FileConfig    `mapstructure:"adapters"`
	Publishers FileConfig    `mapstructure:"publishers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTPConfig describes the single outbound client shared by all adapters.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type ScraperConfig struct {
	Workers      int `mapstructure:"workers"`
	MaxBodyBytes int `mapstructure:"max_body_bytes"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// FileConfig points at an external registry file. Empty means built-in.
type FileConfig struct {
	File string `mapstructure:"file"`
}

// Options controls where Load looks for settings.
type Options struct {
	ConfigFile string
	EnvFile    string
	Flags      *pflag.FlagSet
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"addr":       "server.addr",
	"adapters":   "adapters.file",
	"publishers": "publishers.file",
	"workers":    "scraper.workers",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("scraper.workers", 4)
	v.SetDefault("scraper.max_body_bytes", 5<<20)
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("adapters.file", "")
	v.SetDefault("publishers.file", "")
}

// Load resolves the configuration. Precedence, highest first: changed flags,
// environment, config file, defaults. Without an explicit ConfigFile, an
// optional ./config.yaml (or .yml/.json) is read.
func Load(opts Options) (Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := strings.TrimSpace(opts.ConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.sanitize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadEnvFile exports variables from a dotenv file. A missing file is fine.
func loadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) sanitize() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.HTTP.UserAgent = strings.TrimSpace(c.HTTP.UserAgent)
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Adapters.File = strings.TrimSpace(c.Adapters.File)
	c.Publishers.File = strings.TrimSpace(c.Publishers.File)

	origins := make([]string, 0, len(c.Server.CORSOrigins))
	for _, o := range c.Server.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.CORSOrigins = origins
}

// Validate checks the resolved values.
func (c Config) Validate() error {
	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout must be > 0")
	}
	if c.HTTP.UserAgent == "" {
		return errors.New("http.user_agent is required")
	}
	if c.Scraper.Workers <= 0 {
		return errors.New("scraper.workers must be > 0")
	}
	if c.Scraper.MaxBodyBytes <= 0 {
		return errors.New("scraper.max_body_bytes must be > 0")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be > 0")
	}
	return nil
}
