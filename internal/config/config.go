// Package config loads the formflow backend configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultAddr is the default listen address of the backend.
	DefaultAddr = ":8000"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultStorage keeps submissions in memory.
	DefaultStorage = "memory"

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// DefaultCORSOrigins are the development front-end origins.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://localhost:5173",
}

// Config is the backend configuration.
type Config struct {
	Server  Server  `toml:"server"`
	Schemas Schemas `toml:"schemas"`
	Storage Storage `toml:"storage"`
	Log     Log     `toml:"log"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr            string   `toml:"addr"`
	CORSOrigins     []string `toml:"cors_origins"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Schemas configures where form schemas are loaded from. The embedded
// examples are served when both Dir and OpenAPI are empty.
type Schemas struct {
	Dir      string `toml:"dir"`
	OpenAPI  string `toml:"openapi"`
	Examples bool   `toml:"examples"`
}

// Storage selects the submission store.
type Storage struct {
	Driver  string `toml:"driver"` // memory or postgres
	DSN     string `toml:"dsn"`
	Migrate bool   `toml:"migrate"`
}

// Log configures pkg/logger.
type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Duration decodes TOML strings such as "15s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            DefaultAddr,
			CORSOrigins:     append([]string(nil), DefaultCORSOrigins...),
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{30 * time.Second},
			ShutdownTimeout: Duration{DefaultShutdownTimeout},
		},
		Schemas: Schemas{Examples: true},
		Storage: Storage{Driver: DefaultStorage},
		Log:     Log{Level: DefaultLogLevel},
	}
}

// Load reads path over the defaults. A missing path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return cfg, fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate checks option combinations.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return errors.New("config: storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	return nil
}

// Exists reports whether path names a readable file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
