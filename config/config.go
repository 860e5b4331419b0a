// ABOUTME: Application configuration for leadsync
// ABOUTME: JSON file under XDG data home with .env and environment overrides
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"
)

const (
	AppName        = "leadsync"
	ConfigFileName = "config.json"

	BackendSQLite = "sqlite"
	BackendCharm  = "charm"

	DefaultSyncInterval = 5 * time.Minute
	MinSyncInterval     = time.Minute
)

// ErrUnknownBackend is returned by Validate for anything other than sqlite or charm.
var ErrUnknownBackend = errors.New("unknown backend")

// Config holds everything the CLI and MCP server need to reach the leads
// server and open the local cache.
type Config struct {
	ServerURL       string `json:"server_url,omitempty"`
	Token           string `json:"token,omitempty"`
	Backend         string `json:"backend"`
	DBPath          string `json:"db_path,omitempty"`
	ProtectedSource string `json:"protected_source,omitempty"`
	SyncInterval    string `json:"sync_interval,omitempty"`
	Verbose         bool   `json:"verbose,omitempty"`
	DeviceID        string `json:"device_id"`
}

// Path returns the XDG location of the config file.
func Path() string {
	return filepath.Join(xdg.DataHome, AppName, ConfigFileName)
}

// Default returns a config with defaults and a freshly generated device id.
func Default() *Config {
	return &Config{
		Backend:      BackendSQLite,
		SyncInterval: DefaultSyncInterval.String(),
		DeviceID:     GenerateDeviceID(),
	}
}

// Load reads .env from the working directory (if present) and the config file at Path.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFrom(Path())
}

// LoadFrom loads config from path with environment overrides applied. A
// missing file yields defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		applyEnvOverrides(cfg)
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Backend == "" {
		cfg.Backend = BackendSQLite
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = GenerateDeviceID()
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LEADSYNC_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("LEADSYNC_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("LEADSYNC_BACKEND"); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("LEADSYNC_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LEADSYNC_PROTECTED_SOURCE"); v != "" {
		cfg.ProtectedSource = v
	}
	if v := os.Getenv("LEADSYNC_SYNC_INTERVAL"); v != "" {
		cfg.SyncInterval = v
	}
	if v := os.Getenv("LEADSYNC_VERBOSE"); v != "" {
		if verbose, err := strconv.ParseBool(v); err == nil {
			cfg.Verbose = verbose
		}
	}
}

// Interval parses SyncInterval, falling back to the default when empty or
// invalid and clamping to MinSyncInterval.
func (c *Config) Interval() time.Duration {
	d, err := time.ParseDuration(c.SyncInterval)
	if err != nil || d <= 0 {
		return DefaultSyncInterval
	}
	if d < MinSyncInterval {
		return MinSyncInterval
	}
	return d
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendCharm:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	return nil
}

// SaveTo writes the config to path with owner-only permissions.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// Save writes the config to Path.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// GenerateDeviceID returns a new ULID identifying this installation.
func GenerateDeviceID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
