// Package config loads Village Lookup configuration for the service and the
// batch loader.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/artpar/villagelookup/internal/core/validation"
	"github.com/artpar/villagelookup/internal/shell/store"
)

// EnvPrefix prefixes every environment override, e.g. VILLAGE_SERVER_PORT.
const EnvPrefix = "VILLAGE"

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Registry RegistryConfig `mapstructure:"registry"`
	Log      LogConfig      `mapstructure:"log"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds reference store configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite3
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// QueryTimeout bounds the reference lookups of one validation run.
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// Store returns the store connection settings.
func (c DatabaseConfig) Store() store.Config {
	return store.Config{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// UpstreamConfig holds the tracker server the proxy relays to.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TrackerConfig holds submission validation configuration.
type TrackerConfig struct {
	// Program overrides the catalog's program when set.
	Program string `mapstructure:"program"`

	// RejectionFormat is "simple" or "dhis2".
	RejectionFormat string `mapstructure:"rejection_format"`

	MaxConcurrentChecks int `mapstructure:"max_concurrent_checks"`

	// FieldsFile optionally points at a YAML field catalog.
	FieldsFile string `mapstructure:"fields_file"`

	// CacheTTL is how long lookup search results are cached.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RegistryConfig holds the metadata source used by the batch loader.
type RegistryConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	TownshipOptionSet string        `mapstructure:"township_optionset_uid"`
	WardOptionSet     string        `mapstructure:"ward_optionset_uid"`
	VillageOptionSet  string        `mapstructure:"village_optionset_uid"`
	Timeout           time.Duration `mapstructure:"timeout"`
	BatchSize         int           `mapstructure:"batch_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds cross-origin settings for browser form front-ends.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// =============================================================================
// Config Loading
// =============================================================================

// envAliases binds the environment names used by existing deployments.
// The prefixed name always wins.
var envAliases = map[string][]string{
	"database.dsn":                    {"DATABASE_URL"},
	"upstream.base_url":               {"DHIS2_BASE_URL"},
	"registry.base_url":               {"DHIS2_BASE_URL"},
	"registry.username":               {"DHIS2_USERNAME"},
	"registry.password":               {"DHIS2_PASSWORD"},
	"registry.township_optionset_uid": {"TOWNSHIP_OPTIONSET_UID"},
	"registry.ward_optionset_uid":     {"WARD_OPTIONSET_UID"},
	"registry.village_optionset_uid":  {"VILLAGE_OPTIONSET_UID"},
}

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s") // must outlast upstream.timeout
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.driver", store.DriverPostgres)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.query_timeout", "10s")
	v.SetDefault("upstream.base_url", "http://localhost:8080")
	v.SetDefault("upstream.timeout", "60s")
	v.SetDefault("tracker.program", "")
	v.SetDefault("tracker.rejection_format", string(validation.FormatSimple))
	v.SetDefault("tracker.max_concurrent_checks", 8)
	v.SetDefault("tracker.fields_file", "")
	v.SetDefault("tracker.cache_ttl", "5m")
	v.SetDefault("registry.base_url", "")
	v.SetDefault("registry.username", "")
	v.SetDefault("registry.password", "")
	v.SetDefault("registry.township_optionset_uid", "")
	v.SetDefault("registry.ward_optionset_uid", "")
	v.SetDefault("registry.village_optionset_uid", "")
	v.SetDefault("registry.timeout", "180s")
	v.SetDefault("registry.batch_size", 1000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cors.allowed_origins", []string{})

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, aliases...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.DSN = normalizeDSN(cfg.Database.DSN)

	return &cfg, nil
}

// normalizeDSN drops the "+driver" suffix of SQLAlchemy-style URLs such as
// postgresql+asyncpg://, which lib/pq does not understand.
func normalizeDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	if base, _, found := strings.Cut(scheme, "+"); found {
		return base + "://" + rest
	}
	return dsn
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks the settings the service needs to start.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case store.DriverPostgres, store.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if _, err := validation.ParseRejectionFormat(c.Tracker.RejectionFormat); err != nil {
		errs = append(errs, fmt.Errorf("tracker.rejection_format: %w", err))
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("upstream.base_url is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}

	return errors.Join(errs...)
}

// ValidateRegistry checks the settings the batch loader needs.
func (c *Config) ValidateRegistry() error {
	var errs []error

	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Registry.BaseURL == "" {
		errs = append(errs, errors.New("registry.base_url is required"))
	}
	if c.Registry.Username == "" || c.Registry.Password == "" {
		errs = append(errs, errors.New("registry.username and registry.password are required"))
	}

	return errors.Join(errs...)
}

// =============================================================================
// Field Catalog
// =============================================================================

// Catalog returns the field catalog: the defaults, or the YAML file named by
// tracker.fields_file, with tracker.program applied on top.
func (c *Config) Catalog() (validation.Catalog, error) {
	catalog := validation.DefaultCatalog()

	if c.Tracker.FieldsFile != "" {
		data, err := os.ReadFile(c.Tracker.FieldsFile)
		if err != nil {
			return validation.Catalog{}, fmt.Errorf("read fields file: %w", err)
		}
		catalog, err = validation.ParseCatalog(data)
		if err != nil {
			return validation.Catalog{}, fmt.Errorf("parse fields file %s: %w", c.Tracker.FieldsFile, err)
		}
	}

	if c.Tracker.Program != "" {
		catalog.Program = c.Tracker.Program
	}

	if err := catalog.Validate(); err != nil {
		return validation.Catalog{}, err
	}
	return catalog, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
