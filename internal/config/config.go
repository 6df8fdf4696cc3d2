//-------------------------------------------------------------------------
//
// pgEdge Dummy Data Generator
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-dummydata.
// Configuration is loaded from config files, a small set of PostgreSQL
// environment variables, and CLI flags. CLI flags take precedence over the
// environment, which takes precedence over config file values.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all configuration for pgedge-dummydata.
type Config struct {
	// Connection is a full PostgreSQL connection string. When set it is used
	// as-is and the Database section is ignored.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Database holds discrete connection parameters.
	Database DatabaseConfig `mapstructure:"database"`

	// Server holds configuration for the serve subcommand.
	Server ServerConfig `mapstructure:"server"`

	// API holds configuration for the api subcommand.
	API APIConfig `mapstructure:"api"`

	// Load holds configuration for the load subcommand.
	Load LoadConfig `mapstructure:"load"`

	// Init holds configuration for the init subcommand.
	Init InitConfig `mapstructure:"init"`
}

// DatabaseConfig holds the PostgreSQL connection parameters.
type DatabaseConfig struct {
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`

	// MaxConns caps the connection pool size.
	MaxConns int `mapstructure:"max_conns"`
}

// ServerConfig holds configuration for the dummy-data server.
type ServerConfig struct {
	// Listen is the address the HTTP server binds to.
	Listen string `mapstructure:"listen"`

	// StatsRefreshEvery forces a bounds refresh on every Nth insertion request.
	StatsRefreshEvery int `mapstructure:"stats_refresh_every"`

	// EmailProbability is the chance that a generated customer has an email.
	EmailProbability float64 `mapstructure:"email_probability"`

	// BatchSize is the number of order lines per INSERT statement.
	BatchSize int `mapstructure:"batch_size"`

	// MaxRowsPerKind caps the count a request may ask for per kind.
	MaxRowsPerKind int `mapstructure:"max_rows_per_kind"`

	// EnsureSchema runs the schema bootstrapper before serving.
	EnsureSchema bool `mapstructure:"ensure_schema"`
}

// APIConfig holds configuration for the catalog API.
type APIConfig struct {
	// Listen is the address the HTTP server binds to.
	Listen string `mapstructure:"listen"`

	// DefaultLimit is the page size used when a request has no usable limit.
	DefaultLimit int `mapstructure:"default_limit"`
}

// LoadConfig holds configuration for the load-test client.
type LoadConfig struct {
	// GenURL is the base URL of the dummy-data server.
	GenURL string `mapstructure:"gen_url"`

	// APIURL is the base URL of the catalog API.
	APIURL string `mapstructure:"api_url"`

	// OrderReads is the number of order list reads added to the last wave.
	OrderReads int `mapstructure:"order_reads"`

	// MaxInFlight caps concurrent requests within a wave (0 = unbounded).
	MaxInFlight int `mapstructure:"max_in_flight"`

	// RequestTimeout is the per-request timeout in seconds (0 = none).
	RequestTimeout int `mapstructure:"request_timeout"`
}

// InitConfig holds configuration for schema initialization.
type InitConfig struct {
	// SchemaFile replaces the embedded DDL script when set.
	SchemaFile string `mapstructure:"schema_file"`

	// DropExisting drops existing tables before initialization.
	DropExisting bool `mapstructure:"drop_existing"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"connection":        "DATABASE_URL",
	"database.name":     "PG_DBNAME",
	"database.user":     "PG_USER",
	"database.password": "PG_PASSWORD",
	"database.host":     "PG_HOST",
	"database.port":     "PG_PORT",
	"database.sslmode":  "PG_SSLMODE",
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Database: DatabaseConfig{
			Name:     "co",
			User:     "customuser",
			Password: "custompassword",
			Host:     "pgpool",
			Port:     5432,
			SSLMode:  "disable",
			MaxConns: 20,
		},
		Server: ServerConfig{
			Listen:            ":8082",
			StatsRefreshEvery: 5,
			EmailProbability:  0.5,
			BatchSize:         1000,
			MaxRowsPerKind:    100000,
			EnsureSchema:      true,
		},
		API: APIConfig{
			Listen:       ":8081",
			DefaultLimit: 10,
		},
		Load: LoadConfig{
			GenURL:     "http://localhost:8080/gen",
			APIURL:     "http://localhost:8080/api",
			OrderReads: 100,
		},
	}
}

// Load reads configuration from config files and the environment.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-dummydata.yaml
// 3. ~/.config/pgedge-dummydata/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-dummydata")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-dummydata"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// ConnString returns the PostgreSQL connection string for the configuration.
func (c *Config) ConnString() string {
	if c.Connection != "" {
		return c.Connection
	}

	d := c.Database
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else if d.User != "" {
		u.User = url.User(d.User)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// Validate checks that database configuration is present.
func (c *Config) Validate() error {
	if c.Connection != "" {
		return nil
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max_conns must be at least 1")
	}
	return nil
}

// ValidateServer checks configuration required for the serve command.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("server listen address is required")
	}
	if c.Server.StatsRefreshEvery < 1 {
		return fmt.Errorf("stats_refresh_every must be at least 1")
	}
	if c.Server.EmailProbability < 0 || c.Server.EmailProbability > 1 {
		return fmt.Errorf("email_probability must be between 0 and 1")
	}
	if c.Server.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1")
	}
	if c.Server.MaxRowsPerKind < 1 {
		return fmt.Errorf("max_rows_per_kind must be at least 1")
	}
	return nil
}

// ValidateAPI checks configuration required for the api command.
func (c *Config) ValidateAPI() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.API.Listen == "" {
		return fmt.Errorf("api listen address is required")
	}
	if c.API.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be at least 1")
	}
	return nil
}

// ValidateLoad checks configuration required for the load command.
func (c *Config) ValidateLoad() error {
	if err := validateBaseURL("gen_url", c.Load.GenURL); err != nil {
		return err
	}
	if err := validateBaseURL("api_url", c.Load.APIURL); err != nil {
		return err
	}
	if c.Load.OrderReads < 0 {
		return fmt.Errorf("order_reads must be non-negative")
	}
	if c.Load.MaxInFlight < 0 {
		return fmt.Errorf("max_in_flight must be non-negative")
	}
	if c.Load.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be non-negative")
	}
	return nil
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
