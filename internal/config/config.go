// Package config loads and validates server configuration from
// defaults, an optional config file, environment variables, and command
// line flags, in ascending precedence.
package config

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"graphloader/internal/pagination"
)

// Config is the full server configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Pagination    PaginationConfig    `mapstructure:"pagination"`
	Store         StoreConfig         `mapstructure:"store"`
	Log           LogConfig           `mapstructure:"log"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the MySQL connection pool.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the config as a go-sql-driver DSN.
func (d DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
	cfg.DBName = d.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// PaginationConfig bounds page inputs.
type PaginationConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
	MaxPageNumber   int `mapstructure:"max_page_number"`
	AllItemsSize    int `mapstructure:"all_items_size"`
}

// Limits converts the config into pagination limits.
func (p PaginationConfig) Limits() pagination.Limits {
	return pagination.Limits{
		DefaultPageSize: p.DefaultPageSize,
		MaxPageSize:     p.MaxPageSize,
		MaxPageNumber:   p.MaxPageNumber,
		AllItemsSize:    p.AllItemsSize,
	}
}

// StoreConfig tunes SQL generation.
type StoreConfig struct {
	MaxInClause     int  `mapstructure:"max_in_clause"`
	WindowFunctions bool `mapstructure:"window_functions"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig configures telemetry export.
type ObservabilityConfig struct {
	Enabled          bool       `mapstructure:"enabled"`
	ServiceName      string     `mapstructure:"service_name"`
	ServiceVersion   string     `mapstructure:"service_version"`
	Environment      string     `mapstructure:"environment"`
	TraceSampleRatio float64    `mapstructure:"trace_sample_ratio"`
	OTLP             OTLPConfig `mapstructure:"otlp"`
}

// OTLPConfig configures the OTLP trace and log exporters.
type OTLPConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Protocol string        `mapstructure:"protocol"`
	Insecure bool          `mapstructure:"insecure"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port %d out of range", c.Database.Port)
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}

	p := c.Pagination
	if p.DefaultPageSize < 1 {
		return fmt.Errorf("pagination.default_page_size must be positive")
	}
	if p.MaxPageSize < p.DefaultPageSize {
		return fmt.Errorf("pagination.max_page_size %d below default page size %d", p.MaxPageSize, p.DefaultPageSize)
	}
	if p.MaxPageNumber < 1 {
		return fmt.Errorf("pagination.max_page_number must be positive")
	}
	if p.AllItemsSize < p.MaxPageSize {
		return fmt.Errorf("pagination.all_items_size %d below max page size %d", p.AllItemsSize, p.MaxPageSize)
	}

	if c.Store.MaxInClause < 1 {
		return fmt.Errorf("store.max_in_clause must be positive")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", c.Log.Format)
	}

	ratio := c.Observability.TraceSampleRatio
	if ratio < 0 || ratio > 1 {
		return fmt.Errorf("observability.trace_sample_ratio %v out of [0, 1]", ratio)
	}
	return nil
}
