package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "GRAPHLOADER"

var defineFlagsOnce sync.Once

func newEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.database", "graphloader")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("pagination.default_page_size", 10)
	v.SetDefault("pagination.max_page_size", 100)
	v.SetDefault("pagination.max_page_number", 10_000)
	v.SetDefault("pagination.all_items_size", 10_000)

	v.SetDefault("store.max_in_clause", 1000)
	v.SetDefault("store.window_functions", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.service_name", "graphloader")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.trace_sample_ratio", 1.0)
	v.SetDefault("observability.otlp.protocol", "grpc")
	v.SetDefault("observability.otlp.timeout", 10*time.Second)
}

func defineFlags() {
	defineFlagsOnce.Do(func() {
		pflag.String("config", "", "path to config file")
		pflag.String("server.host", "", "listen host")
		pflag.Int("server.port", 0, "listen port")
		pflag.String("database.host", "", "database host")
		pflag.Int("database.port", 0, "database port")
		pflag.String("database.user", "", "database user")
		pflag.String("database.database", "", "database name")
		pflag.String("log.level", "", "log level (debug, info, warn, error)")
		pflag.String("log.format", "", "log format (json, text)")
	})
}

// bindChangedFlags gives explicitly-set flags the highest precedence
// without letting zero-valued unset flags mask file or env settings.
func bindChangedFlags(v *viper.Viper) {
	pflag.CommandLine.Visit(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		if err := v.BindPFlag(f.Name, f); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", f.Name, err))
		}
	})
}

// Load assembles the configuration. Precedence, highest first: command
// line flags, environment variables (GRAPHLOADER_SERVER_PORT style), the
// config file, built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	defineFlags()
	if !pflag.Parsed() {
		pflag.Parse()
	}

	cfgPath, _ := pflag.CommandLine.GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("graphloader")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/graphloader/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if cfgPath != "" {
			return nil, fmt.Errorf("read config file %q: %w", cfgPath, err)
		}
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(newEnvReplacer())
	v.AutomaticEnv()

	bindChangedFlags(v)

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
