// Package config loads gqlexpr settings from defaults, an optional config
// file, GQLEXPR_ environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	compilectx "github.com/hanpama/gqlexpr/internal/compilectx"
)

// EnvPrefix prefixes every environment variable. The key server.addr is
// read from GQLEXPR_SERVER_ADDR.
const EnvPrefix = "GQLEXPR"

type Config struct {
	GraphQL   GraphQL   `mapstructure:"graphql"`
	Server    Server    `mapstructure:"server"`
	Execution Execution `mapstructure:"execution"`
	Data      Data      `mapstructure:"datasource"`
	Authz     Authz     `mapstructure:"authz"`
	Otel      Otel      `mapstructure:"otel"`
	Log       Log       `mapstructure:"log"`
}

type GraphQL struct {
	Introspection bool `mapstructure:"introspection"`
}

type Server struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Path            string        `mapstructure:"path" validate:"required,startswith=/"`
	MetricsPath     string        `mapstructure:"metrics-path" validate:"omitempty,startswith=/"`
	Pretty          bool          `mapstructure:"pretty"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxBodyBytes    int64         `mapstructure:"max-body-bytes" validate:"gte=0"`
	MetadataHeaders []string      `mapstructure:"metadata-header"`
	CORSOrigins     []string      `mapstructure:"cors-origin"`
	JWTSecret       string        `mapstructure:"jwt-secret"`
	GraphiQL        bool          `mapstructure:"graphiql"`
}

type Execution struct {
	SeparateServiceFields bool `mapstructure:"separate-service-fields"`
	DebugInfo             bool `mapstructure:"debug-info"`
}

// Options converts the execution settings to compile options.
func (e Execution) Options() compilectx.Options {
	return compilectx.Options{
		ExecuteServiceFieldsSeparately: e.SeparateServiceFields,
		IncludeDebugInfo:               e.DebugInfo,
	}
}

type Data struct {
	// SQLite is a modernc sqlite DSN. Empty serves the data from memory.
	SQLite string `mapstructure:"sqlite"`
}

type Authz struct {
	// Policy is a casbin CSV policy file. Empty grants no policies.
	Policy string `mapstructure:"policy" validate:"omitempty,file"`
}

type Otel struct {
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Service  string `mapstructure:"service" validate:"required"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// New returns a viper instance with defaults and environment binding in
// place. Flags are bound onto it by the caller.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("graphql.introspection", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.path", "/graphql")
	v.SetDefault("server.metrics-path", "/metrics")
	v.SetDefault("server.pretty", false)
	v.SetDefault("server.timeout", 10*time.Second)
	v.SetDefault("server.max-body-bytes", 1<<20)
	v.SetDefault("server.metadata-header", []string{})
	v.SetDefault("server.cors-origin", []string{})
	v.SetDefault("server.jwt-secret", "")
	v.SetDefault("server.graphiql", true)
	v.SetDefault("execution.separate-service-fields", true)
	v.SetDefault("execution.debug-info", false)
	v.SetDefault("datasource.sqlite", "")
	v.SetDefault("authz.policy", "")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service", "gqlexpr")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file when it is not empty, then decodes and validates the
// settings of v.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// ApplyLogging configures the standard logrus logger.
func (c *Config) ApplyLogging() error {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	if c.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
