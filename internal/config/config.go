// Package config provides Viper-based configuration loading for the draw-and-guess server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Stats backend identifiers.
const (
	StatsBackendFile     = "file"
	StatsBackendPostgres = "postgres"
	StatsBackendRedis    = "redis"
)

// ListenerConfig holds TCP listener settings.
type ListenerConfig struct {
	// Host is the bind address for the game listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port players connect to.
	Port int `mapstructure:"port"`
	// ReadTimeout bounds a single line read. Zero disables it, so a silent
	// peer keeps its slot until its socket closes.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds a single line write.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (l ListenerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// GameConfig holds round pacing and word selection settings.
type GameConfig struct {
	// RoundPause is the delay between announcing a correct guess and rotating roles.
	RoundPause time.Duration `mapstructure:"round_pause"`
	// StartDelay is the delay before the first round once the second player joins.
	StartDelay time.Duration `mapstructure:"start_delay"`
	// RejectGrace is how long a rejected third connection stays open so the ERROR line is delivered.
	RejectGrace time.Duration `mapstructure:"reject_grace"`
	// WordsFile is an optional YAML word list; empty means the built-in list.
	WordsFile string `mapstructure:"words_file"`
	// PointsPerGuess is awarded to the guesser on a correct guess.
	PointsPerGuess int `mapstructure:"points_per_guess"`
}

// StatsConfig selects where cumulative player statistics are kept.
type StatsConfig struct {
	// Backend is one of "file", "postgres", "redis".
	Backend string `mapstructure:"backend"`
	// Path is the JSON document used by the file backend.
	Path string `mapstructure:"path"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Name              string        `mapstructure:"name"`
	SSLMode           string        `mapstructure:"sslmode"`
	ApplicationName   string        `mapstructure:"application_name"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings for the redis stats backend.
type RedisConfig struct {
	// URL is a redis:// connection URL.
	URL string `mapstructure:"url"`
	// Key is the hash holding one field per nickname.
	Key string `mapstructure:"key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Listener ListenerConfig `mapstructure:"listener"`
	Game     GameConfig     `mapstructure:"game"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateListener(c.Listener); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStats(c.Stats); err != nil {
		errs = append(errs, err.Error())
	}
	// Backend-specific sections are only checked when selected.
	switch c.Stats.Backend {
	case StatsBackendPostgres:
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	case StatsBackendRedis:
		if err := validateRedis(c.Redis); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateListener(l ListenerConfig) error {
	var errs []string
	if l.Port < 0 || l.Port > 65535 {
		errs = append(errs, fmt.Sprintf("listener.port must be 0-65535, got %d", l.Port))
	}
	if l.ReadTimeout < 0 {
		errs = append(errs, "listener.read_timeout must not be negative")
	}
	if l.WriteTimeout < 0 {
		errs = append(errs, "listener.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.RoundPause < 0 {
		errs = append(errs, "game.round_pause must not be negative")
	}
	if g.StartDelay < 0 {
		errs = append(errs, "game.start_delay must not be negative")
	}
	if g.RejectGrace < 0 {
		errs = append(errs, "game.reject_grace must not be negative")
	}
	if g.PointsPerGuess < 1 {
		errs = append(errs, fmt.Sprintf("game.points_per_guess must be >= 1, got %d", g.PointsPerGuess))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStats(s StatsConfig) error {
	validBackends := map[string]bool{StatsBackendFile: true, StatsBackendPostgres: true, StatsBackendRedis: true}
	if !validBackends[s.Backend] {
		return fmt.Errorf("stats.backend must be one of [file, postgres, redis], got %q", s.Backend)
	}
	if s.Backend == StatsBackendFile && s.Path == "" {
		return fmt.Errorf("stats.path must not be empty for the file backend")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if d.HealthCheckPeriod < 0 {
		errs = append(errs, "database.health_check_period must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRedis(r RedisConfig) error {
	var errs []string
	if !strings.HasPrefix(r.URL, "redis://") && !strings.HasPrefix(r.URL, "rediss://") {
		errs = append(errs, fmt.Sprintf("redis.url must start with redis:// or rediss://, got %q", r.URL))
	}
	if r.Key == "" {
		errs = append(errs, "redis.key must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults plus
// environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and DRAWGUESS_ environment
// overrides applied, ready for a config file or flag bindings.
func NewViper() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with DRAWGUESS_ prefix
	v.SetEnvPrefix("DRAWGUESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listener.host", "0.0.0.0")
	v.SetDefault("listener.port", 8888)
	v.SetDefault("listener.read_timeout", "0s")
	v.SetDefault("listener.write_timeout", "10s")

	v.SetDefault("game.round_pause", "2s")
	v.SetDefault("game.start_delay", "100ms")
	v.SetDefault("game.reject_grace", "200ms")
	v.SetDefault("game.words_file", "")
	v.SetDefault("game.points_per_guess", 10)

	v.SetDefault("stats.backend", StatsBackendFile)
	v.SetDefault("stats.path", "game_stats.json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "drawguess")
	v.SetDefault("database.password", "drawguess")
	v.SetDefault("database.name", "drawguess")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.application_name", "drawguess")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.health_check_period", "1m")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.key", "drawguess:stats")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
