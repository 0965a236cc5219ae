package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const FileName = "datagen.config.json"

type Config struct {
	Version    string   `json:"version" mapstructure:"version"`
	StorePath  string   `json:"store_path" mapstructure:"store_path"`
	ExportPath string   `json:"export_path" mapstructure:"export_path"`
	MaxRows    int      `json:"max_rows" mapstructure:"max_rows"`
	Seed       int64    `json:"seed,omitempty" mapstructure:"seed"`
	Sinks      []string `json:"sinks" mapstructure:"sinks"`
	Database   Database `json:"database" mapstructure:"database"`
	Session    Session  `json:"session" mapstructure:"session"`
	Server     Server   `json:"server" mapstructure:"server"`
}

// Database describes the optional relational or document sink. URLEnv wins
// when the variable is set; otherwise the URL is built from the parts.
type Database struct {
	Provider    string `json:"provider" mapstructure:"provider"`
	URLEnv      string `json:"url_env" mapstructure:"url_env"`
	Host        string `json:"host,omitempty" mapstructure:"host"`
	Port        int    `json:"port,omitempty" mapstructure:"port"`
	Name        string `json:"name,omitempty" mapstructure:"name"`
	User        string `json:"user,omitempty" mapstructure:"user"`
	PasswordEnv string `json:"password_env" mapstructure:"password_env"`
	SSLMode     string `json:"sslmode,omitempty" mapstructure:"sslmode"`
}

type Session struct {
	Backend     string `json:"backend" mapstructure:"backend"`
	RedisURLEnv string `json:"redis_url_env" mapstructure:"redis_url_env"`
	TTL         string `json:"ttl" mapstructure:"ttl"`
}

// Expiry parses TTL. Sessions expire after this long without use.
func (s Session) Expiry() (time.Duration, error) {
	d, err := time.ParseDuration(s.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid session ttl %q: %w", s.TTL, err)
	}
	return d, nil
}

type Server struct {
	Port int `json:"port" mapstructure:"port"`
}

// Sink targets a generate call can write to.
const (
	SinkStore    = "store"
	SinkDatabase = "database"
	SinkFile     = "file"
)

func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Read loads the config file into viper. An explicit path must exist;
// otherwise dir is searched for datagen.config.json and a missing file just
// leaves the defaults in place. Malformed files are always an error.
func Read(path, dir string) error {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath(dir)
		viper.SetConfigType("json")
		viper.SetConfigName(strings.TrimSuffix(FileName, ".json"))
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.StorePath == "" {
		c.StorePath = filepath.Join("data", "datasets.db")
	}
	if c.ExportPath == "" {
		c.ExportPath = "exports"
	}
	if c.MaxRows == 0 {
		c.MaxRows = 100000
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []string{SinkStore}
	}
	if c.Database.Provider == "" {
		c.Database.Provider = "postgresql"
	}
	if c.Database.URLEnv == "" {
		c.Database.URLEnv = "DATABASE_URL"
	}
	if c.Database.PasswordEnv == "" {
		c.Database.PasswordEnv = "DATABASE_PASSWORD"
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.RedisURLEnv == "" {
		c.Session.RedisURLEnv = "REDIS_URL"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "24h"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5555
	}
}

func (c *Config) Validate() error {
	supportedProviders := []string{"postgresql", "postgres", "mysql", "sqlite", "sqlite3", "mongodb", "mongo"}
	if !contains(supportedProviders, c.Database.Provider) {
		return fmt.Errorf("unsupported database provider: %s. Supported providers: %v", c.Database.Provider, supportedProviders)
	}

	supportedSinks := []string{SinkStore, SinkDatabase, SinkFile}
	for _, s := range c.Sinks {
		if !contains(supportedSinks, s) {
			return fmt.Errorf("unsupported sink: %s. Supported sinks: %v", s, supportedSinks)
		}
	}

	if c.Session.Backend != "memory" && c.Session.Backend != "redis" {
		return fmt.Errorf("unsupported session backend: %s (use memory or redis)", c.Session.Backend)
	}
	if _, err := c.Session.Expiry(); err != nil {
		return err
	}

	if c.StorePath == "" {
		return fmt.Errorf("store_path cannot be empty")
	}
	if c.ExportPath == "" {
		return fmt.Errorf("export_path cannot be empty")
	}
	if c.MaxRows < 1 {
		return fmt.Errorf("max_rows must be at least 1, got %d", c.MaxRows)
	}

	return nil
}

// GetDatabaseURL returns the connection URL for the database sink.
func (c *Config) GetDatabaseURL() (string, error) {
	if dbURL := os.Getenv(c.Database.URLEnv); dbURL != "" {
		return dbURL, nil
	}

	if c.Database.Host == "" {
		if isSQLite(c.Database.Provider) && c.Database.Name != "" {
			return c.Database.Name, nil
		}
		return "", fmt.Errorf("database URL not found in environment variable %s", c.Database.URLEnv)
	}

	scheme := c.Database.Provider
	switch scheme {
	case "postgres":
		scheme = "postgresql"
	case "mongo":
		scheme = "mongodb"
	}

	u := &url.URL{Scheme: scheme, Host: c.Database.Host, Path: "/" + c.Database.Name}
	if c.Database.Port != 0 {
		u.Host = c.Database.Host + ":" + strconv.Itoa(c.Database.Port)
	}
	if c.Database.User != "" {
		if password := os.Getenv(c.Database.PasswordEnv); password != "" {
			u.User = url.UserPassword(c.Database.User, password)
		} else {
			u.User = url.User(c.Database.User)
		}
	}
	if c.Database.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.Database.SSLMode)
	}
	return u.String(), nil
}

// GetRedisURL returns the Redis URL for the session store, or "" when unset.
func (c *Config) GetRedisURL() string {
	return os.Getenv(c.Session.RedisURLEnv)
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.StorePath),
		c.ExportPath,
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Save writes the config as indented JSON, refusing to overwrite.
func (c *Config) Save(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func isSQLite(provider string) bool {
	return provider == "sqlite" || provider == "sqlite3"
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
