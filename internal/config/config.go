package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQL    = "sql"
)

// Config is the process configuration, read once at startup by Load.
type Config struct {
	HTTP struct {
		Addr string
	}
	// MountID is the id of the element the view tree is rendered into.
	MountID  string
	LogLevel string
	GraphQL  struct {
		Endpoint string
		Timeout  time.Duration
		Headers  map[string]string
		OAuth    struct {
			TokenURL     string
			ClientID     string
			ClientSecret string
			Scopes       []string
		}
	}
	Cache struct {
		Backend string
		TTL     time.Duration
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
	DB struct {
		Driver string
		DSN    string
	}
	SessionLifetime time.Duration
	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool
}

// Load reads config from environment (GQLBOOT_ prefix) and optional gqlboot.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GQLBOOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("gqlboot")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	v.SetDefault("http.addr", ":3000")
	v.SetDefault("mount_id", "root")
	v.SetDefault("log.level", "info")
	v.SetDefault("graphql.endpoint", "http://localhost:8000/graphql")
	v.SetDefault("graphql.timeout", "30s")
	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "gqlboot:cache:")
	v.SetDefault("session.lifetime", "24h")

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.MountID = v.GetString("mount_id")
	cfg.LogLevel = v.GetString("log.level")
	cfg.GraphQL.Endpoint = v.GetString("graphql.endpoint")
	cfg.GraphQL.OAuth.TokenURL = v.GetString("graphql.oauth.token_url")
	cfg.GraphQL.OAuth.ClientID = v.GetString("graphql.oauth.client_id")
	cfg.GraphQL.OAuth.ClientSecret = v.GetString("graphql.oauth.client_secret")
	cfg.GraphQL.OAuth.Scopes = v.GetStringSlice("graphql.oauth.scopes")
	cfg.Cache.Backend = strings.ToLower(v.GetString("cache.backend"))
	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Redis.Prefix = v.GetString("redis.prefix")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.SecureCookies = v.GetBool("session.secure_cookies")

	var err error
	if cfg.GraphQL.Headers, err = stringMap(v, "graphql.headers"); err != nil {
		return nil, fmt.Errorf("invalid GQLBOOT_GRAPHQL_HEADERS: %w", err)
	}
	if cfg.GraphQL.Timeout, err = time.ParseDuration(v.GetString("graphql.timeout")); err != nil {
		return nil, fmt.Errorf("invalid GQLBOOT_GRAPHQL_TIMEOUT: %w", err)
	}
	if cfg.Cache.TTL, err = time.ParseDuration(v.GetString("cache.ttl")); err != nil {
		return nil, fmt.Errorf("invalid GQLBOOT_CACHE_TTL: %w", err)
	}
	if cfg.SessionLifetime, err = time.ParseDuration(v.GetString("session.lifetime")); err != nil {
		return nil, fmt.Errorf("invalid GQLBOOT_SESSION_LIFETIME: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringMap reads a map key from the config file, or from the environment
// as a JSON object, e.g. GQLBOOT_GRAPHQL_HEADERS='{"X-Api-Key":"secret"}'.
func stringMap(v *viper.Viper, key string) (map[string]string, error) {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringMapString(key), nil
	}
	m := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("want a JSON object of strings: %w", err)
	}
	return m, nil
}

// Validate checks the settings that depend on each other.
func (c *Config) Validate() error {
	if c.GraphQL.Endpoint == "" {
		return fmt.Errorf("GQLBOOT_GRAPHQL_ENDPOINT must not be empty")
	}
	if c.MountID == "" {
		return fmt.Errorf("GQLBOOT_MOUNT_ID must not be empty")
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("GQLBOOT_REDIS_ADDR is required when GQLBOOT_CACHE_BACKEND=redis")
		}
	case CacheSQL:
		if c.DB.Driver == "" {
			return fmt.Errorf("GQLBOOT_DB_DRIVER is required when GQLBOOT_CACHE_BACKEND=sql (sqlite3, mysql, postgres)")
		}
		if c.DB.DSN == "" {
			return fmt.Errorf("GQLBOOT_DB_DSN is required when GQLBOOT_CACHE_BACKEND=sql")
		}
	default:
		return fmt.Errorf("unsupported GQLBOOT_CACHE_BACKEND %q: must be memory, redis, or sql", c.Cache.Backend)
	}

	if c.GraphQL.OAuth.TokenURL != "" && c.GraphQL.OAuth.ClientID == "" {
		return fmt.Errorf("GQLBOOT_GRAPHQL_OAUTH_CLIENT_ID is required when a token URL is set")
	}
	return nil
}

// UsesDB reports whether a SQL database is configured.
func (c *Config) UsesDB() bool {
	return c.DB.Driver != "" && c.DB.DSN != ""
}
