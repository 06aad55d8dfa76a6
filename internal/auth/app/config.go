package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/provider"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names an optional YAML file whose keys are the same variable
// names read from the environment. Environment values win over the file.
const ConfigFileEnv = "GATEKEEPER_CONFIG_FILE"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	StateStoreDatabase = "database"
	StateStoreRedis    = "redis"
)

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired state sweep interval (default: 1h)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite database path (default: auth.db)
	DatabaseURL    string // Postgres DSN, required for the postgres driver

	StateStore    string // database or redis (default: database)
	RedisAddr     string // default: localhost:6379
	RedisPassword string
	RedisDB       int

	TokenKey         string        // Required: MAC key for session tokens
	TokenDuration    time.Duration // Added to a token's expiry on every request (default: 60m)
	TokenMaxLifetime time.Duration // Optional ceiling on a rotated token, relative to now (default: off)
	SessionTTL       time.Duration // Lifetime of a token minted at login (default: 24h)
	StateTTL         time.Duration // Lifetime of an in-flight login (default: 10m)

	CookieName     string // default: auth-token
	CookieDomain   string
	CookieSecure   bool   // default: true
	CookieSameSite string // lax, strict or none (default: lax)

	AuthzEnabled          bool          // default: true
	PolicyURL             string        // Required when authz is enabled
	PolicyTimeout         time.Duration // HTTP client timeout (default: none)
	PolicyBreakerFailures int           // Consecutive failures that open the breaker (default: 5)
	PolicyBreakerCooldown time.Duration // How long the breaker stays open (default: 30s)

	OAuthProvider     string // google, microsoft, azure or custom (default: google)
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURL  string
	OAuthTenantID     string // Microsoft tenant (default: common)
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthUserInfoURL  string
	OAuthScopes       []string

	DefaultRedirectPath   string   // default: /swagger/index.html
	ReturnURLAllowedHosts []string // default: localhost:5173,localhost:8080
	ReturnURLAllowedPaths []string // default: /,/profile
	CORSAllowedOrigins    []string // default: http://localhost:5173

	LoginRateLimit httpx.RateLimitConfig // RATELIMIT_LOGIN_* (default: moderate)
}

// LoadConfig reads the configuration from the environment, falling back to
// the file named by GATEKEEPER_CONFIG_FILE and then to defaults.
func LoadConfig() (Config, error) {
	e := env{}
	if path := os.Getenv(ConfigFileEnv); path != "" {
		values, err := readConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		e.file = values
	}

	cfg := Config{
		Env:                  e.getOrDefault("ENV", "dev"),
		LogLevel:             e.getOrDefault("LOG_LEVEL", "info"),
		LogFormat:            e.getOrDefault("LOG_FORMAT", "json"),
		Port:                 e.getIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  e.getDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: e.getDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		DatabaseDriver: strings.ToLower(e.getOrDefault("DATABASE_DRIVER", DriverSQLite)),
		DatabaseFile:   e.getOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:    e.get("DATABASE_URL"),

		StateStore:    strings.ToLower(e.getOrDefault("STATE_STORE", StateStoreDatabase)),
		RedisAddr:     e.getOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: e.get("REDIS_PASSWORD"),
		RedisDB:       e.getIntOrDefault("REDIS_DB", 0),

		TokenKey:         e.get("AUTH_TOKEN_KEY"),
		TokenDuration:    e.getDurationOrDefault("AUTH_TOKEN_DURATION", 60*time.Minute),
		TokenMaxLifetime: e.getDurationOrDefault("AUTH_TOKEN_MAX_LIFETIME", 0),
		SessionTTL:       e.getDurationOrDefault("AUTH_SESSION_TTL", 24*time.Hour),
		StateTTL:         e.getDurationOrDefault("OAUTH_STATE_TTL", 10*time.Minute),

		CookieName:     e.getOrDefault("AUTH_COOKIE_NAME", "auth-token"),
		CookieDomain:   e.get("AUTH_COOKIE_DOMAIN"),
		CookieSecure:   e.getBoolOrDefault("AUTH_COOKIE_SECURE", true),
		CookieSameSite: e.getOrDefault("AUTH_COOKIE_SAMESITE", "lax"),

		AuthzEnabled:          e.getBoolOrDefault("AUTHZ_ENABLED", true),
		PolicyURL:             e.get("POLICY_SERVER_URL"),
		PolicyTimeout:         e.getDurationOrDefault("POLICY_TIMEOUT", 0),
		PolicyBreakerFailures: e.getIntOrDefault("POLICY_BREAKER_FAILURES", 5),
		PolicyBreakerCooldown: e.getDurationOrDefault("POLICY_BREAKER_COOLDOWN", 30*time.Second),

		OAuthProvider:     strings.ToLower(e.getOrDefault("OAUTH_PROVIDER", provider.Google)),
		OAuthClientID:     e.get("OAUTH_CLIENT_ID"),
		OAuthClientSecret: e.get("OAUTH_CLIENT_SECRET"),
		OAuthRedirectURL:  e.get("OAUTH_REDIRECT_URL"),
		OAuthTenantID:     e.getOrDefault("OAUTH_TENANT_ID", "common"),
		OAuthAuthURL:      e.get("OAUTH_AUTH_URL"),
		OAuthTokenURL:     e.get("OAUTH_TOKEN_URL"),
		OAuthUserInfoURL:  e.get("OAUTH_USERINFO_URL"),
		OAuthScopes:       e.getListOrDefault("OAUTH_SCOPES", nil),

		DefaultRedirectPath:   e.getOrDefault("DEFAULT_REDIRECT_PATH", "/swagger/index.html"),
		ReturnURLAllowedHosts: e.getListOrDefault("RETURN_URL_ALLOWED_HOSTS", []string{"localhost:5173", "localhost:8080"}),
		ReturnURLAllowedPaths: e.getListOrDefault("RETURN_URL_ALLOWED_PATHS", []string{"/", "/profile"}),
		CORSAllowedOrigins:    e.getListOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		LoginRateLimit: httpx.RateLimitFromEnv("LOGIN", httpx.ModerateLimit),
	}

	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.TokenKey == "" {
		errs = append(errs, errors.New("AUTH_TOKEN_KEY is required"))
	}
	if c.TokenDuration <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_DURATION must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("AUTH_SESSION_TTL must be positive"))
	}
	if c.TokenMaxLifetime < 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_MAX_LIFETIME must not be negative"))
	}
	if c.StateTTL <= 0 {
		errs = append(errs, errors.New("OAUTH_STATE_TTL must be positive"))
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch c.StateStore {
	case StateStoreDatabase:
	case StateStoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis state store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STATE_STORE %q", c.StateStore))
	}

	if c.AuthzEnabled && c.PolicyURL == "" {
		errs = append(errs, errors.New("POLICY_SERVER_URL is required when AUTHZ_ENABLED is true"))
	}

	if c.OAuthClientID == "" {
		errs = append(errs, errors.New("OAUTH_CLIENT_ID is required"))
	}
	if c.OAuthClientSecret == "" {
		errs = append(errs, errors.New("OAUTH_CLIENT_SECRET is required"))
	}
	if c.OAuthRedirectURL == "" {
		errs = append(errs, errors.New("OAUTH_REDIRECT_URL is required"))
	}
	switch c.OAuthProvider {
	case provider.Google, provider.Microsoft, provider.Azure:
	case provider.Custom:
		if c.OAuthAuthURL == "" || c.OAuthTokenURL == "" || c.OAuthUserInfoURL == "" {
			errs = append(errs, errors.New("OAUTH_AUTH_URL, OAUTH_TOKEN_URL and OAUTH_USERINFO_URL are required for the custom provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown OAUTH_PROVIDER %q", c.OAuthProvider))
	}

	return errors.Join(errs...)
}

// env resolves a variable from the process environment first and then from
// the optional config file.
type env struct {
	file map[string]string
}

func readConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
		case []any:
			items := make([]string, 0, len(v))
			for _, item := range v {
				items = append(items, fmt.Sprint(item))
			}
			values[key] = strings.Join(items, ",")
		default:
			values[key] = fmt.Sprint(v)
		}
	}
	return values, nil
}

func (e env) get(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return e.file[key]
}

func (e env) getOrDefault(key, defaultValue string) string {
	if value := e.get(key); value != "" {
		return value
	}
	return defaultValue
}

func (e env) getIntOrDefault(key string, defaultValue int) int {
	value := e.get(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func (e env) getBoolOrDefault(key string, defaultValue bool) bool {
	value := e.get(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func (e env) getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := e.get(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

// getListOrDefault splits a comma separated value, dropping blanks.
func (e env) getListOrDefault(key string, defaultValue []string) []string {
	value := e.get(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
