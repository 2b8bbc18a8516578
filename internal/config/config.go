package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures the runtime configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Auth     AuthConfig
	Admin    AdminConfig
}

// ServerConfig configures the HTTP server runtime behavior.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig contains the database connection settings.
type DatabaseConfig struct {
	URL             string
	Driver          string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	UseMock         bool
	TablePrefix     string
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level string
}

// AuthConfig groups session, token and login throttling settings.
type AuthConfig struct {
	Session SessionConfig
	JWT     JWTConfig
	// LoginRateLimit is the number of login attempts allowed per minute per client.
	LoginRateLimit int
	LoginBurst     int
	// TrustedProxies lists proxy addresses or CIDR ranges whose X-Forwarded-For header is honoured.
	TrustedProxies []string
}

// SessionConfig configures the browser session cookie.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// JWTConfig configures bearer token issuance.
type JWTConfig struct {
	Secret     string
	Issuer     string
	ExpMinutes int
}

// AdminConfig describes the account ensured at startup.
type AdminConfig struct {
	Login           string
	InitialPassword string
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load inspects the environment and builds a Config value.
func Load() (Config, error) {
	cfg := Config{}

	cfg.Server = ServerConfig{
		Addr: firstNonEmpty(
			os.Getenv("SERVER_ADDR"),
			os.Getenv("ADDR"),
			":8080",
		),
	}

	cfg.Database = DatabaseConfig{
		URL: firstNonEmpty(
			os.Getenv("DATABASE_URL"),
			os.Getenv("DB_URL"),
			"",
		),
		Driver:          strings.ToLower(firstNonEmpty(os.Getenv("DATABASE_DRIVER"), DriverPostgres)),
		MaxIdleConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_IDLE_CONNS"), 5),
		MaxOpenConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_OPEN_CONNS"), 20),
		ConnMaxLifetime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_LIFETIME"), time.Hour),
		ConnMaxIdleTime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_IDLE_TIME"), 15*time.Minute),
		UseMock:         parseBoolWithDefault(os.Getenv("DATABASE_USE_MOCK"), false),
		TablePrefix:     strings.TrimSpace(os.Getenv("DATABASE_TABLE_PREFIX")),
	}

	cfg.Logging = LoggingConfig{
		Level: firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
	}

	cfg.Auth = AuthConfig{
		Session: SessionConfig{
			Lifetime:     parseDurationWithDefault(os.Getenv("SESSION_LIFETIME"), 12*time.Hour),
			CookieName:   firstNonEmpty(os.Getenv("SESSION_COOKIE_NAME"), "mealplanner_session"),
			CookieDomain: strings.TrimSpace(os.Getenv("SESSION_COOKIE_DOMAIN")),
			CookieSecure: parseBoolWithDefault(os.Getenv("SESSION_COOKIE_SECURE"), true),
		},
		JWT: JWTConfig{
			Secret:     firstNonEmpty(os.Getenv("JWT_SECRET"), "change-me"),
			Issuer:     firstNonEmpty(os.Getenv("JWT_ISSUER"), "mealplanner"),
			ExpMinutes: parseIntWithDefault(os.Getenv("JWT_EXP_MINUTES"), 120),
		},
		LoginRateLimit: parseIntWithDefault(os.Getenv("LOGIN_RATE_PER_MINUTE"), 10),
		LoginBurst:     parseIntWithDefault(os.Getenv("LOGIN_BURST"), 5),
		TrustedProxies: parseList(os.Getenv("TRUSTED_PROXIES")),
	}

	cfg.Admin = AdminConfig{
		Login:           firstNonEmpty(os.Getenv("ADMIN_LOGIN"), "admin"),
		InitialPassword: os.Getenv("ADMIN_INITIAL_PASSWORD"),
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return Config{}, fmt.Errorf("server address must not be empty")
	}
	switch cfg.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	for _, proxy := range cfg.Auth.TrustedProxies {
		if !validProxy(proxy) {
			return Config{}, fmt.Errorf("invalid trusted proxy: %s", proxy)
		}
	}
	if cfg.Auth.JWT.ExpMinutes <= 0 {
		return Config{}, fmt.Errorf("jwt expiry must be positive, got %d", cfg.Auth.JWT.ExpMinutes)
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func validProxy(value string) bool {
	if _, err := netip.ParsePrefix(value); err == nil {
		return true
	}
	_, err := netip.ParseAddr(value)
	return err == nil
}

func parseIntWithDefault(value string, def int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseBoolWithDefault(value string, def bool) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}
