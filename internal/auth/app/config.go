package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	KeyStorageEphemeral  = "ephemeral"
	KeyStoragePersistent = "persistent"
)

type Config struct {
	Issuer string // Required: issuer claim and base URL of the discovery document

	RSABits        int    // Optional: RSA key size for RS256 (default: 4096)
	NumKeys        int    // Optional: signing keys kept for verification (default: 2, max: 10)
	KeyStorageMode string // Optional: ephemeral or persistent (default: ephemeral)
	MasterKeyPath  string // Optional: file holding the master key (persistent mode, else AUTH_MASTER_KEY)
	DatabaseFile   string // Optional: path to SQLite database file (default: ./kubarr-auth.db)
	PepperFile     string // Optional: path to the password pepper, created on first start (default: ./pepper)

	CookieInsecure   bool          // Drop the Secure cookie flag, for plain-HTTP dev setups
	SessionSlots     int           // Accounts one browser may hold (default: 5)
	SessionTTL       time.Duration // default: 7d
	AccessTTL        time.Duration // default: 1h
	RefreshTTL       time.Duration // default: 7d
	CodeTTL          time.Duration // default: 5m, capped at 10m
	LockoutThreshold int           // Failures before lockout (default: 10)
	LockoutWindow    time.Duration // default: 15m
	EnforceAppAccess bool          // Require an app grant per client at authorize (default: true)
	TrustedProxies   string        // Comma separated CIDRs whose X-Forwarded-For is honoured (default: none)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory when there is one.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Issuer:         strings.TrimRight(getEnvOrDefault("AUTH_ISSUER", "http://localhost:8080"), "/"),
		RSABits:        getEnvIntOrDefault("AUTH_RSA_BITS", 0),
		NumKeys:        getEnvIntOrDefault("AUTH_NUM_KEYS", 0),
		KeyStorageMode: getEnvOrDefault("AUTH_KEY_STORAGE_MODE", KeyStorageEphemeral),
		MasterKeyPath:  os.Getenv("AUTH_MASTER_KEY_PATH"),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "kubarr-auth.db"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		CookieInsecure:   getEnvBoolOrDefault("AUTH_COOKIE_INSECURE", false),
		SessionSlots:     getEnvIntOrDefault("AUTH_SESSION_SLOTS", 0),
		SessionTTL:       getEnvDurationOrDefault("AUTH_SESSION_TTL", 0),
		AccessTTL:        getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", 0),
		RefreshTTL:       getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", 0),
		CodeTTL:          getEnvDurationOrDefault("AUTH_CODE_TTL", 0),
		LockoutThreshold: getEnvIntOrDefault("AUTH_LOCKOUT_THRESHOLD", 0),
		LockoutWindow:    getEnvDurationOrDefault("AUTH_LOCKOUT_WINDOW", 0),
		EnforceAppAccess: getEnvBoolOrDefault("AUTH_ENFORCE_APP_ACCESS", true),
		TrustedProxies:   os.Getenv("AUTH_TRUSTED_PROXIES"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
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
