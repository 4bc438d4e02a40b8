package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the floor server configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	// SeedFile is an optional YAML floor plan loaded when no tables exist.
	SeedFile string
}

type ServerConfig struct {
	Port        string
	GinMode     string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Driver string // sqlite, mysql or postgres
	DSN    string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// WaiterConfig holds the terminal waiter client configuration.
type WaiterConfig struct {
	ServerURL    string
	Email        string
	Password     string
	PollInterval time.Duration
	View         string
	SoundCommand string
}

// LoadEnvFile loads .env if present. A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Load reads the server configuration from the environment.
func Load() (*Config, error) {
	LoadEnvFile()

	ttl, err := getEnvDuration("TOKEN_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://127.0.0.1:5500")),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:    getEnv("DB_DSN", "floor.db"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  ttl,
		},
		SeedFile: getEnv("FLOOR_SEED_FILE", ""),
	}

	switch cfg.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	return cfg, nil
}

// LoadWaiter reads the waiter client configuration from the environment.
// Command-line flags override these values in cmd/waiter.
func LoadWaiter() (*WaiterConfig, error) {
	LoadEnvFile()

	poll, err := getEnvDuration("WAITER_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &WaiterConfig{
		ServerURL:    getEnv("WAITER_SERVER_URL", "http://localhost:8080"),
		Email:        getEnv("WAITER_EMAIL", ""),
		Password:     getEnv("WAITER_PASSWORD", ""),
		PollInterval: poll,
		View:         getEnv("WAITER_VIEW", "floor"),
		SoundCommand: getEnv("WAITER_SOUND_COMMAND", ""),
	}, nil
}

// String masks the secret.
func (c *Config) String() string {
	return fmt.Sprintf("Config{port: %s, db: %s, auth: *** (masked) ***}", c.Server.Port, c.Database.Driver)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	// angka polos dibaca sebagai detik
	secs, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", key, value)
	}
	return time.Duration(secs) * time.Second, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
