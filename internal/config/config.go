package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	BackendURL     string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	LogLevel       string
	AllowedOrigins []string
	Sandbox        SandboxConfig
}

// SandboxConfig configures the local stand-in backend (cmd/sandbox).
type SandboxConfig struct {
	Port       string
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// LoadConfig reads the .env file when present and then the process environment.
func LoadConfig() (*Config, error) {
	// .env is optional; variables may come from the environment alone.
	_ = godotenv.Load()

	requestTimeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	pollInterval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: must be positive, got %s", pollInterval)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", "sqlite"))
	if driver != "sqlite" && driver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER %q: must be sqlite or postgres", driver)
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000"), "/"),
		RequestTimeout: requestTimeout,
		PollInterval:   pollInterval,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: parseOrigins(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Sandbox: SandboxConfig{
			Port:       getEnv("SANDBOX_PORT", "8000"),
			DBDriver:   driver,
			DBPath:     getEnv("DB_PATH", "./sandbox.db"),
			DBHost:     getEnv("DB_HOST", "localhost"),
			DBPort:     dbPort,
			DBUser:     getEnv("DB_USER", "console"),
			DBPassword: getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "console_sandbox"),
			DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}, nil
}

// PostgresDSN returns the connection string used when DBDriver is postgres.
func (s SandboxConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		s.DBHost, s.DBUser, s.DBPassword, s.DBName, s.DBPort, s.DBSSLMode)
}

func parseOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
