// Package config loads the verifier's configuration from environment
// variables (with an optional .env file for local development).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the verifier needs at startup.
type Config struct {
	Server ServerConfig
	DB     DatabaseConfig
	Redis  RedisConfig
	Solver SolverConfig
	Logger LoggerConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL            string
	MaxConnections int
}

// RedisConfig holds leaderboard-cache connection settings.
type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

// SolverConfig holds the wazero sandbox's resource limits.
type SolverConfig struct {
	TimeoutSeconds  int
	InstructionCap  int64
	MaxWasmSizeMB   int64
	MaxAgentsPerJob int
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from the environment, loading a .env file
// first if one is present in the working directory. DATABASE_URL is
// required; every other missing variable falls back to a default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		DB: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
			CacheTTL: getEnvAsDuration("LEADERBOARD_CACHE_TTL", 30*time.Second),
		},
		Solver: SolverConfig{
			TimeoutSeconds:  getEnvAsInt("SOLVER_TIMEOUT_SECS", 5),
			InstructionCap:  getEnvAsInt64("SOLVER_INSTRUCTION_LIMIT", 50_000_000),
			MaxWasmSizeMB:   getEnvAsInt64("MAX_WASM_SIZE_MB", 8),
			MaxAgentsPerJob: getEnvAsInt("MAX_AGENTS_PER_JOB", 64),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.DB.URL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
