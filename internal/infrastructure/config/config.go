// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	m := matcher.NewMatcher(cfg.Matching.ToMatcherConfig())
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/reimbursement-tracker/internal/domain/matcher"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Matching      MatchingConfig      `yaml:"matching"`
	API           APIConfig           `yaml:"api"`
	Dashboard     DashboardConfig     `yaml:"dashboard"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// MatchingConfig holds reimbursement matcher limits.
// Zero values fall back to matcher.DefaultConfig.
type MatchingConfig struct {
	AmountTolerance          float64 `yaml:"amount_tolerance"`
	MaxTotalMatches          int     `yaml:"max_total_matches"`
	MaxCombinationSize       int     `yaml:"max_combination_size"`
	MaxCombinationsPerAmount int     `yaml:"max_combinations_per_amount"`
	MaxSearchSteps           int     `yaml:"max_search_steps"`
}

// APIConfig holds HTTP API settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DashboardConfig holds settings for the read-only dashboard server
type DashboardConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ToMatcherConfig converts the YAML matching section into matcher settings.
func (m MatchingConfig) ToMatcherConfig() matcher.Config {
	cfg := matcher.DefaultConfig()
	if m.AmountTolerance > 0 {
		cfg.AmountTolerance = m.AmountTolerance
	}
	if m.MaxTotalMatches > 0 {
		cfg.MaxTotalMatches = m.MaxTotalMatches
	}
	if m.MaxCombinationSize > 0 {
		cfg.MaxCombinationSize = m.MaxCombinationSize
	}
	if m.MaxCombinationsPerAmount > 0 {
		cfg.MaxCombinationsPerAmount = m.MaxCombinationsPerAmount
	}
	if m.MaxSearchSteps > 0 {
		cfg.MaxSearchSteps = m.MaxSearchSteps
	}
	return cfg
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${REIMBURSE_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	defaults := matcher.DefaultConfig()

	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("REIMBURSE_DB_PATH", "reimbursements.db"),
		},
		Matching: MatchingConfig{
			AmountTolerance:          getEnvFloat("MATCH_TOLERANCE", defaults.AmountTolerance),
			MaxTotalMatches:          getEnvInt("MATCH_MAX_TOTAL", defaults.MaxTotalMatches),
			MaxCombinationSize:       getEnvInt("MATCH_MAX_COMBINATION_SIZE", defaults.MaxCombinationSize),
			MaxCombinationsPerAmount: getEnvInt("MATCH_MAX_PER_AMOUNT", defaults.MaxCombinationsPerAmount),
			MaxSearchSteps:           getEnvInt("MATCH_MAX_SEARCH_STEPS", defaults.MaxSearchSteps),
		},
		API: APIConfig{
			Port:           getEnvInt("API_PORT", 8080),
			AllowedOrigins: getEnvList("API_ALLOWED_ORIGINS"),
		},
		Dashboard: DashboardConfig{
			Port:           getEnvInt("DASHBOARD_PORT", 8081),
			AllowedOrigins: getEnvList("DASHBOARD_ALLOWED_ORIGINS"),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}

	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills settings a YAML file may leave out.
func (c *Config) applyDefaults() {
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "reimbursements.db"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = defaultOrigins()
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8081
	}
	if len(c.Dashboard.AllowedOrigins) == 0 {
		c.Dashboard.AllowedOrigins = defaultOrigins()
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

func defaultOrigins() []string {
	return []string{"http://localhost:3000", "http://localhost:5173"}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvList splits a comma-separated environment variable
func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
