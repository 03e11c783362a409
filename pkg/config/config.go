package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string
	LogLevel   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MaxConcurrency int
	FetchTimeout   time.Duration
	MaxRetries     int

	// How long a (source, parcel) pair is considered recently scraped.
	ScrapedTTL time.Duration

	// Optional YAML file declaring sources and per-domain rate limits.
	SourcesFile string

	Sources SourcesConfig
}

// RateConfig is a per-domain admission budget.
type RateConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	WindowMs          int     `yaml:"windowMs"`
}

// SourceConfig declares one scraping origin.
type SourceConfig struct {
	BaseURL    string      `yaml:"baseUrl"`
	CountyCode string      `yaml:"countyCode"`
	Rate       *RateConfig `yaml:"rate,omitempty"`
}

// RegionConfig bounds coordinate normalization and defaults address state.
type RegionConfig struct {
	MinLatitude  float64 `yaml:"minLatitude"`
	MaxLatitude  float64 `yaml:"maxLatitude"`
	MinLongitude float64 `yaml:"minLongitude"`
	MaxLongitude float64 `yaml:"maxLongitude"`
	DefaultState string  `yaml:"defaultState"`
}

// SourcesConfig is the parsed sources.yaml document.
type SourcesConfig struct {
	Region  RegionConfig            `yaml:"region"`
	Sources map[string]SourceConfig `yaml:"sources"`
}

// DefaultRegion covers the central-Texas service area.
func DefaultRegion() RegionConfig {
	return RegionConfig{
		MinLatitude:  29.0,
		MaxLatitude:  31.0,
		MinLongitude: -99.0,
		MaxLongitude: -97.0,
		DefaultState: "TX",
	}
}

// Load loads configuration from environment variables and, when configured,
// the sources YAML file.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "user"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresDB:       getEnv("POSTGRES_DB", "properties"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),
		MaxConcurrency:   getEnvAsInt("MAX_CONCURRENCY", 5),
		FetchTimeout:     getEnvAsDuration("FETCH_TIMEOUT_SECONDS", 30) * time.Second,
		MaxRetries:       getEnvAsInt("FETCH_MAX_RETRIES", 3),
		ScrapedTTL:       getEnvAsDuration("SCRAPED_TTL_HOURS", 24) * time.Hour,
		SourcesFile:      getEnv("SOURCES_FILE", ""),
	}

	cfg.Sources = SourcesConfig{Region: DefaultRegion(), Sources: map[string]SourceConfig{}}
	if cfg.SourcesFile != "" {
		sources, err := LoadSources(cfg.SourcesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load sources file %s: %w", cfg.SourcesFile, err)
		}
		cfg.Sources = *sources
	}

	return cfg, nil
}

// LoadSources parses a sources YAML file. Region fields left at zero fall back
// to the defaults.
func LoadSources(path string) (*SourcesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc SourcesConfig
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("invalid sources yaml: %w", err)
	}
	def := DefaultRegion()
	if sc.Region.MinLatitude == 0 && sc.Region.MaxLatitude == 0 {
		sc.Region.MinLatitude = def.MinLatitude
		sc.Region.MaxLatitude = def.MaxLatitude
	}
	if sc.Region.MinLongitude == 0 && sc.Region.MaxLongitude == 0 {
		sc.Region.MinLongitude = def.MinLongitude
		sc.Region.MaxLongitude = def.MaxLongitude
	}
	if sc.Region.DefaultState == "" {
		sc.Region.DefaultState = def.DefaultState
	}
	if sc.Sources == nil {
		sc.Sources = map[string]SourceConfig{}
	}
	return &sc, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback))
}
