package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/risk"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Storage.
	DBDriver    string
	SQLitePath  string
	PostgresDSN string

	// Soil-moisture cache.
	CacheType     string
	CacheSize     int
	CacheLocalTTL time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SoilCacheTTL  time.Duration

	// External data sources.
	NASAPowerURL       string
	NASAPowerTimeout   time.Duration
	SoilLookback       time.Duration
	OpenWeatherAPIKey  string
	OpenWeatherURL     string
	OpenWeatherTimeout time.Duration

	// Periodic monitoring.
	MonitorEnabled   bool
	MonitorInterval  time.Duration
	MonitorLocations []domain.Location

	// Alert publishing.
	KafkaBrokers    []string
	KafkaAlertTopic string
	AlertsEnabled   bool
	AlertRule       string

	Thresholds risk.Thresholds
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBDriver:    sharedcfg.EnvOrDefault("DB_DRIVER", "sqlite"),
		SQLitePath:  sharedcfg.EnvOrDefault("SQLITE_PATH", "floodrisk.db"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		CacheType:     sharedcfg.EnvOrDefault("CACHE_TYPE", "memory"),
		RedisAddr:     sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		NASAPowerURL:      os.Getenv("NASA_POWER_URL"),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherURL:    os.Getenv("OPENWEATHER_URL"),

		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "flood-alerts"),
		AlertRule:       os.Getenv("ALERT_RULE"),
	}

	if cfg.CacheSize, err = positiveInt("CACHE_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = nonNegativeInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.CacheLocalTTL, err = positiveDuration("CACHE_LOCAL_TTL", "1m"); err != nil {
		return nil, err
	}
	if cfg.SoilCacheTTL, err = positiveDuration("SOIL_CACHE_TTL", "6h"); err != nil {
		return nil, err
	}
	if cfg.NASAPowerTimeout, err = positiveDuration("NASA_POWER_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.OpenWeatherTimeout, err = positiveDuration("OPENWEATHER_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.MonitorInterval, err = positiveDuration("MONITOR_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	lookbackDays, err := positiveInt("SOIL_LOOKBACK_DAYS", 10)
	if err != nil {
		return nil, err
	}
	cfg.SoilLookback = time.Duration(lookbackDays) * 24 * time.Hour

	if cfg.MonitorEnabled, err = parseBool("MONITOR_ENABLED", cfg.OpenWeatherAPIKey != ""); err != nil {
		return nil, err
	}
	if cfg.AlertsEnabled, err = parseBool("ALERTS_ENABLED", false); err != nil {
		return nil, err
	}

	if cfg.MonitorLocations, err = ParseLocations(sharedcfg.EnvOrDefault("MONITOR_LOCATIONS", "Mumbai:19.0760:72.8777")); err != nil {
		return nil, fmt.Errorf("invalid MONITOR_LOCATIONS: %w", err)
	}

	cfg.Thresholds = risk.DefaultThresholds()
	if v := os.Getenv("RAINFALL_24H_THRESHOLDS"); v != "" {
		if cfg.Thresholds.Rainfall24h, err = ParseBands(v); err != nil {
			return nil, fmt.Errorf("invalid RAINFALL_24H_THRESHOLDS: %w", err)
		}
	}
	if v := os.Getenv("RIVER_LEVEL_THRESHOLDS"); v != "" {
		if cfg.Thresholds.RiverLevel, err = ParseBands(v); err != nil {
			return nil, fmt.Errorf("invalid RIVER_LEVEL_THRESHOLDS: %w", err)
		}
	}

	switch cfg.DBDriver {
	case "sqlite":
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.New("DB_DRIVER is postgres but POSTGRES_DSN is not set")
		}
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: must be sqlite or postgres", cfg.DBDriver)
	}

	switch cfg.CacheType {
	case "memory", "redis", "tiered":
	default:
		return nil, fmt.Errorf("invalid CACHE_TYPE %q: must be memory, redis or tiered", cfg.CacheType)
	}

	if cfg.MonitorEnabled && cfg.OpenWeatherAPIKey == "" {
		return nil, errors.New("MONITOR_ENABLED is true but OPENWEATHER_API_KEY is not set")
	}
	if cfg.AlertsEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when ALERTS_ENABLED is true")
		}
		if cfg.KafkaAlertTopic == "" {
			return nil, errors.New("KAFKA_ALERT_TOPIC is required when ALERTS_ENABLED is true")
		}
	}

	return cfg, nil
}

// ParseLocations parses "Name:lat:lon" entries separated by semicolons.
func ParseLocations(s string) ([]domain.Location, error) {
	var out []domain.Location
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("location %q: want Name:lat:lon", entry)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("location %q: latitude: %w", entry, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("location %q: longitude: %w", entry, err)
		}
		loc := domain.Location{Name: strings.TrimSpace(parts[0]), Coordinates: domain.Coordinates{Lat: lat, Lon: lon}}
		if err := loc.Validate(); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one location is required")
	}
	return out, nil
}

// ParseBands parses "low,medium,high" into ascending bands.
func ParseBands(s string) (risk.Bands, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return risk.Bands{}, fmt.Errorf("want three comma-separated values, got %d", len(parts))
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return risk.Bands{}, err
		}
		v[i] = f
	}
	b := risk.Bands{Low: v[0], Medium: v[1], High: v[2]}
	if err := b.Validate(); err != nil {
		return risk.Bands{}, err
	}
	return b, nil
}

func positiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func nonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func positiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
