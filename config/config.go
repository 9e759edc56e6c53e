package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"xandpulse/utils"
)

type Config struct {
	Server   ServerConfig        `json:"server"`
	PRPC     PRPCConfig          `json:"prpc"`
	Polling  PollingConfig       `json:"polling"`
	Cache    CacheConfig         `json:"cache"`
	Redis    RedisConfig         `json:"redis"`
	GeoIP    GeoIPConfig         `json:"geoip"`
	Logger   LoggerConfig        `json:"logger"`
	Metrics  MetricsConfig       `json:"metrics"`
	Scoring  utils.ScoringConfig `json:"scoring"`
	Versions utils.VersionConfig `json:"versions"`
}

type ServerConfig struct {
	Port           int      `json:"port"`
	Host           string   `json:"host"`
	AllowedOrigins []string `json:"allowed_origins"`
	SeedNodes      []string `json:"seed_nodes"`
}

type PRPCConfig struct {
	DefaultPort int `json:"default_port"`
	Timeout     int `json:"timeout_seconds"`
	MaxRetries  int `json:"max_retries"`
}

type PollingConfig struct {
	StatsInterval int `json:"stats_interval_seconds"`
}

type CacheConfig struct {
	TTL int `json:"ttl_seconds"`
}

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Enabled  bool   `json:"enabled"`
	UseTLS   bool   `json:"use_tls"`
}

type GeoIPConfig struct {
	DBPath string `json:"db_path"`
}

type LoggerConfig struct {
	Level    string `json:"level"`    // debug, info, warn, error
	Encoding string `json:"encoding"` // json or console
}

type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
			SeedNodes:      []string{},
		},
		PRPC: PRPCConfig{
			DefaultPort: 6000,
			Timeout:     5,
			MaxRetries:  3,
		},
		Polling: PollingConfig{
			StatsInterval: 30,
		},
		Cache: CacheConfig{
			TTL: 30,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			Enabled: false,
		},
		Logger: LoggerConfig{
			Level:    "info",
			Encoding: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Scoring: utils.DefaultScoringConfig(),
	}
}

// LoadConfig loads configuration for the running process.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load reads the config file at Path() and applies args.
func Load(args []string) (*Config, error) {
	return LoadFrom(Path(), args)
}

// LoadFrom layers defaults, .env, the JSON file at path, environment
// variables and finally the given command-line flags.
func LoadFrom(path string, args []string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := Default()

	if err := loadFile(cfg, path); err != nil {
		return nil, err
	}

	// Load from environment variables (overrides config file)
	loadEnv(cfg)

	// Load from command-line flags (overrides everything)
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	var serverPort int
	var serverHost string

	fs.IntVar(&serverPort, "port", 0, "Server port")
	fs.StringVar(&serverHost, "host", "", "Server host")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if isFlagPassed(fs, "port") {
		cfg.Server.Port = serverPort
	}
	if isFlagPassed(fs, "host") {
		cfg.Server.Host = serverHost
	}

	cfg.Scoring = cfg.Scoring.Normalize()

	return cfg, nil
}

// Path is the JSON config file location: CONFIG_FILE or config/config.json.
func Path() string {
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		return p
	}
	return "config/config.json"
}

func loadFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func isFlagPassed(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func loadEnv(cfg *Config) {
	// Server configuration
	envInt("SERVER_PORT", &cfg.Server.Port)
	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		cfg.Server.AllowedOrigins = splitList(val)
	}
	if val := os.Getenv("SEED_NODES"); val != "" {
		cfg.Server.SeedNodes = splitList(val)
	}

	// PRPC configuration
	envInt("PRPC_PORT", &cfg.PRPC.DefaultPort)
	envInt("PRPC_TIMEOUT", &cfg.PRPC.Timeout)
	envInt("PRPC_MAX_RETRIES", &cfg.PRPC.MaxRetries)

	// Polling and cache
	envInt("STATS_INTERVAL", &cfg.Polling.StatsInterval)
	envInt("CACHE_TTL", &cfg.Cache.TTL)

	// Redis configuration
	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	envInt("REDIS_DB", &cfg.Redis.DB)
	envBool("REDIS_ENABLED", &cfg.Redis.Enabled)
	envBool("REDIS_USE_TLS", &cfg.Redis.UseTLS)

	// GeoIP configuration
	if val := os.Getenv("GEOIP_DB_PATH"); val != "" {
		cfg.GeoIP.DBPath = val
	}

	// Logging and metrics
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logger.Level = val
	}
	if val := os.Getenv("LOG_ENCODING"); val != "" {
		cfg.Logger.Encoding = val
	}
	envBool("METRICS_ENABLED", &cfg.Metrics.Enabled)

	// Scoring configuration
	envInt64("ONLINE_THRESHOLD_SECONDS", &cfg.Scoring.Thresholds.OnlineSeconds)
	envInt64("DEGRADED_THRESHOLD_SECONDS", &cfg.Scoring.Thresholds.DegradedSeconds)
	envInt64("UPTIME_CEILING_SECONDS", &cfg.Scoring.UptimeCeilingSeconds)
	envFloat("STORAGE_BAND_LOW", &cfg.Scoring.StorageBandLow)
	envFloat("STORAGE_BAND_HIGH", &cfg.Scoring.StorageBandHigh)
	envFloat("VERSION_MISMATCH_SCORE", &cfg.Scoring.VersionMismatchScore)
	envFloat("WEIGHT_UPTIME", &cfg.Scoring.Weights.Uptime)
	envFloat("WEIGHT_RECENCY", &cfg.Scoring.Weights.Recency)
	envFloat("WEIGHT_STORAGE", &cfg.Scoring.Weights.Storage)
	envFloat("WEIGHT_VERSION", &cfg.Scoring.Weights.Version)

	// Version policy
	if val := os.Getenv("VERSION_CURRENT_STABLE"); val != "" {
		cfg.Versions.CurrentStable = val
	}
	if val := os.Getenv("VERSION_MIN_SUPPORTED"); val != "" {
		cfg.Versions.MinSupported = val
	}
	if val := os.Getenv("VERSION_DEPRECATED"); val != "" {
		cfg.Versions.Deprecated = val
	}
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			*dst = p
		}
	}
}

func envInt64(key string, dst *int64) {
	if val := os.Getenv(key); val != "" {
		if p, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = p
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if p, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = p
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		*dst = val == "true" || val == "1"
	}
}

// Helper methods for duration conversion
func (c *Config) PRPCTimeoutDuration() time.Duration {
	return time.Duration(c.PRPC.Timeout) * time.Second
}

func (c *Config) StatsIntervalDuration() time.Duration {
	return time.Duration(c.Polling.StatsInterval) * time.Second
}

func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}
