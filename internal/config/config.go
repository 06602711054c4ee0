// Package config loads the per-environment YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
)

// Config holds the courserec configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Ingestion  IngestionConfig  `yaml:"ingestion"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Auth       AuthConfig       `yaml:"auth"`
	Index      IndexConfig      `yaml:"index"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port              int `yaml:"port"`
	ReadTimeoutSec    int `yaml:"read_timeout_sec"`
	WriteTimeoutSec   int `yaml:"write_timeout_sec"`
	ShutdownSec       int `yaml:"shutdown_timeout_sec"`
	RequestsPerMinute int `yaml:"requests_per_minute"` // per client IP, 0 = unlimited
}

// Vector store drivers.
const (
	DriverValkey   = "valkey"
	DriverRedis    = "redis"
	DriverPGVector = "pgvector"
	DriverMemory   = "memory"
)

// Catalog source drivers.
const (
	CatalogPostgres = "postgres"
	CatalogSQLite   = "sqlite"
)

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, pgvector, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DSN              string   `yaml:"dsn"`   // pgvector only
	Table            string   `yaml:"table"` // pgvector only
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CatalogConfig points at the read-only course catalog.
type CatalogConfig struct {
	Driver string `yaml:"driver"` // postgres, sqlite (default: postgres)
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string  `yaml:"provider"`
	APIKey              string  `yaml:"api_key"`
	BaseURL             string  `yaml:"base_url"`
	Model               string  `yaml:"model"`
	Dimensions          int     `yaml:"dimensions"`
	User                string  `yaml:"user"`
	Cache               bool    `yaml:"cache"`
	RequestsPerSecond   float64 `yaml:"requests_per_second"` // 0 = unlimited
	DocumentInstruction string  `yaml:"document_instruction"`
	QueryInstruction    string  `yaml:"query_instruction"`
}

// GenerationConfig holds chat model settings.
type GenerationConfig struct {
	Provider          string  `yaml:"provider"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Temperature       float32 `yaml:"temperature"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	MaxRetries        *int    `yaml:"max_retries"`
	BackoffMS         int     `yaml:"backoff_ms"`
	BreakerFailures   uint32  `yaml:"breaker_failures"`
	BreakerTimeoutSec int     `yaml:"breaker_timeout_sec"`
}

// Retries returns the configured retry count.
func (g GenerationConfig) Retries() int {
	if g.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *g.MaxRetries
}

// IngestionConfig holds batching settings.
type IngestionConfig struct {
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
	Mode      string `yaml:"mode"` // append, upsert_by_id (default)
}

// RetrievalConfig bounds the number of retrieved matches.
type RetrievalConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

const (
	defaultMaxRetries   = 2
	maxIngestBatchSize  = 1000
	defaultProviderName = "openai"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// In local, variables from a .env file in the working directory are loaded first.
func Load(env string) (Config, error) {
	if env == "local" {
		_ = godotenv.Load()
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML after ${VAR} substitution, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.Table == "" {
		c.Database.Table = "course_vectors"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = CatalogPostgres
	}
	if c.Catalog.Table == "" {
		c.Catalog.Table = "courses"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = defaultProviderName
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = c.Embedding.Provider
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = c.Embedding.APIKey
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = c.Embedding.BaseURL
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 30
	}
	if c.Generation.MaxRetries == nil {
		n := defaultMaxRetries
		c.Generation.MaxRetries = &n
	}
	if c.Generation.BackoffMS <= 0 {
		c.Generation.BackoffMS = 250
	}
	if c.Generation.BreakerFailures == 0 {
		c.Generation.BreakerFailures = 5
	}
	if c.Generation.BreakerTimeoutSec <= 0 {
		c.Generation.BreakerTimeoutSec = 30
	}
	if c.Ingestion.BatchSize <= 0 {
		c.Ingestion.BatchSize = 100
	}
	if c.Ingestion.Workers <= 0 {
		c.Ingestion.Workers = 1
	}
	if c.Ingestion.Mode == "" {
		c.Ingestion.Mode = string(domvec.ModeUpsertByID)
	}
	if c.Retrieval.DefaultK <= 0 {
		c.Retrieval.DefaultK = 5
	}
	if c.Retrieval.MaxK <= 0 {
		c.Retrieval.MaxK = 50
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "courserec:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	switch c.Catalog.Driver {
	case CatalogPostgres, CatalogSQLite:
	default:
		return fmt.Errorf("catalog.driver must be %q or %q, got %q", CatalogPostgres, CatalogSQLite, c.Catalog.Driver)
	}
	if c.Catalog.DSN == "" {
		return fmt.Errorf("catalog.dsn is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %g", c.Generation.Temperature)
	}
	if c.Generation.Retries() < 0 {
		return fmt.Errorf("generation.max_retries must not be negative, got %d", c.Generation.Retries())
	}
	if c.Ingestion.BatchSize > maxIngestBatchSize {
		return fmt.Errorf("ingestion.batch_size must be between 1 and %d, got %d",
			maxIngestBatchSize, c.Ingestion.BatchSize)
	}
	if _, err := domvec.ParseMode(c.Ingestion.Mode); err != nil {
		return fmt.Errorf("ingestion.mode: %w", err)
	}
	if c.Retrieval.DefaultK > c.Retrieval.MaxK {
		return fmt.Errorf("retrieval.default_k (%d) must not exceed retrieval.max_k (%d)",
			c.Retrieval.DefaultK, c.Retrieval.MaxK)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case DriverPGVector:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for pgvector")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
