package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rura-ai/rura/internal/domain"
)

// Config holds the rura service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
}

// Addr returns the host:port listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, qdrant (default: qdrant)
	Addrs            []string `yaml:"addrs"`  // redis driver
	Password         string   `yaml:"password"`
	URL              string   `yaml:"url"` // qdrant driver
	APIKey           string   `yaml:"api_key"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// OllamaConfig holds the default generation backend.
type OllamaConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Model string `yaml:"model"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// IngestConfig holds crawl and encode pipeline settings.
type IngestConfig struct {
	BaseCollection    string   `yaml:"base_collection"`
	FilterCollections []string `yaml:"filter_collections"`
	QueueCapacity     int      `yaml:"queue_capacity"`
	Concurrency       int      `yaml:"concurrency"` // page fetch workers
	MetaFragments     bool     `yaml:"meta_fragments"`
	ProgressTTLSec    int      `yaml:"progress_ttl_sec"`
}

// RetrievalConfig holds search settings.
type RetrievalConfig struct {
	Weights map[string]float64 `yaml:"weights"`
	Limit   int                `yaml:"limit"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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
	if c.HTTP.Host == "" {
		c.HTTP.Host = "127.0.0.1"
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 3000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "qdrant"
	}
	if c.Database.URL == "" {
		c.Database.URL = "http://localhost:6333"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Ollama.Host == "" {
		c.Ollama.Host = "localhost"
	}
	if c.Ollama.Port <= 0 {
		c.Ollama.Port = 11434
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = "openhermes2.5-mistral:7b-q6_K"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "http://localhost:11434/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "all-minilm"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Ingest.BaseCollection == "" {
		c.Ingest.BaseCollection = "rura_collection"
	}
	if len(c.Ingest.FilterCollections) == 0 {
		c.Ingest.FilterCollections = []string{string(domain.CollectionBasic)}
	}
	if c.Ingest.QueueCapacity <= 0 {
		c.Ingest.QueueCapacity = 100
	}
	if c.Ingest.Concurrency <= 0 {
		c.Ingest.Concurrency = 10
	}
	if c.Ingest.ProgressTTLSec <= 0 {
		c.Ingest.ProgressTTLSec = 3600
	}
	if len(c.Retrieval.Weights) == 0 {
		c.Retrieval.Weights = map[string]float64{
			string(domain.CollectionBasic):   0.8,
			string(domain.CollectionSummary): 0.2,
		}
	}
	if c.Retrieval.Limit <= 0 {
		c.Retrieval.Limit = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "qdrant":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the qdrant driver")
		}
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"qdrant\", got %q", c.Database.Driver)
	}
	if _, err := domain.ParseCollections(strings.Join(c.Ingest.FilterCollections, ",")); err != nil {
		return fmt.Errorf("ingest.filter_collections: %w", err)
	}
	if _, err := c.Weights(); err != nil {
		return fmt.Errorf("retrieval.weights: %w", err)
	}
	return nil
}

// Weights converts the retrieval weight map into the domain representation.
func (c *Config) Weights() (domain.Weights, error) {
	w := make(domain.Weights, len(c.Retrieval.Weights))
	for tag, weight := range c.Retrieval.Weights {
		col, err := domain.ParseCollection(tag)
		if err != nil {
			return nil, err
		}
		w[col] = weight
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// FilterCollections parses the configured filter tags.
func (c *Config) FilterCollections() ([]domain.Collection, error) {
	return domain.ParseCollections(strings.Join(c.Ingest.FilterCollections, ","))
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
