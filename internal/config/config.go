package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the litmap configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Session    SessionConfig    `yaml:"session"`
	Sources    SourcesConfig    `yaml:"sources"`
	Vectors    VectorsConfig    `yaml:"vectors"`
	Projection ProjectionConfig `yaml:"projection"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Refine     RefineConfig     `yaml:"refine"`
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
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SessionConfig holds settings of the session-scoped result cache.
type SessionConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = no expiry
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// TTL returns the session entry lifetime.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLSec) * time.Second
}

// SourcesConfig holds article provider settings.
type SourcesConfig struct {
	SemanticScholar SourceConfig `yaml:"semantic_scholar"`
	PubMed          SourceConfig `yaml:"pub_med"`
}

// SourceConfig holds settings of a single article provider.
type SourceConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	PageSize       int    `yaml:"page_size"`
	RequestDelayMs int    `yaml:"request_delay_ms"`
	TimeoutSec     int    `yaml:"timeout_sec"`
}

// RequestDelay returns the pause between two page requests.
func (s SourceConfig) RequestDelay() time.Duration {
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// VectorsConfig points at the word-vector table (http(s) URL or file path).
type VectorsConfig struct {
	Location   string `yaml:"location"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// ProjectionConfig holds 2D projection settings.
type ProjectionConfig struct {
	Method       string  `yaml:"method"` // pca, tsne (default: pca)
	Perplexity   float64 `yaml:"perplexity"`
	LearningRate float64 `yaml:"learning_rate"`
	MaxIter      int     `yaml:"max_iter"`
}

// ClusteringConfig holds clustering defaults and limits.
type ClusteringConfig struct {
	DefaultClusters int    `yaml:"default_clusters"`
	DefaultArticles int    `yaml:"default_articles"`
	MaxArticles     int    `yaml:"max_articles"`
	DefaultSource   string `yaml:"default_source"`
	Keywords        int    `yaml:"keywords"`
	DebounceMs      int    `yaml:"debounce_ms"`
}

// Debounce returns the coalescing window for parameter changes.
func (c ClusteringConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// RefineConfig holds label refinement (chat completion) settings.
type RefineConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTitles   int     `yaml:"max_titles"`
	CacheSize   int     `yaml:"cache_size"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// Timeout returns the per-completion timeout.
func (r RefineConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes raw YAML, expanding ${VAR} references, then applies defaults and validates.
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
	if c.Session.Driver == "" {
		c.Session.Driver = "memory"
	}
	if c.Session.KeyPrefix == "" {
		c.Session.KeyPrefix = "litmap:"
	}
	if c.Session.ReadinessTimeout <= 0 {
		c.Session.ReadinessTimeout = 10
	}
	applySourceDefaults(&c.Sources.SemanticScholar, "https://api.semanticscholar.org", 100)
	applySourceDefaults(&c.Sources.PubMed, "https://eutils.ncbi.nlm.nih.gov", 250)
	if c.Vectors.TimeoutSec <= 0 {
		c.Vectors.TimeoutSec = 60
	}
	if c.Projection.Method == "" {
		c.Projection.Method = "pca"
	}
	if c.Projection.Perplexity <= 0 {
		c.Projection.Perplexity = 30
	}
	if c.Projection.LearningRate <= 0 {
		c.Projection.LearningRate = 100
	}
	if c.Projection.MaxIter <= 0 {
		c.Projection.MaxIter = 300
	}
	if c.Clustering.DefaultClusters <= 0 {
		c.Clustering.DefaultClusters = 10
	}
	if c.Clustering.DefaultArticles <= 0 {
		c.Clustering.DefaultArticles = 100
	}
	if c.Clustering.MaxArticles <= 0 {
		c.Clustering.MaxArticles = 1000
	}
	if c.Clustering.DefaultSource == "" {
		c.Clustering.DefaultSource = "semantic-scholar"
	}
	if c.Clustering.Keywords <= 0 {
		c.Clustering.Keywords = 5
	}
	if c.Clustering.DebounceMs <= 0 {
		c.Clustering.DebounceMs = 500
	}
	if c.Refine.BaseURL == "" {
		c.Refine.BaseURL = "https://api.openai.com/v1"
	}
	if c.Refine.Model == "" {
		c.Refine.Model = "gpt-3.5-turbo"
	}
	if c.Refine.Temperature <= 0 {
		c.Refine.Temperature = 0.9
	}
	if c.Refine.MaxTitles <= 0 {
		c.Refine.MaxTitles = 10
	}
	if c.Refine.CacheSize <= 0 {
		c.Refine.CacheSize = 512
	}
	if c.Refine.TimeoutSec <= 0 {
		c.Refine.TimeoutSec = 30
	}
}

func applySourceDefaults(s *SourceConfig, baseURL string, pageSize int) {
	if s.BaseURL == "" {
		s.BaseURL = baseURL
	}
	if s.PageSize <= 0 {
		s.PageSize = pageSize
	}
	if s.RequestDelayMs <= 0 {
		s.RequestDelayMs = 200
	}
	if s.TimeoutSec <= 0 {
		s.TimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Session.Driver {
	case "memory":
	case "redis":
		if len(c.Session.Addrs) == 0 {
			return fmt.Errorf("session.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("session.driver must be \"memory\" or \"redis\", got %q", c.Session.Driver)
	}
	if c.Vectors.Location == "" {
		return fmt.Errorf("vectors.location is required")
	}
	switch c.Projection.Method {
	case "pca", "tsne":
	default:
		return fmt.Errorf("projection.method must be \"pca\" or \"tsne\", got %q", c.Projection.Method)
	}
	if c.Clustering.DefaultClusters < 2 {
		return fmt.Errorf("clustering.default_clusters must be at least 2, got %d", c.Clustering.DefaultClusters)
	}
	if c.Clustering.DefaultArticles > c.Clustering.MaxArticles {
		return fmt.Errorf("clustering.default_articles (%d) exceeds clustering.max_articles (%d)",
			c.Clustering.DefaultArticles, c.Clustering.MaxArticles)
	}
	switch c.Clustering.DefaultSource {
	case "semantic-scholar", "pub-med":
	default:
		return fmt.Errorf(
			"clustering.default_source must be \"semantic-scholar\" or \"pub-med\", got %q",
			c.Clustering.DefaultSource,
		)
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
