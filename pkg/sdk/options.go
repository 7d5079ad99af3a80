package litmap

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "memory" or "redis"
	addrs    []string
	password string
	ttl      time.Duration

	vectors    string
	projection string

	semanticScholarKey string
	pubMedKey          string

	completionKey   string
	completionURL   string
	completionModel string

	keywords int
	debounce time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis keeps the session cache in a Redis instance instead of memory.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithSessionTTL bounds the lifetime of cached search results. Zero keeps
// them until the next search.
func WithSessionTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.ttl = ttl
	})
}

// WithVectors sets the word-vector table: an http(s) URL or a file path
// holding a JSON object of word to vector. Required.
func WithVectors(location string) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectors = location
	})
}

// WithProjection selects the 2D projection: "pca" (default) or "tsne".
func WithProjection(method string) Option {
	return optionFunc(func(c *clientConfig) {
		c.projection = method
	})
}

// WithSourceKeys sets API keys of the article providers. Both are optional.
func WithSourceKeys(semanticScholar, pubMed string) Option {
	return optionFunc(func(c *clientConfig) {
		c.semanticScholarKey = semanticScholar
		c.pubMedKey = pubMed
	})
}

// WithCompletion configures the OpenAI-compatible API used to prettify
// labels. Empty baseURL and model keep the defaults.
func WithCompletion(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.completionKey = apiKey
		c.completionURL = baseURL
		c.completionModel = model
	})
}

// WithKeywords sets the number of keywords per cluster label. Default: 5.
func WithKeywords(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.keywords = n
	})
}

// WithDebounce sets the coalescing window of SetParams. Default: 500ms.
func WithDebounce(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.debounce = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
