package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/domain/article"
)

// MaxPageSize is the largest limit the paper search endpoint accepts.
const MaxPageSize = 100

const searchFields = "title,abstract,year,citationCount,url"

// Client fetches papers from the Semantic Scholar graph API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds the client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// New creates a Semantic Scholar client.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}
}

type searchResponse struct {
	Total int     `json:"total"`
	Data  []paper `json:"data"`
}

type paper struct {
	Title         string `json:"title"`
	Abstract      any    `json:"abstract"`
	Year          *int   `json:"year"`
	CitationCount *int   `json:"citationCount"`
	URL           string `json:"url"`
}

// Fetch implements source.Fetcher.
func (c *Client) Fetch(ctx context.Context, query string, limit, offset int) ([]article.Article, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("fields", searchFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/graph/v1/paper/search?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("semantic scholar request failed: %w: %w", domain.ErrProvider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("semantic scholar error %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrProvider)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode semantic scholar response: %w: %w", domain.ErrProvider, err)
	}

	out := make([]article.Article, 0, len(parsed.Data))
	for _, p := range parsed.Data {
		a, err := p.toArticle()
		if err != nil {
			c.logger.Debug("Skipping paper", zap.String("url", p.URL), zap.Error(err))
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// toArticle normalises a paper. A non-string abstract counts as missing.
func (p paper) toArticle() (article.Article, error) {
	abstract, _ := p.Abstract.(string)
	year := 0
	if p.Year != nil {
		year = *p.Year
	}
	citations := 0
	if p.CitationCount != nil {
		citations = *p.CitationCount
	}
	return article.New(p.Title, abstract, year, citations, p.URL)
}
