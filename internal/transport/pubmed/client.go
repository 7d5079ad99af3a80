package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/domain/article"
)

// MaxPageSize is the id batch size used per esearch/efetch round.
const MaxPageSize = 250

// PlaceholderCitations is reported for every PubMed article; E-utilities carry no citation counts.
const PlaceholderCitations = 100

const articleURLPrefix = "https://pubmed.ncbi.nlm.nih.gov/"

// Client fetches articles through NCBI E-utilities: esearch for ids, then efetch for records.
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

// New creates a PubMed client.
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

type searchResult struct {
	Count string   `xml:"Count"`
	IDs   []string `xml:"IdList>Id"`
}

type articleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID          string   `xml:"MedlineCitation>PMID"`
	Title         markup   `xml:"MedlineCitation>Article>ArticleTitle"`
	AbstractTexts []markup `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	ArticleYear   string   `xml:"MedlineCitation>Article>ArticleDate>Year"`
	JournalYear   string   `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate>Year"`
}

// markup keeps inline tags (<i>, <sup>) so their text is not lost.
type markup struct {
	Inner string `xml:",innerxml"`
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func (m markup) text() string {
	return strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(m.Inner, "")))
}

// Fetch implements source.Fetcher.
func (c *Client) Fetch(ctx context.Context, query string, limit, offset int) ([]article.Article, error) {
	ids, err := c.search(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return c.fetchArticles(ctx, ids)
}

func (c *Client) search(ctx context.Context, query string, limit, offset int) ([]string, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("term", query)
	q.Set("retmax", strconv.Itoa(limit))
	q.Set("retstart", strconv.Itoa(offset))

	var res searchResult
	if err := c.get(ctx, "esearch.fcgi", q, &res); err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}
	return res.IDs, nil
}

func (c *Client) fetchArticles(ctx context.Context, ids []string) ([]article.Article, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("retmode", "xml")
	q.Set("id", strings.Join(ids, ","))

	var set articleSet
	if err := c.get(ctx, "efetch.fcgi", q, &set); err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	out := make([]article.Article, 0, len(set.Articles))
	for _, pa := range set.Articles {
		a, ok := pa.toArticle()
		if !ok {
			c.logger.Debug("Skipping PubMed record without title or year", zap.String("pmid", pa.PMID))
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// toArticle requires a title and a publication year.
func (pa pubmedArticle) toArticle() (article.Article, bool) {
	title := pa.Title.text()
	yearText := strings.TrimSpace(pa.ArticleYear)
	if yearText == "" {
		yearText = strings.TrimSpace(pa.JournalYear)
	}
	year, err := strconv.Atoi(yearText)
	if title == "" || err != nil {
		return article.Article{}, false
	}

	parts := make([]string, 0, len(pa.AbstractTexts))
	for _, t := range pa.AbstractTexts {
		if s := t.text(); s != "" {
			parts = append(parts, s)
		}
	}

	a, err := article.New(title, strings.Join(parts, " "), year, PlaceholderCitations,
		articleURLPrefix+strings.TrimSpace(pa.PMID))
	if err != nil {
		return article.Article{}, false
	}
	return a, true
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	u := c.baseURL + "/entrez/eutils/" + endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pubmed request failed: %w: %w", domain.ErrProvider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("pubmed error %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrProvider)
	}

	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode pubmed response: %w: %w", domain.ErrProvider, err)
	}
	return nil
}
