package vectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/domain"
)

// Loader reads a word-vector table of the form {"token": [f1, f2, ...]} from
// an http(s) URL or a local file.
type Loader struct {
	location   string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Loader for location.
func New(location string, timeout time.Duration, logger *zap.Logger) *Loader {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Loader{
		location:   location,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Load implements vectorize.Loader.
func (l *Loader) Load(ctx context.Context) (map[string][]float32, error) {
	start := time.Now()

	body, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	var table map[string][]float32
	if err := json.NewDecoder(body).Decode(&table); err != nil {
		return nil, fmt.Errorf("decode word vectors: %w: %w", domain.ErrProvider, err)
	}

	l.logger.Info("Word vectors loaded",
		zap.String("location", l.location),
		zap.Int("tokens", len(table)),
		zap.Duration("took", time.Since(start)),
	)
	return table, nil
}

func (l *Loader) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(l.location, "http://") && !strings.HasPrefix(l.location, "https://") {
		f, err := os.Open(filepath.Clean(l.location))
		if err != nil {
			return nil, fmt.Errorf("open word vectors: %w: %w", domain.ErrProvider, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.location, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download word vectors: %w: %w", domain.ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download word vectors: status %d: %w", resp.StatusCode, domain.ErrProvider)
	}
	return resp.Body, nil
}
