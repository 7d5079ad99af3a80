package chi

import (
	"bytes"
	"encoding/json"

	"github.com/kailas-cloud/litmap/internal/domain/projection"
	"github.com/kailas-cloud/litmap/internal/progress"
)

// ErrorCode is the machine-readable part of an error response.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeNoSearchResult   ErrorCode = "no_search_result"
	ErrorCodeSuperseded       ErrorCode = "superseded"
	ErrorCodeNotFound         ErrorCode = "not_found"
	ErrorCodeProviderError    ErrorCode = "provider_error"
	ErrorCodeCutFailed        ErrorCode = "cut_failed"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// rawCount accepts a count as a JSON number or a JSON string, so that
// "12" and 12 are both valid and "twelve" is reported as a validation error.
type rawCount string

func (c *rawCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = rawCount(s)
		return nil
	}
	*c = rawCount(data)
	return nil
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query        string    `json:"query"`
	Articles     *rawCount `json:"articles,omitempty"`
	Source       string    `json:"source,omitempty"`
	ExcludeEmpty bool      `json:"exclude_empty"`
}

// ClusterRequest is the body of PUT /params and POST /reclusterize.
type ClusterRequest struct {
	Clusters *rawCount `json:"clusters,omitempty"`
	Prettify bool      `json:"prettify"`
	APIToken string    `json:"api_token,omitempty"`
}

// SearchSummary describes a finished or accepted search.
type SearchSummary struct {
	State      string `json:"state"`
	Query      string `json:"query"`
	Source     string `json:"source"`
	Generation uint64 `json:"generation,omitempty"`
	Documents  int    `json:"documents"`
}

// ParamsView is the public part of the clustering parameters. The API token
// is never echoed.
type ParamsView struct {
	Clusters int  `json:"clusters"`
	Prettify bool `json:"prettify"`
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	State      string      `json:"state"`
	Generation uint64      `json:"generation,omitempty"`
	Documents  int         `json:"documents"`
	Params     *ParamsView `json:"params,omitempty"`
	Labels     []string    `json:"labels,omitempty"`
	Refined    bool        `json:"refined"`
}

// ProgressResponse is the body of GET /progress.
type ProgressResponse struct {
	Steps []progress.StepView `json:"steps"`
}

// DocumentView is one projected document.
type DocumentView struct {
	Index         int     `json:"index"`
	Title         string  `json:"title"`
	Abstract      string  `json:"abstract"`
	Year          int     `json:"year"`
	CitationCount int     `json:"citation_count"`
	URL           string  `json:"url"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Cluster       *int    `json:"cluster,omitempty"`
}

// DocumentListResponse is the body of GET /documents.
type DocumentListResponse struct {
	Items   []DocumentView `json:"items"`
	Total   int            `json:"total"`
	HasMore bool           `json:"has_more"`
}

// ClusterView is one cluster of the latest clustering result.
type ClusterView struct {
	ID        int              `json:"id"`
	Label     string           `json:"label"`
	Keywords  []string         `json:"keywords"`
	Size      int              `json:"size"`
	Centroid  projection.Point `json:"centroid"`
	Documents []DocumentView   `json:"documents,omitempty"`
}

// ClusterListResponse is the body of GET /clusters.
type ClusterListResponse struct {
	Items   []ClusterView `json:"items"`
	Refined bool          `json:"refined"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
