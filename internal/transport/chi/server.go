// Package chi exposes the analysis pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/domain"
	"github.com/kailas-cloud/litmap/internal/domain/pipeline"
	"github.com/kailas-cloud/litmap/internal/domain/request"
	"github.com/kailas-cloud/litmap/internal/logger"
	"github.com/kailas-cloud/litmap/internal/progress"
	healthuc "github.com/kailas-cloud/litmap/internal/usecase/health"
)

const defaultPageSize = 50

// Pipeline is the orchestrator as seen by the HTTP layer.
type Pipeline interface {
	Search(ctx context.Context, req request.Search) (*pipeline.SearchResult, error)
	Reclusterize(ctx context.Context, params request.Cluster) (*pipeline.ClusterizeResult, error)
	SetParams(params request.Cluster) error
	State() pipeline.State
	Progress() *progress.Tracker
}

// Defaults fill request fields the caller left out.
type Defaults struct {
	Articles    int
	MaxArticles int
	Source      string
	Clusters    int
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the pipeline API.
type Server struct {
	pipeline      Pipeline
	health        *healthuc.Service
	defaults      Defaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(p Pipeline, health *healthuc.Service, defaults Defaults, logger *zap.Logger) *Server {
	s := &Server{
		pipeline: p,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNoSearchResult, http.StatusConflict, ErrorCodeNoSearchResult),
		sentinelHandler(domain.ErrSuperseded, http.StatusConflict, ErrorCodeSuperseded),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrProvider, http.StatusBadGateway, ErrorCodeProviderError),
		sentinelHandler(domain.ErrCut, http.StatusInternalServerError, ErrorCodeCutFailed),
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r gochi.Router) {
	r.Post("/search", s.Search)
	r.Put("/params", s.SetParams)
	r.Post("/reclusterize", s.Reclusterize)
	r.Get("/state", s.State)
	r.Get("/progress", s.Progress)
	r.Get("/documents", s.ListDocuments)
	r.Get("/clusters", s.ListClusters)
	r.Get("/clusters/{clusterID}", s.GetCluster)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	wait := true
	if err := runtime.BindQueryParameter("form", true, false, "wait", r.URL.Query(), &wait); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid parameter wait: "+err.Error())
		return
	}

	var body SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req, err := s.searchFromBody(body)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if !wait {
		// detached from the request lifetime, keeps the request logger
		ctx := context.WithoutCancel(r.Context())
		log := logger.Or(ctx, s.logger)
		go func() {
			if _, err := s.pipeline.Search(ctx, req); err != nil {
				log.Warn("Background search failed", zap.Error(err))
			}
		}()
		writeJSON(w, http.StatusAccepted, SearchSummary{
			State:  string(pipeline.TagSearching),
			Query:  req.Query(),
			Source: string(req.Source()),
		})
		return
	}

	res, err := s.pipeline.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchSummary{
		State:      string(s.pipeline.State().Tag()),
		Query:      req.Query(),
		Source:     string(req.Source()),
		Generation: res.Generation,
		Documents:  res.Len(),
	})
}

// SetParams handles PUT /params. The reclusterize it schedules is debounced.
func (s *Server) SetParams(w http.ResponseWriter, r *http.Request) {
	params, ok := s.decodeParams(w, r)
	if !ok {
		return
	}
	if err := s.pipeline.SetParams(params); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.stateView(s.pipeline.State()))
}

// Reclusterize handles POST /reclusterize.
func (s *Server) Reclusterize(w http.ResponseWriter, r *http.Request) {
	params, ok := s.decodeParams(w, r)
	if !ok {
		return
	}
	res, err := s.pipeline.Reclusterize(r.Context(), params)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clustersToView(res))
}

// State handles GET /state.
func (s *Server) State(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stateView(s.pipeline.State()))
}

// Progress handles GET /progress.
func (s *Server) Progress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ProgressResponse{Steps: s.pipeline.Progress().Steps()})
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, offset := defaultPageSize, 0
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid parameter limit: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &offset); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid parameter offset: "+err.Error())
		return
	}
	if limit < 1 || offset < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "limit must be positive and offset non-negative")
		return
	}

	state := s.pipeline.State()
	search := pipeline.SearchOf(state)
	if search == nil {
		s.handleDomainError(w, domain.ErrNoSearchResult)
		return
	}
	var assignment []int
	if res := pipeline.ResultOf(state); res != nil {
		assignment = res.Assignment
	}

	total := search.Len()
	start := min(offset, total)
	end := min(start+limit, total)
	items := make([]DocumentView, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, documentToView(search, i, assignment))
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Items: items, Total: total, HasMore: end < total})
}

// ListClusters handles GET /clusters.
func (s *Server) ListClusters(w http.ResponseWriter, _ *http.Request) {
	res := pipeline.ResultOf(s.pipeline.State())
	if res == nil {
		s.handleDomainError(w, fmt.Errorf("%w: no clustering result", domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, clustersToView(res))
}

// GetCluster handles GET /clusters/{clusterID}.
func (s *Server) GetCluster(w http.ResponseWriter, r *http.Request) {
	var id int
	err := runtime.BindStyledParameterWithOptions("simple", "clusterID", gochi.URLParam(r, "clusterID"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid parameter clusterID: "+err.Error())
		return
	}

	state := s.pipeline.State()
	res := pipeline.ResultOf(state)
	if res == nil {
		s.handleDomainError(w, fmt.Errorf("%w: no clustering result", domain.ErrNotFound))
		return
	}
	if id < 0 || id >= res.K() {
		s.handleDomainError(w, fmt.Errorf("%w: cluster %d", domain.ErrNotFound, id))
		return
	}

	search := pipeline.SearchOf(state)
	view := clustersToView(res).Items[id]
	for _, doc := range res.Assignment.Members(res.K())[id] {
		view.Documents = append(view.Documents, documentToView(search, doc, res.Assignment))
	}
	writeJSON(w, http.StatusOK, view)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) searchFromBody(body SearchRequest) (request.Search, error) {
	amount := s.defaults.Articles
	if body.Articles != nil {
		n, err := request.ParseCount("articles", string(*body.Articles))
		if err != nil {
			return request.Search{}, err
		}
		amount = n
	}
	source := body.Source
	if source == "" {
		source = s.defaults.Source
	}
	return request.NewSearch(body.Query, amount, source, body.ExcludeEmpty, s.defaults.MaxArticles)
}

func (s *Server) decodeParams(w http.ResponseWriter, r *http.Request) (request.Cluster, bool) {
	var body ClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return request.Cluster{}, false
	}
	k := s.defaults.Clusters
	if body.Clusters != nil {
		n, err := request.ParseCount("clusters", string(*body.Clusters))
		if err != nil {
			s.handleDomainError(w, err)
			return request.Cluster{}, false
		}
		k = n
	}
	params, err := request.NewCluster(k, body.Prettify, body.APIToken)
	if err != nil {
		s.handleDomainError(w, err)
		return request.Cluster{}, false
	}
	return params, true
}

func (s *Server) stateView(st pipeline.State) StateResponse {
	resp := StateResponse{State: string(st.Tag())}
	if search := pipeline.SearchOf(st); search != nil {
		resp.Generation = search.Generation
		resp.Documents = search.Len()
	}
	if p := pipeline.ParamsOf(st); p != nil {
		resp.Params = &ParamsView{Clusters: p.Clusters(), Prettify: p.Prettify()}
	}
	if res := pipeline.ResultOf(st); res != nil {
		resp.Labels = res.Labels
		resp.Refined = res.Refined
	}
	return resp
}
