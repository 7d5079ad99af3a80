package cluster

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/litmap/internal/domain/cluster"
	"github.com/kailas-cloud/litmap/internal/domain/projection"
	"github.com/kailas-cloud/litmap/internal/metrics"
	"github.com/kailas-cloud/litmap/internal/usecase/keywords"
	"github.com/kailas-cloud/litmap/internal/usecase/worker"
)

// Request is the input of one clustering job.
type Request struct {
	Tree       cluster.Tree
	K          int
	Projection []projection.Point
	Tokens     [][]string
	Keywords   int
}

// Response is the output of one clustering job.
type Response struct {
	Assignment cluster.Assignment
	Keywords   [][]string
}

// Run cuts the tree and extracts keywords. It is the body of the worker job.
func Run(req Request) (Response, error) {
	assignment, err := Cut(req.Tree, req.K)
	if err != nil {
		return Response{}, err
	}
	kw, err := keywords.Extract(req.Tokens, assignment, req.K, req.Keywords)
	if err != nil {
		return Response{}, err
	}
	return Response{Assignment: assignment, Keywords: kw}, nil
}

// Centroids returns the mean projected position of every cluster.
func Centroids(points []projection.Point, assignment cluster.Assignment, k int) []projection.Point {
	out := make([]projection.Point, k)
	if len(points) != len(assignment) {
		return out
	}
	for id, members := range assignment.Members(k) {
		if len(members) == 0 {
			continue
		}
		for _, doc := range members {
			out[id].X += points[doc].X
			out[id].Y += points[doc].Y
		}
		out[id].X /= float64(len(members))
		out[id].Y /= float64(len(members))
	}
	return out
}

func (r Request) clone() Request {
	tokens := make([][]string, len(r.Tokens))
	for i, t := range r.Tokens {
		tokens[i] = append([]string(nil), t...)
	}
	return Request{
		Tree:       r.Tree.Clone(),
		K:          r.K,
		Projection: projection.Clone(r.Projection),
		Tokens:     tokens,
		Keywords:   r.Keywords,
	}
}

// Service runs clustering jobs, one fresh worker per call.
type Service struct {
	logger *zap.Logger
}

// New creates a clustering Service.
func New(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

// Clusterize runs req on a dedicated worker. The worker gets its own copy of
// the inputs.
func (s *Service) Clusterize(ctx context.Context, req Request) (Response, error) {
	defer metrics.ObserveStage("cluster", time.Now())

	w := worker.Spawn(Run)
	defer w.Dispose()

	if err := w.Send(req.clone()); err != nil {
		return Response{}, err
	}
	resp, err := w.Await(ctx)
	if err != nil {
		return Response{}, err
	}
	s.logger.Debug("Clustering job finished",
		zap.Int("clusters", req.K),
		zap.Int("documents", len(resp.Assignment)),
	)
	return resp, nil
}
