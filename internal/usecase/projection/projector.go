package projection

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/danaugrs/go-tsne/tsne"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/kailas-cloud/litmap/internal/domain/projection"
)

const (
	MethodPCA  = "pca"
	MethodTSNE = "tsne"

	// minTSNEPoints is the smallest corpus t-SNE is run on; smaller ones use PCA.
	minTSNEPoints = 4
)

// Config selects and tunes the projection.
type Config struct {
	Method       string
	Perplexity   float64
	LearningRate float64
	MaxIter      int
	Logger       *zap.Logger
}

// Projector reduces document embeddings to 2D points.
type Projector struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Projector. An unknown method falls back to PCA.
func New(cfg Config) *Projector {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Method != MethodTSNE {
		cfg.Method = MethodPCA
	}
	return &Projector{cfg: cfg, logger: logger}
}

// Method returns the active projection method.
func (p *Projector) Method() string { return p.cfg.Method }

// Project returns one point per input vector, in input order.
func (p *Projector) Project(ctx context.Context, vectors [][]float64) ([]projection.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch len(vectors) {
	case 0:
		return []projection.Point{}, nil
	case 1:
		return []projection.Point{{}}, nil
	}

	x, err := normalizedMatrix(vectors)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var points []projection.Point
	if p.cfg.Method == MethodTSNE && len(vectors) >= minTSNEPoints {
		points = p.tsne(x)
	} else {
		points, err = pca(x)
		if err != nil {
			return nil, err
		}
	}
	p.logger.Debug("Projection computed",
		zap.String("method", p.cfg.Method),
		zap.Int("points", len(points)),
		zap.Duration("took", time.Since(start)),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// tsne embeds unit-length rows, where squared euclidean distance equals
// twice the cosine distance.
func (p *Projector) tsne(x *mat.Dense) []projection.Point {
	n, _ := x.Dims()
	perplexity := p.cfg.Perplexity
	if limit := float64(n-1) / 3; perplexity > limit {
		perplexity = math.Max(limit, 1)
	}

	t := tsne.NewTSNE(2, perplexity, p.cfg.LearningRate, p.cfg.MaxIter, false)
	t.EmbedData(x, nil)

	points := make([]projection.Point, n)
	for i := range points {
		points[i] = projection.Point{X: t.Y.At(i, 0), Y: t.Y.At(i, 1)}
	}
	return points
}

func pca(x *mat.Dense) ([]projection.Point, error) {
	n, d := x.Dims()

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("principal component analysis failed on %dx%d matrix", n, d)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, avail := vecs.Dims()
	cols := min(avail, 2)

	centered := mat.DenseCopyOf(x)
	for j := 0; j < d; j++ {
		mean := stat.Mean(mat.Col(nil, j, x), nil)
		for i := 0; i < n; i++ {
			centered.Set(i, j, x.At(i, j)-mean)
		}
	}

	points := make([]projection.Point, n)
	if cols == 0 {
		return points, nil
	}
	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, d, 0, cols))
	for i := range points {
		points[i].X = proj.At(i, 0)
		if cols > 1 {
			points[i].Y = proj.At(i, 1)
		}
	}
	return points, nil
}

// normalizedMatrix copies vectors into a dense matrix with L2-normalized rows.
// Zero rows stay zero.
func normalizedMatrix(vectors [][]float64) (*mat.Dense, error) {
	n, d := len(vectors), len(vectors[0])
	if d == 0 {
		return nil, fmt.Errorf("cannot project zero-dimensional vectors")
	}
	data := make([]float64, 0, n*d)
	for i, v := range vectors {
		if len(v) != d {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), d)
		}
		norm := l2(v)
		for _, f := range v {
			if norm == 0 {
				data = append(data, 0)
				continue
			}
			data = append(data, f/norm)
		}
	}
	return mat.NewDense(n, d, data), nil
}

func l2(v []float64) float64 {
	var sum float64
	for _, f := range v {
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine distance between x and y: 0 when both are zero,
// 1 when exactly one is zero, 1 - cos(x, y) otherwise.
func Cosine(x, y []float64) float64 {
	nx, ny := l2(x), l2(y)
	switch {
	case nx == 0 && ny == 0:
		return 0
	case nx == 0 || ny == 0:
		return 1
	}
	var dot float64
	for i := range x {
		dot += x[i] * y[i]
	}
	return 1 - dot/(nx*ny)
}
