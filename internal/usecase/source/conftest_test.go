package source

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/litmap/internal/domain/article"
)

type fetchCall struct {
	limit, offset int
}

// corpusFetcher serves pages from an in-memory corpus.
type corpusFetcher struct {
	corpus []article.Article
	calls  []fetchCall
	errAt  int // call index that fails, -1 = never
	err    error
}

func newCorpusFetcher(corpus []article.Article) *corpusFetcher {
	return &corpusFetcher{corpus: corpus, errAt: -1}
}

func (f *corpusFetcher) Fetch(_ context.Context, _ string, limit, offset int) ([]article.Article, error) {
	f.calls = append(f.calls, fetchCall{limit: limit, offset: offset})
	if f.errAt == len(f.calls)-1 {
		return nil, f.err
	}
	if offset >= len(f.corpus) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.corpus) {
		end = len(f.corpus)
	}
	return f.corpus[offset:end], nil
}

// makeCorpus builds n articles; every emptyEvery-th one (1-based) has no abstract.
func makeCorpus(n, emptyEvery int) []article.Article {
	out := make([]article.Article, n)
	for i := range out {
		abstract := fmt.Sprintf("abstract %d", i)
		if emptyEvery > 0 && (i+1)%emptyEvery == 0 {
			abstract = "  "
		}
		out[i] = article.Reconstruct(fmt.Sprintf("title %d", i), abstract, 2020, i, "")
	}
	return out
}

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}
