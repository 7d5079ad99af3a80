// Package keywords ranks cluster terms by TF-IDF.
package keywords

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/james-bowman/nlp"

	"github.com/kailas-cloud/litmap/internal/domain/cluster"
)

// Extract returns up to n keywords for each of the k clusters in assignment.
// Every document contributes its TF-IDF vector; a term's cluster score is the
// mean over the cluster's documents. The whole vocabulary is ranked, so a
// cluster with fewer than n terms of its own is filled with zero-score terms.
// Equal scores keep vocabulary order.
func Extract(tokens [][]string, assignment cluster.Assignment, k, n int) ([][]string, error) {
	if len(tokens) != len(assignment) {
		return nil, fmt.Errorf("got %d token lists for %d assigned documents", len(tokens), len(assignment))
	}
	out := make([][]string, k)
	for i := range out {
		out[i] = []string{}
	}
	if n <= 0 {
		return out, nil
	}

	docs := make([][]string, len(tokens))
	corpus := make([]string, len(tokens))
	var nonEmpty bool
	for i, toks := range tokens {
		docs[i] = words(toks)
		corpus[i] = strings.Join(docs[i], " ")
		nonEmpty = nonEmpty || len(docs[i]) > 0
	}
	if !nonEmpty {
		return out, nil
	}

	vectoriser := nlp.NewCountVectoriser()
	pipeline := nlp.NewPipeline(vectoriser, nlp.NewTfidfTransformer())
	termsByDocs, err := pipeline.FitTransform(corpus...)
	if err != nil {
		return nil, fmt.Errorf("tf-idf: %w", err)
	}

	vocab := make([]string, len(vectoriser.Vocabulary))
	for term, idx := range vectoriser.Vocabulary {
		vocab[idx] = term
	}

	for id, members := range assignment.Members(k) {
		if len(members) == 0 {
			continue
		}
		scores := make(map[int]float64)
		for _, doc := range members {
			seen := make(map[int]struct{}, len(docs[doc]))
			for _, tok := range docs[doc] {
				idx, ok := vectoriser.Vocabulary[tok]
				if !ok {
					continue
				}
				if _, dup := seen[idx]; dup {
					continue
				}
				seen[idx] = struct{}{}
				scores[idx] += termsByDocs.At(idx, doc)
			}
		}
		out[id] = top(scores, vocab, len(members), n)
	}
	return out, nil
}

func top(scores map[int]float64, vocab []string, size, n int) []string {
	terms := make([]int, len(vocab))
	for idx := range terms {
		terms[idx] = idx
	}
	sort.Slice(terms, func(i, j int) bool {
		si, sj := scores[terms[i]]/float64(size), scores[terms[j]]/float64(size)
		if si != sj {
			return si > sj
		}
		return terms[i] < terms[j]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	out := make([]string, len(terms))
	for i, idx := range terms {
		out[i] = vocab[idx]
	}
	return out
}

// words keeps letter-only tokens so the vectoriser sees the same terms.
func words(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok != "" && strings.IndexFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) }) < 0 {
			out = append(out, strings.ToLower(tok))
		}
	}
	return out
}

// Label joins keywords into a display label.
func Label(keywords []string) string {
	return strings.Join(keywords, ", ")
}
