package vectorize

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

const analyzerName = "litmap_words"

// Model is the process-wide text analysis handle. Obtain it with Init.
type Model struct {
	analyzer analysis.Analyzer
}

var (
	initOnce  sync.Once
	initModel *Model
	initErr   error
)

// Init builds the analysis model on first call and returns the same handle afterwards.
func Init() (*Model, error) {
	initOnce.Do(func() {
		initModel, initErr = buildModel()
	})
	return initModel, initErr
}

func buildModel() (*Model, error) {
	m := bleve.NewIndexMapping()
	err := m.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			en.PossessiveName,
			lowercase.Name,
			en.StopName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	a := m.AnalyzerNamed(analyzerName)
	if a == nil {
		return nil, fmt.Errorf("analyzer %q not registered", analyzerName)
	}
	return &Model{analyzer: a}, nil
}

// Tokenize returns the lowercased word tokens of text without stop-words,
// numbers or single characters, in text order.
func (m *Model) Tokenize(text string) []string {
	stream := m.analyzer.Analyze([]byte(text))
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		if tok.Type != analysis.AlphaNumeric || len(tok.Term) < 2 {
			continue
		}
		out = append(out, string(tok.Term))
	}
	return out
}

// TokenizeAll tokenizes every text.
func (m *Model) TokenizeAll(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = m.Tokenize(t)
	}
	return out
}
