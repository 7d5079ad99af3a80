package vectorize

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/kailas-cloud/litmap/internal/domain"
)

func TestInit_ReturnsSameHandle(t *testing.T) {
	a, err := Init()
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	b, err := Init()
	if err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	if a != b {
		t.Error("Init should return the same handle")
	}
}

func TestTokenize(t *testing.T) {
	m, err := Init()
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	got := m.Tokenize("The Graph's neural networks in 2020: a SURVEY!")
	want := []string{"graph", "neural", "networks", "survey"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}

	if got := m.Tokenize("   "); len(got) != 0 {
		t.Errorf("Tokenize(blank) = %v", got)
	}
}

func TestTokenize_Deterministic(t *testing.T) {
	m, _ := Init()
	text := "Attention is all you need: transformers for sequence transduction"
	first := m.Tokenize(text)
	for i := 0; i < 5; i++ {
		if got := m.Tokenize(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}
	all := m.TokenizeAll([]string{text, ""})
	if len(all) != 2 || !reflect.DeepEqual(all[0], first) || len(all[1]) != 0 {
		t.Errorf("TokenizeAll() = %v", all)
	}
}

func testTable(t *testing.T) Table {
	t.Helper()
	table, err := NewTable(map[string][]float32{
		"graph":  {1, 0, 0},
		"neural": {0, 1, 0},
		"survey": {0, 0, 4},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func TestEmbed_Mean(t *testing.T) {
	table := testTable(t)
	got := Embed([]string{"graph", "unknown", "neural"}, table)
	want := []float64{0.5, 0.5, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("Embed() = %v, want %v", got, want)
		}
	}
}

func TestEmbed_EmptyIsZeroVector(t *testing.T) {
	table := testTable(t)
	for _, tokens := range [][]string{nil, {}, {"nothing", "known"}} {
		got := Embed(tokens, table)
		if len(got) != table.Dim() {
			t.Fatalf("len = %d, want %d", len(got), table.Dim())
		}
		for _, x := range got {
			if x != 0 {
				t.Fatalf("expected zero vector, got %v", got)
			}
		}
	}
}

func TestEmbedAll(t *testing.T) {
	table := testTable(t)
	got := EmbedAll([][]string{{"survey"}, {}}, table)
	if len(got) != 2 || got[0][2] != 4 || got[1][2] != 0 {
		t.Errorf("EmbedAll() = %v", got)
	}
}

func TestNewTable_RaggedVectors(t *testing.T) {
	_, err := NewTable(map[string][]float32{"a": {1, 2}, "b": {1}})
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}

	empty, err := NewTable(nil)
	if err != nil || empty.Dim() != 0 || empty.Len() != 0 {
		t.Errorf("empty table: dim %d, len %d, err %v", empty.Dim(), empty.Len(), err)
	}
}

type stubLoader struct {
	calls int
	errs  []error
	data  map[string][]float32
}

func (s *stubLoader) Load(_ context.Context) (map[string][]float32, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.data, nil
}

func TestTableHandle_LoadsOnce(t *testing.T) {
	loader := &stubLoader{data: map[string][]float32{"x": {1, 2}}}
	h := NewTableHandle(loader)

	for i := 0; i < 3; i++ {
		table, err := h.Get(context.Background())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if table.Dim() != 2 {
			t.Errorf("Dim() = %d", table.Dim())
		}
	}
	if loader.calls != 1 {
		t.Errorf("expected 1 load, got %d", loader.calls)
	}
}

func TestTableHandle_RetriesAfterFailure(t *testing.T) {
	loader := &stubLoader{
		errs: []error{errors.New("timeout"), nil},
		data: map[string][]float32{"x": {1}},
	}
	h := NewTableHandle(loader)

	if _, err := h.Get(context.Background()); err == nil {
		t.Fatal("expected first load to fail")
	}
	if _, err := h.Get(context.Background()); err != nil {
		t.Fatalf("second load should succeed: %v", err)
	}
	if loader.calls != 2 {
		t.Errorf("expected 2 loads, got %d", loader.calls)
	}
}
