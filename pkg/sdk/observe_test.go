package litmap

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserver_Nil(t *testing.T) {
	var o *observer
	o.begin("search")(nil)
}

func TestObserver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("new observer: %v", err)
	}

	done := o.begin("search")
	if got := testutil.ToFloat64(o.metrics.inFlight.WithLabelValues("search")); got != 1 {
		t.Errorf("in flight during search: got %v", got)
	}
	done(nil)
	o.begin("search")(errors.New("boom"))
	o.begin("cluster")(ErrSuperseded)

	ops := o.metrics.operations
	if got := testutil.ToFloat64(ops.WithLabelValues("search", "ok")); got != 1 {
		t.Errorf("search ok: got %v", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("search", "error")); got != 1 {
		t.Errorf("search error: got %v", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("cluster", "superseded")); got != 1 {
		t.Errorf("cluster superseded: got %v", got)
	}
	if got := testutil.ToFloat64(o.metrics.inFlight.WithLabelValues("search")); got != 0 {
		t.Errorf("in flight after search: got %v", got)
	}
}

func TestObserver_Logs(t *testing.T) {
	var buf bytes.Buffer
	o, err := newObserver(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})), nil)
	if err != nil {
		t.Fatal(err)
	}

	o.begin("search", slog.String("query", "crispr"))(nil)
	if buf.Len() != 0 {
		t.Errorf("successful op should log at debug only, got %q", buf.String())
	}

	o.begin("cluster", slog.Int("k", 4))(errors.New("boom"))
	out := buf.String()
	for _, want := range []string{"operation failed", "op=cluster", "k=4", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second observer on the same registry: %v", err)
	}
	if first.metrics.operations != second.metrics.operations {
		t.Error("expected the existing collector to be reused")
	}
	if first.metrics.inFlight != second.metrics.inFlight {
		t.Error("expected the in-flight gauge to be reused")
	}
}
