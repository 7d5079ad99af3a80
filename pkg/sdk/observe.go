package litmap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   *prometheus.GaugeVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "litmap",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK operations by type and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "litmap",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "litmap",
			Subsystem: "sdk",
			Name:      "operations_in_flight",
			Help:      "SDK operations currently running.",
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.inFlight); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("litmap: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("litmap: register metric: %w", err)
	}
	return nil
}

// observer logs and measures SDK operations. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// outcome buckets superseded calls apart from failures.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	default:
		return "error"
	}
}

// begin marks op as running and returns the func that records its end.
func (o *observer) begin(op string, attrs ...slog.Attr) func(err error) {
	if o == nil {
		return func(error) {}
	}
	start := time.Now()
	if o.metrics != nil {
		o.metrics.inFlight.WithLabelValues(op).Inc()
	}

	return func(err error) {
		dur := time.Since(start)
		res := outcome(err)
		if o.metrics != nil {
			o.metrics.inFlight.WithLabelValues(op).Dec()
			o.metrics.operations.WithLabelValues(op, res).Inc()
			o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
		}
		if o.logger == nil {
			return
		}

		args := make([]any, 0, len(attrs)+3)
		args = append(args, slog.String("op", op), slog.Duration("duration", dur))
		for _, a := range attrs {
			args = append(args, a)
		}
		switch res {
		case "ok":
			o.logger.Debug("operation completed", args...)
		case "superseded":
			o.logger.Info("operation superseded", args...)
		default:
			o.logger.Warn("operation failed", append(args, slog.Any("error", err))...)
		}
	}
}
