// Package metrics exposes Prometheus collectors for tool calls and Maven
// runs, and serves them over HTTP.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
)

var (
	// ToolCalls counts tool invocations.
	//
	// Labels:
	//   - tool: tool name, e.g. "prioritize_gaps"
	//   - outcome: "success", "error", "timeout" or "canceled"
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "covagent",
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Total number of tool calls.",
		},
		[]string{"tool", "outcome"},
	)

	// ToolDuration measures tool call latency.
	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "covagent",
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "Duration of tool calls in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 300},
		},
		[]string{"tool"},
	)

	// MavenGoalDuration measures Maven goal runs.
	//
	// Labels:
	//   - goal: "test", "jacoco:report", "checkstyle:check", "pmd:check"
	//   - outcome: as for ToolCalls
	MavenGoalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "covagent",
			Subsystem: "maven",
			Name:      "goal_duration_seconds",
			Help:      "Duration of Maven goals in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"goal", "outcome"},
	)

	// SnapshotsRecorded counts coverage snapshots written to history.
	SnapshotsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "covagent",
			Subsystem: "history",
			Name:      "snapshots_recorded_total",
			Help:      "Total coverage snapshots recorded.",
		},
	)
)

// Outcome classifies an error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

// ObserveTool records one tool call.
func ObserveTool(tool string, d time.Duration, err error) {
	ToolCalls.WithLabelValues(tool, Outcome(err)).Inc()
	ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveMaven records one Maven goal. Its signature matches runner.Observer.
func ObserveMaven(goal string, d time.Duration, err error) {
	MavenGoalDuration.WithLabelValues(goal, Outcome(err)).Observe(d.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
