package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/covagent/internal/runner"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, OutcomeSuccess},
		{"plain", errors.New("boom"), OutcomeError},
		{"deadline", context.DeadlineExceeded, OutcomeTimeout},
		{"wrapped deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), OutcomeTimeout},
		{"runner timeout", &runner.TimeoutError{Command: "mvn test", Timeout: time.Second}, OutcomeTimeout},
		{"canceled", context.Canceled, OutcomeCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestObserveTool(t *testing.T) {
	ok := ToolCalls.WithLabelValues("test_observe_tool", OutcomeSuccess)
	failed := ToolCalls.WithLabelValues("test_observe_tool", OutcomeError)
	beforeOK, beforeFailed := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ObserveTool("test_observe_tool", 20*time.Millisecond, nil)
	ObserveTool("test_observe_tool", 20*time.Millisecond, nil)
	ObserveTool("test_observe_tool", time.Millisecond, errors.New("bad input"))

	assert.Equal(t, beforeOK+2, testutil.ToFloat64(ok))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}

func TestObserveMavenIsRunnerObserver(t *testing.T) {
	var observe runner.Observer = ObserveMaven
	observe("test", 3*time.Second, nil)

	n := testutil.CollectAndCount(MavenGoalDuration, "covagent_maven_goal_duration_seconds")
	assert.GreaterOrEqual(t, n, 1)
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveTool("test_handler", time.Millisecond, nil)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), `covagent_tool_calls_total{outcome="success",tool="test_handler"}`))
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
