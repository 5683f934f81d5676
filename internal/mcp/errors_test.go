package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testforge/covagent/internal/config"
	"github.com/testforge/covagent/internal/coverage"
	"github.com/testforge/covagent/internal/runner"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     string
		location string
	}{
		{
			name:     "malformed report keeps line",
			err:      &coverage.MalformedReportError{Source: "jacoco.xml", Line: 12, Err: errors.New("unexpected EOF")},
			kind:     "MalformedReportError",
			location: "jacoco.xml:12",
		},
		{
			name:     "wrapped missing artifact",
			err:      fmt.Errorf("analyze: %w", &coverage.MissingArtifactError{Path: "/p/target/site/jacoco/jacoco.xml"}),
			kind:     "MissingArtifactError",
			location: "/p/target/site/jacoco/jacoco.xml",
		},
		{
			name:     "stale artifact",
			err:      &coverage.StaleArtifactError{Path: "r.xml", ModTime: time.Unix(0, 0), NotBefore: time.Unix(10, 0)},
			kind:     "StaleArtifactError",
			location: "r.xml",
		},
		{
			name: "maven timeout before deadline",
			err:  &runner.TimeoutError{Command: "mvn clean test", Timeout: time.Second},
			kind: "TimeoutError",
		},
		{
			name: "invalid config",
			err:  fmt.Errorf("%w: coverage.threshold must be between 0 and 100", config.ErrInvalidConfig),
			kind: "InvalidConfig",
		},
		{
			name: "canceled",
			err:  context.Canceled,
			kind: "Canceled",
		},
		{
			name: "plain",
			err:  errors.New("boom"),
			kind: "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := Classify(tt.err)
			if te.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", te.Kind, tt.kind)
			}
			if te.Location != tt.location {
				t.Errorf("location = %q, want %q", te.Location, tt.location)
			}
			if te.Message != tt.err.Error() {
				t.Errorf("message = %q, want %q", te.Message, tt.err.Error())
			}
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestToolError_JSON(t *testing.T) {
	te := &ToolError{Kind: "MalformedReportError", Message: "bad", Location: "jacoco.xml:3"}

	var got map[string]map[string]string
	if err := json.Unmarshal([]byte(te.JSON()), &got); err != nil {
		t.Fatal(err)
	}
	e := got["error"]
	if e["kind"] != "MalformedReportError" || e["message"] != "bad" || e["location"] != "jacoco.xml:3" {
		t.Errorf("envelope = %v", got)
	}

	noLoc := (&ToolError{Kind: "Error", Message: "x"}).JSON()
	if err := json.Unmarshal([]byte(noLoc), &got); err != nil {
		t.Fatal(err)
	}
	if _, ok := got["error"]["location"]; ok {
		t.Error("empty location should be omitted")
	}
}
