package mcp

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/testforge/covagent/internal/workflow"
)

func TestArguments_Number(t *testing.T) {
	a := arguments{
		"f":    float64(42.5),
		"s":    "12",
		"n":    json.Number("7"),
		"bad":  "many",
		"kind": true,
	}

	for name, want := range map[string]float64{"f": 42.5, "s": 12, "n": 7} {
		got, err := a.number(name)
		if err != nil || got == nil || *got != want {
			t.Errorf("number(%s) = %v, %v; want %v", name, got, err, want)
		}
	}

	if got, err := a.number("absent"); got != nil || err != nil {
		t.Errorf("absent number = %v, %v", got, err)
	}

	for _, name := range []string{"bad", "kind"} {
		_, err := a.number(name)
		var argErr *workflow.ArgumentError
		if !errors.As(err, &argErr) || argErr.Name != name {
			t.Errorf("number(%s) error = %v", name, err)
		}
	}
}

func TestArguments_Integer(t *testing.T) {
	a := arguments{"limit": float64(20), "frac": 2.5}

	n, err := a.integer("limit")
	if err != nil || n == nil || *n != 20 {
		t.Errorf("integer(limit) = %v, %v", n, err)
	}
	if _, err := a.integer("frac"); err == nil {
		t.Error("expected error for fractional integer")
	}
	if got, err := a.intDefault("absent", 10); got != 10 || err != nil {
		t.Errorf("intDefault = %d, %v", got, err)
	}
}

func TestArguments_Boolean(t *testing.T) {
	a := arguments{"yes": true, "str": "true", "bad": "maybe"}

	if b, _ := a.boolean("yes"); !b {
		t.Error("yes should be true")
	}
	if b, _ := a.boolean("str"); !b {
		t.Error("str should be true")
	}
	if b, err := a.boolean("absent"); b || err != nil {
		t.Errorf("absent = %v, %v", b, err)
	}
	if _, err := a.boolean("bad"); err == nil {
		t.Error("expected error for bad boolean")
	}
}

func TestArguments_List(t *testing.T) {
	a := arguments{
		"arr":   []any{"a/**", "b/*"},
		"csv":   "a/**, b/* ,",
		"mixed": []any{"a", 1.0},
	}

	want := []string{"a/**", "b/*"}
	for _, name := range []string{"arr", "csv"} {
		got, err := a.list(name)
		if err != nil || !reflect.DeepEqual(got, want) {
			t.Errorf("list(%s) = %v, %v", name, got, err)
		}
	}
	if _, err := a.list("mixed"); err == nil {
		t.Error("expected error for non-string item")
	}
}

func TestArguments_Document(t *testing.T) {
	a := arguments{
		"text":  `{"b": {"type": "int"}, "a": {"type": "int"}}`,
		"obj":   map[string]any{"valid": []any{"x"}},
		"blank": "  ",
	}

	got, err := a.document("text")
	if err != nil || string(got) != `{"b": {"type": "int"}, "a": {"type": "int"}}` {
		t.Errorf("string document changed: %s, %v", got, err)
	}

	got, err = a.document("obj")
	if err != nil || string(got) != `{"valid":["x"]}` {
		t.Errorf("object document = %s, %v", got, err)
	}

	for _, name := range []string{"blank", "absent"} {
		_, err := a.document(name)
		var argErr *workflow.ArgumentError
		if !errors.As(err, &argErr) || argErr.Reason != "is required" {
			t.Errorf("document(%s) error = %v", name, err)
		}
	}
}

func TestArguments_Str(t *testing.T) {
	a := arguments{"s": "  x  ", "n": 3.0}
	if a.str("s") != "x" {
		t.Errorf("str trims: %q", a.str("s"))
	}
	if a.str("n") != "3" {
		t.Errorf("str formats: %q", a.str("n"))
	}
	if a.strDefault("absent", "origin") != "origin" {
		t.Error("strDefault fallback")
	}
}
