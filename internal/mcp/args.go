package mcp

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/testforge/covagent/internal/workflow"
)

// arguments wraps the decoded arguments of one call. JSON numbers arrive
// as float64; the CLI may pass any value as a string.
type arguments map[string]any

func badType(name, want string, v any) error {
	return &workflow.ArgumentError{Name: name, Reason: fmt.Sprintf("want %s, got %T", want, v)}
}

func (a arguments) str(name string) string {
	switch v := a[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (a arguments) strDefault(name, def string) string {
	if v := a.str(name); v != "" {
		return v
	}
	return def
}

func (a arguments) boolean(name string) (bool, error) {
	switch v := a[name].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if v == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, badType(name, "boolean", v)
		}
		return b, nil
	default:
		return false, badType(name, "boolean", v)
	}
}

// number returns nil when the argument is absent.
func (a arguments) number(name string) (*float64, error) {
	var f float64
	switch v := a[name].(type) {
	case nil:
		return nil, nil
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, badType(name, "number", v)
		}
		f = parsed
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, badType(name, "number", v)
		}
		f = parsed
	default:
		return nil, badType(name, "number", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &workflow.ArgumentError{Name: name, Reason: "must be finite"}
	}
	return &f, nil
}

// integer returns nil when the argument is absent.
func (a arguments) integer(name string) (*int, error) {
	f, err := a.number(name)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		return nil, &workflow.ArgumentError{Name: name, Reason: "must be a whole number"}
	}
	n := int(*f)
	return &n, nil
}

func (a arguments) intDefault(name string, def int) (int, error) {
	n, err := a.integer(name)
	if err != nil || n == nil {
		return def, err
	}
	return *n, nil
}

// list accepts an array of strings or a comma-separated string.
func (a arguments) list(name string) ([]string, error) {
	switch v := a[name].(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, badType(name, "array of strings", item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return nil, badType(name, "array of strings", v)
	}
}

// document returns a description argument as bytes for the YAML/JSON
// decoders. A string is used as is and keeps its key order; an object
// is re-encoded, which sorts its keys.
func (a arguments) document(name string) ([]byte, error) {
	switch v := a[name].(type) {
	case nil:
		return nil, &workflow.ArgumentError{Name: name, Reason: "is required"}
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, &workflow.ArgumentError{Name: name, Reason: "is required"}
		}
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, badType(name, "JSON object or string", v)
		}
		return b, nil
	}
}
