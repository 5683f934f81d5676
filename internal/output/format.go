// Package output renders command and tool results as YAML, JSON or tables.
package output

import (
	"fmt"
	"strings"
)

// Format represents the output format type.
type Format string

const (
	// FormatYAML is the default self-documenting YAML output
	FormatYAML Format = "yaml"

	// FormatJSON is the JSON output format
	FormatJSON Format = "json"

	// FormatTable renders known result types as text tables and anything
	// else as YAML
	FormatTable Format = "table"
)

// DefaultFormat is the default output format when none is specified.
const DefaultFormat = FormatYAML

// ParseFormat parses a format string into a Format value.
// Accepts: "yaml", "json", "table" (case-insensitive)
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("invalid format: %q (expected yaml, json, or table)", s)
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// ValidateFormat checks if a format value is valid.
func ValidateFormat(f Format) bool {
	switch f {
	case FormatYAML, FormatJSON, FormatTable:
		return true
	default:
		return false
	}
}
