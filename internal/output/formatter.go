package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Formatter writes a value in one output format.
type Formatter interface {
	// Format returns the formatted value.
	Format(v any) (string, error)

	// FormatToWriter writes formatted output directly to a writer.
	FormatToWriter(w io.Writer, v any) error
}

// YAMLFormatter formats values as YAML output.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Format formats a value as YAML.
func (f *YAMLFormatter) Format(v any) (string, error) {
	return formatString(f, v)
}

// FormatToWriter writes YAML output to a writer.
func (f *YAMLFormatter) FormatToWriter(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(v)
}

// JSONFormatter formats values as JSON output.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format formats a value as JSON.
func (f *JSONFormatter) Format(v any) (string, error) {
	return formatString(f, v)
}

// FormatToWriter writes JSON output to a writer.
func (f *JSONFormatter) FormatToWriter(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

// TableFormatter renders values that convert to a Table, falling back to
// YAML for the rest.
type TableFormatter struct {
	Fallback Formatter
}

// NewTableFormatter creates a table formatter with a YAML fallback.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{Fallback: NewYAMLFormatter()}
}

// Format formats a value as a table.
func (f *TableFormatter) Format(v any) (string, error) {
	return formatString(f, v)
}

// FormatToWriter writes table output to a writer.
func (f *TableFormatter) FormatToWriter(w io.Writer, v any) error {
	t, ok := ToTable(v)
	if !ok {
		return f.Fallback.FormatToWriter(w, v)
	}
	if t.Title != "" {
		fmt.Fprintln(w, t.Title)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(t.Header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	if len(t.Align) > 0 {
		table.SetColumnAlignment(t.Align)
	}
	table.AppendBulk(t.Rows)
	if len(t.Footer) > 0 {
		table.SetFooter(t.Footer)
	}
	table.Render()

	for _, note := range t.Notes {
		fmt.Fprintln(w, note)
	}
	return nil
}

func formatString(f Formatter, v any) (string, error) {
	var buf bytes.Buffer
	if err := f.FormatToWriter(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GetFormatter returns a formatter for the specified format.
func GetFormatter(format Format) (Formatter, error) {
	switch format {
	case FormatYAML:
		return NewYAMLFormatter(), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatTable:
		return NewTableFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Write formats v to w in the given format.
func Write(w io.Writer, format Format, v any) error {
	f, err := GetFormatter(format)
	if err != nil {
		return err
	}
	return f.FormatToWriter(w, v)
}
