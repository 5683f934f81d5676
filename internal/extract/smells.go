package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Smell thresholds.
const (
	LongMethodLines     = 50
	LargeClassLines     = 500
	LongParameterList   = 5
	DuplicateMinLength  = 20
	DuplicateMinRepeats = 3
)

// Severity ranks a smell.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Smell is one detected code smell.
type Smell struct {
	Type       string   `json:"type" yaml:"type"`
	Severity   Severity `json:"severity" yaml:"severity"`
	Location   string   `json:"location" yaml:"location"`
	Line       int      `json:"line,omitempty" yaml:"line,omitempty"`
	Member     string   `json:"member,omitempty" yaml:"member,omitempty"`
	Detail     string   `json:"detail,omitempty" yaml:"detail,omitempty"`
	Suggestion string   `json:"suggestion" yaml:"suggestion"`
}

var magicNumber = regexp.MustCompile(`\b\d{2,}\b`)

// DetectSmells applies heuristic checks to an extracted file: long
// methods, large classes, long parameter lists, the first magic number
// outside a constant declaration, and duplicated lines.
func DetectSmells(f *JavaFile) []Smell {
	smells := []Smell{}

	for _, c := range f.Classes {
		for _, m := range c.Methods {
			if m.Lines() > LongMethodLines {
				smells = append(smells, Smell{
					Type:       "Long Method",
					Severity:   SeverityMedium,
					Location:   fmt.Sprintf("Line %d", m.StartLine),
					Line:       m.StartLine,
					Member:     c.BinaryName + "." + m.Name,
					Detail:     fmt.Sprintf("%d lines (limit %d)", m.Lines(), LongMethodLines),
					Suggestion: "Consider breaking down into smaller methods",
				})
			}
			if len(m.Params) > LongParameterList {
				smells = append(smells, Smell{
					Type:       "Long Parameter List",
					Severity:   SeverityMedium,
					Location:   fmt.Sprintf("Line %d", m.StartLine),
					Line:       m.StartLine,
					Member:     c.BinaryName + "." + m.Name,
					Detail:     fmt.Sprintf("%d parameters (limit %d)", len(m.Params), LongParameterList),
					Suggestion: "Introduce a parameter object or builder",
				})
			}
		}
	}

	if f.Lines > LargeClassLines {
		smells = append(smells, Smell{
			Type:       "Large Class",
			Severity:   SeverityHigh,
			Location:   "Entire file",
			Detail:     fmt.Sprintf("%d lines (limit %d)", f.Lines, LargeClassLines),
			Suggestion: "Consider splitting into multiple classes",
		})
	}

	lines := strings.Split(string(f.source), "\n")
	if s, ok := firstMagicNumber(lines); ok {
		smells = append(smells, s)
	}
	if s, ok := duplicateLines(lines); ok {
		smells = append(smells, s)
	}
	return smells
}

// firstMagicNumber reports only the first literal of two or more digits on
// a line that is not a constant declaration or a comment.
func firstMagicNumber(lines []string) (Smell, bool) {
	inBlock := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if inBlock {
			if strings.Contains(trimmed, "*/") {
				inBlock = false
			}
			continue
		}
		if strings.HasPrefix(trimmed, "/*") {
			inBlock = !strings.Contains(trimmed, "*/")
			continue
		}
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "package ") {
			continue
		}
		if strings.Contains(line, "final") || strings.Contains(line, "static") {
			continue
		}
		code := stripStrings(trimmed)
		if idx := strings.Index(code, "//"); idx >= 0 {
			code = code[:idx]
		}
		if m := magicNumber.FindString(code); m != "" {
			return Smell{
				Type:       "Magic Number",
				Severity:   SeverityLow,
				Location:   fmt.Sprintf("Line %d", i+1),
				Line:       i + 1,
				Detail:     m,
				Suggestion: "Extract to named constant",
			}, true
		}
	}
	return Smell{}, false
}

// stripStrings blanks string and char literals so digits inside them are ignored.
func stripStrings(s string) string {
	var b strings.Builder
	var quote rune
	escaped := false
	for _, r := range s {
		switch {
		case quote != 0:
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
			b.WriteRune(' ')
		case r == '"' || r == '\'':
			quote = r
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// duplicateLines finds trimmed lines longer than DuplicateMinLength that
// occur at least DuplicateMinRepeats times.
func duplicateLines(lines []string) (Smell, bool) {
	counts := make(map[string]int)
	first := make(map[string]int)
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if len(t) <= DuplicateMinLength || strings.HasPrefix(t, "//") || strings.HasPrefix(t, "*") {
			continue
		}
		if _, ok := first[t]; !ok {
			first[t] = i + 1
		}
		counts[t]++
	}

	var dups []string
	for t, n := range counts {
		if n >= DuplicateMinRepeats {
			dups = append(dups, t)
		}
	}
	if len(dups) == 0 {
		return Smell{}, false
	}
	sort.Slice(dups, func(i, j int) bool { return first[dups[i]] < first[dups[j]] })

	return Smell{
		Type:       "Duplicate Code",
		Severity:   SeverityMedium,
		Location:   "Multiple locations",
		Line:       first[dups[0]],
		Detail:     fmt.Sprintf("%d repeated line(s), first: %q repeated %d times", len(dups), dups[0], counts[dups[0]]),
		Suggestion: "Extract common code to helper method",
	}, true
}
