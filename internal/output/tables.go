package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/testforge/covagent/internal/coverage"
	"github.com/testforge/covagent/internal/extract"
	"github.com/testforge/covagent/internal/history"
	"github.com/testforge/covagent/internal/runner"
	"github.com/testforge/covagent/internal/testgen"
)

// Table is a tabular view of a result.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
	Footer []string
	Align  []int
	// Notes are printed below the table, e.g. warnings.
	Notes []string
}

// Tabular is implemented by values that render themselves as a table.
type Tabular interface {
	Table() *Table
}

// ToTable converts the result types covagent produces. ok is false for
// anything else.
func ToTable(v any) (*Table, bool) {
	switch r := v.(type) {
	case Tabular:
		return r.Table(), true
	case *Table:
		return r, true
	case *coverage.Summary:
		return summaryTable(r), true
	case *coverage.GapsReport:
		return gapsTable(r), true
	case []coverage.PriorityRecord:
		return priorityTable(r), true
	case *coverage.UncoveredReport:
		return uncoveredTable(r), true
	case *testgen.BoundaryResult:
		t := casesTable(r.Cases)
		for _, w := range r.Warnings {
			t.Notes = append(t.Notes, "warning: "+w.Error())
		}
		return t, true
	case []testgen.TestCase:
		return casesTable(r), true
	case []extract.Smell:
		return smellsTable(r), true
	case *runner.LintReport:
		return lintTable(r), true
	case []*history.Snapshot:
		return historyTable(r), true
	}
	return nil, false
}

func pct(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

func summaryTable(s *coverage.Summary) *Table {
	t := &Table{
		Title:  fmt.Sprintf("Coverage of %s (%d classes, %d methods)", s.Report, s.Classes, s.Methods),
		Header: []string{"Metric", "Covered", "Missed", "Total", "Coverage"},
		Align:  []int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT},
	}
	for _, m := range s.Totals {
		t.Rows = append(t.Rows, []string{string(m.Metric), strconv.Itoa(m.Covered), strconv.Itoa(m.Missed), strconv.Itoa(m.Total), pct(m.Percentage)})
	}
	for _, p := range s.Packages {
		t.Notes = append(t.Notes, fmt.Sprintf("  %-50s %7s  (%d/%d lines)", p.Name, pct(p.Percentage), p.Covered, p.Total))
	}
	if len(t.Notes) > 0 {
		t.Notes = append([]string{"", "Line coverage by package:"}, t.Notes...)
	}
	return t
}

func priorityTable(records []coverage.PriorityRecord) *Table {
	t := &Table{
		Header: []string{"#", "Name", "Kind", "Metric", "Coverage", "Missed", "Score", "Reason", "API"},
	}
	for i, r := range records {
		api := ""
		if r.PublicAPI {
			api = "yes"
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i + 1),
			r.QualifiedName,
			string(r.Kind),
			string(r.Metric),
			pct(r.Percentage),
			strconv.Itoa(r.Missed),
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			string(r.Reason),
			api,
		})
	}
	return t
}

func gapsTable(g *coverage.GapsReport) *Table {
	records := make([]coverage.PriorityRecord, 0, len(g.Gaps))
	for _, gap := range g.Gaps {
		records = append(records, gap.PriorityRecord)
	}
	t := priorityTable(records)
	t.Header = append(t.Header, "Tier")
	for i, gap := range g.Gaps {
		t.Rows[i] = append(t.Rows[i], string(gap.Tier))
	}
	s := g.Summary
	t.Title = fmt.Sprintf("%d gaps below %s %s coverage (showing %d)", s.TotalGaps, pct(s.Threshold), s.Metric, s.Shown)
	if s.Recommendation != "" {
		t.Notes = append(t.Notes, "", s.Recommendation)
	}
	return t
}

func uncoveredTable(r *coverage.UncoveredReport) *Table {
	t := &Table{
		Title:  fmt.Sprintf("%d methods below %s line coverage", r.Found, pct(r.Threshold)),
		Header: []string{"Package", "Class", "Method", "Coverage", "Lines missed"},
	}
	for _, m := range r.Methods {
		t.Rows = append(t.Rows, []string{m.Package, m.Class, m.Method, pct(m.Coverage), strconv.Itoa(m.LinesMissed)})
	}
	if r.Remaining > 0 {
		t.Notes = append(t.Notes, fmt.Sprintf("... and %d more", r.Remaining))
	}
	return t
}

func casesTable(cases []testgen.TestCase) *Table {
	t := &Table{Header: []string{"Label", "Tag", "Inputs", "Expected"}}
	for _, c := range cases {
		inputs := make([]string, 0, len(c.Inputs))
		for _, in := range c.Inputs {
			inputs = append(inputs, fmt.Sprintf("%s=%s", in.Name, inputValue(in.Value)))
		}
		t.Rows = append(t.Rows, []string{c.Label, string(c.Tag), strings.Join(inputs, ", "), c.ExpectedOutcomeHint})
	}
	return t
}

func inputValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	default:
		return fmt.Sprint(x)
	}
}

func smellsTable(smells []extract.Smell) *Table {
	t := &Table{Header: []string{"Type", "Severity", "Location", "Detail", "Suggestion"}}
	for _, s := range smells {
		loc := s.Location
		if s.Member != "" {
			loc += " (" + s.Member + ")"
		}
		t.Rows = append(t.Rows, []string{s.Type, string(s.Severity), loc, s.Detail, s.Suggestion})
	}
	if len(smells) == 0 {
		t.Notes = append(t.Notes, "No code smells detected")
	}
	return t
}

func lintTable(r *runner.LintReport) *Table {
	t := &Table{Title: "Static analysis of " + r.ProjectPath, Header: []string{"Tool", "Goal", "Result", "Violations"}}
	for _, c := range r.Checks {
		result := "FAILED"
		if c.Passed {
			result = "PASSED"
		}
		t.Rows = append(t.Rows, []string{c.Tool, c.Goal, result, strconv.Itoa(len(c.Violations))})
		for _, v := range c.Violations {
			t.Notes = append(t.Notes, c.Tool+": "+v)
		}
	}
	return t
}

func historyTable(snaps []*history.Snapshot) *Table {
	t := &Table{Header: []string{"Recorded", "Line", "Branch", "Instruction", "Tests", "ID"}}
	for _, s := range snaps {
		cell := func(kind coverage.MetricKind) string {
			if m, ok := s.Total(kind); ok {
				return pct(m.Percentage)
			}
			return "-"
		}
		tests := "-"
		if s.Tests != nil {
			tests = fmt.Sprintf("%d run, %d failed", s.Tests.Run, s.Tests.Failures+s.Tests.Errors)
		}
		t.Rows = append(t.Rows, []string{
			s.RecordedAt.Local().Format("2006-01-02 15:04"),
			cell(coverage.MetricLine),
			cell(coverage.MetricBranch),
			cell(coverage.MetricInstruction),
			tests,
			s.ID,
		})
	}
	return t
}
