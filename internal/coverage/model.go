// Package coverage provides the JaCoCo coverage model for covagent.
// It parses jacoco.xml reports into a package/class/method tree, rolls counters
// up the hierarchy, and ranks under-tested classes and methods.
package coverage

import (
	"fmt"
	"sort"
	"strings"
)

// MetricKind identifies a JaCoCo counter type.
type MetricKind string

const (
	// MetricInstruction counts bytecode instructions.
	MetricInstruction MetricKind = "INSTRUCTION"
	// MetricLine counts source lines.
	MetricLine MetricKind = "LINE"
	// MetricBranch counts conditional branches.
	MetricBranch MetricKind = "BRANCH"
	// MetricComplexity counts cyclomatic complexity paths.
	MetricComplexity MetricKind = "COMPLEXITY"
	// MetricMethod counts methods.
	MetricMethod MetricKind = "METHOD"
	// MetricClass counts classes.
	MetricClass MetricKind = "CLASS"
)

// AllMetricKinds lists the metric kinds in JaCoCo report order.
var AllMetricKinds = []MetricKind{
	MetricInstruction,
	MetricBranch,
	MetricLine,
	MetricComplexity,
	MetricMethod,
	MetricClass,
}

// ParseMetricKind converts a counter type name to a MetricKind.
// Matching is case-insensitive. Unknown names return ok=false.
func ParseMetricKind(s string) (MetricKind, bool) {
	k := MetricKind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllMetricKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// NodeKind is the structural level of a report node.
type NodeKind string

const (
	// KindReport is the synthetic root of a report (or a merged set of reports).
	KindReport NodeKind = "REPORT"
	// KindGroup is a JaCoCo <group>, typically one Maven module.
	KindGroup NodeKind = "GROUP"
	// KindPackage is a Java package.
	KindPackage NodeKind = "PACKAGE"
	// KindClass is a Java class, including nested and anonymous classes.
	KindClass NodeKind = "CLASS"
	// KindMethod is a method or constructor.
	KindMethod NodeKind = "METHOD"
)

// Counter holds covered and missed counts for one metric.
type Counter struct {
	Covered int `json:"covered" yaml:"covered"`
	Missed  int `json:"missed" yaml:"missed"`
}

// Total returns covered + missed.
func (c Counter) Total() int {
	return c.Covered + c.Missed
}

// Percentage returns covered/total*100, or 0 when there is nothing to count.
func (c Counter) Percentage() float64 {
	total := c.Total()
	if total == 0 {
		return 0.0
	}
	return float64(c.Covered) / float64(total) * 100
}

// Add returns the element-wise sum of two counters.
func (c Counter) Add(o Counter) Counter {
	return Counter{Covered: c.Covered + o.Covered, Missed: c.Missed + o.Missed}
}

// String formats the counter as "covered/total (pct%)".
func (c Counter) String() string {
	return fmt.Sprintf("%d/%d (%.1f%%)", c.Covered, c.Total(), c.Percentage())
}

// Node is one element of the coverage hierarchy.
type Node struct {
	Name     string                 `json:"name" yaml:"name"`
	Kind     NodeKind               `json:"kind" yaml:"kind"`
	Metrics  map[MetricKind]Counter `json:"metrics" yaml:"metrics"`
	Children []*Node                `json:"children,omitempty" yaml:"children,omitempty"`

	// Source attributes, populated where the report provides them.
	Package    string `json:"package,omitempty" yaml:"package,omitempty"`
	Class      string `json:"class,omitempty" yaml:"class,omitempty"`
	SourceFile string `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	Desc       string `json:"desc,omitempty" yaml:"desc,omitempty"`
	Line       int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// NewNode creates a node with an empty metrics map.
func NewNode(name string, kind NodeKind) *Node {
	return &Node{
		Name:    name,
		Kind:    kind,
		Metrics: make(map[MetricKind]Counter),
	}
}

// Counter returns the counter for kind and whether the node has it.
func (n *Node) Counter(kind MetricKind) (Counter, bool) {
	c, ok := n.Metrics[kind]
	return c, ok
}

// Percentage returns the coverage percentage for kind, 0 when absent.
func (n *Node) Percentage(kind MetricKind) float64 {
	return n.Metrics[kind].Percentage()
}

// AddChild appends a child node, preserving insertion order.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// Walk visits n and its descendants depth-first in document order.
// If fn returns false the node's children are skipped.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// QualifiedName returns a dotted name for display, e.g. "org.acme.Foo.bar".
func (n *Node) QualifiedName() string {
	switch n.Kind {
	case KindClass:
		if n.Package != "" {
			return n.Package + "." + n.Name
		}
	case KindMethod:
		prefix := n.Class
		if n.Package != "" {
			prefix = n.Package + "." + n.Class
		}
		if prefix != "" {
			return prefix + "." + n.Name
		}
	}
	return n.Name
}

// Path returns a slash-separated path for glob matching,
// e.g. "org/acme/Foo/bar" for a method.
func (n *Node) Path() string {
	var parts []string
	if n.Package != "" {
		parts = append(parts, strings.ReplaceAll(n.Package, ".", "/"))
	}
	switch n.Kind {
	case KindClass:
		parts = append(parts, n.Name)
	case KindMethod:
		if n.Class != "" {
			parts = append(parts, n.Class)
		}
		parts = append(parts, n.Name)
	case KindPackage:
		if len(parts) == 0 {
			parts = append(parts, strings.ReplaceAll(n.Name, ".", "/"))
		}
	default:
		parts = append(parts, n.Name)
	}
	return strings.Join(parts, "/")
}

// MetricKinds returns the kinds present on the node in report order.
func (n *Node) MetricKinds() []MetricKind {
	kinds := make([]MetricKind, 0, len(n.Metrics))
	for _, k := range AllMetricKinds {
		if _, ok := n.Metrics[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Count returns the number of descendants of the given kind.
func (n *Node) Count(kind NodeKind) int {
	count := 0
	n.Walk(func(c *Node) bool {
		if c.Kind == kind {
			count++
		}
		return true
	})
	return count
}

// Find returns the first node whose qualified name equals name.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.QualifiedName() == name {
			found = c
			return false
		}
		return true
	})
	return found
}

// Reason tags why a node was selected by the prioritizer.
type Reason string

const (
	// ReasonZeroCoverage marks a node with nothing countable for the metric.
	ReasonZeroCoverage Reason = "ZERO_COVERAGE"
	// ReasonBelowThreshold marks a node whose coverage is below the threshold.
	ReasonBelowThreshold Reason = "BELOW_THRESHOLD"
)

// PriorityEntry is one ranked testing target.
type PriorityEntry struct {
	Node      *Node      `json:"-" yaml:"-"`
	Metric    MetricKind `json:"metric" yaml:"metric"`
	Score     float64    `json:"score" yaml:"score"`
	Reason    Reason     `json:"reason" yaml:"reason"`
	PublicAPI bool       `json:"public_api" yaml:"public_api"`
}

// PriorityRecord is the caller-facing form of a PriorityEntry.
type PriorityRecord struct {
	Name          string     `json:"name" yaml:"name"`
	QualifiedName string     `json:"qualified_name" yaml:"qualified_name"`
	Kind          NodeKind   `json:"kind" yaml:"kind"`
	Score         float64    `json:"score" yaml:"score"`
	Reason        Reason     `json:"reason" yaml:"reason"`
	Percentage    float64    `json:"percentage" yaml:"percentage"`
	Metric        MetricKind `json:"metric" yaml:"metric"`
	Covered       int        `json:"covered" yaml:"covered"`
	Missed        int        `json:"missed" yaml:"missed"`
	PublicAPI     bool       `json:"public_api,omitempty" yaml:"public_api,omitempty"`
	SourceFile    string     `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	Line          int        `json:"line,omitempty" yaml:"line,omitempty"`
}

// Record converts the entry to its caller-facing form.
func (e PriorityEntry) Record() PriorityRecord {
	c := e.Node.Metrics[e.Metric]
	return PriorityRecord{
		Name:          e.Node.Name,
		QualifiedName: e.Node.QualifiedName(),
		Kind:          e.Node.Kind,
		Score:         e.Score,
		Reason:        e.Reason,
		Percentage:    c.Percentage(),
		Metric:        e.Metric,
		Covered:       c.Covered,
		Missed:        c.Missed,
		PublicAPI:     e.PublicAPI,
		SourceFile:    e.Node.SourceFile,
		Line:          e.Node.Line,
	}
}

// Records converts a ranked list to caller-facing records.
func Records(entries []PriorityEntry) []PriorityRecord {
	out := make([]PriorityRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Record())
	}
	return out
}

// sortedKinds returns the metric keys of m in report order, unknown keys last.
func sortedKinds(m map[MetricKind]Counter) []MetricKind {
	kinds := make([]MetricKind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	order := make(map[MetricKind]int, len(AllMetricKinds))
	for i, k := range AllMetricKinds {
		order[k] = i
	}
	sort.Slice(kinds, func(i, j int) bool {
		oi, iok := order[kinds[i]]
		oj, jok := order[kinds[j]]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return kinds[i] < kinds[j]
	})
	return kinds
}
