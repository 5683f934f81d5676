package coverage

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultThreshold is the coverage percentage below which a node is a gap.
const DefaultThreshold = 50.0

// DefaultPublicAPIWeight multiplies the score of public API nodes.
const DefaultPublicAPIWeight = 2.0

// Scope selects which node kinds the prioritizer may rank.
type Scope string

const (
	// ScopeLeaves ranks methods, and classes only when the report has no
	// method detail for them. Uncovered lines are counted once.
	ScopeLeaves Scope = "leaves"
	// ScopeAll ranks every class and every method.
	ScopeAll Scope = "all"
	// ScopeClasses ranks classes only.
	ScopeClasses Scope = "classes"
	// ScopeMethods ranks methods only.
	ScopeMethods Scope = "methods"
)

// ParseScope converts a scope name, defaulting to ScopeLeaves for "".
func ParseScope(s string) (Scope, bool) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeLeaves:
		return ScopeLeaves, true
	case ScopeAll:
		return ScopeAll, true
	case ScopeClasses:
		return ScopeClasses, true
	case ScopeMethods:
		return ScopeMethods, true
	}
	return "", false
}

// PublicAPIClassifier decides whether a class or method node is public API.
type PublicAPIClassifier interface {
	IsPublicAPI(n *Node) bool
}

// ClassifierFunc adapts a function to PublicAPIClassifier.
type ClassifierFunc func(n *Node) bool

// IsPublicAPI implements PublicAPIClassifier.
func (f ClassifierFunc) IsPublicAPI(n *Node) bool {
	return f(n)
}

// NamingClassifier infers public API from JVM naming alone: nested and
// synthetic classes, constructors, static initializers and lambdas are not
// public API. It is the fallback when no source is available.
var NamingClassifier = ClassifierFunc(func(n *Node) bool {
	switch n.Kind {
	case KindClass:
		return !strings.Contains(n.Name, "$")
	case KindMethod:
		if strings.Contains(n.Class, "$") {
			return false
		}
		name := n.Name
		if i := strings.Index(name, "("); i >= 0 {
			name = name[:i]
		}
		if name == "<init>" || name == "<clinit>" || strings.HasPrefix(name, "lambda$") || strings.HasPrefix(name, "access$") {
			return false
		}
		return true
	}
	return false
})

// RankOptions configures Rank.
type RankOptions struct {
	// Threshold is the percentage below which a node qualifies.
	Threshold float64
	// Metric is the counter used for selection and scoring.
	Metric MetricKind
	// Classifier tags public API nodes. Nil means no node is public API.
	Classifier PublicAPIClassifier
	// PublicAPIWeight multiplies the score of public API nodes.
	PublicAPIWeight float64
	// Scope selects the node kinds that may be ranked.
	Scope Scope
	// Exclude holds doublestar patterns matched against Node.Path().
	Exclude []string
	// Limit caps the result length (0 = no limit).
	Limit int
}

// DefaultRankOptions returns the options used when the caller sets nothing.
func DefaultRankOptions() RankOptions {
	return RankOptions{
		Threshold:       DefaultThreshold,
		Metric:          MetricLine,
		PublicAPIWeight: DefaultPublicAPIWeight,
		Scope:           ScopeLeaves,
	}
}

// Rank returns the classes and methods under root that need tests, most
// valuable first. It is a pure function of its inputs; aggregate root first.
//
// A node qualifies when its percentage for opts.Metric is below the threshold
// or nothing was covered at all. Score is the number of uncovered units times
// the public API weight. Ties are broken by ascending name, then qualified
// name, so the order is total.
func Rank(root *Node, opts RankOptions) []PriorityEntry {
	if root == nil {
		return []PriorityEntry{}
	}
	if opts.Metric == "" {
		opts.Metric = MetricLine
	}
	if opts.PublicAPIWeight == 0 {
		opts.PublicAPIWeight = DefaultPublicAPIWeight
	}
	if opts.Scope == "" {
		opts.Scope = ScopeLeaves
	}

	entries := []PriorityEntry{}
	root.Walk(func(n *Node) bool {
		if !inScope(n, opts.Scope) || excluded(n, opts.Exclude) {
			return true
		}

		c := n.Metrics[opts.Metric]
		if !qualifies(c, opts.Threshold) {
			return true
		}

		public := opts.Classifier != nil && opts.Classifier.IsPublicAPI(n)
		weight := 1.0
		if public {
			weight = opts.PublicAPIWeight
		}

		reason := ReasonBelowThreshold
		if c.Covered == 0 {
			reason = ReasonZeroCoverage
		}

		entries = append(entries, PriorityEntry{
			Node:      n,
			Metric:    opts.Metric,
			Score:     float64(c.Total()-c.Covered) * weight,
			Reason:    reason,
			PublicAPI: public,
		})
		return true
	})

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Node.Name != b.Node.Name {
			return a.Node.Name < b.Node.Name
		}
		return a.Node.QualifiedName() < b.Node.QualifiedName()
	})

	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}
	return entries
}

// qualifies reports whether a counter marks a testing gap.
// Nothing covered always qualifies, whatever the threshold.
func qualifies(c Counter, threshold float64) bool {
	if c.Total() == 0 || c.Covered == 0 {
		return true
	}
	return c.Percentage() < threshold
}

func inScope(n *Node, scope Scope) bool {
	switch n.Kind {
	case KindMethod:
		return scope != ScopeClasses
	case KindClass:
		switch scope {
		case ScopeAll, ScopeClasses:
			return true
		case ScopeLeaves:
			return !hasMethods(n)
		}
	}
	return false
}

func hasMethods(n *Node) bool {
	for _, c := range n.Children {
		if c.Kind == KindMethod {
			return true
		}
	}
	return false
}

// excluded matches the node path against doublestar patterns. Patterns
// without a slash also match the bare node name.
func excluded(n *Node, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	path := n.Path()
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, n.Name); ok {
				return true
			}
		}
	}
	return false
}

// ValidateExcludes reports the first malformed exclude pattern.
func ValidateExcludes(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return &InvalidPatternError{Pattern: p}
		}
	}
	return nil
}
