package coverage

import "sort"

// MetricTotal is one row of the overall coverage table.
type MetricTotal struct {
	Metric     MetricKind `json:"metric" yaml:"metric"`
	Covered    int        `json:"covered" yaml:"covered"`
	Missed     int        `json:"missed" yaml:"missed"`
	Total      int        `json:"total" yaml:"total"`
	Percentage float64    `json:"percentage" yaml:"percentage"`
}

// PackageCoverage is the LINE coverage of one package.
type PackageCoverage struct {
	Name       string  `json:"name" yaml:"name"`
	Covered    int     `json:"covered" yaml:"covered"`
	Total      int     `json:"total" yaml:"total"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	Classes    int     `json:"classes" yaml:"classes"`
}

// Summary is the analyze_coverage result.
type Summary struct {
	Report   string            `json:"report" yaml:"report"`
	Totals   []MetricTotal     `json:"totals" yaml:"totals"`
	Packages []PackageCoverage `json:"packages" yaml:"packages"`
	Classes  int               `json:"classes" yaml:"classes"`
	Methods  int               `json:"methods" yaml:"methods"`
}

// Summarize builds overall and per-package coverage for an aggregated tree.
// Metrics with nothing to count are left out of the totals, as are packages
// without LINE data.
func Summarize(root *Node) *Summary {
	s := &Summary{
		Report:   root.Name,
		Totals:   []MetricTotal{},
		Packages: []PackageCoverage{},
		Classes:  root.Count(KindClass),
		Methods:  root.Count(KindMethod),
	}

	for _, kind := range sortedKinds(root.Metrics) {
		c := root.Metrics[kind]
		if c.Total() == 0 {
			continue
		}
		s.Totals = append(s.Totals, MetricTotal{
			Metric:     kind,
			Covered:    c.Covered,
			Missed:     c.Missed,
			Total:      c.Total(),
			Percentage: c.Percentage(),
		})
	}

	root.Walk(func(n *Node) bool {
		if n.Kind != KindPackage {
			return true
		}
		c, ok := n.Metrics[MetricLine]
		if ok && c.Total() > 0 {
			s.Packages = append(s.Packages, PackageCoverage{
				Name:       n.Name,
				Covered:    c.Covered,
				Total:      c.Total(),
				Percentage: c.Percentage(),
				Classes:    n.Count(KindClass),
			})
		}
		return false
	})
	return s
}

// UncoveredMethod is one entry of the low-coverage method list.
type UncoveredMethod struct {
	Package     string  `json:"package" yaml:"package"`
	Class       string  `json:"class" yaml:"class"`
	Method      string  `json:"method" yaml:"method"`
	Coverage    float64 `json:"coverage" yaml:"coverage"`
	LinesMissed int     `json:"lines_missed" yaml:"lines_missed"`
	Line        int     `json:"line,omitempty" yaml:"line,omitempty"`
}

// UncoveredReport lists methods below the threshold, lowest coverage first.
type UncoveredReport struct {
	Threshold float64           `json:"threshold" yaml:"threshold"`
	Found     int               `json:"found" yaml:"found"`
	Methods   []UncoveredMethod `json:"methods" yaml:"methods"`
	Remaining int               `json:"remaining,omitempty" yaml:"remaining,omitempty"`
}

// FindUncoveredMethods lists methods with some LINE data and coverage below
// threshold, sorted by coverage then lines missed. limit caps the list
// (0 = no limit); Remaining counts what was cut.
func FindUncoveredMethods(root *Node, threshold float64, limit int) *UncoveredReport {
	var methods []UncoveredMethod
	root.Walk(func(n *Node) bool {
		if n.Kind != KindMethod {
			return true
		}
		c, ok := n.Metrics[MetricLine]
		if !ok || c.Total() == 0 || c.Percentage() >= threshold {
			return true
		}
		methods = append(methods, UncoveredMethod{
			Package:     n.Package,
			Class:       n.Class,
			Method:      n.Name,
			Coverage:    c.Percentage(),
			LinesMissed: c.Missed,
			Line:        n.Line,
		})
		return true
	})

	sort.SliceStable(methods, func(i, j int) bool {
		if methods[i].Coverage != methods[j].Coverage {
			return methods[i].Coverage < methods[j].Coverage
		}
		return methods[i].LinesMissed > methods[j].LinesMissed
	})

	report := &UncoveredReport{Threshold: threshold, Found: len(methods), Methods: methods}
	if report.Methods == nil {
		report.Methods = []UncoveredMethod{}
	}
	if limit > 0 && len(methods) > limit {
		report.Methods = methods[:limit]
		report.Remaining = len(methods) - limit
	}
	return report
}
