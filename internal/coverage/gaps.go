package coverage

import "fmt"

// PriorityTier groups gaps for display.
type PriorityTier string

const (
	// PriorityCritical is public API with nothing covered.
	PriorityCritical PriorityTier = "critical"
	// PriorityHigh is any other node with nothing covered.
	PriorityHigh PriorityTier = "high"
	// PriorityMedium is a node below a quarter of the threshold.
	PriorityMedium PriorityTier = "medium"
	// PriorityLow is every remaining gap.
	PriorityLow PriorityTier = "low"
)

// Gap is a ranked testing target with its display tier.
type Gap struct {
	PriorityRecord `yaml:",inline"`
	Tier           PriorityTier `json:"tier" yaml:"tier"`
}

// GapsReportOptions configures GenerateGapsReport.
type GapsReportOptions struct {
	Rank RankOptions
	// ByPriority groups the gaps by tier in the report.
	ByPriority bool
}

// DefaultGapsReportOptions returns ranking defaults with the top-20 limit
// used by identify_uncovered_code.
func DefaultGapsReportOptions() GapsReportOptions {
	rank := DefaultRankOptions()
	rank.Limit = 20
	return GapsReportOptions{Rank: rank}
}

// GapsReport is the ranked gap list plus summary statistics.
type GapsReport struct {
	Gaps       []Gap                  `json:"gaps" yaml:"gaps"`
	ByPriority map[PriorityTier][]Gap `json:"by_priority,omitempty" yaml:"by_priority,omitempty"`
	Summary    GapsSummary            `json:"summary" yaml:"summary"`
}

// GapsSummary provides aggregate statistics about coverage gaps.
type GapsSummary struct {
	Metric    MetricKind `json:"metric" yaml:"metric"`
	Threshold float64    `json:"threshold" yaml:"threshold"`

	// TotalGaps counts every qualifying node, before the limit is applied.
	TotalGaps int `json:"total_gaps" yaml:"total_gaps"`
	// Shown is the number of gaps in the report.
	Shown int `json:"shown" yaml:"shown"`

	ZeroCoverage      int `json:"zero_coverage" yaml:"zero_coverage"`
	PublicAPIWithGaps int `json:"public_api_with_gaps" yaml:"public_api_with_gaps"`

	CriticalCount int `json:"critical_count" yaml:"critical_count"`
	HighCount     int `json:"high_count" yaml:"high_count"`
	MediumCount   int `json:"medium_count" yaml:"medium_count"`
	LowCount      int `json:"low_count" yaml:"low_count"`

	Recommendation string `json:"recommendation" yaml:"recommendation"`
}

// GenerateGapsReport ranks an aggregated tree and summarizes the result.
func GenerateGapsReport(root *Node, opts GapsReportOptions) *GapsReport {
	limit := opts.Rank.Limit
	all := opts.Rank
	all.Limit = 0
	entries := Rank(root, all)

	threshold := opts.Rank.Threshold
	summary := GapsSummary{
		Metric:    all.Metric,
		Threshold: threshold,
		TotalGaps: len(entries),
	}
	if summary.Metric == "" {
		summary.Metric = MetricLine
	}

	gaps := make([]Gap, 0, len(entries))
	for _, e := range entries {
		tier := categorizePriority(e, threshold)
		switch tier {
		case PriorityCritical:
			summary.CriticalCount++
		case PriorityHigh:
			summary.HighCount++
		case PriorityMedium:
			summary.MediumCount++
		default:
			summary.LowCount++
		}
		if e.Reason == ReasonZeroCoverage {
			summary.ZeroCoverage++
		}
		if e.PublicAPI {
			summary.PublicAPIWithGaps++
		}
		gaps = append(gaps, Gap{PriorityRecord: e.Record(), Tier: tier})
	}

	if limit > 0 && len(gaps) > limit {
		gaps = gaps[:limit]
	}
	summary.Shown = len(gaps)
	summary.Recommendation = generateGapsRecommendation(summary)

	report := &GapsReport{Gaps: gaps, Summary: summary}
	if opts.ByPriority {
		report.ByPriority = groupGapsByPriorityTier(gaps)
	}
	return report
}

// categorizePriority assigns the display tier for a ranked entry.
func categorizePriority(e PriorityEntry, threshold float64) PriorityTier {
	if e.Reason == ReasonZeroCoverage {
		if e.PublicAPI {
			return PriorityCritical
		}
		return PriorityHigh
	}
	if e.Node.Percentage(e.Metric) < threshold/4 {
		return PriorityMedium
	}
	return PriorityLow
}

func groupGapsByPriorityTier(gaps []Gap) map[PriorityTier][]Gap {
	grouped := make(map[PriorityTier][]Gap)
	for _, g := range gaps {
		grouped[g.Tier] = append(grouped[g.Tier], g)
	}
	return grouped
}

// generateGapsRecommendation produces an actionable line for the agent.
func generateGapsRecommendation(s GapsSummary) string {
	switch {
	case s.TotalGaps == 0:
		return fmt.Sprintf("No %s coverage gaps below %.0f%%. Consider raising the threshold.", s.Metric, s.Threshold)
	case s.CriticalCount > 0:
		return fmt.Sprintf("%d public API unit(s) have no %s coverage. Start there: each test covers the most new ground.", s.CriticalCount, s.Metric)
	case s.HighCount > 0:
		return fmt.Sprintf("%d unit(s) have no %s coverage. Add a first test for each before deepening existing ones.", s.HighCount, s.Metric)
	default:
		return fmt.Sprintf("%d unit(s) are below %.0f%% %s coverage. Target their uncovered branches and edge cases.", s.TotalGaps, s.Threshold, s.Metric)
	}
}
