package reporter

import (
	"sort"
	"time"

	"github.com/agentops/evogate/pkg/models"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatMarkdown ReportFormat = "markdown"
	FormatCSV      ReportFormat = "csv"
)

// Report contains all data for generating validation reports
type Report struct {
	Workflow      string
	GeneratedAt   time.Time
	Results       []models.ValidationResult
	ApprovedCount int
	RejectedCount int
	AvgConfidence float64
	DimensionWins map[string]*DimensionStats
}

// DimensionStats holds per-dimension improvement statistics across results
type DimensionStats struct {
	Dimension       string
	Improvements    int
	Regressions     int
	BestImprovement float64
}

// Reporter generates validation reports
type Reporter struct {
	format ReportFormat
}

// New creates a new reporter
func New(format ReportFormat) *Reporter {
	return &Reporter{
		format: format,
	}
}

// Generate builds a report from validation results
func (r *Reporter) Generate(results []models.ValidationResult, workflow string) (*Report, error) {
	report := &Report{
		Workflow:      workflow,
		GeneratedAt:   time.Now(),
		Results:       results,
		DimensionWins: make(map[string]*DimensionStats),
	}

	r.calculateStats(report)

	return report, nil
}

// SortedDimensions returns the per-dimension stats ordered by dimension name,
// so rendered tables are stable across runs.
func (r *Report) SortedDimensions() []*DimensionStats {
	stats := make([]*DimensionStats, 0, len(r.DimensionWins))
	for _, s := range r.DimensionWins {
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Dimension < stats[j].Dimension })
	return stats
}

func (r *Reporter) calculateStats(report *Report) {
	total := 0.0
	for _, res := range report.Results {
		if res.Approved {
			report.ApprovedCount++
		} else {
			report.RejectedCount++
		}
		total += res.Confidence

		for dim, pct := range res.Improvements {
			stat := r.dimStat(report, dim)
			stat.Improvements++
			if pct > stat.BestImprovement {
				stat.BestImprovement = pct
			}
		}
		for dim := range res.Regressions {
			r.dimStat(report, dim).Regressions++
		}
	}

	if len(report.Results) > 0 {
		report.AvgConfidence = total / float64(len(report.Results))
	}
}

func (r *Reporter) dimStat(report *Report, dim string) *DimensionStats {
	stat, ok := report.DimensionWins[dim]
	if !ok {
		stat = &DimensionStats{Dimension: dim}
		report.DimensionWins[dim] = stat
	}
	return stat
}
