package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// GenerateCSV writes the validation history as CSV
func GenerateCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)
	defer w.Flush()

	header := []string{
		"Proposal ID",
		"Verdict",
		"Confidence",
		"Improvements",
		"Regressions",
		"Scale Linearity",
		"Baseline Throughput",
		"Candidate Throughput",
		"Reason",
		"Timestamp",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, res := range report.Results {
		verdict := "REJECTED"
		if res.Approved {
			verdict = "APPROVED"
		}
		row := []string{
			res.ProposalID,
			verdict,
			fmt.Sprintf("%.2f", res.Confidence),
			formatChanges(res.Improvements),
			formatChanges(res.Regressions),
			fmt.Sprintf("%.3f", res.Scale.Linearity),
			fmt.Sprintf("%.2f", res.Metrics.Baseline.Throughput),
			fmt.Sprintf("%.2f", res.Metrics.Candidate.Throughput),
			res.Reason,
			res.Timestamp.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	// Summary rows
	w.Write([]string{})
	w.Write([]string{"SUMMARY"})
	w.Write([]string{"Total Validations", fmt.Sprintf("%d", len(report.Results))})
	w.Write([]string{"Approved", fmt.Sprintf("%d", report.ApprovedCount)})
	w.Write([]string{"Rejected", fmt.Sprintf("%d", report.RejectedCount)})
	w.Write([]string{"Average Confidence", fmt.Sprintf("%.2f", report.AvgConfidence)})

	return nil
}

func formatChanges(changes map[string]float64) string {
	if len(changes) == 0 {
		return ""
	}
	parts := make([]string, 0, len(changes))
	for _, dim := range sortedKeys(changes) {
		parts = append(parts, fmt.Sprintf("%s %+.1f%%", dim, changes[dim]*100))
	}
	return strings.Join(parts, "; ")
}
