package reporter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/agentops/evogate/pkg/models"
)

const markdownTemplate = `# Validation Report: {{.Workflow}}

**Generated:** {{.GeneratedAt.Format "January 2, 2006 15:04:05 MST"}}

## Summary

| | |
|---|---|
| Validations | {{len .Results}} |
| Approved | {{.ApprovedCount}} |
| Rejected | {{.RejectedCount}} |
| Avg. confidence | {{printf "%.2f" .AvgConfidence}} |

{{if .DimensionWins}}## By Dimension

| Dimension | Improvements | Regressions | Best |
|---|---|---|---|
{{range .SortedDimensions}}| {{.Dimension}} | {{.Improvements}} | {{.Regressions}} | {{pct .BestImprovement}} |
{{end}}{{end}}## Results

| Proposal | Verdict | Confidence | Linearity | Reason |
|---|---|---|---|---|
{{range .Results}}| {{.ProposalID}} | {{verdict .Approved}} | {{printf "%.2f" .Confidence}} | {{pct .Scale.Linearity}} | {{if .Reason}}{{.Reason}}{{else}}-{{end}} |
{{end}}`

// GenerateMarkdown renders a markdown report
func GenerateMarkdown(report *Report, writer io.Writer) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"pct": func(v float64) string {
			return fmt.Sprintf("%.1f%%", v*100)
		},
		"verdict": func(approved bool) string {
			if approved {
				return "APPROVED"
			}
			return "REJECTED"
		},
	}).Parse(markdownTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(writer, report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

// RenderResult writes a single validation verdict as human-readable text,
// suitable for terminal output.
func RenderResult(res models.ValidationResult, writer io.Writer) error {
	verdict := "REJECTED"
	if res.Approved {
		verdict = "APPROVED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Proposal %s: %s (confidence %.2f)\n", res.ProposalID, verdict, res.Confidence)
	if res.Reason != "" {
		fmt.Fprintf(&b, "  reason: %s\n", res.Reason)
	}
	for _, dim := range sortedKeys(res.Improvements) {
		fmt.Fprintf(&b, "  improved %s: %+.1f%%\n", dim, res.Improvements[dim]*100)
	}
	for _, dim := range sortedKeys(res.Regressions) {
		fmt.Fprintf(&b, "  regressed %s: -%.1f%%\n", dim, res.Regressions[dim]*100)
	}
	if len(res.Scale.Points) > 0 {
		fmt.Fprintf(&b, "  scale linearity: %.1f%%\n", res.Scale.Linearity*100)
	}

	_, err := io.WriteString(writer, b.String())
	return err
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
