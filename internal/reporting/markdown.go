package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Edge Validation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Edges: %d\n\n", r.TotalEdges))

	// Status breakdown
	sb.WriteString("## Lifecycle Status\n\n")
	sb.WriteString("| Status | Count |\n")
	sb.WriteString("|--------|-------|\n")
	for _, status := range allStatuses {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", status, r.StatusCounts[string(status)]))
	}
	sb.WriteString("\n")

	// Verdict breakdown
	sb.WriteString("## Latest Verdicts\n\n")
	if len(r.VerdictCounts) > 0 {
		sb.WriteString("| Classification | Count |\n")
		sb.WriteString("|----------------|-------|\n")
		for _, class := range []string{"APPROVED", "MARGINAL", "REJECTED"} {
			if n, ok := r.VerdictCounts[class]; ok {
				sb.WriteString(fmt.Sprintf("| %s | %d |\n", class, n))
			}
		}
	} else {
		sb.WriteString("No validation runs recorded.\n")
	}
	sb.WriteString("\n")

	// Edge table
	sb.WriteString("## Edges\n\n")
	if len(r.Edges) > 0 {
		sb.WriteString("| Edge | Definition | Status | Verdict | N | ExpR | Stress50 | Retention | WinRate | MaxDD | MaxLoss | Friction |\n")
		sb.WriteString("|------|------------|--------|---------|---|------|----------|-----------|---------|-------|---------|----------|\n")
		for _, e := range r.Edges {
			verdict := e.Classification
			if e.FailureCode != "" {
				verdict += " (" + e.FailureCode + ")"
			}
			if verdict == "" {
				verdict = "-"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %.4f | %.4f | %s | %.2f | %.4f | %d | %d |\n",
				shortID(e.EdgeID), e.Definition, e.Status, verdict,
				e.SampleSize, e.Expectancy, e.StressedMean50,
				retentionCell(e.Retention),
				e.WinRate, e.MaxDrawdown, e.MaxConsecutive, e.FrictionFlags))
		}
	} else {
		sb.WriteString("No edges recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// shortID truncates a content hash for table display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func retentionCell(retention *float64) string {
	if retention == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *retention)
}
