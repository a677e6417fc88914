package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders edge rows as CSV string.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("edge_id,instrument,definition,status,classification,failure_code,")
	sb.WriteString("sample_size,expectancy,stressed_mean_50,retention,")
	sb.WriteString("win_rate,max_drawdown,max_consecutive_losses,friction_flags\n")

	for _, e := range r.Edges {
		retention := ""
		if e.Retention != nil {
			retention = fmt.Sprintf("%.6f", *e.Retention)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%q,%s,%s,%s,%d,%.6f,%.6f,%s,%.6f,%.6f,%d,%d\n",
			e.EdgeID,
			e.Instrument,
			e.Definition,
			e.Status,
			e.Classification,
			e.FailureCode,
			e.SampleSize,
			e.Expectancy,
			e.StressedMean50,
			retention,
			e.WinRate,
			e.MaxDrawdown,
			e.MaxConsecutive,
			e.FrictionFlags,
		))
	}

	return sb.String()
}
