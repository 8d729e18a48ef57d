package aggregate

import (
	"fmt"
	"strings"

	"CimplrCorpSaas/internal/model"
)

// RenderText renders the human-readable report-text from report-structured
// as a pure function of it — plain fmt.Sprintf-built lines, no templating
// engine.
func RenderText(s model.ReportStructured) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Revenue Analysis Report\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "Total revenue: %s\n", s.Totals.Revenue.Formatted)
	fmt.Fprintf(&b, "Total non-revenue: %s\n\n", s.Totals.NonRevenue.Formatted)

	fmt.Fprintf(&b, "Revenue by year:\n")
	renderYears(&b, s.Revenue.Years)

	fmt.Fprintf(&b, "\nNon-revenue by year:\n")
	renderYears(&b, s.NonRevenue.Years)

	fmt.Fprintf(&b, "\nTrailing 12 months revenue: %s", s.Trailing12MonthsRevenue.Formatted)
	if s.Trailing12MonthsRevenue.ReferencePeriodEnd != nil {
		fmt.Fprintf(&b, " (through %s)", s.Trailing12MonthsRevenue.ReferencePeriodEnd.Format("2006-01-02"))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Transactions: %d total, %d auto-revenue, %d agent-reviewed, %d agent decisions, %d unresolved\n",
		s.Stats.Total, s.Stats.AutoRevenue, s.Stats.AgentReviewed, s.Stats.AgentDecisions, s.Stats.Unresolved)

	if !s.Stats.RevenueReconciliationDelta.IsZero() {
		fmt.Fprintf(&b, "Unattributed revenue (undated/future-dated): %s\n", s.Stats.RevenueReconciliationDelta.String())
	}
	if !s.Stats.NonRevenueReconciliationDelta.IsZero() {
		fmt.Fprintf(&b, "Unattributed non-revenue (undated/future-dated): %s\n", s.Stats.NonRevenueReconciliationDelta.String())
	}

	return b.String()
}

func renderYears(b *strings.Builder, years []model.YearBucket) {
	if len(years) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, y := range years {
		fmt.Fprintf(b, "  %d: %s\n", y.Year, y.Formatted)
		for _, m := range y.Months {
			fmt.Fprintf(b, "    %s: %s\n", m.Label, m.Formatted)
		}
	}
}

// RenderFailure produces the report-text for a failed session: the
// exception message as report-text.
func RenderFailure(reason string) string {
	return fmt.Sprintf("Analysis failed: %s", reason)
}
