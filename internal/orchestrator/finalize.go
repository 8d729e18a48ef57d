package orchestrator

import (
	"context"
	"fmt"

	"CimplrCorpSaas/internal/aggregate"
	"CimplrCorpSaas/internal/logger"
	"CimplrCorpSaas/internal/model"
	"CimplrCorpSaas/internal/normalize"
	"CimplrCorpSaas/internal/store"
)

// finalize implements the Aggregate and Finalize steps: sort both final
// sets by date (nulls last, stable), run the aggregator, render the text
// form, and commit one upsert carrying status=completed, both
// representations, stats, and openai-status.
func (o *Orchestrator) finalize(ctx context.Context, sessionID string, result classifyResult) {
	revenue := aggregate.SortByDateNullsLast(result.Revenue)
	nonRevenue := aggregate.SortByDateNullsLast(result.NonRevenue)

	now := o.now()

	revAgg := aggregate.Aggregate(revenue, o.currency, now)
	nonRevAgg := aggregate.Aggregate(nonRevenue, o.currency, now)
	trailing := aggregate.Trailing12MonthsRevenue(revenue, o.currency)

	structured := model.ReportStructured{
		SessionID:               sessionID,
		GeneratedAt:             now,
		Trailing12MonthsRevenue: trailing,
		Stats: model.Stats{
			Total:                         len(revenue) + len(nonRevenue),
			AutoRevenue:                   result.AutoRevenue,
			AgentReviewed:                 result.AgentReview,
			AgentDecisions:                result.AgentDecided,
			Unresolved:                    result.Unresolved,
			RevenueReconciliationDelta:    revAgg.ReconciliationDelta,
			NonRevenueReconciliationDelta: nonRevAgg.ReconciliationDelta,
		},
	}
	structured.Totals.Revenue = model.MoneyTotal{Value: revAgg.Total, Formatted: normalize.FormatAmount(revAgg.Total, o.currency)}
	structured.Totals.NonRevenue = model.MoneyTotal{Value: nonRevAgg.Total, Formatted: normalize.FormatAmount(nonRevAgg.Total, o.currency)}
	structured.Revenue.Years = revAgg.Years
	structured.NonRevenue.Years = nonRevAgg.Years

	text := aggregate.RenderText(structured)
	status := model.StatusCompleted

	if err := o.store.UpsertReport(ctx, sessionID, store.ReportUpsert{
		Status:       &status,
		CompletedAt:  &now,
		GeneratedAt:  &now,
		Structured:   &structured,
		Text:         &text,
		OpenAIStatus: &result.OpenAIStatus,
	}); err != nil {
		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("orchestrator: finalize upsert failed for session %s: %v", sessionID, err))
		}
		o.fail(ctx, sessionID, fmt.Sprintf("failed to persist report: %v", err))
	}
}
