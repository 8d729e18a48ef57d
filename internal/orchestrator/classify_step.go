package orchestrator

import (
	"context"

	"CimplrCorpSaas/internal/classify"
	"CimplrCorpSaas/internal/llmclassifier"
	"CimplrCorpSaas/internal/model"
)

// classifyResult is the output of the Classify step: the two final buckets
// plus the counters Finalize needs for stats and openai-status. LLMFailed is
// set only when the adapter raised AND returned zero usable decisions — the
// orchestrator fails the whole session in that case rather than completing
// it with an empty ambiguous set folded to non-revenue.
type classifyResult struct {
	Revenue      []model.Transaction
	NonRevenue   []model.Transaction
	AutoRevenue  int
	AgentReview  int
	AgentDecided int
	Unresolved   int
	OpenAIStatus model.OpenAIStatus
	LLMFailed    error
}

// runClassify partitions txns via the heuristic, escalates the ambiguous
// subset to the LLM adapter when non-empty, and folds decisions back: a
// matching {id, is_revenue} moves the item to revenue/non-revenue with
// source agent; an ambiguous item without a decision defaults to
// non-revenue with source agent-missing.
func (o *Orchestrator) runClassify(ctx context.Context, sessionID string, txns []model.Transaction) classifyResult {
	var result classifyResult

	var ambiguous []model.Transaction
	for _, t := range txns {
		verdict := classify.Classify(t.Purpose, t.Sender)
		t.ClassificationSource = model.SourceHeuristic
		t.ClassificationReason = verdict.Reason
		if verdict.Ambiguous {
			t.PossibleNonRevenue = true
			ambiguous = append(ambiguous, t)
			continue
		}
		t.IsRevenue = verdict.IsRevenue
		if verdict.IsRevenue {
			result.Revenue = append(result.Revenue, t)
			result.AutoRevenue++
		} else {
			result.NonRevenue = append(result.NonRevenue, t)
		}
	}

	if len(ambiguous) == 0 {
		result.OpenAIStatus = model.OpenAISkipped
		return result
	}
	result.AgentReview = len(ambiguous)

	if o.classifier == nil {
		result.OpenAIStatus = model.OpenAISkipped
		foldMissing(&result, ambiguous, "no LLM classifier configured")
		return result
	}

	llmCtx, cancel := context.WithTimeout(ctx, o.llmTimeout)
	defer cancel()

	candidates := make([]llmclassifier.Candidate, 0, len(ambiguous))
	for _, t := range ambiguous {
		var date string
		if t.ValueDate != nil {
			date = t.ValueDate.Format("2006-01-02")
		}
		candidates = append(candidates, llmclassifier.Candidate{
			ID:            t.InternalID,
			Date:          date,
			Amount:        t.RawAmount,
			Purpose:       t.Purpose,
			Sender:        t.Sender,
			Correspondent: t.Correspondent,
			BIN:           t.BIN,
		})
	}

	decisions, exchange, err := o.classifier.Classify(llmCtx, candidates)

	if exchange.Prompt != "" {
		o.persistMessage(ctx, sessionID, "user", exchange.Prompt)
	}
	if exchange.Response != "" {
		o.persistMessage(ctx, sessionID, "assistant", exchange.Response)
	}

	if err != nil && len(decisions) == 0 {
		result.LLMFailed = err
		return result
	}

	byID := make(map[string]llmclassifier.Decision, len(decisions))
	for _, d := range decisions {
		byID[d.ID] = d
	}

	for _, t := range ambiguous {
		d, ok := byID[t.InternalID]
		if !ok {
			t.ClassificationSource = model.SourceAgentMissing
			t.ClassificationReason = "llm did not return a decision for this item"
			result.NonRevenue = append(result.NonRevenue, t)
			result.Unresolved++
			continue
		}
		t.ClassificationSource = model.SourceAgent
		t.ClassificationReason = d.Reason
		t.IsRevenue = d.IsRevenue
		result.AgentDecided++
		if d.IsRevenue {
			result.Revenue = append(result.Revenue, t)
		} else {
			result.NonRevenue = append(result.NonRevenue, t)
		}
	}

	if result.Unresolved == 0 {
		result.OpenAIStatus = model.OpenAICompleted
	} else {
		result.OpenAIStatus = model.OpenAIPartial
	}
	return result
}

func foldMissing(result *classifyResult, ambiguous []model.Transaction, reason string) {
	for _, t := range ambiguous {
		t.ClassificationSource = model.SourceAgentMissing
		t.ClassificationReason = reason
		result.NonRevenue = append(result.NonRevenue, t)
		result.Unresolved++
	}
}
