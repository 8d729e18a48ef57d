// Package llmclassifier adapts the LLM provider used to resolve the
// ambiguous transaction subset the heuristic classifier (internal/classify)
// declines to call: a strict-JSON prompt, a single non-retried call, and
// fence-stripping recovery of the response into a `{"transactions": [...]}`
// object.
package llmclassifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"CimplrCorpSaas/internal/resilience"
)

// Candidate is one ambiguous transaction offered to the model, reduced to
// the fields the prompt needs.
type Candidate struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	Amount        string `json:"amount"`
	Purpose       string `json:"purpose"`
	Sender        string `json:"sender"`
	Correspondent string `json:"correspondent"`
	BIN           string `json:"bin"`
	Comment       string `json:"comment"`
}

// Decision is the model's verdict for one candidate.
type Decision struct {
	ID        string
	IsRevenue bool
	Reason    string
}

// Exchange carries the prompt and raw response text so the caller can
// persist both as ordered Message rows.
type Exchange struct {
	Prompt   string
	Response string
}

const systemInstruction = `You are a bookkeeping assistant that classifies bank transactions as
revenue (sale of goods or services) or not, for transactions a keyword
heuristic could not already decide.

Respond with STRICT JSON only: no markdown fences, no commentary.
Output a single JSON object of the exact shape:
{"transactions": [{"id": "...", "is_revenue": true, "reason": "..."}]}

One decision entry per input transaction, in the same order, using the
input's "id" verbatim. "reason" is a short phrase, not a sentence.`

// Classifier calls a genai model to resolve ambiguous transactions. breaker
// trips after repeated provider failures so a down model fails every
// remaining session immediately instead of burning each one's full timeout.
type Classifier struct {
	client  *genai.Client
	model   string
	breaker *resilience.CircuitBreaker
}

// New builds a Classifier. apiKey is passed through genai.ClientConfig;
// model names the Gemini model to call (e.g. "gemini-2.0-flash").
func New(ctx context.Context, apiKey, model string) (*Classifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("llmclassifier: create genai client: %w", err)
	}
	return &Classifier{client: client, model: model, breaker: resilience.NewCircuitBreaker(5, time.Minute)}, nil
}

// Classify sends candidates to the model in a single call, bounded by
// ctx's deadline (the caller wraps ctx with the configured llmTimeout — the
// adapter itself never retries a semantic failure). It returns the parsed
// decisions plus the Exchange to persist, even on a decode failure, since
// the exchange is worth recording regardless of outcome.
func (c *Classifier) Classify(ctx context.Context, candidates []Candidate) ([]Decision, Exchange, error) {
	payload, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return nil, Exchange{}, fmt.Errorf("llmclassifier: marshal candidates: %w", err)
	}
	prompt := systemInstruction + "\n\nTransactions:\n" + string(payload)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	var resp *genai.GenerateContentResponse
	callErr := c.breaker.Execute(func() error {
		r, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if callErr != nil {
		return nil, Exchange{Prompt: prompt}, fmt.Errorf("llmclassifier: generate content: %w", callErr)
	}

	rawText := resp.Text()
	exchange := Exchange{Prompt: prompt, Response: rawText}
	if rawText == "" {
		return nil, exchange, fmt.Errorf("llmclassifier: empty response from model")
	}

	decisions, err := decodeDecisions(rawText)
	if err != nil {
		return nil, exchange, err
	}
	return decisions, exchange, nil
}

// rawDecision tolerates a handful of alternate key spellings a model might
// use: is_revenue/isRevenue/revenue, and a "label" field with value
// "revenue".
type rawDecision struct {
	ID         string `json:"id"`
	IsRevenue  *bool  `json:"is_revenue"`
	IsRevenue2 *bool  `json:"isRevenue"`
	Revenue    *bool  `json:"revenue"`
	Label      string `json:"label"`
	Reason     string `json:"reason"`
}

func (r rawDecision) resolveIsRevenue() bool {
	switch {
	case r.IsRevenue != nil:
		return *r.IsRevenue
	case r.IsRevenue2 != nil:
		return *r.IsRevenue2
	case r.Revenue != nil:
		return *r.Revenue
	case strings.EqualFold(r.Label, "revenue"):
		return true
	default:
		return false
	}
}

func decodeDecisions(rawText string) ([]Decision, error) {
	clean := cleanModelJSON(rawText)

	var envelope struct {
		Decisions []rawDecision `json:"transactions"`
	}
	if err := json.Unmarshal([]byte(clean), &envelope); err != nil {
		var bare []rawDecision
		if err2 := json.Unmarshal([]byte(clean), &bare); err2 != nil {
			return nil, fmt.Errorf("llmclassifier: unmarshal response: %w\nraw response: %s", err, rawText)
		}
		envelope.Decisions = bare
	}

	out := make([]Decision, 0, len(envelope.Decisions))
	for _, d := range envelope.Decisions {
		out = append(out, Decision{ID: d.ID, IsRevenue: d.resolveIsRevenue(), Reason: d.Reason})
	}
	return out, nil
}

// cleanModelJSON strips markdown code fences and trims to the outermost
// JSON object, mirroring the fence-stripping idiom this package is
// grounded on — adapted to recover an object ('{'...'}') rather than an
// array, since the response envelope here is `{"transactions": [...]}`.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}
