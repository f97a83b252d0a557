package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/quillhq/quill/internal/log"
)

// plannerSystemPrompt instructs the model to emit only a JSON plan.
const plannerSystemPrompt = `Return ONLY JSON matching this schema:
{
  "intent": "accomplishments" | "in_flight" | "recap" | "lookup",
  "time_range": { "start": "YYYY-MM-DD", "end": "YYYY-MM-DD", "timezone": "Area/City" } | null,
  "doc_types": ["daily-note" | "project" | "project-note" | "project-dashboard" | "recurring-tasks" | "weekly-review" | "goal" | "idea-captures"],
  "project": string | null,
  "statuses": string[],
  "tags": string[],
  "answer_mode": "sql_only" | "hybrid" | "vector_only",
  "limit": number,
  "followup_question": string | null
}

Rules:
- Resolve relative time ranges using Today and Timezone.
- If a time-bound intent is missing a range, set followup_question and set time_range to null.
- Use empty arrays for doc_types, statuses, tags when absent.
- If the question implies "today", "now", or "current", prefer doc_types including "daily-note" and set time_range to today.
- Do not output SQL or extra text.`

// Planner turns a question plus temporal context into a validated Plan
// using the configured completion model.
//
// Planner is safe for concurrent use.
type Planner struct {
	g       *genkit.Genkit
	model   string
	limiter *rate.Limiter
	logger  log.Logger
}

// NewPlanner creates a Planner.
//
// model is the provider-qualified model name (e.g. "googleai/gemini-2.5-flash").
// limiter paces outbound provider calls; nil disables pacing.
func NewPlanner(g *genkit.Genkit, model string, limiter *rate.Limiter, logger log.Logger) *Planner {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Planner{g: g, model: model, limiter: limiter, logger: logger}
}

// Plan asks the model for a retrieval plan for the given question.
//
// today is the current civil date (YYYY-MM-DD) in the request timezone;
// timezone is the IANA zone name the model should resolve relative dates
// against. Every failure (provider error, unparseable JSON, schema
// violation) is returned as an error the caller recovers from by
// substituting Default() — planning must never sink a request.
func (p *Planner) Plan(ctx context.Context, question, today, timezone string) (*Plan, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for planner rate limit: %w", err)
		}
	}

	prompt := fmt.Sprintf("Question: %s\nToday: %s\nTimezone: %s", question, today, timezone)

	resp, err := genkit.Generate(ctx, p.g,
		ai.WithModelName(p.model),
		ai.WithSystem(plannerSystemPrompt),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("planner generation: %w", err)
	}

	content := resp.Text()
	if content == "" {
		return nil, errors.New("planner response missing content")
	}

	parsed, err := Parse(content)
	if err != nil {
		p.logger.Warn("planner emitted invalid plan", "error", err, "content_length", len(content))
		return nil, err
	}

	p.logger.Debug("query plan built",
		"intent", parsed.Intent,
		"answer_mode", parsed.AnswerMode,
		"has_time_range", parsed.TimeRange != nil,
		"followup", parsed.FollowupQuestion != nil,
	)
	return parsed, nil
}

// Parse decodes and validates a raw model response into a Plan.
// The response may be fenced or surrounded by prose; see extractJSON.
func Parse(content string) (*Plan, error) {
	raw := extractJSON(content)

	var parsed Plan
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding plan JSON: %v", ErrInvalidPlan, err)
	}

	parsed.normalize()
	if err := parsed.Validate(); err != nil {
		return nil, err
	}
	return &parsed, nil
}
