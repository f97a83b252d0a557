// Package plan converts free-form questions into structured retrieval plans.
//
// A Plan captures everything downstream retrieval needs: the question's
// intent, an optional resolved time range, document filters, the answer
// mode, and an optional clarifying follow-up question. Plans are produced
// by Planner via the configured completion model and validated strictly;
// any failure along the way is recoverable by substituting Default().
package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Intent values describe what kind of answer the user is after.
const (
	IntentAccomplishments = "accomplishments"
	IntentInFlight        = "in_flight"
	IntentRecap           = "recap"
	IntentLookup          = "lookup"
)

// Answer modes select which retrieval paths run.
const (
	ModeSQLOnly    = "sql_only"
	ModeHybrid     = "hybrid"
	ModeVectorOnly = "vector_only"
)

// Limit bounds for the number of documents a plan may request.
const (
	MinLimit     = 1
	MaxLimit     = 200
	DefaultLimit = 50
)

// DocTypeDailyNote is the document type carrying day-scoped notes.
// It is special-cased by the orchestrator's "today" handling.
const DocTypeDailyNote = "daily-note"

// ErrInvalidPlan indicates the model emitted a plan that fails schema
// validation. Callers recover by substituting Default().
var ErrInvalidPlan = errors.New("invalid query plan")

// docTypes is the fixed enumeration of known document types.
var docTypes = map[string]struct{}{
	DocTypeDailyNote:    {},
	"project":           {},
	"project-note":      {},
	"project-dashboard": {},
	"recurring-tasks":   {},
	"weekly-review":     {},
	"goal":              {},
	"idea-captures":     {},
}

var intents = map[string]struct{}{
	IntentAccomplishments: {},
	IntentInFlight:        {},
	IntentRecap:           {},
	IntentLookup:          {},
}

var modes = map[string]struct{}{
	ModeSQLOnly:    {},
	ModeHybrid:     {},
	ModeVectorOnly: {},
}

// DateRange is an inclusive civil-date range in a named timezone.
// Start and End use ISO YYYY-MM-DD format.
type DateRange struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// Plan is the structured output of query planning.
//
// A Plan is created once per request and is immutable after planning,
// with one exception: the orchestrator's deterministic "today" amendment
// (see chat.Orchestrator), which may inject a same-day time range and the
// daily-note doc type.
type Plan struct {
	Intent           string     `json:"intent"`
	TimeRange        *DateRange `json:"time_range"`
	DocTypes         []string   `json:"doc_types"`
	Project          *string    `json:"project"`
	Statuses         []string   `json:"statuses"`
	Tags             []string   `json:"tags"`
	AnswerMode       string     `json:"answer_mode"`
	Limit            int        `json:"limit"`
	FollowupQuestion *string    `json:"followup_question"`
}

// Default returns the safe fallback plan used when planning fails:
// plain vector lookup with no filters and no follow-up.
func Default() *Plan {
	return &Plan{
		Intent:     IntentLookup,
		DocTypes:   []string{},
		Statuses:   []string{},
		Tags:       []string{},
		AnswerMode: ModeVectorOnly,
		Limit:      DefaultLimit,
	}
}

// Validate checks the plan against the schema. All violations wrap
// ErrInvalidPlan so callers can recover with errors.Is.
func (p *Plan) Validate() error {
	if _, ok := intents[p.Intent]; !ok {
		return fmt.Errorf("%w: unknown intent %q", ErrInvalidPlan, p.Intent)
	}
	if _, ok := modes[p.AnswerMode]; !ok {
		return fmt.Errorf("%w: unknown answer_mode %q", ErrInvalidPlan, p.AnswerMode)
	}
	if p.Limit < MinLimit || p.Limit > MaxLimit {
		return fmt.Errorf("%w: limit %d out of range [%d, %d]", ErrInvalidPlan, p.Limit, MinLimit, MaxLimit)
	}
	for _, dt := range p.DocTypes {
		if _, ok := docTypes[dt]; !ok {
			return fmt.Errorf("%w: unknown doc_type %q", ErrInvalidPlan, dt)
		}
	}
	if p.TimeRange != nil {
		if err := p.TimeRange.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *DateRange) validate() error {
	start, err := time.Parse(time.DateOnly, r.Start)
	if err != nil {
		return fmt.Errorf("%w: time_range.start %q is not YYYY-MM-DD", ErrInvalidPlan, r.Start)
	}
	end, err := time.Parse(time.DateOnly, r.End)
	if err != nil {
		return fmt.Errorf("%w: time_range.end %q is not YYYY-MM-DD", ErrInvalidPlan, r.End)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: time_range end %q before start %q", ErrInvalidPlan, r.End, r.Start)
	}
	return nil
}

// normalize fills defaults for fields the model may legitimately omit.
// Called after decoding, before Validate.
func (p *Plan) normalize() {
	if p.DocTypes == nil {
		p.DocTypes = []string{}
	}
	if p.Statuses == nil {
		p.Statuses = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.AnswerMode == "" {
		p.AnswerMode = ModeHybrid
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.TimeRange != nil && p.TimeRange.Timezone == "" {
		p.TimeRange.Timezone = "UTC"
	}
}

// HasFilters reports whether the plan carries any structural document
// filter: a time range, a non-blank project, or non-empty doc types,
// statuses, or tags.
func (p *Plan) HasFilters() bool {
	if p.TimeRange != nil {
		return true
	}
	if p.Project != nil && strings.TrimSpace(*p.Project) != "" {
		return true
	}
	return len(p.DocTypes) > 0 || len(p.Statuses) > 0 || len(p.Tags) > 0
}

// ProjectName returns the trimmed project filter, or "" if unset.
func (p *Plan) ProjectName() string {
	if p.Project == nil {
		return ""
	}
	return strings.TrimSpace(*p.Project)
}

// EffectiveLimit returns the bounded document limit for this plan.
func (p *Plan) EffectiveLimit() int {
	if p.Limit < MinLimit || p.Limit > MaxLimit {
		return DefaultLimit
	}
	return p.Limit
}
