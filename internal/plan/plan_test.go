package plan

import (
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestDefault(t *testing.T) {
	p := Default()

	if p.Intent != IntentLookup {
		t.Errorf("Intent = %q, want %q", p.Intent, IntentLookup)
	}
	if p.AnswerMode != ModeVectorOnly {
		t.Errorf("AnswerMode = %q, want %q", p.AnswerMode, ModeVectorOnly)
	}
	if p.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", p.Limit, DefaultLimit)
	}
	if p.HasFilters() {
		t.Error("default plan should have no filters")
	}
	if p.FollowupQuestion != nil {
		t.Error("default plan should have no followup question")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("default plan should validate: %v", err)
	}
}

func TestPlan_Validate(t *testing.T) {
	valid := func() *Plan {
		p := Default()
		return p
	}

	tests := []struct {
		name    string
		mutate  func(*Plan)
		wantErr bool
	}{
		{"valid default", func(*Plan) {}, false},
		{"unknown intent", func(p *Plan) { p.Intent = "summarize" }, true},
		{"unknown answer mode", func(p *Plan) { p.AnswerMode = "graph" }, true},
		{"limit too low", func(p *Plan) { p.Limit = 0 }, true},
		{"limit too high", func(p *Plan) { p.Limit = 201 }, true},
		{"limit at max", func(p *Plan) { p.Limit = 200 }, false},
		{"unknown doc type", func(p *Plan) { p.DocTypes = []string{"journal"} }, true},
		{"known doc types", func(p *Plan) { p.DocTypes = []string{"daily-note", "goal"} }, false},
		{"bad start date", func(p *Plan) {
			p.TimeRange = &DateRange{Start: "03/01/2026", End: "2026-03-02", Timezone: "UTC"}
		}, true},
		{"bad end date", func(p *Plan) {
			p.TimeRange = &DateRange{Start: "2026-03-01", End: "tomorrow", Timezone: "UTC"}
		}, true},
		{"end before start", func(p *Plan) {
			p.TimeRange = &DateRange{Start: "2026-03-02", End: "2026-03-01", Timezone: "UTC"}
		}, true},
		{"single day range", func(p *Plan) {
			p.TimeRange = &DateRange{Start: "2026-03-01", End: "2026-03-01", Timezone: "America/New_York"}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPlan) {
				t.Errorf("error should wrap ErrInvalidPlan, got %v", err)
			}
		})
	}
}

func TestPlan_HasFilters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Plan)
		want   bool
	}{
		{"empty plan", func(*Plan) {}, false},
		{"time range", func(p *Plan) {
			p.TimeRange = &DateRange{Start: "2026-01-01", End: "2026-01-31", Timezone: "UTC"}
		}, true},
		{"project", func(p *Plan) { p.Project = strPtr("atlas") }, true},
		{"blank project", func(p *Plan) { p.Project = strPtr("   ") }, false},
		{"doc types", func(p *Plan) { p.DocTypes = []string{"goal"} }, true},
		{"statuses", func(p *Plan) { p.Statuses = []string{"active"} }, true},
		{"tags", func(p *Plan) { p.Tags = []string{"health"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(p)
			if got := p.HasFilters(); got != tt.want {
				t.Errorf("HasFilters() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlan_ProjectName(t *testing.T) {
	p := Default()
	if p.ProjectName() != "" {
		t.Errorf("ProjectName() on nil project = %q, want empty", p.ProjectName())
	}

	p.Project = strPtr("  atlas  ")
	if p.ProjectName() != "atlas" {
		t.Errorf("ProjectName() = %q, want %q", p.ProjectName(), "atlas")
	}
}

func TestPlan_EffectiveLimit(t *testing.T) {
	p := Default()
	if p.EffectiveLimit() != DefaultLimit {
		t.Errorf("EffectiveLimit() = %d, want %d", p.EffectiveLimit(), DefaultLimit)
	}

	p.Limit = 3
	if p.EffectiveLimit() != 3 {
		t.Errorf("EffectiveLimit() = %d, want 3", p.EffectiveLimit())
	}

	p.Limit = 9999
	if p.EffectiveLimit() != DefaultLimit {
		t.Errorf("EffectiveLimit() out of range = %d, want %d", p.EffectiveLimit(), DefaultLimit)
	}
}

func TestParse_PlainJSON(t *testing.T) {
	content := `{
		"intent": "recap",
		"time_range": {"start": "2026-08-24", "end": "2026-08-28", "timezone": "America/New_York"},
		"doc_types": ["daily-note"],
		"project": null,
		"statuses": [],
		"tags": ["work"],
		"answer_mode": "hybrid",
		"limit": 20,
		"followup_question": null
	}`

	p, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Intent != IntentRecap {
		t.Errorf("Intent = %q, want %q", p.Intent, IntentRecap)
	}
	if p.TimeRange == nil || p.TimeRange.Start != "2026-08-24" {
		t.Errorf("TimeRange = %+v, want start 2026-08-24", p.TimeRange)
	}
	if p.Limit != 20 {
		t.Errorf("Limit = %d, want 20", p.Limit)
	}
}

func TestParse_FencedJSON(t *testing.T) {
	content := "```json\n" + `{"intent": "lookup", "answer_mode": "vector_only", "limit": 5}` + "\n```"

	p, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Intent != IntentLookup || p.Limit != 5 {
		t.Errorf("parsed plan = %+v", p)
	}
}

func TestParse_JSONEmbeddedInProse(t *testing.T) {
	content := `Here is your plan: {"intent": "in_flight", "answer_mode": "sql_only", "statuses": ["active"], "limit": 10} hope it helps`

	p, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Intent != IntentInFlight || p.AnswerMode != ModeSQLOnly {
		t.Errorf("parsed plan = %+v", p)
	}
}

func TestParse_AppliesDefaults(t *testing.T) {
	p, err := Parse(`{"intent": "lookup"}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.AnswerMode != ModeHybrid {
		t.Errorf("AnswerMode default = %q, want %q", p.AnswerMode, ModeHybrid)
	}
	if p.Limit != DefaultLimit {
		t.Errorf("Limit default = %d, want %d", p.Limit, DefaultLimit)
	}
	if p.DocTypes == nil || p.Statuses == nil || p.Tags == nil {
		t.Error("array fields should default to empty, not nil")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not JSON", "I could not produce a plan, sorry."},
		{"truncated JSON", `{"intent": "lookup", "answer_`},
		{"schema violation", `{"intent": "lookup", "answer_mode": "turbo"}`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.content); !errors.Is(err, ErrInvalidPlan) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidPlan", tt.content, err)
			}
		})
	}
}

func TestParse_FollowupTerminal(t *testing.T) {
	p, err := Parse(`{"intent": "accomplishments", "answer_mode": "hybrid", "followup_question": "Which week do you mean?"}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.FollowupQuestion == nil || *p.FollowupQuestion != "Which week do you mean?" {
		t.Errorf("FollowupQuestion = %v", p.FollowupQuestion)
	}
}
