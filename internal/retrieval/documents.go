package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillhq/quill/internal/log"
	"github.com/quillhq/quill/internal/plan"
)

// FilterEngine translates a query plan into document-store predicates and
// fetches matching document metadata.
type FilterEngine struct {
	store  DocumentStore
	logger log.Logger
}

// NewFilterEngine creates a FilterEngine backed by the given store.
func NewFilterEngine(store DocumentStore, logger log.Logger) *FilterEngine {
	if logger == nil {
		logger = log.NewNop()
	}
	return &FilterEngine{store: store, logger: logger}
}

// Fetch returns document summaries matching the plan's filters, newest
// first. limitOverride, when positive, replaces the plan's own limit.
func (e *FilterEngine) Fetch(ctx context.Context, p *plan.Plan, limitOverride int) ([]DocumentSummary, error) {
	limit := p.EffectiveLimit()
	if limitOverride > 0 {
		limit = limitOverride
	}

	f := buildFilter(p, limit)

	docs, err := e.store.SelectDocuments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("selecting documents: %w", err)
	}

	e.logger.Debug("document filter executed",
		"matched", len(docs),
		"limit", limit,
		"doc_types", len(f.DocTypes),
		"has_time_range", f.DateStart != "",
	)
	return docs, nil
}

// buildFilter sanitizes plan fields into a DocumentFilter.
func buildFilter(p *plan.Plan, limit int) DocumentFilter {
	f := DocumentFilter{
		DocTypes: sanitizeList(p.DocTypes),
		Statuses: sanitizeList(p.Statuses),
		Tags:     sanitizeList(p.Tags),
		Project:  p.ProjectName(),
		Limit:    limit,
	}
	if p.TimeRange != nil {
		f.DateStart = p.TimeRange.Start
		f.DateEnd = p.TimeRange.End
	}
	return f
}

// sanitizeList trims entries and drops blanks, preserving order.
func sanitizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
