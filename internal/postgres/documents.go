package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillhq/quill/internal/retrieval"
)

// selectDocumentsBase carries the visibility predicates every document
// query starts from. Private and template documents never leave the
// database regardless of what a query plan asks for.
const selectDocumentsBase = `SELECT source_file, title, doc_type, doc_date, tags,
	COALESCE(project, ''), COALESCE(status, ''), progress,
	COALESCE(goal_horizon, ''), period_start, period_end
FROM documents
WHERE public = TRUE AND is_template = FALSE`

const selectDocumentsOrder = `
ORDER BY doc_date DESC NULLS LAST, updated_at DESC, source_file`

// SelectDocuments implements retrieval.DocumentStore.
func (s *Store) SelectDocuments(ctx context.Context, f retrieval.DocumentFilter) ([]retrieval.DocumentSummary, error) {
	query, args := buildDocumentQuery(f)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting documents: %w", err)
	}
	defer rows.Close()

	docs := make([]retrieval.DocumentSummary, 0, f.Limit)
	for rows.Next() {
		var d retrieval.DocumentSummary
		if err := rows.Scan(
			&d.SourceFile, &d.Title, &d.DocType, &d.DocDate, &d.Tags,
			&d.Project, &d.Status, &d.Progress,
			&d.GoalHorizon, &d.PeriodStart, &d.PeriodEnd,
		); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading document rows: %w", err)
	}
	return docs, nil
}

// buildDocumentQuery composes the filter predicates into a parameterized
// query. Empty filter fields contribute no clause.
func buildDocumentQuery(f retrieval.DocumentFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(selectDocumentsBase)

	var args []any
	clause := func(format string, value any) {
		args = append(args, value)
		fmt.Fprintf(&sb, format, len(args))
	}

	if len(f.DocTypes) > 0 {
		clause("\n  AND doc_type = ANY($%d)", f.DocTypes)
	}
	if len(f.Statuses) > 0 {
		clause("\n  AND status = ANY($%d)", f.Statuses)
	}
	if len(f.Tags) > 0 {
		clause("\n  AND tags && $%d", f.Tags)
	}
	if f.Project != "" {
		clause("\n  AND project = $%d", f.Project)
	}
	if f.DateStart != "" && f.DateEnd != "" {
		clause("\n  AND doc_date >= $%d", f.DateStart)
		clause(" AND doc_date <= $%d", f.DateEnd)
	}

	sb.WriteString(selectDocumentsOrder)
	clause("\nLIMIT $%d", f.Limit)

	return sb.String(), args
}
