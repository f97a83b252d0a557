package postgres

import (
	"strings"
	"testing"

	"github.com/quillhq/quill/internal/retrieval"
)

func TestBuildDocumentQueryNoFilters(t *testing.T) {
	query, args := buildDocumentQuery(retrieval.DocumentFilter{Limit: 50})

	if !strings.Contains(query, "public = TRUE AND is_template = FALSE") {
		t.Error("query must always carry the visibility predicates")
	}
	if strings.Contains(query, "AND doc_type") ||
		strings.Contains(query, "AND status") ||
		strings.Contains(query, "AND tags") ||
		strings.Contains(query, "AND project") ||
		strings.Contains(query, "AND doc_date") {
		t.Errorf("empty filter must add no predicate clauses:\n%s", query)
	}
	if !strings.Contains(query, "ORDER BY doc_date DESC NULLS LAST, updated_at DESC, source_file") {
		t.Errorf("query missing deterministic ordering:\n%s", query)
	}
	if !strings.Contains(query, "LIMIT $1") {
		t.Errorf("limit must be the only parameter:\n%s", query)
	}
	if len(args) != 1 || args[0] != 50 {
		t.Errorf("args = %v, want [50]", args)
	}
}

func TestBuildDocumentQueryAllFilters(t *testing.T) {
	f := retrieval.DocumentFilter{
		DocTypes:  []string{"project", "goal"},
		Statuses:  []string{"active"},
		Tags:      []string{"planning"},
		Project:   "quill",
		DateStart: "2026-08-01",
		DateEnd:   "2026-08-29",
		Limit:     25,
	}

	query, args := buildDocumentQuery(f)

	for _, want := range []string{
		"AND doc_type = ANY($1)",
		"AND status = ANY($2)",
		"AND tags && $3",
		"AND project = $4",
		"AND doc_date >= $5",
		"AND doc_date <= $6",
		"LIMIT $7",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q:\n%s", want, query)
		}
	}
	if len(args) != 7 {
		t.Fatalf("got %d args, want 7", len(args))
	}
	if args[3] != "quill" || args[4] != "2026-08-01" || args[5] != "2026-08-29" || args[6] != 25 {
		t.Errorf("args = %v", args)
	}
}

func TestBuildDocumentQueryPartialDateRangeIgnored(t *testing.T) {
	query, _ := buildDocumentQuery(retrieval.DocumentFilter{DateStart: "2026-08-01", Limit: 10})
	if strings.Contains(query, "doc_date >=") {
		t.Error("a date range missing its end must add no date predicate")
	}
}

func TestIncrementWindowSQLShape(t *testing.T) {
	for _, want := range []string{
		"ON CONFLICT (ip_address) DO UPDATE",
		"RETURNING request_count, window_start",
		"THEN 1",
		"rate_limits.request_count + 1",
	} {
		if !strings.Contains(incrementWindowSQL, want) {
			t.Errorf("incrementWindowSQL missing %q", want)
		}
	}
}

func TestNearestChunksSQLShape(t *testing.T) {
	for _, query := range []string{nearestChunksSQL, nearestChunksScopedSQL} {
		if !strings.Contains(query, "c.embedding IS NOT NULL") {
			t.Error("vector search must exclude chunks without embeddings")
		}
		if !strings.Contains(query, "d.public = TRUE AND d.is_template = FALSE") {
			t.Error("vector search must enforce document visibility")
		}
		if !strings.Contains(query, "ORDER BY c.embedding <=> $1") {
			t.Error("vector search must order by cosine distance")
		}
	}
	if !strings.Contains(nearestChunksScopedSQL, "c.source_file = ANY($3)") {
		t.Error("scoped vector search must restrict by source file")
	}
	if !strings.Contains(chunksByHeadingSQL, "ORDER BY c.id") {
		t.Error("heading search must order by chunk id")
	}
	if !strings.Contains(chunksByHeadingSQL, "ILIKE ANY($2)") {
		t.Error("heading search must be case-insensitive pattern matching")
	}
}
