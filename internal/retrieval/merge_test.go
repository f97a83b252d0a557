package retrieval

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func chunkIDs(chunks []ContentChunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

func TestMergeChunksHeadingFirst(t *testing.T) {
	sim := 0.91
	heading := []ContentChunk{
		{ID: "3", Heading: "Today's Focus"},
		{ID: "1", Heading: "Log"},
	}
	vector := []ContentChunk{
		{ID: "5", Similarity: &sim},
		{ID: "3", Similarity: &sim}, // duplicate of a heading match
		{ID: "8", Similarity: &sim},
	}

	merged := MergeChunks(heading, vector)

	want := []string{"3", "1", "5", "8"}
	if got := chunkIDs(merged); !reflect.DeepEqual(got, want) {
		t.Errorf("merged order = %v, want %v", got, want)
	}
	// The first occurrence wins: the kept "3" is the unscored heading match.
	if merged[0].Similarity != nil {
		t.Error("duplicate chunk must keep the heading-path version")
	}
}

func TestMergeChunksIdempotent(t *testing.T) {
	a := []ContentChunk{{ID: "1"}, {ID: "2"}}
	b := []ContentChunk{{ID: "2"}, {ID: "3"}}

	once := MergeChunks(a, b)
	twice := MergeChunks(once, b)

	if !reflect.DeepEqual(chunkIDs(once), chunkIDs(twice)) {
		t.Errorf("merge not idempotent: %v vs %v", chunkIDs(once), chunkIDs(twice))
	}
}

func TestMergeChunksEmptyInputs(t *testing.T) {
	if got := MergeChunks(nil, nil); len(got) != 0 {
		t.Errorf("got %d chunks, want 0", len(got))
	}
	if got := MergeChunks(nil, []ContentChunk{{ID: "1"}}); len(got) != 1 {
		t.Errorf("got %d chunks, want 1", len(got))
	}
}

func TestRenderContextSentinel(t *testing.T) {
	got := RenderContext(nil, nil)
	if got != NoContextSentinel {
		t.Errorf("RenderContext = %q, want sentinel", got)
	}
	// Stable across calls.
	if again := RenderContext([]DocumentSummary{}, []ContentChunk{}); again != got {
		t.Errorf("sentinel not stable: %q vs %q", again, got)
	}
}

func TestRenderContextNumbering(t *testing.T) {
	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	docs := []DocumentSummary{
		{SourceFile: "projects/quill.md", Title: "Quill", DocType: "project", Status: "active"},
		{SourceFile: "daily/2026-08-29.md", DocType: "daily-note", DocDate: &date},
	}
	chunks := []ContentChunk{
		{ID: "10", SourceFile: "daily/2026-08-29.md", Heading: "Today's Focus", Content: "Ship the retriever."},
		{ID: "11", SourceFile: "notes/scratch.md", Content: "Loose thought."},
	}

	out := RenderContext(docs, chunks)

	for _, want := range []string{
		"Source 1: projects/quill.md",
		"Source 2: daily/2026-08-29.md",
		"Source 3: daily/2026-08-29.md",
		"Source 4: notes/scratch.md",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "# Today's Focus") {
		t.Errorf("output missing chunk heading:\n%s", out)
	}
	if !strings.Contains(out, "Untitled section") {
		t.Errorf("heading-less chunk must render %q:\n%s", "Untitled section", out)
	}
	if !strings.Contains(out, "Date: 2026-08-29") {
		t.Errorf("output missing document date:\n%s", out)
	}
	if strings.Contains(out, "Project:") {
		t.Error("absent fields must be omitted")
	}
}

func TestRenderContextDocumentFields(t *testing.T) {
	progress := 0.6
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	docs := []DocumentSummary{{
		SourceFile:  "goals/q3.md",
		Title:       "Q3 Goals",
		DocType:     "goal",
		Project:     "quill",
		Status:      "active",
		Progress:    &progress,
		GoalHorizon: "quarter",
		PeriodStart: &start,
		PeriodEnd:   &end,
		Tags:        []string{"planning", "okr"},
	}}

	out := RenderContext(docs, nil)

	for _, want := range []string{
		"Source 1: goals/q3.md",
		"Title: Q3 Goals",
		"Type: goal",
		"Project: quill",
		"Status: active",
		"Progress: 0.6",
		"Goal horizon: quarter",
		"Period: 2026-07-01 to 2026-09-30",
		"Tags: planning, okr",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderContextChunksOnly(t *testing.T) {
	chunks := []ContentChunk{
		{ID: "1", SourceFile: "notes/a.md", Heading: "Ideas", Content: "alpha"},
	}

	out := RenderContext(nil, chunks)

	if !strings.HasPrefix(out, "Source 1: notes/a.md") {
		t.Errorf("chunk numbering must start at 1 with no documents:\n%s", out)
	}
	if out == NoContextSentinel {
		t.Error("non-empty input must not render the sentinel")
	}
}
