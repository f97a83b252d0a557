// Package retrieval executes a query plan against the knowledge base.
//
// It offers three retrieval paths — structured document filtering, vector
// similarity search, and heading-pattern search — plus merging and context
// rendering. Storage is abstracted behind consumer-defined interfaces
// (DocumentStore, ChunkStore) so the distance/predicate encoding stays
// inside the store adapter (see internal/postgres).
package retrieval

import (
	"context"
	"time"
)

// DocumentSummary is the structured metadata projection of a knowledge
// document. Only documents with public=true and is_template=false are ever
// returned by a store; that visibility invariant is enforced at every
// query site in the adapter and cannot be relaxed by a plan.
type DocumentSummary struct {
	SourceFile  string
	Title       string
	DocType     string
	DocDate     *time.Time
	Tags        []string
	Project     string
	Status      string
	Progress    *float64
	GoalHorizon string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// ContentChunk is a retrievable section of a document. Similarity is the
// cosine similarity in [0,1] for vector-ranked results and nil for
// heading-matched results, which carry no ranking score.
type ContentChunk struct {
	ID         string
	SourceFile string
	Heading    string
	Content    string
	Similarity *float64
}

// DocumentFilter is the sanitized predicate set handed to a DocumentStore.
// Empty slices and zero values mean "no constraint"; the store always adds
// the visibility predicates on top.
type DocumentFilter struct {
	DocTypes  []string
	Statuses  []string
	Tags      []string
	Project   string
	DateStart string // inclusive, YYYY-MM-DD; both set or both empty
	DateEnd   string
	Limit     int
}

// DocumentStore fetches document metadata matching a filter.
// Implementations must order results by document date descending, then
// last-updated descending, with a deterministic tiebreak.
type DocumentStore interface {
	SelectDocuments(ctx context.Context, f DocumentFilter) ([]DocumentSummary, error)
}

// ChunkStore fetches content chunks. Implementations rank NearestChunks by
// ascending cosine distance and must exclude chunks without embeddings and
// chunks of template documents. sourceFiles == nil means unscoped (public
// documents only); callers never pass an empty non-nil scope — retrievers
// short-circuit that case before reaching the store.
type ChunkStore interface {
	NearestChunks(ctx context.Context, embedding []float32, limit int, sourceFiles []string) ([]ContentChunk, error)
	ChunksByHeading(ctx context.Context, sourceFiles, headingPatterns []string, limit int) ([]ContentChunk, error)
}

// DailyHeadingPatterns is the fixed set of section-heading patterns used
// for "today"-style recency queries. Patterns are case-insensitive
// wildcard substrings (SQL LIKE syntax), matched by ChunksByHeading.
var DailyHeadingPatterns = []string{
	"%today's focus%",
	"%today's plan%",
	"%log%",
}
