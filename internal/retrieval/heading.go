package retrieval

import (
	"context"
	"fmt"

	"github.com/quillhq/quill/internal/log"
)

// HeadingRetriever fetches chunks from a scoped document set whose section
// headings match a fixed pattern set. This path exists for recency and
// structure (e.g. pulling a daily note's "Today's Focus" section), not
// semantic rank: results carry no similarity score and are ordered by
// chunk identifier for stability.
type HeadingRetriever struct {
	store  ChunkStore
	logger log.Logger
}

// NewHeadingRetriever creates a HeadingRetriever backed by the given store.
func NewHeadingRetriever(store ChunkStore, logger log.Logger) *HeadingRetriever {
	if logger == nil {
		logger = log.NewNop()
	}
	return &HeadingRetriever{store: store, logger: logger}
}

// ByHeading returns chunks whose sourceFile is in scope and whose heading
// case-insensitively matches any pattern. Either input set being empty
// short-circuits to an empty result without issuing a store query.
func (r *HeadingRetriever) ByHeading(ctx context.Context, sourceFiles, patterns []string, limit int) ([]ContentChunk, error) {
	if len(sourceFiles) == 0 || len(patterns) == 0 {
		return []ContentChunk{}, nil
	}

	chunks, err := r.store.ChunksByHeading(ctx, sourceFiles, patterns, limit)
	if err != nil {
		return nil, fmt.Errorf("heading search: %w", err)
	}

	r.logger.Debug("heading search executed",
		"scope", len(sourceFiles),
		"patterns", len(patterns),
		"matched", len(chunks),
	)
	return chunks, nil
}
