package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pgvector/pgvector-go"

	"github.com/quillhq/quill/internal/retrieval"
)

const nearestChunksSQL = `SELECT c.id, c.source_file, c.heading, c.content,
	1 - (c.embedding <=> $1) AS similarity
FROM content_chunks c
JOIN documents d ON d.source_file = c.source_file
WHERE c.embedding IS NOT NULL
  AND d.public = TRUE AND d.is_template = FALSE
ORDER BY c.embedding <=> $1
LIMIT $2`

const nearestChunksScopedSQL = `SELECT c.id, c.source_file, c.heading, c.content,
	1 - (c.embedding <=> $1) AS similarity
FROM content_chunks c
JOIN documents d ON d.source_file = c.source_file
WHERE c.embedding IS NOT NULL
  AND d.public = TRUE AND d.is_template = FALSE
  AND c.source_file = ANY($3)
ORDER BY c.embedding <=> $1
LIMIT $2`

const chunksByHeadingSQL = `SELECT c.id, c.source_file, c.heading, c.content
FROM content_chunks c
JOIN documents d ON d.source_file = c.source_file
WHERE d.public = TRUE AND d.is_template = FALSE
  AND c.source_file = ANY($1)
  AND c.heading ILIKE ANY($2)
ORDER BY c.id
LIMIT $3`

// NearestChunks implements retrieval.ChunkStore. Results are ordered by
// ascending cosine distance; sourceFiles == nil searches all public
// documents.
func (s *Store) NearestChunks(ctx context.Context, embedding []float32, limit int, sourceFiles []string) ([]retrieval.ContentChunk, error) {
	vec := pgvector.NewVector(embedding)

	query := nearestChunksSQL
	args := []any{vec, limit}
	if sourceFiles != nil {
		query = nearestChunksScopedSQL
		args = append(args, sourceFiles)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching chunks by vector: %w", err)
	}
	defer rows.Close()

	chunks := make([]retrieval.ContentChunk, 0, limit)
	for rows.Next() {
		var (
			id         int64
			c          retrieval.ContentChunk
			similarity float64
		)
		if err := rows.Scan(&id, &c.SourceFile, &c.Heading, &c.Content, &similarity); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		c.ID = strconv.FormatInt(id, 10)
		c.Similarity = &similarity
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk rows: %w", err)
	}
	return chunks, nil
}

// ChunksByHeading implements retrieval.ChunkStore. Matches are ordered by
// chunk id, which follows the section order within each document. The
// results carry no similarity score.
func (s *Store) ChunksByHeading(ctx context.Context, sourceFiles, headingPatterns []string, limit int) ([]retrieval.ContentChunk, error) {
	rows, err := s.pool.Query(ctx, chunksByHeadingSQL, sourceFiles, headingPatterns, limit)
	if err != nil {
		return nil, fmt.Errorf("searching chunks by heading: %w", err)
	}
	defer rows.Close()

	chunks := make([]retrieval.ContentChunk, 0, limit)
	for rows.Next() {
		var (
			id int64
			c  retrieval.ContentChunk
		)
		if err := rows.Scan(&id, &c.SourceFile, &c.Heading, &c.Content); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		c.ID = strconv.FormatInt(id, 10)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk rows: %w", err)
	}
	return chunks, nil
}
