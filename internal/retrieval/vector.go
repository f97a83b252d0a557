package retrieval

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"

	"github.com/quillhq/quill/internal/log"
)

// EmbeddingDimensions is the vector dimensionality of the content_chunks
// schema. The embedding provider must be configured to produce exactly
// this many dimensions; anything else is a hard failure, never silently
// truncated or padded.
const EmbeddingDimensions = 768

// VectorRetriever embeds query text and fetches nearest-neighbor content
// chunks from the vector-capable store.
type VectorRetriever struct {
	embedder  ai.Embedder
	store     ChunkStore
	dim       int
	embedOpts any
	logger    log.Logger
}

// NewVectorRetriever creates a VectorRetriever. dim is the expected
// embedding dimensionality; 0 means EmbeddingDimensions.
func NewVectorRetriever(embedder ai.Embedder, store ChunkStore, dim int, logger log.Logger) *VectorRetriever {
	if dim <= 0 {
		dim = EmbeddingDimensions
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &VectorRetriever{embedder: embedder, store: store, dim: dim, logger: logger}
}

// PinProviderDimensions requests exactly the configured dimensionality
// from providers with variable output size. Gemini embedding models
// default to 3072 dimensions, which would never fit the chunk schema.
func (r *VectorRetriever) PinProviderDimensions() {
	dim := int32(r.dim)
	r.embedOpts = &genai.EmbedContentConfig{OutputDimensionality: &dim}
}

// Embed generates the query embedding for text.
// A dimensionality mismatch from the provider is returned as an error.
func (r *VectorRetriever) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := r.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
		Options: r.embedOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("generating query embedding: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned for query")
	}

	vec := resp.Embeddings[0].Embedding
	if len(vec) != r.dim {
		return nil, fmt.Errorf("embedding dimensions mismatch: expected %d, received %d", r.dim, len(vec))
	}
	return vec, nil
}

// Nearest returns the limit most similar chunks across all public,
// non-template documents.
func (r *VectorRetriever) Nearest(ctx context.Context, embedding []float32, limit int) ([]ContentChunk, error) {
	chunks, err := r.store.NearestChunks(ctx, embedding, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return chunks, nil
}

// NearestIn returns the limit most similar chunks restricted to the given
// source files. An empty scope short-circuits to an empty result without
// issuing a store query.
func (r *VectorRetriever) NearestIn(ctx context.Context, embedding []float32, sourceFiles []string, limit int) ([]ContentChunk, error) {
	if len(sourceFiles) == 0 {
		return []ContentChunk{}, nil
	}

	chunks, err := r.store.NearestChunks(ctx, embedding, limit, sourceFiles)
	if err != nil {
		return nil, fmt.Errorf("scoped vector search: %w", err)
	}
	return chunks, nil
}
