package indexing

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Shopvora/internal/core"
	"github.com/markdave123-py/Shopvora/internal/models"
)

// IndexConfig tunes the streaming pipeline.
//
// TargetTokens:   approximate tokens per chunk (e.g., 200).
// OverlapTokens:  token overlap between consecutive chunks for context bleed (e.g., 20).
// BatchSize:      how many chunks to embed in one request (e.g., 16).
// EmbedDim:       expected embedding dimension; vectors of another size are rejected (0 = unchecked).
type IndexConfig struct {
	TargetTokens  int
	OverlapTokens int
	BatchSize     int
	EmbedDim      int
}

// chunk is the internal representation passed through the pipeline.
//
// Pos:      stable, zero-based position of the chunk inside the post.
// Text:     chunk content (built from one or more fragments).
// TokenCnt: approximate token count (used for batching and overlap math).
type chunk struct {
	Pos      int
	Text     string
	TokenCnt int
}

// Store is the slice of the database the indexer touches.
type Store interface {
	GetBlogByID(ctx context.Context, id string) (*models.BlogRow, error)
	ReplaceBlogChunks(ctx context.Context, blogID string, chunks []models.BlogChunk) error
}

// Indexer schedules blog posts for assistant indexing.
type Indexer interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(blogID string)
}

// BlogIndexer orchestrates the background indexing pipeline:
//
// db:        reads posts and stores their chunks.
// embedder:  embedding provider.
// extractor: HTML -> text fragments.
// cfg:       runtime tuning knobs for the pipeline.
// jobs:      in-memory queue of blog IDs to process.
type BlogIndexer struct {
	db        Store
	embedder  core.EmbeddingProvider
	extractor core.TextExtractor
	cfg       *IndexConfig
	jobs      chan string
	log       zerolog.Logger
}

// DocconvExtractor implements core.TextExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
}
