package indexing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Shopvora/internal/core"
	"github.com/markdave123-py/Shopvora/internal/models"
)

var _ Indexer = (*BlogIndexer)(nil)

// NewBlogIndexer constructs the indexer with a bounded job queue (64).
func NewBlogIndexer(db Store, emb core.EmbeddingProvider, extractor core.TextExtractor, cfg *IndexConfig, logger zerolog.Logger) *BlogIndexer {
	return &BlogIndexer{
		db: db, embedder: emb, extractor: extractor, cfg: cfg,
		jobs: make(chan string, 64),
		log:  logger.With().Str("component", "indexer").Logger(),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel until ctx ends.
func (i *BlogIndexer) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					i.log.Debug().Int("worker", w).Msg("worker shutting down")
					return
				case blogID := <-i.jobs:
					if err := i.ProcessOne(ctx, blogID); err != nil {
						i.log.Error().Err(err).Str("blog_id", blogID).Int("worker", w).Msg("indexing failed")
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a post for indexing. A full queue drops the job with a
// warning rather than blocking the admin request.
func (i *BlogIndexer) Enqueue(blogID string) {
	select {
	case i.jobs <- blogID:
	default:
		i.log.Warn().Str("blog_id", blogID).Msg("index queue full, dropping job")
	}
}

// ProcessOne extracts, chunks, embeds and stores the chunks of one post.
// A post that no longer exists is skipped.
func (i *BlogIndexer) ProcessOne(ctx context.Context, blogID string) error {
	proctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	post, err := i.db.GetBlogByID(proctx, blogID)
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}
	if post == nil {
		i.log.Debug().Str("blog_id", blogID).Msg("post gone, skipping")
		return nil
	}

	g, gctx := errgroup.WithContext(proctx)

	// post HTML -> fragments
	fragCh, err := i.extractor.ExtractText(gctx, g, []byte(post.Title+"\n"+post.Content), "text/html")
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	// fragments -> chunks
	chunkCh := streamChunk(gctx, g, fragCh, i.cfg.TargetTokens, i.cfg.OverlapTokens)

	// chunks -> embeddings
	var rows []models.BlogChunk
	g.Go(func() error {
		var err error
		rows, err = i.embedAndCollect(gctx, blogID, chunkCh, i.cfg.BatchSize)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if err := i.db.ReplaceBlogChunks(proctx, blogID, rows); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	i.log.Info().Str("blog_id", blogID).Int("chunks", len(rows)).Msg("post indexed")
	return nil
}
