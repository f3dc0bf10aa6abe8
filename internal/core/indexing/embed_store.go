package indexing

import (
	"context"
	"fmt"

	"github.com/markdave123-py/Shopvora/internal/models"
)

// embedAndCollect consumes chunks, embeds them in batches and returns the rows
// ready to be stored.
//
// blogID:     current post ID.
// in:         chunk stream from streamChunk.
// batchSize:  number of chunks to embed per request.
func (i *BlogIndexer) embedAndCollect(ctx context.Context, blogID string, in <-chan chunk, batchSize int) ([]models.BlogChunk, error) {
	if batchSize <= 0 {
		batchSize = 16
	}
	var rows []models.BlogChunk
	batch := make([]chunk, 0, batchSize)

	flush := func(items []chunk) error {
		if len(items) == 0 {
			return nil
		}

		texts := make([]string, len(items))
		for idx := range items {
			texts[idx] = items[idx].Text
		}

		vecs, err := i.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}
		if len(vecs) != len(items) {
			return fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(items))
		}

		for k := range items {
			if i.cfg.EmbedDim > 0 && len(vecs[k]) != i.cfg.EmbedDim {
				return fmt.Errorf("embedding dimension %d, want %d", len(vecs[k]), i.cfg.EmbedDim)
			}
			rows = append(rows, models.BlogChunk{
				BlogID:     blogID,
				Text:       items[k].Text,
				Embedding:  vecs[k],
				Position:   items[k].Pos,
				TokenCount: items[k].TokenCnt,
			})
		}
		return nil
	}

	for c := range in {
		batch = append(batch, c)
		if len(batch) == batchSize {
			if err := flush(batch); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}
	if err := flush(batch); err != nil {
		return nil, err
	}
	return rows, nil
}
