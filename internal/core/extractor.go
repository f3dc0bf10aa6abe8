package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// TextExtractor turns stored markup into plain-text fragments.
type TextExtractor interface {
	// ExtractText returns a channel of non-empty text fragments, closed when extraction completes.
	// The `contentType` hint helps the extractor choose the right parsing strategy.
	ExtractText(ctx context.Context, g *errgroup.Group, data []byte, contentType string) (<-chan string, error)
}
