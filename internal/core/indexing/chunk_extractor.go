package indexing

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// streamChunk groups incoming fragments into token-bounded chunks with optional overlap.
//
// frags:          upstream fragments channel.
// targetTokens:   approximate tokens per chunk.
// overlapTokens:  tokens to retain from the end of the previous chunk as seed of the next.
// out:            receive-only channel of chunk structs with Pos/Text/TokenCnt.
func streamChunk(
	ctx context.Context,
	g *errgroup.Group,
	frags <-chan string,
	targetTokens int,
	overlapTokens int,
) <-chan chunk {
	out := make(chan chunk, 8)

	g.Go(func() error {
		defer close(out)

		var (
			buf    []string
			tokSum int
			pos    int
			// fresh counts tokens added since the last emit, so a tail made
			// only of overlap is never emitted again.
			fresh int
		)

		flush := func() error {
			if fresh == 0 {
				return nil
			}
			ch := chunk{Pos: pos, Text: strings.Join(buf, "\n"), TokenCnt: tokSum}
			pos++

			select {
			case out <- ch:
			case <-ctx.Done():
				return ctx.Err()
			}

			// keep a tail whose token sum ≈ overlapTokens
			keep := []string{}
			if overlapTokens > 0 {
				remain := overlapTokens
				for j := len(buf) - 1; j >= 0 && remain > 0; j-- {
					keep = append([]string{buf[j]}, keep...)
					remain -= approxTokens(buf[j])
				}
			}
			buf = keep
			tokSum = 0
			for _, s := range buf {
				tokSum += approxTokens(s)
			}
			fresh = 0
			return nil
		}

		for frag := range frags {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			t := approxTokens(frag)
			buf = append(buf, frag)
			tokSum += t
			fresh += t

			if tokSum >= targetTokens {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		return flush()
	})

	return out
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
