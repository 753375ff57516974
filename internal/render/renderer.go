// Package render turns the engine's snapshot sequence into output: terminal
// views, a JSON-lines file, database rows, a Redis cache and a Kafka topic.
package render

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/logger"
)

// Renderer consumes snapshots in frame order. Finalize is called exactly once
// after the last RenderState, including when rendering stopped early.
type Renderer interface {
	RenderState(ctx context.Context, s engine.Snapshot) error
	Finalize(ctx context.Context) error
}

// Run feeds every snapshot of seq to r and always finalizes r. It stops at
// the first upstream error, render error or context cancellation, and returns
// the number of frames rendered together with every error encountered.
func Run(ctx context.Context, r Renderer, seq iter.Seq2[engine.Snapshot, error]) (frames int, err error) {
	log := logger.FromContext(ctx)
	defer func() {
		// Finalize must run even after cancellation so sinks can flush.
		if ferr := r.Finalize(context.WithoutCancel(ctx)); ferr != nil {
			err = errors.Join(err, fmt.Errorf("finalizing renderer: %w", ferr))
		}
		log.Debug("render run ended", "frames", frames, "error", err)
	}()

	for snap, serr := range seq {
		if serr != nil {
			return frames, serr
		}
		if cerr := ctx.Err(); cerr != nil {
			return frames, cerr
		}
		if rerr := r.RenderState(ctx, snap); rerr != nil {
			return frames, fmt.Errorf("rendering frame %d: %w", snap.Frame, rerr)
		}
		frames++
	}
	return frames, nil
}
