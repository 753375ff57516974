package render

import (
	"context"
	"errors"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
)

// Multi fans each snapshot out to several renderers in order.
type Multi []Renderer

func (m Multi) RenderState(ctx context.Context, s engine.Snapshot) error {
	for _, r := range m {
		if err := r.RenderState(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Finalize finalizes every renderer, even when some fail.
func (m Multi) Finalize(ctx context.Context) error {
	var errs []error
	for _, r := range m {
		if err := r.Finalize(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
