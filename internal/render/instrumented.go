package render

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/metrics"
)

// Instrumented records per-snapshot latency and failures of the wrapped
// renderer under the given name.
type Instrumented struct {
	next    Renderer
	name    string
	metrics *metrics.Metrics
}

func Instrument(next Renderer, name string, m *metrics.Metrics) Renderer {
	if m == nil {
		return next
	}
	return &Instrumented{next: next, name: name, metrics: m}
}

func (i *Instrumented) RenderState(ctx context.Context, s engine.Snapshot) error {
	start := time.Now()
	err := i.next.RenderState(ctx, s)
	i.metrics.RenderDuration.WithLabelValues(i.name).Observe(time.Since(start).Seconds())
	if err != nil {
		i.metrics.RenderErrorsTotal.WithLabelValues(i.name).Inc()
	}
	return err
}

func (i *Instrumented) Finalize(ctx context.Context) error {
	err := i.next.Finalize(ctx)
	if err != nil {
		i.metrics.RenderErrorsTotal.WithLabelValues(i.name).Inc()
	}
	return err
}
