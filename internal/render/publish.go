package render

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/kafka"
)

// Publisher is the subset of the Kafka producer the publish renderer needs.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// SnapshotEvent is the message value published for each frame.
type SnapshotEvent struct {
	RunID string `json:"run_id"`
	engine.Snapshot
}

// PublishRenderer sends snapshots to Kafka keyed by run ID, batchSize events
// per write. Keying by run keeps one run's frames on one partition, in order.
type PublishRenderer struct {
	pub       Publisher
	runID     string
	batchSize int
	buffer    []kafka.Event
}

func NewPublishRenderer(pub Publisher, runID string, batchSize int) *PublishRenderer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PublishRenderer{
		pub:       pub,
		runID:     runID,
		batchSize: batchSize,
		buffer:    make([]kafka.Event, 0, batchSize),
	}
}

func (p *PublishRenderer) RenderState(ctx context.Context, s engine.Snapshot) error {
	p.buffer = append(p.buffer, kafka.Event{
		Key:   p.runID,
		Value: SnapshotEvent{RunID: p.runID, Snapshot: s},
	})
	if len(p.buffer) >= p.batchSize {
		return p.flush(ctx)
	}
	return nil
}

func (p *PublishRenderer) Finalize(ctx context.Context) error {
	return p.flush(ctx)
}

func (p *PublishRenderer) flush(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}
	if err := p.pub.PublishBatch(ctx, p.buffer); err != nil {
		return err
	}
	p.buffer = make([]kafka.Event, 0, p.batchSize)
	return nil
}
