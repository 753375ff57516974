package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/store"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/logger"
)

// StoreRenderer persists a run's snapshots, buffering up to batchSize frames
// per transaction. The run row is created on the first snapshot and marked
// finished with the frame count on Finalize.
type StoreRenderer struct {
	store     store.SnapshotStore
	runID     string
	cfg       engine.Config
	batchSize int
	buffer    []engine.Snapshot
	frames    int
	created   bool
	logger    *slog.Logger
}

// NewRunID returns a lexically sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

func NewStoreRenderer(st store.SnapshotStore, runID string, cfg engine.Config, batchSize int) *StoreRenderer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &StoreRenderer{
		store:     st,
		runID:     runID,
		cfg:       cfg,
		batchSize: batchSize,
		buffer:    make([]engine.Snapshot, 0, batchSize),
		logger:    logger.WithComponent("store-renderer").With("run_id", runID),
	}
}

// RunID is the ULID the snapshots are stored under.
func (r *StoreRenderer) RunID() string {
	return r.runID
}

func (r *StoreRenderer) RenderState(ctx context.Context, s engine.Snapshot) error {
	if err := r.ensureRun(ctx); err != nil {
		return err
	}
	r.buffer = append(r.buffer, s)
	if len(r.buffer) >= r.batchSize {
		return r.flush(ctx)
	}
	return nil
}

func (r *StoreRenderer) Finalize(ctx context.Context) error {
	if err := r.ensureRun(ctx); err != nil {
		return err
	}
	if err := r.flush(ctx); err != nil {
		return err
	}
	return r.store.FinishRun(ctx, r.runID, r.frames)
}

func (r *StoreRenderer) ensureRun(ctx context.Context) error {
	if r.created {
		return nil
	}
	if err := r.store.CreateRun(ctx, store.Run{ID: r.runID, StartedAt: time.Now(), Config: r.cfg}); err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	r.created = true
	return nil
}

func (r *StoreRenderer) flush(ctx context.Context) error {
	if len(r.buffer) == 0 {
		return nil
	}
	if err := r.store.SaveSnapshots(ctx, r.runID, r.buffer); err != nil {
		r.logger.Error("snapshot batch failed", "batch_size", len(r.buffer), "error", err)
		return err
	}
	r.frames += len(r.buffer)
	r.buffer = r.buffer[:0]
	return nil
}
