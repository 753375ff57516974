// Package store persists rendering runs and their snapshot frames in
// PostgreSQL or SQLite.
//
// Both backends share one schema:
//
//	CREATE TABLE timecloud_runs (
//	    id          TEXT PRIMARY KEY,
//	    started_at  BIGINT NOT NULL,
//	    finished_at BIGINT,
//	    frames      INTEGER NOT NULL DEFAULT 0,
//	    config      TEXT NOT NULL
//	);
//	CREATE TABLE timecloud_snapshots (
//	    run_id  TEXT NOT NULL REFERENCES timecloud_runs(id),
//	    frame   INTEGER NOT NULL,
//	    total   INTEGER NOT NULL,
//	    data    JSONB NOT NULL,  -- TEXT on SQLite
//	    PRIMARY KEY (run_id, frame)
//	);
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/sqlite"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run describes one rendering pass over the corpus.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Frames     int
	Config     engine.Config
}

// Finished reports whether FinishRun was recorded for the run.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// SnapshotStore is the persistence contract the store renderer writes through.
type SnapshotStore interface {
	CreateRun(ctx context.Context, run Run) error
	SaveSnapshots(ctx context.Context, runID string, snaps []engine.Snapshot) error
	FinishRun(ctx context.Context, runID string, frames int) error
	LatestSnapshot(ctx context.Context, runID string) (*engine.Snapshot, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// SQLStore implements SnapshotStore over database/sql.
type SQLStore struct {
	db      *sql.DB
	inTx    func(context.Context, func(*sql.Tx) error) error
	dialect dialect
	logger  *slog.Logger
}

// NewPostgres migrates the schema and returns a store backed by PostgreSQL.
func NewPostgres(ctx context.Context, client *postgres.Client) (*SQLStore, error) {
	s := &SQLStore{
		db:      client.DB,
		inTx:    client.InTx,
		dialect: dialectPostgres,
		logger:  logger.WithComponent("snapshot-store").With("backend", "postgres"),
	}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrating postgres schema: %w", err)
	}
	return s, nil
}

// NewSQLite migrates the schema and returns a store backed by SQLite.
func NewSQLite(ctx context.Context, client *sqlite.Client) (*SQLStore, error) {
	s := &SQLStore{
		db:      client.DB,
		inTx:    client.InTx,
		dialect: dialectSQLite,
		logger:  logger.WithComponent("snapshot-store").With("backend", "sqlite"),
	}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrating sqlite schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	dataType := "JSONB"
	if s.dialect == dialectSQLite {
		dataType = "TEXT"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS timecloud_runs (
			id          TEXT PRIMARY KEY,
			started_at  BIGINT NOT NULL,
			finished_at BIGINT,
			frames      INTEGER NOT NULL DEFAULT 0,
			config      TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS timecloud_snapshots (
			run_id  TEXT NOT NULL REFERENCES timecloud_runs(id),
			frame   INTEGER NOT NULL,
			total   INTEGER NOT NULL,
			data    ` + dataType + ` NOT NULL,
			PRIMARY KEY (run_id, frame)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON timecloud_runs(started_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// q rewrites $N placeholders for SQLite, which spells them ?N.
func (s *SQLStore) q(query string) string {
	if s.dialect == dialectSQLite {
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}

func (s *SQLStore) CreateRun(ctx context.Context, run Run) error {
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshaling run config: %w", err)
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		s.q(`INSERT INTO timecloud_runs (id, started_at, frames, config) VALUES ($1, $2, 0, $3)`),
		run.ID, started.UnixMilli(), string(cfg),
	)
	if err != nil {
		return fmt.Errorf("creating run %s: %w", run.ID, err)
	}
	s.logger.Info("run created", "run_id", run.ID)
	return nil
}

// SaveSnapshots inserts a batch of frames in one transaction.
func (s *SQLStore) SaveSnapshots(ctx context.Context, runID string, snaps []engine.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			s.q(`INSERT INTO timecloud_snapshots (run_id, frame, total, data) VALUES ($1, $2, $3, $4)`))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, snap := range snaps {
			data, err := json.Marshal(snap)
			if err != nil {
				return fmt.Errorf("marshaling frame %d: %w", snap.Frame, err)
			}
			// lib/pq sends []byte as bytea, so JSON goes over as text.
			if _, err := stmt.ExecContext(ctx, runID, snap.Frame, snap.TotalWordsProcessed, string(data)); err != nil {
				return fmt.Errorf("inserting frame %d: %w", snap.Frame, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving snapshots for run %s: %w", runID, err)
	}
	s.logger.Debug("snapshots saved", "run_id", runID, "count", len(snaps))
	return nil
}

func (s *SQLStore) FinishRun(ctx context.Context, runID string, frames int) error {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE timecloud_runs SET finished_at = $1, frames = $2 WHERE id = $3`),
		time.Now().UnixMilli(), frames, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing run %s: %w", runID, ErrRunNotFound)
	}
	s.logger.Info("run finished", "run_id", runID, "frames", frames)
	return nil
}

// LatestSnapshot loads the highest-numbered frame of a run.
// Returns nil, nil if the run has no frames yet.
func (s *SQLStore) LatestSnapshot(ctx context.Context, runID string) (*engine.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT data FROM timecloud_snapshots WHERE run_id = $1 ORDER BY frame DESC LIMIT 1`),
		runID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &snap, nil
}

// Snapshots returns every stored frame of a run in frame order.
func (s *SQLStore) Snapshots(ctx context.Context, runID string) ([]engine.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT data FROM timecloud_snapshots WHERE run_id = $1 ORDER BY frame`),
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []engine.Snapshot
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var snap engine.Snapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "run_id", runID, "error", err)
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// ListRuns returns the last limit runs, newest first.
func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id, started_at, finished_at, frames, config FROM timecloud_runs
			ORDER BY started_at DESC, id DESC LIMIT $1`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  int64
			finished sql.NullInt64
			cfg      string
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.Frames, &cfg); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		run.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			run.FinishedAt = time.UnixMilli(finished.Int64)
		}
		if err := json.Unmarshal([]byte(cfg), &run.Config); err != nil {
			s.logger.Warn("run has unreadable config", "run_id", run.ID, "error", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
