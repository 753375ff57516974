package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/render"
	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/store"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/sqlite"
)

// sinkSet is the renderer assembled from the configured sinks plus the
// connections it owns.
type sinkSet struct {
	renderer render.Renderer
	closers  []io.Closer
}

func (s *sinkSet) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}

type sinkParams struct {
	cfg        *config.Config
	runID      string
	totalWords int
	out        io.Writer
	metrics    *metrics.Metrics
	checker    *health.Checker
}

func unavailable(sink string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperrors.ErrSinkUnavailable, sink, err)
}

// connect opens a client for a network sink, retrying with backoff.
func connect[T any](ctx context.Context, sink string, attempts int, open func() (T, error)) (T, error) {
	var client T
	err := resilience.Retry(ctx, "connect "+sink, resilience.RetryConfig{MaxAttempts: attempts},
		func(context.Context) error {
			c, err := open()
			if err != nil {
				return err
			}
			client = c
			return nil
		})
	if err != nil {
		return client, unavailable(sink, err)
	}
	return client, nil
}

// buildSinks connects every configured sink. On failure the connections
// opened so far are closed.
func buildSinks(ctx context.Context, p sinkParams) (_ *sinkSet, err error) {
	set := &sinkSet{}
	defer func() {
		if err != nil {
			set.Close()
		}
	}()

	cfg := p.cfg
	engineCfg := engine.ConfigFrom(cfg.Engine)
	var renderers render.Multi
	add := func(name string, r render.Renderer) {
		renderers = append(renderers, render.Instrument(r, name, p.metrics))
	}

	for _, sink := range cfg.Render.Sinks {
		switch sink {
		case "debug":
			add(sink, render.NewDebug(p.out, cfg.Render.DebugEvery, cfg.Engine.MaxQueueSize))
		case "progress":
			add(sink, render.NewProgress(p.out, p.totalWords))
		case "jsonl":
			j, err := render.CreateJSONLines(cfg.Render.OutputPath)
			if err != nil {
				return nil, err
			}
			add(sink, j)
		case "sqlite":
			client, err := sqlite.New(cfg.SQLite)
			if err != nil {
				return nil, unavailable(sink, err)
			}
			set.closers = append(set.closers, client)
			st, err := store.NewSQLite(ctx, client)
			if err != nil {
				return nil, unavailable(sink, err)
			}
			p.checker.Register(sink, client.DB.PingContext)
			add(sink, render.NewStoreRenderer(st, p.runID, engineCfg, cfg.Render.BatchSize))
		case "postgres":
			client, err := connect(ctx, sink, cfg.Render.ConnectAttempts, func() (*postgres.Client, error) {
				return postgres.New(cfg.Postgres)
			})
			if err != nil {
				return nil, err
			}
			set.closers = append(set.closers, client)
			st, err := store.NewPostgres(ctx, client)
			if err != nil {
				return nil, unavailable(sink, err)
			}
			p.checker.Register(sink, client.DB.PingContext)
			add(sink, render.NewStoreRenderer(st, p.runID, engineCfg, cfg.Render.BatchSize))
		case "redis":
			client, err := connect(ctx, sink, cfg.Render.ConnectAttempts, func() (*redis.Client, error) {
				return redis.NewClient(cfg.Redis)
			})
			if err != nil {
				return nil, err
			}
			set.closers = append(set.closers, client)
			p.checker.Register(sink, client.Ping)
			add(sink, render.NewCacheRenderer(client, cfg.Redis.KeyPrefix, p.runID, cfg.Redis.CacheTTL))
		case "kafka":
			producer := kafka.NewProducer(cfg.Kafka)
			set.closers = append(set.closers, producer)
			add(sink, render.NewPublishRenderer(producer, p.runID, cfg.Render.BatchSize))
		default:
			return nil, apperrors.Configf("render.sinks", "unknown sink %q", sink)
		}
	}

	if len(renderers) == 1 {
		set.renderer = renderers[0]
	} else {
		set.renderer = renderers
	}
	return set, nil
}
