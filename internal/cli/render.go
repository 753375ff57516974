package cli

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/render"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/metrics"
)

type renderOptions struct {
	pipeline    pipelineFlags
	sinks       []string
	output      string
	debugEvery  int
	metricsPort int
}

func newRenderCmd(global *globalOptions) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Stream snapshots of the sliding window to the configured sinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig(func(cfg *config.Config) {
				opts.pipeline.apply(cmd, cfg)
				opts.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			return runRender(cmd, cfg)
		},
	}
	opts.pipeline.register(cmd)
	f := cmd.Flags()
	f.StringSliceVarP(&opts.sinks, "sink", "s", nil, "Sink: debug, progress, jsonl, sqlite, postgres, redis, kafka (repeatable)")
	f.StringVarP(&opts.output, "output", "o", "snapshots.jsonl", "Output file for the jsonl sink")
	f.IntVar(&opts.debugEvery, "debug-every", 100, "Print every Nth state with the debug sink")
	f.IntVar(&opts.metricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port")
	return cmd
}

func (o *renderOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("sink") {
		cfg.Render.Sinks = o.sinks
	}
	if f.Changed("output") {
		cfg.Render.OutputPath = o.output
	}
	if f.Changed("debug-every") {
		cfg.Render.DebugEvery = o.debugEvery
	}
	if f.Changed("metrics-port") {
		cfg.Metrics.Enabled = o.metricsPort > 0
		cfg.Metrics.Port = o.metricsPort
	}
}

func runRender(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	m := metrics.New()
	checker := health.NewChecker()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, m.Handler(), map[string]http.Handler{
			"/readyz": checker.ReadyHandler(),
		})
		defer stopMetricsServer(logger.WithComponent("metrics"), shutdown)
	}

	words, err := loadWords(ctx, cfg, m)
	if err != nil {
		return err
	}

	runID := render.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", "render")

	sinks, err := buildSinks(ctx, sinkParams{
		cfg:        cfg,
		runID:      runID,
		totalWords: len(words),
		out:        cmd.OutOrStdout(),
		metrics:    m,
		checker:    checker,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sinks.Close(); cerr != nil {
			log.Warn("closing sinks", "error", cerr)
		}
	}()

	engineCfg := engine.ConfigFrom(cfg.Engine)
	seq, err := engine.Stream(engineCfg, slices.Values(words),
		engine.WithMetrics(m),
		engine.WithLogger(logger.FromContext(ctx).With("component", "engine")),
	)
	if err != nil {
		return err
	}

	log.Info("processing words",
		"words", len(words),
		"words_per_frame", engineCfg.WordsPerFrame,
		"sinks", cfg.Render.Sinks,
	)
	start := time.Now()
	frames, err := render.Run(ctx, sinks.renderer, seq)
	if err != nil {
		log.Error("render failed", "frames", frames, "error", err)
		return err
	}
	log.Info("render complete",
		"frames", frames,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func stopMetricsServer(log *slog.Logger, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn("stopping metrics server", "error", err)
	}
}
