package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/render"
	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/store"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/sqlite"
)

type runsOptions struct {
	backend string
	limit   int
	latest  string
	top     string
	frames  string
}

func newRunsCmd(global *globalOptions) *cobra.Command {
	opts := &runsOptions{}
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored render runs, or read back the snapshots of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig(nil)
			if err != nil {
				return err
			}
			return runRuns(cmd, cfg, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "sqlite", "Where to read: sqlite, postgres or redis")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 20, "Max runs to list, or words to print with --top")
	cmd.Flags().StringVar(&opts.latest, "latest", "", "Print the latest snapshot of this run as JSON")
	cmd.Flags().StringVar(&opts.top, "top", "", "Print the ranked top words of this run's latest snapshot")
	cmd.Flags().StringVar(&opts.frames, "frames", "", "Print every stored frame of this run as JSON lines")
	cmd.MarkFlagsMutuallyExclusive("latest", "top", "frames")
	return cmd
}

func runRuns(cmd *cobra.Command, cfg *config.Config, opts *runsOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var st *store.SQLStore
	switch opts.backend {
	case "sqlite":
		client, err := sqlite.New(cfg.SQLite)
		if err != nil {
			return unavailable(opts.backend, err)
		}
		defer client.Close()
		if st, err = store.NewSQLite(ctx, client); err != nil {
			return unavailable(opts.backend, err)
		}
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return unavailable(opts.backend, err)
		}
		defer client.Close()
		if st, err = store.NewPostgres(ctx, client); err != nil {
			return unavailable(opts.backend, err)
		}
	case "redis":
		if opts.latest == "" && opts.top == "" {
			return apperrors.Configf("backend", "redis keeps only the latest snapshot; use --latest or --top")
		}
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return unavailable(opts.backend, err)
		}
		defer client.Close()
		return readCachedRun(ctx, out, client, cfg.Redis.KeyPrefix, opts)
	default:
		return apperrors.Configf("backend", "unknown store backend %q", opts.backend)
	}

	switch {
	case opts.latest != "" || opts.top != "":
		runID := opts.latest + opts.top
		snap, err := st.LatestSnapshot(ctx, runID)
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("run %s: %w", runID, store.ErrRunNotFound)
		}
		if opts.top != "" {
			return writeRanking(out, snap.TopWords[:min(len(snap.TopWords), max(opts.limit, 0))])
		}
		return writeJSON(out, snap)
	case opts.frames != "":
		snaps, err := st.Snapshots(ctx, opts.frames)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			return fmt.Errorf("run %s: %w", opts.frames, store.ErrRunNotFound)
		}
		enc := json.NewEncoder(out)
		for _, snap := range snaps {
			if err := enc.Encode(snap); err != nil {
				return err
			}
		}
		return nil
	}

	runs, err := st.ListRuns(ctx, opts.limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tFRAMES\tQUEUE\tSTATUS")
	for _, run := range runs {
		status := "running"
		if run.Finished() {
			status = "done " + run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			run.ID, run.StartedAt.Format(time.RFC3339), run.Frames, run.Config.MaxQueueSize, status)
	}
	return tw.Flush()
}

// readCachedRun serves --latest and --top from the keys a cache sink wrote.
func readCachedRun(ctx context.Context, w io.Writer, cache render.CacheReader, keyPrefix string, opts *runsOptions) error {
	if opts.top != "" {
		words, err := render.CachedTopWords(ctx, cache, keyPrefix, opts.top, opts.limit)
		if err != nil {
			return err
		}
		return writeRanking(w, words)
	}
	snap, err := render.CachedSnapshot(ctx, cache, keyPrefix, opts.latest)
	if err != nil {
		return err
	}
	return writeJSON(w, snap)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRanking(w io.Writer, words []engine.WordCount) error {
	for i, wc := range words {
		if _, err := fmt.Fprintf(w, "%3d. %-20s %4d\n", i+1, wc.Word, wc.Count); err != nil {
			return err
		}
	}
	return nil
}
