package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/metrics"
)

type topOptions struct {
	pipeline pipelineFlags
	limit    int
	format   string
	verify   bool
}

func newTopCmd(global *globalOptions) *cobra.Command {
	opts := &topOptions{}
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Process the whole corpus and print the final window's top words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig(func(cfg *config.Config) {
				opts.pipeline.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			return runTop(cmd, cfg, opts)
		},
	}
	opts.pipeline.register(cmd)
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Words to print (default: display-words)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "Check window invariants after processing")
	return cmd
}

func runTop(cmd *cobra.Command, cfg *config.Config, opts *topOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return apperrors.Configf("format", "unknown output format %q, want text or json", opts.format)
	}
	words, err := loadWords(cmd.Context(), cfg, metrics.New())
	if err != nil {
		return err
	}
	e, err := engine.New(engine.ConfigFrom(cfg.Engine))
	if err != nil {
		return err
	}
	for _, w := range words {
		if err := e.Ingest(w); err != nil {
			return err
		}
	}
	if opts.verify {
		if err := e.Verify(); err != nil {
			return err
		}
	}
	snap := e.Snapshot()
	snap.TopWords = e.TopWords(opts.limit)
	return writeTop(cmd.OutOrStdout(), snap, opts.format)
}

func writeTop(w io.Writer, snap engine.Snapshot, format string) error {
	if format == "json" {
		return writeJSON(w, struct {
			TotalWordsProcessed int                `json:"total_words_processed"`
			CurrentQueueSize    int                `json:"current_queue_size"`
			DistinctWords       int                `json:"distinct_words"`
			TopWords            []engine.WordCount `json:"top_words"`
		}{snap.TotalWordsProcessed, snap.CurrentQueueSize, snap.DistinctWords(), snap.TopWords})
	}
	if _, err := fmt.Fprintf(w, "Words processed: %d\nWindow: %d tokens, %d distinct\n\n",
		snap.TotalWordsProcessed, snap.CurrentQueueSize, snap.DistinctWords()); err != nil {
		return err
	}
	return writeRanking(w, snap.TopWords)
}
