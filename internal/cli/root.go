// Package cli implements the timecloud commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/logger"
)

type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "timecloud",
		Short: "Sliding-window word frequencies over a dated article corpus",
		Long: "timecloud reads dated articles in chronological order, keeps word counts\n" +
			"over the most recent tokens and renders a snapshot of the window as it moves.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(
		newRenderCmd(opts),
		newTopCmd(opts),
		newTokenizeCmd(opts),
		newRunsCmd(opts),
	)
	return root
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return apperrors.ExitCode(err)
	}
	return apperrors.ExitOK
}

// loadConfig reads the config file, lets apply override fields from flags,
// validates the result and installs the logger.
func (o *globalOptions) loadConfig(apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidConfig, apperrors.ExitConfig, err.Error())
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config_file", o.configPath, "sinks", cfg.Render.Sinks)
	return cfg, nil
}

func stdinOrFile(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
