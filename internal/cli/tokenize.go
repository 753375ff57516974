package cli

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
)

func newTokenizeCmd(global *globalOptions) *cobra.Command {
	var pipeline pipelineFlags
	cmd := &cobra.Command{
		Use:   "tokenize [file...]",
		Short: "Print the tokens of files (or stdin) one per line",
		Long:  "Applies the configured tokenizer and prints what the engine would see. Use - for stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(func(cfg *config.Config) {
				pipeline.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			tok, err := newTokenizer(cfg.Tokenizer, nil)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"-"}
			}
			return tokenizeFiles(cmd.OutOrStdout(), tok, args)
		},
	}
	pipeline.register(cmd)
	return cmd
}

func tokenizeFiles(w io.Writer, tok *tokenizer.Tokenizer, paths []string) error {
	out := bufio.NewWriter(w)
	for _, path := range paths {
		r, err := stdinOrFile(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for token := range tok.Tokens(string(data)) {
			out.WriteString(token)
			out.WriteByte('\n')
		}
	}
	return out.Flush()
}
