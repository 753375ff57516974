package cli

import (
	"context"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/metrics"
)

// pipelineFlags mirrors the engine, tokenizer and corpus configuration.
// Only flags the user set override the loaded config.
type pipelineFlags struct {
	queueSize     int
	displayWords  int
	wordsPerFrame int
	noLowercase   bool
	noStopwords   bool
	stopwordsFile string
	stemming      bool
	stemmer       string
	minWordLength int
	inputDir      string
}

func (p *pipelineFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVarP(&p.queueSize, "queue-size", "q", 500, "Sliding window size in tokens")
	f.IntVar(&p.displayWords, "display-words", 50, "Number of top words per snapshot")
	f.IntVarP(&p.wordsPerFrame, "words-per-frame", "w", 1, "Tokens ingested between snapshots")
	f.BoolVar(&p.noLowercase, "no-lowercase", false, "Keep original case")
	f.BoolVar(&p.noStopwords, "no-stopwords", false, "Keep stopwords")
	f.StringVar(&p.stopwordsFile, "stopwords-file", "", "Stopword list, one word per line")
	f.BoolVar(&p.stemming, "stemming", false, "Reduce words to their stems")
	f.StringVar(&p.stemmer, "stemmer", "porter", "Stemmer: porter, snowball or suffix")
	f.IntVar(&p.minWordLength, "min-word-length", 2, "Shortest token kept, in characters")
	f.StringVarP(&p.inputDir, "input-dir", "i", "articles", "Directory of dated .txt articles")
}

func (p *pipelineFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("queue-size") {
		cfg.Engine.MaxQueueSize = p.queueSize
	}
	if f.Changed("display-words") {
		cfg.Engine.MaxDisplayWords = p.displayWords
	}
	if f.Changed("words-per-frame") {
		cfg.Engine.WordsPerFrame = p.wordsPerFrame
	}
	if f.Changed("no-lowercase") {
		cfg.Tokenizer.Lowercase = !p.noLowercase
	}
	if f.Changed("no-stopwords") {
		cfg.Tokenizer.FilterStopwords = !p.noStopwords
	}
	if f.Changed("stopwords-file") {
		cfg.Tokenizer.StopwordsFile = p.stopwordsFile
	}
	if f.Changed("stemming") {
		cfg.Tokenizer.EnableStemming = p.stemming
	}
	if f.Changed("stemmer") {
		cfg.Tokenizer.Stemmer = p.stemmer
	}
	if f.Changed("min-word-length") {
		cfg.Tokenizer.MinWordLength = p.minWordLength
	}
	if f.Changed("input-dir") {
		cfg.Corpus.ArticlesDir = p.inputDir
	}
}

func newTokenizer(cfg config.TokenizerConfig, m *metrics.Metrics) (*tokenizer.Tokenizer, error) {
	tcfg, err := tokenizer.ConfigFrom(cfg)
	if err != nil {
		return nil, err
	}
	return tokenizer.New(tcfg, tokenizer.WithMetrics(m))
}

// loadWords reads the corpus and tokenizes it in chronological order.
func loadWords(ctx context.Context, cfg *config.Config, m *metrics.Metrics) ([]string, error) {
	tok, err := newTokenizer(cfg.Tokenizer, m)
	if err != nil {
		return nil, err
	}
	docs, err := corpus.NewLoader(cfg.Corpus, m).Load(ctx)
	if err != nil {
		return nil, err
	}
	words := slices.Collect(corpus.Tokens(docs, tok))
	if len(words) == 0 {
		return nil, apperrors.New(apperrors.ErrNoDocuments, apperrors.ExitNoDocuments,
			"no words to process after filtering")
	}
	slog.Info("corpus tokenized", "documents", len(docs), "words", len(words))
	return words, nil
}
