package tokenizer

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
)

// ConfigFrom resolves the file-backed parts of cfg: it loads the stopword
// file and builds the (optionally cached) stemmer. The result can be passed
// to New for any number of tokenizers, which then share one stopword set and
// one stem cache.
func ConfigFrom(cfg config.TokenizerConfig) (Config, error) {
	out := Config{
		Lowercase:       cfg.Lowercase,
		FilterStopwords: cfg.FilterStopwords,
		MinWordLength:   cfg.MinWordLength,
	}
	if cfg.FilterStopwords {
		if cfg.StopwordsFile != "" {
			set, err := LoadStopwords(cfg.StopwordsFile)
			if err != nil {
				return Config{}, err
			}
			out.Stopwords = set
		} else {
			out.Stopwords = DefaultStopwords()
		}
	}
	if cfg.EnableStemming {
		stem, err := NewStemmer(cfg.Stemmer)
		if err != nil {
			return Config{}, err
		}
		if cfg.StemCacheSize > 0 {
			stem, err = NewCachedStemmer(stem, cfg.StemCacheSize)
			if err != nil {
				return Config{}, fmt.Errorf("building stemmer: %w", err)
			}
		}
		out.Stem = stem
	}
	return out, nil
}
