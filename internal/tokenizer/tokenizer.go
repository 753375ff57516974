// Package tokenizer turns raw article text into a lazy stream of normalised
// word tokens. Candidates are split on whitespace, stripped of surrounding
// punctuation, lowercased, length-filtered, checked against a shared
// stopword set and optionally stemmed, in that order.
//
// Interior punctuation is kept: "don't", "well-known" and "o'brien's" are
// single tokens. Only leading and trailing punctuation or symbol runes are
// removed.
//
// Lowercasing follows Unicode lowercase mappings without full case folding:
// "Straße" stays "straße" and a word-final capital sigma becomes "ς".
// Length is counted in runes after lowercasing.
package tokenizer

import (
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/metrics"
)

// Reasons reported when a candidate is discarded.
const (
	ReasonInvalidUTF8 = "invalid_utf8"
	ReasonEmpty       = "empty"
	ReasonShort       = "short"
	ReasonStopword    = "stopword"
)

// Config selects the optional pipeline stages.
type Config struct {
	Lowercase       bool
	FilterStopwords bool
	// Stopwords is consulted when FilterStopwords is set. A nil set falls
	// back to DefaultStopwords.
	Stopwords     *StopwordSet
	MinWordLength int
	// Stem is applied after stopword filtering. Nil disables stemming.
	Stem Stemmer
}

// Tokenizer is safe for concurrent use; it holds no per-call state.
type Tokenizer struct {
	cfg     Config
	metrics *metrics.Metrics
}

type Option func(*Tokenizer)

// WithMetrics counts discarded candidates by reason.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tokenizer) { t.metrics = m }
}

func New(cfg Config, opts ...Option) (*Tokenizer, error) {
	if cfg.MinWordLength < 0 {
		return nil, apperrors.Configf("tokenizer.minWordLength", "must not be negative, got %d", cfg.MinWordLength)
	}
	if cfg.FilterStopwords && cfg.Stopwords == nil {
		cfg.Stopwords = DefaultStopwords()
	}
	t := &Tokenizer{cfg: cfg}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Tokens returns the token sequence for text. The sequence is lazy and can be
// ranged over any number of times with the same result.
func (t *Tokenizer) Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		lower := cases.Lower(language.Und)
		for candidate := range strings.FieldsSeq(text) {
			token, reason := t.normalize(candidate, lower)
			if reason != "" {
				t.discard(reason)
				continue
			}
			if !yield(token) {
				return
			}
		}
	}
}

// Tokenize collects Tokens into a slice.
func (t *Tokenizer) Tokenize(text string) []string {
	return slices.Collect(t.Tokens(text))
}

func (t *Tokenizer) normalize(candidate string, lower cases.Caser) (string, string) {
	if !utf8.ValidString(candidate) {
		return "", ReasonInvalidUTF8
	}
	word := strings.TrimFunc(candidate, isEdgeRune)
	if !hasWordRune(word) {
		return "", ReasonEmpty
	}
	word = norm.NFC.String(word)
	if t.cfg.Lowercase {
		word = lower.String(word)
	}
	if utf8.RuneCountInString(word) < t.cfg.MinWordLength {
		return "", ReasonShort
	}
	if t.cfg.FilterStopwords && t.cfg.Stopwords.Contains(word) {
		return "", ReasonStopword
	}
	if t.cfg.Stem != nil {
		word = t.cfg.Stem(word)
		if word == "" {
			return "", ReasonEmpty
		}
	}
	return word, ""
}

func (t *Tokenizer) discard(reason string) {
	if t.metrics != nil {
		t.metrics.TokensFilteredTotal.WithLabelValues(reason).Inc()
	}
}

func isEdgeRune(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
