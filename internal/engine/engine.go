// Package engine maintains word frequencies over a bounded sliding window of
// the most recent tokens and emits immutable snapshots of that state.
//
// An Engine is single-threaded: Ingest, Process and the accessors must not be
// called concurrently on one instance. Separate instances share nothing.
package engine

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/metrics"
)

// Config bounds the window and sets the snapshot cadence.
type Config struct {
	MaxQueueSize    int `json:"max_queue_size"`
	MaxDisplayWords int `json:"max_display_words"`
	WordsPerFrame   int `json:"words_per_frame"`
}

func ConfigFrom(cfg config.EngineConfig) Config {
	return Config{
		MaxQueueSize:    cfg.MaxQueueSize,
		MaxDisplayWords: cfg.MaxDisplayWords,
		WordsPerFrame:   cfg.WordsPerFrame,
	}
}

func (c Config) validate() error {
	switch {
	case c.MaxQueueSize <= 0:
		return apperrors.Configf("engine.maxQueueSize", "must be positive, got %d", c.MaxQueueSize)
	case c.MaxDisplayWords <= 0:
		return apperrors.Configf("engine.maxDisplayWords", "must be positive, got %d", c.MaxDisplayWords)
	case c.WordsPerFrame <= 0:
		return apperrors.Configf("engine.wordsPerFrame", "must be positive, got %d", c.WordsPerFrame)
	}
	return nil
}

// entry is a token's count within the window and the sequence number of its
// most recent occurrence, used to break ranking ties.
type entry struct {
	count int
	last  int
}

type Engine struct {
	cfg     Config
	window  *window
	freq    map[string]*entry
	total   int
	latest  string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New validates cfg and returns an empty engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		window: newWindow(cfg.MaxQueueSize),
		freq:   make(map[string]*entry),
		logger: logger.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Ingest appends token to the window, evicting the oldest token first when
// the window is full, so the bound holds after every call. An empty token is
// rejected without touching any state.
func (e *Engine) Ingest(token string) error {
	if token == "" {
		return apperrors.ErrEmptyToken
	}
	if e.window.full() {
		e.evict()
	}
	e.window.push(token)
	e.total++
	ent, ok := e.freq[token]
	if !ok {
		ent = &entry{}
		e.freq[token] = ent
	}
	ent.count++
	ent.last = e.total
	e.latest = token

	if e.metrics != nil {
		e.metrics.TokensIngestedTotal.Inc()
		e.metrics.WindowSize.Set(float64(e.window.len()))
		e.metrics.DistinctWords.Set(float64(len(e.freq)))
	}
	return nil
}

func (e *Engine) evict() {
	token := e.window.pop()
	ent := e.freq[token]
	ent.count--
	if ent.count == 0 {
		delete(e.freq, token)
	}
	if e.metrics != nil {
		e.metrics.EvictionsTotal.Inc()
	}
}

// TopWords returns the n highest-count words in the window. Equal counts are
// ordered by most recent occurrence, latest first, which keeps rankings stable
// between adjacent frames. n <= 0 means the configured MaxDisplayWords.
func (e *Engine) TopWords(n int) []WordCount {
	if n <= 0 {
		n = e.cfg.MaxDisplayWords
	}
	type ranked struct {
		word string
		*entry
	}
	all := make([]ranked, 0, len(e.freq))
	for word, ent := range e.freq {
		all = append(all, ranked{word: word, entry: ent})
	}
	slices.SortFunc(all, func(a, b ranked) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(b.last, a.last)
	})
	n = min(n, len(all))
	top := make([]WordCount, n)
	for i := range top {
		top[i] = WordCount{Word: all[i].word, Count: all[i].count}
	}
	return top
}

// Frequencies returns a copy of the window's frequency table.
func (e *Engine) Frequencies() map[string]int {
	out := make(map[string]int, len(e.freq))
	for word, ent := range e.freq {
		out[word] = ent.count
	}
	return out
}

// Window returns a copy of the window, oldest token first.
func (e *Engine) Window() []string {
	return e.window.tokens()
}

func (e *Engine) Len() int {
	return e.window.len()
}

func (e *Engine) TotalWordsProcessed() int {
	return e.total
}

// Snapshot captures the current state. Frame is left at zero.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		WordFrequencies:     e.Frequencies(),
		TopWords:            e.TopWords(e.cfg.MaxDisplayWords),
		TotalWordsProcessed: e.total,
		CurrentQueueSize:    e.window.len(),
		LatestWord:          e.latest,
	}
}

// Reset empties the window and table and zeroes the total counter.
func (e *Engine) Reset() {
	e.window.reset()
	clear(e.freq)
	e.total = 0
	e.latest = ""
	if e.metrics != nil {
		e.metrics.WindowSize.Set(0)
		e.metrics.DistinctWords.Set(0)
	}
}

// Verify recomputes the frequency table from the window and reports any
// disagreement with the maintained table.
func (e *Engine) Verify() error {
	if e.window.len() > e.cfg.MaxQueueSize {
		return fmt.Errorf("%w: window holds %d tokens, bound is %d",
			apperrors.ErrInvariant, e.window.len(), e.cfg.MaxQueueSize)
	}
	want := make(map[string]int, len(e.freq))
	for _, token := range e.window.tokens() {
		want[token]++
	}
	if got := e.Frequencies(); !maps.Equal(got, want) {
		return fmt.Errorf("%w: frequency table has %d entries, window has %d distinct tokens",
			apperrors.ErrInvariant, len(got), len(want))
	}
	for word, ent := range e.freq {
		if ent.count <= 0 {
			return fmt.Errorf("%w: non-positive count %d for %q", apperrors.ErrInvariant, ent.count, word)
		}
	}
	return nil
}
