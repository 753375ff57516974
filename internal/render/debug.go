package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
)

const (
	debugTopWords = 20
	debugMaxBar   = 30
)

var (
	heavyRule = strings.Repeat("=", 60)
	lightRule = strings.Repeat("-", 40)
)

// Debug prints a detailed block for every Nth snapshot: totals, window fill,
// the latest word and a bar chart of the top words.
type Debug struct {
	w        io.Writer
	every    int
	capacity int
	count    int
}

func NewDebug(w io.Writer, every, capacity int) *Debug {
	return &Debug{w: w, every: max(every, 1), capacity: capacity}
}

func (d *Debug) RenderState(_ context.Context, s engine.Snapshot) error {
	d.count++
	if d.count%d.every != 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", heavyRule)
	fmt.Fprintf(&b, "State #%d\n", d.count)
	fmt.Fprintf(&b, "Words processed: %d\n", s.TotalWordsProcessed)
	fmt.Fprintf(&b, "Queue size: %d/%d\n", s.CurrentQueueSize, d.capacity)
	fmt.Fprintf(&b, "Latest word: '%s'\n", s.LatestWord)
	fmt.Fprintf(&b, "Unique words in window: %d\n", s.DistinctWords())

	top := s.TopWords[:min(debugTopWords, len(s.TopWords))]
	fmt.Fprintf(&b, "\nTop %d words:\n%s\n", len(top), lightRule)
	for i, wc := range top {
		fmt.Fprintf(&b, "%3d. %-20s %4d %s\n", i+1, wc.Word, wc.Count, strings.Repeat("#", min(wc.Count, debugMaxBar)))
	}
	_, err := io.WriteString(d.w, b.String())
	return err
}

func (d *Debug) Finalize(context.Context) error {
	_, err := fmt.Fprintf(d.w, "\n%s\nDebug rendering complete. Total states: %d\n%s\n", heavyRule, d.count, heavyRule)
	return err
}
