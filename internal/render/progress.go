package render

import (
	"context"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
)

// Progress rewrites a single status line per snapshot. When total is known
// the line includes a percentage.
type Progress struct {
	w     io.Writer
	total int
	count int
}

func NewProgress(w io.Writer, total int) *Progress {
	return &Progress{w: w, total: total}
}

func (p *Progress) RenderState(_ context.Context, s engine.Snapshot) error {
	p.count++
	var err error
	if p.total > 0 {
		pct := float64(s.TotalWordsProcessed) / float64(p.total) * 100
		_, err = fmt.Fprintf(p.w, "\rProcessing: %d/%d (%.1f%%) | Queue: %d | Latest: %-15s",
			s.TotalWordsProcessed, p.total, pct, s.CurrentQueueSize, s.LatestWord)
	} else {
		_, err = fmt.Fprintf(p.w, "\rProcessing: %d words | Queue: %d | Latest: %-15s",
			s.TotalWordsProcessed, s.CurrentQueueSize, s.LatestWord)
	}
	return err
}

func (p *Progress) Finalize(context.Context) error {
	_, err := fmt.Fprintf(p.w, "\nComplete! Processed %d states.\n", p.count)
	return err
}
