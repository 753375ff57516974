package engine

import (
	"iter"
)

// Process ingests tokens into e and yields a snapshot after every
// WordsPerFrame ingestions, plus one final snapshot for a trailing partial
// batch so no token goes unreported. Frames are numbered from 1 within the
// call.
//
// Breaking out of the loop early leaves e consistent; a later Process call
// continues from the same window. An ingestion error is yielded once and
// ends the sequence.
func (e *Engine) Process(tokens iter.Seq[string]) iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		pending, frame := 0, 0
		for token := range tokens {
			if err := e.Ingest(token); err != nil {
				yield(Snapshot{}, err)
				return
			}
			pending++
			if pending < e.cfg.WordsPerFrame {
				continue
			}
			pending = 0
			frame++
			if !yield(e.emit(frame), nil) {
				return
			}
		}
		if pending > 0 {
			frame++
			yield(e.emit(frame), nil)
		}
		e.logger.Debug("processing run complete",
			"frames", frame,
			"total_words", e.total,
			"queue_size", e.window.len(),
		)
	}
}

func (e *Engine) emit(frame int) Snapshot {
	s := e.Snapshot()
	s.Frame = frame
	if e.metrics != nil {
		e.metrics.SnapshotsEmittedTotal.Inc()
	}
	return s
}

// Stream validates cfg and returns a snapshot sequence over tokens. Every
// range over the result runs on a fresh engine, so iterating twice yields
// identical snapshots.
func Stream(cfg Config, tokens iter.Seq[string], opts ...Option) (iter.Seq2[Snapshot, error], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return func(yield func(Snapshot, error) bool) {
		e, err := New(cfg, opts...)
		if err != nil {
			yield(Snapshot{}, err)
			return
		}
		for s, err := range e.Process(tokens) {
			if !yield(s, err) {
				return
			}
		}
	}, nil
}

// Collect runs Stream to completion and returns every snapshot in order.
// On error the snapshots emitted before the failure are returned with it.
func Collect(cfg Config, tokens iter.Seq[string], opts ...Option) ([]Snapshot, error) {
	seq, err := Stream(cfg, tokens, opts...)
	if err != nil {
		return nil, err
	}
	var snapshots []Snapshot
	for s, err := range seq {
		if err != nil {
			return snapshots, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}
