package render

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/store"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/redis"
)

var testCfg = engine.Config{MaxQueueSize: 3, MaxDisplayWords: 5, WordsPerFrame: 1}

func stream(t *testing.T, tokens ...string) iter.Seq2[engine.Snapshot, error] {
	t.Helper()
	seq, err := engine.Stream(testCfg, slices.Values(tokens))
	if err != nil {
		t.Fatal(err)
	}
	return seq
}

// recorder captures frames and counts Finalize calls.
type recorder struct {
	frames    []int
	finalized int
	failAt    int
}

func (r *recorder) RenderState(_ context.Context, s engine.Snapshot) error {
	if r.failAt > 0 && s.Frame == r.failAt {
		return errors.New("boom")
	}
	r.frames = append(r.frames, s.Frame)
	return nil
}

func (r *recorder) Finalize(context.Context) error {
	r.finalized++
	return nil
}

func TestRunRendersAllAndFinalizes(t *testing.T) {
	rec := &recorder{}
	n, err := Run(context.Background(), rec, stream(t, "a", "b", "c", "d"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 || !slices.Equal(rec.frames, []int{1, 2, 3, 4}) {
		t.Errorf("frames = %v (n=%d)", rec.frames, n)
	}
	if rec.finalized != 1 {
		t.Errorf("finalized %d times", rec.finalized)
	}
}

func TestRunFinalizesOnFailure(t *testing.T) {
	t.Run("render error", func(t *testing.T) {
		rec := &recorder{failAt: 2}
		n, err := Run(context.Background(), rec, stream(t, "a", "b", "c"))
		if err == nil || !strings.Contains(err.Error(), "frame 2") {
			t.Errorf("err = %v", err)
		}
		if n != 1 || rec.finalized != 1 {
			t.Errorf("n = %d finalized = %d", n, rec.finalized)
		}
	})
	t.Run("upstream error", func(t *testing.T) {
		rec := &recorder{}
		want := errors.New("upstream")
		seq := func(yield func(engine.Snapshot, error) bool) {
			if !yield(engine.Snapshot{Frame: 1}, nil) {
				return
			}
			yield(engine.Snapshot{}, want)
		}
		_, err := Run(context.Background(), rec, seq)
		if !errors.Is(err, want) || rec.finalized != 1 {
			t.Errorf("err = %v finalized = %d", err, rec.finalized)
		}
	})
	t.Run("cancelled", func(t *testing.T) {
		rec := &recorder{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		n, err := Run(ctx, rec, stream(t, "a", "b"))
		if !errors.Is(err, context.Canceled) || n != 0 || rec.finalized != 1 {
			t.Errorf("err = %v n = %d finalized = %d", err, n, rec.finalized)
		}
	})
}

func TestDebugOutput(t *testing.T) {
	var buf bytes.Buffer
	d := NewDebug(&buf, 2, testCfg.MaxQueueSize)
	if _, err := Run(context.Background(), d, stream(t, "apple", "pear", "apple")); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"State #2\n",
		"Words processed: 2\n",
		"Queue size: 2/3\n",
		"Latest word: 'pear'\n",
		"Unique words in window: 2\n",
		"Top 2 words:\n",
		"  1. pear                    1 #\n",
		"Debug rendering complete. Total states: 3\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "State #1\n") || strings.Contains(out, "State #3\n") {
		t.Errorf("rendered states off the cadence:\n%s", out)
	}
}

func TestProgressOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 4)
	if _, err := Run(context.Background(), p, stream(t, "a", "b", "c", "d")); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "\rProcessing: 2/4 (50.0%) | Queue: 2 | Latest: b") {
		t.Errorf("missing percentage line:\n%q", out)
	}
	if !strings.HasSuffix(out, "\nComplete! Processed 4 states.\n") {
		t.Errorf("bad trailer:\n%q", out)
	}

	buf.Reset()
	p = NewProgress(&buf, 0)
	if _, err := Run(context.Background(), p, stream(t, "a")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\rProcessing: 1 words | Queue: 1 | Latest: a") {
		t.Errorf("missing untotalled line:\n%q", buf.String())
	}
}

func TestJSONLines(t *testing.T) {
	var buf bytes.Buffer
	j := NewJSONLines(&buf)
	if _, err := Run(context.Background(), j, stream(t, "a", "b", "a")); err != nil {
		t.Fatal(err)
	}
	sc := bufio.NewScanner(&buf)
	var got []engine.Snapshot
	for sc.Scan() {
		var s engine.Snapshot
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			t.Fatalf("line %d: %v", len(got)+1, err)
		}
		got = append(got, s)
	}
	if len(got) != 3 {
		t.Fatalf("got %d lines", len(got))
	}
	last := got[2]
	if last.TotalWordsProcessed != 3 || last.WordFrequencies["a"] != 2 || last.TopWords[0] != (engine.WordCount{Word: "a", Count: 2}) {
		t.Errorf("last = %+v", last)
	}
}

func TestMultiFinalizesAll(t *testing.T) {
	a, b := &recorder{failAt: 2}, &recorder{}
	_, err := Run(context.Background(), Multi{a, b}, stream(t, "x", "y"))
	if err == nil {
		t.Fatal("expected error")
	}
	if a.finalized != 1 || b.finalized != 1 {
		t.Errorf("finalized a=%d b=%d", a.finalized, b.finalized)
	}
	if !slices.Equal(b.frames, []int{1}) {
		t.Errorf("b frames = %v", b.frames)
	}
}

func TestInstrumented(t *testing.T) {
	m := metrics.New()
	r := Instrument(&recorder{failAt: 3}, "rec", m)
	if _, err := Run(context.Background(), r, stream(t, "a", "b", "c")); err == nil {
		t.Fatal("expected error")
	}
	if got := testutil.ToFloat64(m.RenderErrorsTotal.WithLabelValues("rec")); got != 1 {
		t.Errorf("errors = %v", got)
	}
	if got := testutil.CollectAndCount(m.RenderDuration); got != 1 {
		t.Errorf("duration series = %d", got)
	}
	if Instrument(&recorder{}, "rec", nil) == nil {
		t.Error("nil metrics should return the renderer unchanged")
	}
}

type fakeStore struct {
	runs     []store.Run
	batches  [][]int
	finished map[string]int
}

func (f *fakeStore) CreateRun(_ context.Context, run store.Run) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeStore) SaveSnapshots(_ context.Context, _ string, snaps []engine.Snapshot) error {
	var frames []int
	for _, s := range snaps {
		frames = append(frames, s.Frame)
	}
	f.batches = append(f.batches, frames)
	return nil
}

func (f *fakeStore) FinishRun(_ context.Context, runID string, frames int) error {
	if f.finished == nil {
		f.finished = map[string]int{}
	}
	f.finished[runID] = frames
	return nil
}

func (f *fakeStore) LatestSnapshot(context.Context, string) (*engine.Snapshot, error) {
	return nil, nil
}

func (f *fakeStore) ListRuns(context.Context, int) ([]store.Run, error) {
	return f.runs, nil
}

func TestStoreRendererBatches(t *testing.T) {
	fs := &fakeStore{}
	r := NewStoreRenderer(fs, NewRunID(), testCfg, 2)
	if _, err := Run(context.Background(), r, stream(t, "a", "b", "c", "d", "e")); err != nil {
		t.Fatal(err)
	}
	if len(fs.runs) != 1 || fs.runs[0].ID != r.RunID() || fs.runs[0].Config != testCfg {
		t.Fatalf("runs = %+v", fs.runs)
	}
	if _, err := ulid.ParseStrict(r.RunID()); err != nil {
		t.Errorf("run ID %q is not a ULID: %v", r.RunID(), err)
	}
	want := [][]int{{1, 2}, {3, 4}, {5}}
	if !slices.EqualFunc(fs.batches, want, slices.Equal[[]int]) {
		t.Errorf("batches = %v, want %v", fs.batches, want)
	}
	if fs.finished[r.RunID()] != 5 {
		t.Errorf("finished = %v", fs.finished)
	}
}

func TestStoreRendererEmptyRun(t *testing.T) {
	fs := &fakeStore{}
	r := NewStoreRenderer(fs, "run-empty", testCfg, 10)
	if _, err := Run(context.Background(), r, stream(t)); err != nil {
		t.Fatal(err)
	}
	if len(fs.runs) != 1 || len(fs.batches) != 0 || fs.finished[r.RunID()] != 0 {
		t.Errorf("runs=%v batches=%v finished=%v", fs.runs, fs.batches, fs.finished)
	}
}

type fakeCache struct {
	values map[string]any
	sets   map[string][]redis.Member
	ttls   map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]any{}, sets: map[string][]redis.Member{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCache) ReplaceSortedSet(_ context.Context, key string, members []redis.Member, ttl time.Duration) error {
	f.sets[key] = members
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	b, _ := v.([]byte)
	return string(b), nil
}

// TopMembers orders like ZREVRANGE: score descending, equal scores by
// member name descending.
func (f *fakeCache) TopMembers(_ context.Context, key string, n int64) ([]redis.Member, error) {
	members := slices.Clone(f.sets[key])
	slices.SortFunc(members, func(a, b redis.Member) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(b.Name, a.Name)
	})
	if n > 0 && int64(len(members)) > n {
		members = members[:n]
	}
	return members, nil
}

func TestCacheRendererKeepsLatest(t *testing.T) {
	fc := newFakeCache()
	r := NewCacheRenderer(fc, "tc:", "run1", time.Minute)
	if _, err := Run(context.Background(), r, stream(t, "a", "b", "a")); err != nil {
		t.Fatal(err)
	}
	var latest engine.Snapshot
	if err := json.Unmarshal(fc.values["tc:run1:latest"].([]byte), &latest); err != nil {
		t.Fatal(err)
	}
	if latest.Frame != 3 {
		t.Errorf("latest frame = %d", latest.Frame)
	}
	top := fc.sets["tc:run1:top"]
	if len(top) != 2 || top[0].Name != "a" || top[1].Name != "b" {
		t.Fatalf("top = %v", top)
	}
	if math.Floor(top[0].Score) != 2 || math.Floor(top[1].Score) != 1 {
		t.Errorf("scores do not carry counts: %v", top)
	}
	if fc.values["tc:run1:done"] != 3 {
		t.Errorf("done = %v", fc.values["tc:run1:done"])
	}
	if fc.ttls["tc:run1:top"] != time.Minute {
		t.Errorf("ttl = %v", fc.ttls["tc:run1:top"])
	}
}

func TestCacheRendererKeepsTieOrder(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	r := NewCacheRenderer(fc, "tc:", "run1", time.Minute)
	// y and x tie at one occurrence each; x is more recent so it ranks first.
	if _, err := Run(ctx, r, stream(t, "y", "x")); err != nil {
		t.Fatal(err)
	}
	snap, err := CachedSnapshot(ctx, fc, "tc:", "run1")
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{"x", "y"}
	if got := []string{snap.TopWords[0].Word, snap.TopWords[1].Word}; !slices.Equal(got, wantOrder) {
		t.Fatalf("snapshot top = %v", snap.TopWords)
	}

	top := fc.sets["tc:run1:top"]
	for i := 1; i < len(top); i++ {
		if top[i].Score >= top[i-1].Score {
			t.Errorf("scores not strictly decreasing: %v", top)
		}
	}

	words, err := CachedTopWords(ctx, fc, "tc:", "run1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(words, snap.TopWords) {
		t.Errorf("cached top = %v, snapshot top = %v", words, snap.TopWords)
	}
}

func TestCachedRunMissing(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	if _, err := CachedSnapshot(ctx, fc, "tc:", "ghost"); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("CachedSnapshot err = %v", err)
	}
	if _, err := CachedTopWords(ctx, fc, "tc:", "ghost", 5); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("CachedTopWords err = %v", err)
	}
}

type fakePublisher struct {
	batches [][]kafka.Event
	err     error
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, events)
	return nil
}

func TestPublishRendererBatchesByRun(t *testing.T) {
	fp := &fakePublisher{}
	r := NewPublishRenderer(fp, "run9", 3)
	if _, err := Run(context.Background(), r, stream(t, "a", "b", "c", "d")); err != nil {
		t.Fatal(err)
	}
	if len(fp.batches) != 2 || len(fp.batches[0]) != 3 || len(fp.batches[1]) != 1 {
		t.Fatalf("batches = %v", fp.batches)
	}
	ev := fp.batches[1][0]
	if ev.Key != "run9" {
		t.Errorf("key = %q", ev.Key)
	}
	data, err := json.Marshal(ev.Value)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		RunID string `json:"run_id"`
		Frame int    `json:"frame"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.RunID != "run9" || decoded.Frame != 4 {
		t.Errorf("event = %s", data)
	}
}

func TestPublishRendererSurfacesFailure(t *testing.T) {
	fp := &fakePublisher{err: errors.New("broker down")}
	r := NewPublishRenderer(fp, "r", 10)
	_, err := Run(context.Background(), r, stream(t, "a"))
	if err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Errorf("err = %v", err)
	}
}
