package render

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/store"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/redis"
)

// SnapshotCache is the subset of the Redis client the cache renderer needs.
type SnapshotCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ReplaceSortedSet(ctx context.Context, key string, members []redis.Member, ttl time.Duration) error
}

// CacheReader is the subset of the Redis client used to read a cached run back.
type CacheReader interface {
	Get(ctx context.Context, key string) (string, error)
	TopMembers(ctx context.Context, key string, n int64) ([]redis.Member, error)
}

// CacheRenderer mirrors the most recent snapshot of a run into Redis so a
// dashboard can poll it. It writes:
//
//	<prefix><run>:latest  JSON snapshot
//	<prefix><run>:top     sorted set of top words, see rankScore
//	<prefix><run>:done    frame count, set on Finalize
type CacheRenderer struct {
	cache  SnapshotCache
	prefix string
	ttl    time.Duration
	frames int
}

func NewCacheRenderer(cache SnapshotCache, keyPrefix, runID string, ttl time.Duration) *CacheRenderer {
	return &CacheRenderer{
		cache:  cache,
		prefix: cacheKey(keyPrefix, runID, ""),
		ttl:    ttl,
	}
}

func cacheKey(prefix, runID, suffix string) string {
	return prefix + runID + ":" + suffix
}

// rankScore encodes a word's count in the integer part and its position in
// the snapshot's ranking in the fraction, so ZREVRANGE returns words in the
// same order as Snapshot.TopWords even when counts tie.
func rankScore(count, pos, n int) float64 {
	return float64(count) + float64(n-pos)/float64(n+1)
}

func (c *CacheRenderer) RenderState(ctx context.Context, s engine.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := c.cache.Set(ctx, c.prefix+"latest", data, c.ttl); err != nil {
		return fmt.Errorf("caching latest snapshot: %w", err)
	}
	members := make([]redis.Member, len(s.TopWords))
	for i, wc := range s.TopWords {
		members[i] = redis.Member{Name: wc.Word, Score: rankScore(wc.Count, i, len(s.TopWords))}
	}
	if err := c.cache.ReplaceSortedSet(ctx, c.prefix+"top", members, c.ttl); err != nil {
		return fmt.Errorf("caching top words: %w", err)
	}
	c.frames++
	return nil
}

func (c *CacheRenderer) Finalize(ctx context.Context) error {
	if err := c.cache.Set(ctx, c.prefix+"done", c.frames, c.ttl); err != nil {
		return fmt.Errorf("marking run done: %w", err)
	}
	return nil
}

// CachedSnapshot reads the latest snapshot a CacheRenderer wrote for runID.
// A missing or expired key yields store.ErrRunNotFound.
func CachedSnapshot(ctx context.Context, cache CacheReader, keyPrefix, runID string) (*engine.Snapshot, error) {
	data, err := cache.Get(ctx, cacheKey(keyPrefix, runID, "latest"))
	if redis.IsNilError(err) {
		return nil, fmt.Errorf("run %s: %w", runID, store.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached snapshot: %w", err)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling cached snapshot: %w", err)
	}
	return &snap, nil
}

// CachedTopWords reads up to n ranked words of runID from the sorted set,
// decoding counts from their scores.
func CachedTopWords(ctx context.Context, cache CacheReader, keyPrefix, runID string, n int) ([]engine.WordCount, error) {
	members, err := cache.TopMembers(ctx, cacheKey(keyPrefix, runID, "top"), int64(n))
	if err != nil {
		return nil, fmt.Errorf("reading cached top words: %w", err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, store.ErrRunNotFound)
	}
	words := make([]engine.WordCount, len(members))
	for i, m := range members {
		words[i] = engine.WordCount{Word: m.Name, Count: int(math.Floor(m.Score))}
	}
	return words, nil
}
