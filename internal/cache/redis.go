package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "search:result:"
	orderKey  = "search:order"
	seqKey    = "search:seq"
	scanCount = 500
)

// setScript stores a result and records its insertion sequence the first
// time the key is seen. While more keys are tracked than the bound allows,
// the lowest sequence is evicted. Returns the number of evictions.
//
// KEYS: result key, order set, sequence counter.
// ARGV: value, ttl in milliseconds, max size.
var setScript = redis.NewScript(`
if tonumber(ARGV[2]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
if not redis.call('ZSCORE', KEYS[2], KEYS[1]) then
	redis.call('ZADD', KEYS[2], redis.call('INCR', KEYS[3]), KEYS[1])
end
local evicted = 0
local limit = tonumber(ARGV[3])
while redis.call('ZCARD', KEYS[2]) > limit do
	local oldest = redis.call('ZRANGE', KEYS[2], 0, 0)[1]
	redis.call('ZREM', KEYS[2], oldest)
	redis.call('DEL', oldest)
	evicted = evicted + 1
end
return evicted
`)

// Redis stores results in Redis with a per-key TTL and the same size bound
// and insertion-order eviction as Memory. Insertion order lives in a sorted
// set scored by a counter. Hit counters are local to the process.
type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	maxSize int
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewRedis creates a Redis-backed cache. maxSize values below 1 are raised
// to 1.
func NewRedis(client *redis.Client, ttl time.Duration, maxSize int) *Redis {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Redis{client: client, ttl: ttl, maxSize: maxSize}
}

// Get returns the stored value; a missing key is a miss, not an error. An
// expired key gives up its slot in the insertion order.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		r.misses.Add(1)
		if errors.Is(err, redis.Nil) {
			_ = r.client.ZRem(ctx, orderKey, keyPrefix+key).Err()
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get result: %w", err)
	}
	r.hits.Add(1)
	return data, true, nil
}

// Set stores value with the configured TTL. Overwriting a key refreshes its
// TTL but keeps its insertion position.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	keys := []string{keyPrefix + key, orderKey, seqKey}
	if err := setScript.Run(ctx, r.client, keys, value, r.ttl.Milliseconds(), r.maxSize).Err(); err != nil {
		return fmt.Errorf("redis set result: %w", err)
	}
	return nil
}

// Invalidate deletes every key containing substr.
func (r *Redis) Invalidate(ctx context.Context, substr string) (int, error) {
	n, err := r.deleteMatching(ctx, keyPrefix+"*"+escapeGlob(substr)+"*")
	if err != nil {
		return n, fmt.Errorf("redis invalidate results: %w", err)
	}
	return n, nil
}

// Clear deletes every cached result and resets the counters.
func (r *Redis) Clear(ctx context.Context) error {
	if _, err := r.deleteMatching(ctx, keyPrefix+"*"); err != nil {
		return fmt.Errorf("redis clear results: %w", err)
	}
	if err := r.client.Del(ctx, orderKey, seqKey).Err(); err != nil {
		return fmt.Errorf("redis clear results: %w", err)
	}
	r.hits.Store(0)
	r.misses.Store(0)
	return nil
}

// Stats counts live cached keys with SCAN and reports local counters.
func (r *Redis) Stats(ctx context.Context) (Stats, error) {
	hits, misses := r.hits.Load(), r.misses.Load()
	stats := Stats{
		Backend: "redis",
		MaxSize: r.maxSize,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}

	iter := r.client.Scan(ctx, 0, keyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		stats.Size++
	}
	if err := iter.Err(); err != nil {
		return stats, fmt.Errorf("redis scan results: %w", err)
	}
	return stats, nil
}

// deleteMatching removes tracked keys matching pattern from both the
// keyspace and the insertion order. It returns how many live keys were
// deleted.
func (r *Redis) deleteMatching(ctx context.Context, pattern string) (int, error) {
	var keys []string
	iter := r.client.ZScan(ctx, orderKey, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		// ZSCAN yields member and score pairs.
		if member := iter.Val(); strings.HasPrefix(member, keyPrefix) {
			keys = append(keys, member)
		}
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, orderKey, members...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(del.Val()), nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
