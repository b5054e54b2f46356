package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Cache is a key-value store with per-entry TTL used to memoize external
// data calls and LLM responses across runs. A TTL of zero means the entry
// never expires for the lifetime of the store. Implementations must be safe
// for concurrent use from multiple runs.
type Cache interface {
	// Get returns the cached bytes for key, or found=false on miss/expiry.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key. ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key builds a deterministic cache key from a function name and its
// arguments. Arguments are canonicalized through JSON so that identical
// calls always map to the same key.
func Key(name string, args ...interface{}) string {
	h := sha256.New()
	h.Write([]byte(name))
	for _, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			// Unmarshalable argument: fall back to its formatted value.
			b = []byte(fmt.Sprintf("%v", arg))
		}
		h.Write([]byte{0})
		h.Write(b)
	}
	return name + ":" + hex.EncodeToString(h.Sum(nil))[:32]
}

// KeyFields builds a cache key from a name and sorted field map, for call
// sites with named parameters.
func KeyFields(name string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return Key(name, args...)
}

// Memoize runs fn at most once per key within the TTL window: on a hit the
// cached result is decoded into a fresh T, on a miss fn is invoked and its
// result stored. Errors from fn are never cached.
func Memoize[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if raw, found, err := c.Get(ctx, key); err == nil && found {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		// Undecodable entry: treat as a miss and recompute.
	}

	out, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	if raw, err := json.Marshal(out); err == nil {
		_ = c.Set(ctx, key, raw, ttl)
	}
	return out, nil
}
