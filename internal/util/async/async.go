// Package async provides bounded parallel fan-out over node sets.
//
// Lifecycle stages issue the same operation against many nodes at once
// (power commands, service stops, console sessions). ForEach runs those
// operations concurrently without letting one slow node serialize the whole
// fleet, while a concurrency limit keeps the management network from being
// flooded.
package async

import (
	"context"
	"sort"
)

// DefaultLimit bounds per-stage fan-out when the caller does not choose one.
const DefaultLimit = 8

// ForEach runs fn once per key with at most limit invocations in flight.
// It waits for all invocations to finish and returns the per-key errors;
// keys whose fn returned nil are absent from the result. A nil result means
// every invocation succeeded.
//
// Cancellation of ctx does not interrupt fn calls already running (fn is
// expected to honor ctx itself), but no further calls are started once ctx
// is done; keys never attempted are reported with ctx.Err().
func ForEach(ctx context.Context, keys []string, limit int, fn func(ctx context.Context, key string) error) map[string]error {
	if len(keys) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	type result struct {
		key string
		err error
	}

	sem := make(chan struct{}, limit)
	results := make(chan result, len(keys))

	for _, key := range keys {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			go func(key string) {
				defer func() { <-sem }()
				results <- result{key: key, err: fn(ctx, key)}
			}(key)
			continue
		}
		results <- result{key: key, err: ctx.Err()}
	}

	var errs map[string]error
	for range len(keys) {
		res := <-results
		if res.err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[res.key] = res.err
		}
	}
	return errs
}

// Keys returns the sorted keys of a per-node error map, for stable
// diagnostics.
func Keys(errs map[string]error) []string {
	if len(errs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
