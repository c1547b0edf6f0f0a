package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// RunChunks partitions items across up to workers concurrent chunk
// runners and merges each runner's result as it arrives (arrival
// order, not submission order). A runner that fails or panics is
// logged and contributes nothing; its siblings keep going. The call
// does not return until every runner has finished, so any resources
// (browser sessions) acquired inside run are released by the time it
// returns, cancellation included.
func RunChunks[R any](
	ctx context.Context,
	logger zerolog.Logger,
	items []string,
	workers int,
	run func(ctx context.Context, chunk []string) (R, error),
	merge func(R),
) error {
	chunks := Partition(items, workers)
	if len(chunks) == 0 {
		return nil
	}

	results := make(chan R, len(chunks))
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(worker int, chunk []string) {
			defer wg.Done()
			result, err := runGuarded(ctx, chunk, run)
			if err != nil {
				logger.Error().
					Err(err).
					Int("worker", worker).
					Int("chunk_size", len(chunk)).
					Msg("worker failed, dropping its contribution")
				return
			}
			results <- result
		}(i, chunk)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		merge(result)
	}

	return ctx.Err()
}

// runGuarded isolates panics inside a single worker so one bad chunk
// cannot take down its siblings.
func runGuarded[R any](ctx context.Context, chunk []string, run func(ctx context.Context, chunk []string) (R, error)) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return run(ctx, chunk)
}

// MapAggregator merges per-worker maps into one collection under a
// mutex scoped to the merge alone. Later completions win on key
// collisions; brands are disjoint by construction so collisions do
// not occur in practice.
type MapAggregator[V any] struct {
	mu   sync.Mutex
	data map[string]V
}

// NewMapAggregator returns an empty map aggregator.
func NewMapAggregator[V any]() *MapAggregator[V] {
	return &MapAggregator[V]{data: make(map[string]V)}
}

// Merge folds one worker's partial result into the collection.
func (a *MapAggregator[V]) Merge(partial map[string]V) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range partial {
		a.data[k] = v
	}
}

// Result hands back the merged collection. Call only after the pool
// has returned.
func (a *MapAggregator[V]) Result() map[string]V {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.data
}

// ListAggregator appends per-worker slices into one list under a
// merge-scoped mutex.
type ListAggregator[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewListAggregator returns an empty list aggregator.
func NewListAggregator[T any]() *ListAggregator[T] {
	return &ListAggregator[T]{}
}

// Merge appends one worker's partial result.
func (a *ListAggregator[T]) Merge(partial []T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, partial...)
}

// Result hands back the merged list. Call only after the pool has
// returned.
func (a *ListAggregator[T]) Result() []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.items
}
