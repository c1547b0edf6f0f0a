package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"strconv"
	"sync/atomic"
	"testing"
)

func TestRunChunksMergesAllWorkers(t *testing.T) {
	items := make([]string, 100)
	for i := range items {
		items[i] = strconv.Itoa(i)
	}

	agg := NewListAggregator[string]()
	err := RunChunks(context.Background(), testLogger(), items, 8,
		func(ctx context.Context, chunk []string) ([]string, error) {
			out := make([]string, len(chunk))
			copy(out, chunk)
			return out, nil
		},
		agg.Merge,
	)
	if err != nil {
		t.Fatalf("RunChunks: %v", err)
	}

	got := agg.Result()
	if len(got) != len(items) {
		t.Fatalf("merged %d items, want %d", len(got), len(items))
	}
	sort.Strings(got)
	sort.Strings(items)
	for i := range items {
		if got[i] != items[i] {
			t.Fatalf("merged set differs at %d: got %q want %q", i, got[i], items[i])
		}
	}
}

func TestRunChunksConcurrentAggregationStress(t *testing.T) {
	// Randomized sizes and worker counts shake out interleaving bugs in
	// the merge path; jittered completion shuffles arrival order. The
	// merged result must be exactly the input set every time.
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(200)
		workers := 1 + rng.Intn(16)

		items := make([]string, n)
		for i := range items {
			items[i] = strconv.Itoa(i)
		}

		agg := NewListAggregator[string]()
		err := RunChunks(context.Background(), testLogger(), items, workers,
			func(ctx context.Context, chunk []string) ([]string, error) {
				runtime.Gosched()
				out := make([]string, len(chunk))
				copy(out, chunk)
				return out, nil
			},
			agg.Merge,
		)
		if err != nil {
			t.Fatalf("round %d (n=%d w=%d): RunChunks: %v", round, n, workers, err)
		}

		got := agg.Result()
		if len(got) != n {
			t.Fatalf("round %d (n=%d w=%d): merged %d items", round, n, workers, len(got))
		}
		seen := make(map[string]bool, n)
		for _, item := range got {
			if seen[item] {
				t.Fatalf("round %d (n=%d w=%d): duplicate item %q", round, n, workers, item)
			}
			seen[item] = true
		}
		for _, item := range items {
			if !seen[item] {
				t.Fatalf("round %d (n=%d w=%d): missing item %q", round, n, workers, item)
			}
		}
	}
}

func TestRunChunksDropsFailedWorker(t *testing.T) {
	items := []string{"a", "b", "c", "d"}

	agg := NewListAggregator[string]()
	err := RunChunks(context.Background(), testLogger(), items, 4,
		func(ctx context.Context, chunk []string) ([]string, error) {
			if chunk[0] == "b" {
				return nil, errors.New("boom")
			}
			return chunk, nil
		},
		agg.Merge,
	)
	if err != nil {
		t.Fatalf("RunChunks: %v", err)
	}

	got := agg.Result()
	sort.Strings(got)
	want := []string{"a", "c", "d"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("surviving items = %v, want %v", got, want)
	}
}

func TestRunChunksIsolatesPanics(t *testing.T) {
	agg := NewListAggregator[string]()
	err := RunChunks(context.Background(), testLogger(), []string{"a", "b"}, 2,
		func(ctx context.Context, chunk []string) ([]string, error) {
			if chunk[0] == "a" {
				panic("worker exploded")
			}
			return chunk, nil
		},
		agg.Merge,
	)
	if err != nil {
		t.Fatalf("RunChunks: %v", err)
	}
	if got := agg.Result(); len(got) != 1 || got[0] != "b" {
		t.Errorf("surviving items = %v, want [b]", got)
	}
}

func TestRunChunksReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int32
	err := RunChunks(ctx, testLogger(), []string{"a", "b", "c"}, 3,
		func(ctx context.Context, chunk []string) ([]string, error) {
			if started.Add(1) == 1 {
				cancel()
			}
			<-ctx.Done()
			return nil, ctx.Err()
		},
		func([]string) {},
	)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunChunks returned %v, want context.Canceled", err)
	}
}

func TestRunChunksEmptyInput(t *testing.T) {
	called := false
	err := RunChunks(context.Background(), testLogger(), nil, 4,
		func(ctx context.Context, chunk []string) (int, error) { return 0, nil },
		func(int) { called = true },
	)
	if err != nil {
		t.Fatalf("RunChunks: %v", err)
	}
	if called {
		t.Error("merge called for empty input")
	}
}

func TestMapAggregatorMerge(t *testing.T) {
	agg := NewMapAggregator[[]string]()
	agg.Merge(map[string][]string{"apple": {"a1"}})
	agg.Merge(map[string][]string{"sony": {"s1", "s2"}})

	got := agg.Result()
	if len(got) != 2 {
		t.Fatalf("merged %d keys, want 2", len(got))
	}
	if len(got["sony"]) != 2 {
		t.Errorf("sony has %d ids, want 2", len(got["sony"]))
	}
}
