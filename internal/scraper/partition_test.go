package scraper

import (
	"testing"
)

func TestPartitionSpreadsRemainder(t *testing.T) {
	tests := []struct {
		name    string
		items   int
		workers int
		sizes   []int
	}{
		{"even split", 6, 3, []int{2, 2, 2}},
		{"remainder to leading chunks", 7, 3, []int{3, 2, 2}},
		{"two extra", 11, 3, []int{4, 4, 3}},
		{"fewer items than workers", 2, 4, []int{1, 1}},
		{"single worker", 5, 1, []int{5}},
		{"single item", 1, 8, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]string, tt.items)
			for i := range items {
				items[i] = string(rune('a' + i))
			}

			chunks := Partition(items, tt.workers)
			if len(chunks) != len(tt.sizes) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tt.sizes))
			}

			var total int
			for i, chunk := range chunks {
				if len(chunk) != tt.sizes[i] {
					t.Errorf("chunk %d has %d items, want %d", i, len(chunk), tt.sizes[i])
				}
				total += len(chunk)
			}
			if total != tt.items {
				t.Errorf("chunks cover %d items, want %d", total, tt.items)
			}

			// Order must be preserved across chunk boundaries.
			idx := 0
			for _, chunk := range chunks {
				for _, item := range chunk {
					if item != items[idx] {
						t.Fatalf("item %d out of order: got %q want %q", idx, item, items[idx])
					}
					idx++
				}
			}
		})
	}
}

func TestPartitionEmpty(t *testing.T) {
	if chunks := Partition[string](nil, 4); chunks != nil {
		t.Errorf("Partition(nil) = %v, want nil", chunks)
	}
	if chunks := Partition([]string{}, 4); chunks != nil {
		t.Errorf("Partition(empty) = %v, want nil", chunks)
	}
}

func TestPartitionZeroWorkers(t *testing.T) {
	if chunks := Partition([]string{"a", "b"}, 0); chunks != nil {
		t.Errorf("Partition with 0 workers = %v, want nil", chunks)
	}
}
