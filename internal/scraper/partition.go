// Package scraper contains the concurrent extraction core: work
// partitioning, the bounded worker pool, the per-item extraction
// pipelines, and the manager that sequences discovery, detail
// extraction, and backend reconciliation.
package scraper

// Partition splits items into min(workers, len(items)) contiguous
// chunks that preserve input order and cover it exactly. The first
// len(items)%workers chunks receive one extra item, so chunk sizes
// never differ by more than one. No items means no chunks and no
// workers spawned.
func Partition[T any](items []T, workers int) [][]T {
	n := len(items)
	if n == 0 || workers <= 0 {
		return nil
	}
	if workers > n {
		workers = n
	}

	base := n / workers
	remainder := n % workers

	chunks := make([][]T, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < remainder {
			size++
		}
		chunks = append(chunks, items[start:start+size])
		start += size
	}
	return chunks
}
