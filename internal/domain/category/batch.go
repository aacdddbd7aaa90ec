package category

import (
	"sync"

	"github.com/MJSteenberg/xfinance/internal/domain/ledger"
)

// DefaultWorkerCount is the number of concurrent workers for batch categorization
const DefaultWorkerCount = 4

// smallBatchThreshold is the batch size below which the pool is skipped
const smallBatchThreshold = 32

// CategorizeBatch fills in missing categories in place. Rows that already
// carry a category keep it. Large batches fan out over a worker pool; rule
// matching is CPU-only, so the pool stays small.
func CategorizeBatch(c Categorizer, txs []ledger.Transaction, workerCount int) {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}

	if len(txs) < smallBatchThreshold {
		for i := range txs {
			if txs[i].Category == nil {
				txs[i].Category = c.Categorize(txs[i])
			}
		}
		return
	}

	// Workers receive distinct indexes, so writes never collide.
	jobs := make(chan int, len(txs))

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if txs[i].Category == nil {
					txs[i].Category = c.Categorize(txs[i])
				}
			}
		}()
	}

	for i := range txs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}
