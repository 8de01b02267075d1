package backup

import "github.com/icefetch/icefetch/internal/debug"

// DefaultBatchSize is the batch threshold used when the caller does not
// choose one.
const DefaultBatchSize = 32 * 1024 * 1024

// Batch partitions ids into order-preserving batches. A batch is closed once
// its cumulative size reaches threshold, so every batch except possibly the
// last holds at least threshold bytes. The threshold triggers closing the
// batch after an ID is added, it is not a hard cap: a single ID larger than
// threshold still forms a valid one-element batch.
func Batch(ids []AssetID, threshold int64) [][]AssetID {
	var batches [][]AssetID

	var cur []AssetID
	var sum int64
	for _, id := range ids {
		cur = append(cur, id)
		sum += id.Size

		if sum >= threshold {
			debug.Log("batch of %d ids, %d bytes", len(cur), sum)
			batches = append(batches, cur)
			cur, sum = nil, 0
		}
	}

	if len(cur) > 0 {
		debug.Log("final batch of %d ids, %d bytes", len(cur), sum)
		batches = append(batches, cur)
	}

	return batches
}
