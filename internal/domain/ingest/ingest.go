// Package ingest describes batches and run summaries of catalog ingestion.
package ingest

// BatchStatus is the processing outcome of a single batch.
type BatchStatus string

// Batch status values.
const (
	StatusOK      BatchStatus = "ok"
	StatusError   BatchStatus = "error"
	StatusSkipped BatchStatus = "skipped"
)

// BatchOutcome is the result of processing one batch of catalog items.
type BatchOutcome struct {
	index   int
	itemIDs []int64
	status  BatchStatus
	err     error
}

// NewOK creates a successful batch outcome.
func NewOK(index int, itemIDs []int64) BatchOutcome {
	return BatchOutcome{index: index, itemIDs: itemIDs, status: StatusOK}
}

// NewError creates a failed batch outcome.
func NewError(index int, itemIDs []int64, err error) BatchOutcome {
	return BatchOutcome{index: index, itemIDs: itemIDs, status: StatusError, err: err}
}

// NewSkipped creates an outcome for a batch never attempted because the run was cancelled.
func NewSkipped(index int, itemIDs []int64, err error) BatchOutcome {
	return BatchOutcome{index: index, itemIDs: itemIDs, status: StatusSkipped, err: err}
}

// Index returns the zero-based batch position.
func (o BatchOutcome) Index() int { return o.index }

// ItemIDs returns the catalog ids in the batch.
func (o BatchOutcome) ItemIDs() []int64 { return o.itemIDs }

// Status returns the processing outcome.
func (o BatchOutcome) Status() BatchStatus { return o.status }

// Err returns the error, if any.
func (o BatchOutcome) Err() error { return o.err }

// Summary reports the result of one ingestion run.
type Summary struct {
	Submitted        int
	SucceededBatches int
	FailedBatches    int
	FailedItemIDs    []int64
}

// Summarize folds batch outcomes into a summary. Outcomes may arrive in any order;
// failed ids are reported in batch order.
func Summarize(submitted int, outcomes []BatchOutcome) Summary {
	s := Summary{Submitted: submitted}
	failed := make([][]int64, len(outcomes))
	for _, o := range outcomes {
		if o.status == StatusOK {
			s.SucceededBatches++
			continue
		}
		s.FailedBatches++
		if o.index >= 0 && o.index < len(failed) {
			failed[o.index] = o.itemIDs
		}
	}
	for _, ids := range failed {
		s.FailedItemIDs = append(s.FailedItemIDs, ids...)
	}
	return s
}

// Split cuts items into consecutive batches of at most size, preserving order.
func Split[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}
