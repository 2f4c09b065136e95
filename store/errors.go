package store

import "fmt"

type StoreOp string

const (
	OpOpen     StoreOp = "open"
	OpUpsert   StoreOp = "upsert_batch"
	OpDelete   StoreOp = "delete_batch"
	OpMarkRead StoreOp = "mark_read"
	OpQuery    StoreOp = "query"
	OpHistory  StoreOp = "history"
)

// StoreError reports an underlying persistence failure. A failed write never
// leaves a partial batch behind, the whole transaction is rolled back.
type StoreError struct {
	Op    StoreOp
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

func newStoreError(op StoreOp, cause error) error {
	if cause == nil {
		return nil
	}
	return &StoreError{Op: op, Cause: cause}
}
