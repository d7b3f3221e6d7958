// Package recordstore implements a document store addressed by a
// (partition key, sort key) pair. Writes support per-item preconditions and
// multi-item atomic transactions, and every mutation is appended to an
// ordered change feed carrying the before and after images of the record.
package recordstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no item exists under the key.
	ErrNotFound = errors.New("recordstore: item not found")

	// ErrConditionFailed is returned by a single-item write whose
	// precondition did not hold.
	ErrConditionFailed = errors.New("recordstore: condition failed")

	// ErrTransactionCanceled is returned when any precondition inside a
	// transactional write fails. The store deliberately does not report
	// which item caused the cancellation.
	ErrTransactionCanceled = errors.New("recordstore: transaction canceled")
)

// Doc is a schema-less record body. Values survive a JSON round trip, so
// numbers are float64 and nested values are maps/slices.
type Doc map[string]any

// Item is one stored record.
type Item struct {
	PK  string
	SK  string
	Doc Doc
}

// Key addresses a single item.
type Key struct {
	PK string
	SK string
}

// Condition is a write precondition evaluated against the current item.
type Condition struct {
	// Exists requires the item to be present.
	Exists bool
	// NotExists requires the item to be absent.
	NotExists bool
	// FieldEquals requires every listed field to currently hold the given
	// value. Implies the item exists.
	FieldEquals map[string]any
}

// Zero reports whether the condition places no constraint on the item.
func (c Condition) Zero() bool {
	return !c.Exists && !c.NotExists && len(c.FieldEquals) == 0
}

// PutOp replaces the whole document under the key.
type PutOp struct {
	Item      Item
	Condition Condition
}

// UpdateOp sets individual fields on an existing document, creating it when
// absent and no condition forbids that.
type UpdateOp struct {
	Key       Key
	Set       Doc
	Condition Condition
}

// CheckOp asserts a condition on an item without writing it. Only valid
// inside a transaction.
type CheckOp struct {
	Key       Key
	Condition Condition
}

// WriteOp is one member of a transactional write. Exactly one field is set.
type WriteOp struct {
	Put    *PutOp
	Update *UpdateOp
	Check  *CheckOp
}

// EventKind classifies a change-feed entry.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventModify EventKind = "MODIFY"
	EventRemove EventKind = "REMOVE"
)

// Change is one change-feed entry: the before and after images of a single
// record mutation, in commit order.
type Change struct {
	Seq  int64
	PK   string
	SK   string
	Kind EventKind
	Old  Doc
	New  Doc
}

// Store is the record-store contract consumed by the domain layer.
type Store interface {
	Get(ctx context.Context, key Key) (Item, error)
	// Query returns every item sharing the partition key.
	Query(ctx context.Context, pk string) ([]Item, error)
	// QueryPrefix returns every item whose partition key starts with prefix.
	QueryPrefix(ctx context.Context, prefix string) ([]Item, error)
	Put(ctx context.Context, op PutOp) error
	Update(ctx context.Context, op UpdateOp) error
	// TransactWrite applies every operation atomically, or none of them.
	TransactWrite(ctx context.Context, ops []WriteOp) error
}

// Feed delivers change entries in order, at least once. Commit persists the
// consumer position; entries after an uncommitted position are redelivered.
type Feed interface {
	Next(ctx context.Context, limit int) ([]Change, error)
	Commit(ctx context.Context, seq int64) error
}
