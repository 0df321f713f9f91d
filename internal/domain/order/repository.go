package order

import "context"

// Store is the set of persistence capabilities the order core relies on.
//
// Failures of the underlying transport are reported as *StoreError.
type Store interface {
	// Insert persists a new order and assigns o.ID. A duplicate order number
	// yields ErrDuplicateNumber.
	Insert(ctx context.Context, o *Order) error
	// Get returns the order with the given ID or ErrNotFound.
	Get(ctx context.Context, id int64) (*Order, error)
	// Fetch returns the orders matching f within the window w.
	Fetch(ctx context.Context, f Filter, w Window) (*Slice, error)
	// Count returns the number of orders matching f.
	Count(ctx context.Context, f Filter) (int64, error)
	// Update overwrites the stored order if its version still equals
	// o.Version, then increments o.Version. A stale version yields
	// ErrConcurrentModification; a missing row yields ErrNotFound.
	Update(ctx context.Context, o *Order) error
	// Delete removes the order or returns ErrNotFound.
	Delete(ctx context.Context, id int64) error
}

// TxMode selects the transaction access mode.
type TxMode int

const (
	ReadWrite TxMode = iota
	ReadOnly
)

// Repository is a Store that can scope a unit of work to one transaction.
type Repository interface {
	Store
	// WithinTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, mode TxMode, fn func(ctx context.Context, s Store) error) error
}
