// Package memory provides an in-process order store with the same observable
// semantics as the PostgreSQL store: identity assignment, unique order
// numbers, optimistic versioning, windowed fetches and transactions.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/order-service/internal/domain/order"
)

var _ order.Repository = (*OrderStore)(nil)

// ErrReadOnly is returned by writes issued inside a read-only transaction.
var ErrReadOnly = errors.New("write in read-only transaction")

// OrderStore is a mutex-guarded map of orders.
type OrderStore struct {
	mu sync.RWMutex
	st *state
}

// NewOrderStore returns an empty store.
func NewOrderStore() *OrderStore {
	return &OrderStore{st: newState()}
}

func (s *OrderStore) Insert(ctx context.Context, o *order.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.insert(o)
}

func (s *OrderStore) Get(ctx context.Context, id int64) (*order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.get(id)
}

func (s *OrderStore) Fetch(ctx context.Context, f order.Filter, w order.Window) (*order.Slice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.fetch(f, w), nil
}

func (s *OrderStore) Count(ctx context.Context, f order.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.count(f), nil
}

func (s *OrderStore) Update(ctx context.Context, o *order.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.update(o)
}

func (s *OrderStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.remove(id)
}

// WithinTx runs fn under the store lock. Read-write transactions operate on
// a copy that replaces the live state only when fn succeeds.
func (s *OrderStore) WithinTx(ctx context.Context, mode order.TxMode, fn func(ctx context.Context, st order.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if mode == order.ReadOnly {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return fn(ctx, &txStore{st: s.st, readOnly: true})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &txStore{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// txStore exposes a state without locking; the owning transaction holds it.
type txStore struct {
	st       *state
	readOnly bool
}

func (t *txStore) Insert(_ context.Context, o *order.Order) error {
	if t.readOnly {
		return ErrReadOnly
	}
	return t.st.insert(o)
}

func (t *txStore) Get(_ context.Context, id int64) (*order.Order, error) {
	return t.st.get(id)
}

func (t *txStore) Fetch(_ context.Context, f order.Filter, w order.Window) (*order.Slice, error) {
	return t.st.fetch(f, w), nil
}

func (t *txStore) Count(_ context.Context, f order.Filter) (int64, error) {
	return t.st.count(f), nil
}

func (t *txStore) Update(_ context.Context, o *order.Order) error {
	if t.readOnly {
		return ErrReadOnly
	}
	return t.st.update(o)
}

func (t *txStore) Delete(_ context.Context, id int64) error {
	if t.readOnly {
		return ErrReadOnly
	}
	return t.st.remove(id)
}

type state struct {
	orders  map[int64]order.Order
	numbers map[string]int64
	lastID  int64
}

func newState() *state {
	return &state{
		orders:  make(map[int64]order.Order),
		numbers: make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := &state{
		orders:  make(map[int64]order.Order, len(s.orders)),
		numbers: make(map[string]int64, len(s.numbers)),
		lastID:  s.lastID,
	}
	for id, o := range s.orders {
		c.orders[id] = o
	}
	for n, id := range s.numbers {
		c.numbers[n] = id
	}
	return c
}

func (s *state) insert(o *order.Order) error {
	if _, taken := s.numbers[o.Number]; taken {
		return errors.Wrapf(order.ErrDuplicateNumber, "order number %s", o.Number)
	}
	s.lastID++
	o.ID = s.lastID
	o.Version = 0
	s.orders[o.ID] = *o
	s.numbers[o.Number] = o.ID
	return nil
}

func (s *state) get(id int64) (*order.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (s *state) matching(f order.Filter) []order.Order {
	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if f.Match(&o) {
			out = append(out, o)
		}
	}
	return out
}

func (s *state) fetch(f order.Filter, w order.Window) *order.Slice {
	matched := s.matching(f)
	slices.SortFunc(matched, func(a, b order.Order) int {
		return w.Sort.Compare(&a, &b)
	})

	start := min(w.Offset, len(matched))
	end := min(start+w.Limit, len(matched))
	page := make([]order.Order, end-start)
	copy(page, matched[start:end])

	return &order.Slice{
		Orders:  page,
		HasMore: end < len(matched),
	}
}

func (s *state) count(f order.Filter) int64 {
	if f.Unrestricted() {
		return int64(len(s.orders))
	}
	return int64(len(s.matching(f)))
}

func (s *state) update(o *order.Order) error {
	current, ok := s.orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	if current.Version != o.Version {
		return errors.Wrapf(order.ErrConcurrentModification,
			"order %d: stored version %d, written version %d", o.ID, current.Version, o.Version)
	}
	// Number and creation time are immutable.
	o.Number = current.Number
	o.CreatedAt = current.CreatedAt
	o.Version++
	s.orders[o.ID] = *o
	return nil
}

func (s *state) remove(id int64) error {
	o, ok := s.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	delete(s.orders, id)
	delete(s.numbers, o.Number)
	return nil
}
