package order

import (
	"context"
	"slices"
)

// mockRepo is a slice-backed Repository that records how it is used.
type mockRepo struct {
	orders []Order
	lastID int64

	fetches  []Window
	failAt   int // 1-based Fetch call that fails; 0 disables
	fetchErr error
	countErr error
	txCalls  int
}

func (m *mockRepo) Insert(_ context.Context, o *Order) error {
	for _, existing := range m.orders {
		if existing.Number == o.Number {
			return ErrDuplicateNumber
		}
	}
	m.lastID++
	o.ID = m.lastID
	m.orders = append(m.orders, *o)
	return nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (*Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Fetch(_ context.Context, f Filter, w Window) (*Slice, error) {
	m.fetches = append(m.fetches, w)
	if m.failAt > 0 && len(m.fetches) == m.failAt {
		return nil, m.fetchErr
	}

	var matched []Order
	for _, o := range m.orders {
		if f.Match(&o) {
			matched = append(matched, o)
		}
	}
	slices.SortFunc(matched, func(a, b Order) int { return w.Sort.Compare(&a, &b) })

	start := min(w.Offset, len(matched))
	end := min(start+w.Limit, len(matched))
	return &Slice{Orders: matched[start:end], HasMore: end < len(matched)}, nil
}

func (m *mockRepo) Count(_ context.Context, f Filter) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	var n int64
	for _, o := range m.orders {
		if f.Match(&o) {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) Update(_ context.Context, o *Order) error {
	for i := range m.orders {
		if m.orders[i].ID != o.ID {
			continue
		}
		if m.orders[i].Version != o.Version {
			return ErrConcurrentModification
		}
		o.Version++
		m.orders[i] = *o
		return nil
	}
	return ErrNotFound
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	for i, o := range m.orders {
		if o.ID == id {
			m.orders = slices.Delete(m.orders, i, i+1)
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockRepo) WithinTx(ctx context.Context, _ TxMode, fn func(ctx context.Context, s Store) error) error {
	m.txCalls++
	return fn(ctx, m)
}
