package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Snapshot is an on-demand statistics summary. It is never persisted.
type Snapshot struct {
	TotalOrders       int64
	ByStatus          map[Status]int64
	TotalRevenue      decimal.Decimal
	AverageOrderValue decimal.Decimal

	// Scanned and Batches describe the revenue scan that produced the snapshot.
	Scanned int64
	Batches int
}

// BatchPolicy decides the size of successive scan batches.
type BatchPolicy interface {
	First() int
	Next(prev int) int
}

// DoublingBatches starts at Initial and doubles after every batch. A positive
// Max caps the growth.
type DoublingBatches struct {
	Initial int
	Max     int
}

func (p DoublingBatches) First() int {
	return max(p.Initial, 1)
}

func (p DoublingBatches) Next(prev int) int {
	next := prev * 2
	if p.Max > 0 && next > p.Max {
		next = p.Max
	}
	return max(next, 1)
}

// Fetcher is the paged-retrieval capability a Scanner reads from.
type Fetcher interface {
	Fetch(ctx context.Context, f Filter, w Window) (*Slice, error)
}

// Scanner walks every order matching a filter in successive batches, in ID
// order. It is finite and cannot be restarted: once Next returns false the
// scan is over and Err reports why.
//
//	sc := NewScanner(store, Filter{}, policy)
//	for sc.Next(ctx) {
//		for _, o := range sc.Batch() { ... }
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner struct {
	src    Fetcher
	filter Filter
	policy BatchPolicy

	offset  int
	size    int
	batch   []Order
	batches int
	done    bool
	err     error
}

// NewScanner returns a Scanner positioned before the first batch.
func NewScanner(src Fetcher, f Filter, policy BatchPolicy) *Scanner {
	return &Scanner{
		src:    src,
		filter: f,
		policy: policy,
		size:   policy.First(),
	}
}

// Next fetches the following batch. It returns false when the store reports
// no further rows or a fetch fails.
func (s *Scanner) Next(ctx context.Context) bool {
	if s.done {
		return false
	}

	sl, err := s.src.Fetch(ctx, s.filter, Window{
		Offset: s.offset,
		Limit:  s.size,
		Sort:   Sort{Field: SortByID},
	})
	if err != nil {
		s.err = errors.Wrapf(err, "fetch batch at offset %d", s.offset)
		s.batch = nil
		s.done = true
		return false
	}

	s.batch = sl.Orders
	s.offset += len(sl.Orders)
	s.size = s.policy.Next(s.size)
	if !sl.HasMore || len(sl.Orders) == 0 {
		s.done = true
	}
	if len(sl.Orders) == 0 {
		return false
	}
	s.batches++
	return true
}

// Batch returns the orders fetched by the last successful Next.
func (s *Scanner) Batch() []Order {
	return s.batch
}

// Batches returns how many non-empty batches were produced so far.
func (s *Scanner) Batches() int {
	return s.batches
}

// Err returns the error that ended the scan, if any.
func (s *Scanner) Err() error {
	return s.err
}

// Aggregator computes statistics snapshots from a Store using counts for the
// per-status figures and a bounded-batch scan for revenue.
//
// The scan is not a point-in-time snapshot: batches fetched later may see
// writes committed after the scan started.
type Aggregator struct {
	store  Store
	policy BatchPolicy
}

// NewAggregator returns an Aggregator reading from store.
func NewAggregator(store Store, policy BatchPolicy) *Aggregator {
	return &Aggregator{store: store, policy: policy}
}

// Snapshot computes a fresh Snapshot. Any store failure discards the partial
// result.
func (a *Aggregator) Snapshot(ctx context.Context) (*Snapshot, error) {
	// Each count and each page fetch is its own read-only statement. No
	// WithinTx(ReadOnly) spans the scan, so writers are held for at most one
	// page and the figures are only weakly consistent with each other.
	total, err := a.store.Count(ctx, Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "count orders")
	}

	byStatus := make(map[Status]int64, len(statuses))
	for _, st := range statuses {
		n, err := a.store.Count(ctx, StatusFilter(st))
		if err != nil {
			return nil, errors.Wrapf(err, "count %s orders", st)
		}
		byStatus[st] = n
	}

	var (
		revenue = decimal.Zero
		scanned int64
	)
	sc := NewScanner(a.store, Filter{}, a.policy)
	for sc.Next(ctx) {
		for _, o := range sc.Batch() {
			revenue = revenue.Add(o.TotalAmount)
		}
		scanned += int64(len(sc.Batch()))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan revenue")
	}

	return &Snapshot{
		TotalOrders:       total,
		ByStatus:          byStatus,
		TotalRevenue:      revenue,
		AverageOrderValue: Average(revenue, total),
		Scanned:           scanned,
		Batches:           sc.Batches(),
	}, nil
}

// Average divides revenue by count, rounded half-up to two decimal places.
// It is zero when count is zero.
func Average(revenue decimal.Decimal, count int64) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return revenue.DivRound(decimal.NewFromInt(count), 2)
}
