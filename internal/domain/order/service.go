package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/xenking/order-service/internal/domain/order"

// ServiceConfig holds the tunables of the order Service.
type ServiceConfig struct {
	// Batches controls the revenue scan batch sizes.
	Batches BatchPolicy
	// MaxPageSize bounds the size of a requested page.
	MaxPageSize int
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNumbers overrides the order number supplier.
func WithNumbers(fn NumberFunc) Option {
	return func(s *Service) { s.number = fn }
}

// WithTelemetry sets the tracer and meter providers.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(s *Service) {
		s.tracerProvider = tp
		s.meterProvider = mp
	}
}

// Service orchestrates order operations. Every mutation runs in one
// read-write transaction; single reads run in read-only transactions.
type Service struct {
	repo        Repository
	stats       *Aggregator
	maxPageSize int

	now    func() time.Time
	number NumberFunc

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer

	created       metric.Int64Counter
	statusChanges metric.Int64Counter
	statsBatches  metric.Int64Counter
}

// NewService creates an order Service on top of repo.
func NewService(repo Repository, cfg ServiceConfig, opts ...Option) (*Service, error) {
	if cfg.Batches == nil {
		cfg.Batches = DoublingBatches{Initial: 500, Max: 50_000}
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}

	s := &Service{
		repo:           repo,
		stats:          NewAggregator(repo, cfg.Batches),
		maxPageSize:    cfg.MaxPageSize,
		now:            time.Now,
		number:         NewNumber,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.created, err = meter.Int64Counter("orders.created",
		metric.WithDescription("Orders created"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	if s.statusChanges, err = meter.Int64Counter("orders.status_changes",
		metric.WithDescription("Order status changes by source and target status"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.status_changes counter")
	}
	if s.statsBatches, err = meter.Int64Counter("orders.stats.batches",
		metric.WithDescription("Batches fetched while computing statistics"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.stats.batches counter")
	}

	return s, nil
}

// MaxPageSize returns the largest accepted page size.
func (s *Service) MaxPageSize() int {
	return s.maxPageSize
}

// Create validates f and persists a new PENDING order with a fresh number.
func (s *Service) Create(ctx context.Context, f Fields) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Create")
	defer func() { endSpan(span, rerr) }()

	f = f.Normalize()
	f.Status = nil
	if err := f.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	o := New(s.number(now), f, now)
	if err := s.repo.WithinTx(ctx, ReadWrite, func(ctx context.Context, st Store) error {
		return st.Insert(ctx, o)
	}); err != nil {
		return nil, errors.Wrap(err, "insert order")
	}

	s.created.Add(ctx, 1)
	zctx.From(ctx).Info("Order created",
		zap.Int64("order_id", o.ID),
		zap.String("order_number", o.Number),
	)
	return o, nil
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id int64) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer func() { endSpan(span, rerr) }()

	var o *Order
	if err := s.repo.WithinTx(ctx, ReadOnly, func(ctx context.Context, st Store) error {
		var err error
		o, err = st.Get(ctx, id)
		return err
	}); err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return o, nil
}

// Update overwrites the editable fields of an order. A present f.Status is a
// raw status write: it bypasses the transition table but is still refused
// for terminal orders.
func (s *Service) Update(ctx context.Context, id int64, f Fields) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Update", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer func() { endSpan(span, rerr) }()

	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var (
		o    *Order
		from Status
	)
	if err := s.repo.WithinTx(ctx, ReadWrite, func(ctx context.Context, st Store) error {
		var err error
		if o, err = st.Get(ctx, id); err != nil {
			return err
		}
		from = o.Status
		if err := o.Apply(f, s.now()); err != nil {
			return err
		}
		return st.Update(ctx, o)
	}); err != nil {
		return nil, errors.Wrapf(err, "update order %d", id)
	}

	if from != o.Status {
		s.recordStatusChange(ctx, o, from, "raw")
	}
	zctx.From(ctx).Info("Order updated",
		zap.Int64("order_id", o.ID),
		zap.Int64("version", o.Version),
	)
	return o, nil
}

// Delete removes an order permanently.
func (s *Service) Delete(ctx context.Context, id int64) (rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer func() { endSpan(span, rerr) }()

	if err := s.repo.WithinTx(ctx, ReadWrite, func(ctx context.Context, st Store) error {
		return st.Delete(ctx, id)
	}); err != nil {
		return errors.Wrapf(err, "delete order %d", id)
	}

	zctx.From(ctx).Info("Order deleted", zap.Int64("order_id", id))
	return nil
}

// List returns one page of all orders.
func (s *Service) List(ctx context.Context, p PageRequest) (*Page, error) {
	return s.Search(ctx, SearchCriteria{}, p)
}

// Search returns one page of the orders matching c.
func (s *Service) Search(ctx context.Context, c SearchCriteria, p PageRequest) (_ *Page, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Search")
	defer func() { endSpan(span, rerr) }()

	f, err := BuildFilter(c)
	if err != nil {
		return nil, err
	}

	var sl *Slice
	if err := s.repo.WithinTx(ctx, ReadOnly, func(ctx context.Context, st Store) error {
		var err error
		sl, err = st.Fetch(ctx, f, p.Window())
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "fetch orders")
	}

	return &Page{
		Orders:  sl.Orders,
		Page:    p.Page,
		Size:    p.Size,
		HasMore: sl.HasMore,
	}, nil
}

// ChangeStatus performs a checked status transition. Unknown statuses and
// moves missing from the transition table fail with ErrInvalidTransition.
func (s *Service) ChangeStatus(ctx context.Context, id int64, status string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.ChangeStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", status),
	))
	defer func() { endSpan(span, rerr) }()

	requested, ok := ParseStatus(status)
	if !ok {
		requested = Status(status)
	}

	var (
		o    *Order
		from Status
	)
	if err := s.repo.WithinTx(ctx, ReadWrite, func(ctx context.Context, st Store) error {
		var err error
		if o, err = st.Get(ctx, id); err != nil {
			return err
		}
		from = o.Status
		if err := o.ChangeStatus(requested, s.now()); err != nil {
			return err
		}
		return st.Update(ctx, o)
	}); err != nil {
		return nil, errors.Wrapf(err, "change status of order %d", id)
	}

	s.recordStatusChange(ctx, o, from, "checked")
	return o, nil
}

// CanCancel reports whether the order may currently be cancelled.
func (s *Service) CanCancel(ctx context.Context, id int64) (bool, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return o.CanBeCancelled(), nil
}

// Stats computes a statistics snapshot over all orders.
func (s *Service) Stats(ctx context.Context) (_ *Snapshot, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Stats")
	defer func() { endSpan(span, rerr) }()

	snap, err := s.stats.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "compute statistics")
	}

	s.statsBatches.Add(ctx, int64(snap.Batches))
	zctx.From(ctx).Debug("Statistics computed",
		zap.Int64("total_orders", snap.TotalOrders),
		zap.Int64("scanned", snap.Scanned),
		zap.Int("batches", snap.Batches),
	)
	return snap, nil
}

func (s *Service) recordStatusChange(ctx context.Context, o *Order, from Status, path string) {
	s.statusChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(o.Status)),
		attribute.String("path", path),
	))
	zctx.From(ctx).Info("Order status changed",
		zap.Int64("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status)),
		zap.String("path", path),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
