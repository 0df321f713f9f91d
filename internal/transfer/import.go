package transfer

import (
	"context"
	"io"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-service/internal/domain/order"
)

// Source is one named export stream.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// ImportConfig sizes the order-number filter used to tell repeats within a
// run from numbers already held by the store.
type ImportConfig struct {
	// ExpectedOrders is the estimated number of distinct orders across all
	// sources.
	ExpectedOrders uint
	// FalsePositiveRate bounds how often a rejected insert is attributed to
	// a repeat within the run instead of an existing order. It never causes
	// an order to be skipped.
	FalsePositiveRate float64
}

// ImportResult summarizes an import.
type ImportResult struct {
	Inserted int64
	// Repeated counts duplicate records whose number was probably seen
	// earlier in this run.
	Repeated int64
	// Existing counts duplicate records whose number was not seen in this
	// run, so the store already held it.
	Existing int64
	// Rejected counts records that failed validation.
	Rejected int64
}

type record struct {
	source string
	line   int
	order  *order.Order
}

// Import decodes all sources concurrently and inserts their orders into st
// one at a time. Order numbers, statuses and timestamps are preserved; IDs
// and versions are assigned by the store.
//
// Every valid record is offered to the store, whose uniqueness constraint on
// the order number decides exactly which records are duplicates. A Bloom
// filter of the numbers seen so far only classifies those duplicates as
// Repeated or Existing.
func Import(ctx context.Context, st order.Store, cfg ImportConfig, sources []Source) (*ImportResult, error) {
	if cfg.ExpectedOrders == 0 {
		cfg.ExpectedOrders = 1_000_000
	}
	if cfg.FalsePositiveRate <= 0 {
		cfg.FalsePositiveRate = 1e-6
	}

	var (
		lg      = zctx.From(ctx)
		seen    = bloom.NewWithEstimates(cfg.ExpectedOrders, cfg.FalsePositiveRate)
		records = make(chan record, 1024)
		res     = new(ImportResult)
	)

	g, gctx := errgroup.WithContext(ctx)
	decoders, dctx := errgroup.WithContext(gctx)
	for _, src := range sources {
		decoders.Go(func() error {
			return decodeSource(dctx, src, records)
		})
	}
	g.Go(func() error {
		defer close(records)
		return decoders.Wait()
	})
	g.Go(func() error {
		for rec := range records {
			if err := insertRecord(gctx, st, seen, rec, res); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return res, err
	}

	lg.Info("Import finished",
		zap.Int64("inserted", res.Inserted),
		zap.Int64("repeated", res.Repeated),
		zap.Int64("existing", res.Existing),
		zap.Int64("rejected", res.Rejected),
	)
	return res, nil
}

func decodeSource(ctx context.Context, src Source, out chan<- record) error {
	rc, err := src.Open()
	if err != nil {
		return errors.Wrapf(err, "open %s", src.Name)
	}
	defer func() { _ = rc.Close() }()

	r, err := NewReader(rc)
	if err != nil {
		return errors.Wrap(err, src.Name)
	}
	defer func() { _ = r.Close() }()

	for r.Next() {
		select {
		case out <- record{source: src.Name, line: r.Line(), order: r.Order()}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := r.Err(); err != nil {
		return errors.Wrap(err, src.Name)
	}
	return nil
}

func insertRecord(ctx context.Context, st order.Store, seen *bloom.BloomFilter, rec record, res *ImportResult) error {
	lg := zctx.From(ctx)
	o := rec.order

	if err := checkRecord(o); err != nil {
		res.Rejected++
		lg.Warn("Record rejected",
			zap.String("source", rec.source),
			zap.Int("line", rec.line),
			zap.Error(err),
		)
		return nil
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}

	seenBefore := seen.TestOrAddString(o.Number)
	if err := st.Insert(ctx, o); err != nil {
		if errors.Is(err, order.ErrDuplicateNumber) {
			if seenBefore {
				res.Repeated++
			} else {
				res.Existing++
			}
			return nil
		}
		return errors.Wrapf(err, "%s line %d", rec.source, rec.line)
	}
	res.Inserted++
	return nil
}
