package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-service/internal/domain/order"
	"github.com/xenking/order-service/internal/storage/postgres"
	"github.com/xenking/order-service/internal/transfer"
)

func main() {
	var (
		databaseURL  string
		out          string
		initialBatch int
		maxBatch     int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&out, "out", "orders.ndjson.gz", "output file")
	flag.IntVar(&initialBatch, "initial-batch", 500, "first read batch size")
	flag.IntVar(&maxBatch, "max-batch", 50000, "largest read batch size")
	flag.Parse()

	lg := zap.Must(zap.NewProduction())
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	policy := order.DoublingBatches{Initial: initialBatch, Max: maxBatch}
	n, err := run(ctx, databaseURL, out, policy)
	if err != nil {
		lg.Fatal("Export failed", zap.Error(err), zap.Int64("written", n))
	}

	lg.Info("Export completed", zap.String("out", out), zap.Int64("orders", n))
}

func run(ctx context.Context, databaseURL, out string, policy order.BatchPolicy) (_ int64, rerr error) {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return 0, errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	f, err := os.Create(out)
	if err != nil {
		return 0, errors.Wrap(err, "create output")
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrap(err, "close output")
		}
	}()

	w := transfer.NewWriter(f)
	n, err := transfer.Export(ctx, postgres.NewOrderRepository(pool), policy, w)
	if err != nil {
		_ = w.Close()
		return n, err
	}
	return n, w.Close()
}
