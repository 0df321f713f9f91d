package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-service/internal/storage/postgres"
	"github.com/xenking/order-service/internal/transfer"
)

func main() {
	var (
		databaseURL string
		expected    uint
		fpr         float64
		migrate     bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&expected, "expected", 1_000_000, "estimated number of distinct orders across all files")
	flag.Float64Var(&fpr, "fpr", 1e-6, "acceptable rate of distinct orders mistaken for repeats")
	flag.BoolVar(&migrate, "migrate", true, "apply the schema before importing")
	flag.Usage = func() {
		_, _ = io.WriteString(flag.CommandLine.Output(), "usage: order-import [flags] FILE.ndjson.gz...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	lg := zap.Must(zap.NewProduction())
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	sources := make([]transfer.Source, 0, flag.NArg())
	for _, path := range flag.Args() {
		sources = append(sources, transfer.Source{
			Name: path,
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}

	cfg := transfer.ImportConfig{ExpectedOrders: expected, FalsePositiveRate: fpr}
	if err := run(ctx, databaseURL, migrate, cfg, sources); err != nil {
		lg.Fatal("Import failed", zap.Error(err))
	}
}

func run(ctx context.Context, databaseURL string, migrate bool, cfg transfer.ImportConfig, sources []transfer.Source) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if migrate {
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
	}

	_, err = transfer.Import(ctx, postgres.NewOrderRepository(pool), cfg, sources)
	return err
}
