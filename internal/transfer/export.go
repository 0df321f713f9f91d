package transfer

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-service/internal/domain/order"
)

// Export writes every order in src to w in ID order, reading in batches sized
// by policy. It returns the number of orders written.
func Export(ctx context.Context, src order.Fetcher, policy order.BatchPolicy, w *Writer) (int64, error) {
	lg := zctx.From(ctx)

	sc := order.NewScanner(src, order.Filter{}, policy)
	for sc.Next(ctx) {
		batch := sc.Batch()
		for i := range batch {
			if err := w.Write(&batch[i]); err != nil {
				return w.Written(), err
			}
		}
		lg.Debug("Batch exported",
			zap.Int("batch", sc.Batches()),
			zap.Int("size", len(batch)),
			zap.Int64("written", w.Written()),
		)
	}
	if err := sc.Err(); err != nil {
		return w.Written(), errors.Wrap(err, "scan orders")
	}
	return w.Written(), nil
}
