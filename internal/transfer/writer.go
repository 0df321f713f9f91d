package transfer

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"

	"github.com/xenking/order-service/internal/domain/order"
)

// Writer writes orders as gzip-compressed NDJSON, one order per line.
type Writer struct {
	gz      *pgzip.Writer
	e       jx.Encoder
	written int64
}

// NewWriter returns a Writer compressing onto w. Close must be called to
// flush the gzip trailer; it does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{gz: pgzip.NewWriter(w)}
}

// Write appends o as one line.
func (w *Writer) Write(o *order.Order) error {
	w.e.Reset()
	encodeRecord(&w.e, o)
	w.e.RawStr("\n")
	if _, err := w.gz.Write(w.e.Bytes()); err != nil {
		return errors.Wrapf(err, "write order %d", o.ID)
	}
	w.written++
	return nil
}

// Written returns the number of orders written so far.
func (w *Writer) Written() int64 {
	return w.written
}

// Close flushes buffered data and writes the gzip footer.
func (w *Writer) Close() error {
	if err := w.gz.Close(); err != nil {
		return errors.Wrap(err, "close gzip stream")
	}
	return nil
}
