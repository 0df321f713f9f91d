package transfer

import (
	"bufio"
	"io"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"

	"github.com/xenking/order-service/internal/domain/order"
)

// maxLineSize bounds a single encoded order.
const maxLineSize = 1 << 20

// Reader decodes a stream written by Writer.
//
//	r, err := NewReader(f)
//	for r.Next() {
//		o := r.Order()
//	}
//	if err := r.Err(); err != nil { ... }
type Reader struct {
	gz   *pgzip.Reader
	sc   *bufio.Scanner
	line int
	cur  *order.Order
	err  error
}

// NewReader returns a Reader decompressing r.
func NewReader(r io.Reader) (*Reader, error) {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &Reader{gz: gz, sc: sc}, nil
}

// Next decodes the following non-blank line. It returns false at the end of
// the stream or on the first malformed line.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	for r.sc.Scan() {
		r.line++
		data := r.sc.Bytes()
		if len(data) == 0 {
			continue
		}
		o, err := decodeRecord(data)
		if err != nil {
			r.err = errors.Wrapf(err, "line %d", r.line)
			return false
		}
		r.cur = o
		return true
	}
	if err := r.sc.Err(); err != nil {
		r.err = errors.Wrapf(err, "read line %d", r.line+1)
	}
	return false
}

// Order returns the order decoded by the last successful Next.
func (r *Reader) Order() *order.Order {
	return r.cur
}

// Line returns the line number of the current order.
func (r *Reader) Line() int {
	return r.line
}

// Err returns the error that stopped the Reader, if any.
func (r *Reader) Err() error {
	return r.err
}

// Close releases the decompressor. It does not close the underlying reader.
func (r *Reader) Close() error {
	return r.gz.Close()
}
