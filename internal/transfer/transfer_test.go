package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-service/internal/domain/order"
	"github.com/xenking/order-service/internal/storage/memory"
)

var created = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func seedStore(t *testing.T, n int) *memory.OrderStore {
	t.Helper()

	st := memory.NewOrderStore()
	statuses := order.Statuses()
	for i := range n {
		o := &order.Order{
			Number:       fmt.Sprintf("ORD-1-%03d", i),
			CustomerName: fmt.Sprintf("Customer %d", i),
			TotalAmount:  decimal.NewFromInt(int64(10 * (i + 1))),
			Status:       statuses[i%len(statuses)],
			CreatedAt:    created.Add(time.Duration(i) * time.Hour),
			UpdatedAt:    created.Add(time.Duration(i) * time.Hour),
		}
		if i%2 == 0 {
			o.CustomerEmail = "c@example.com"
			o.Notes = "note"
		}
		require.NoError(t, st.Insert(context.Background(), o))
	}
	return st
}

func exportAll(t *testing.T, st order.Fetcher) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	n, err := Export(context.Background(), st, order.DoublingBatches{Initial: 2, Max: 4}, w)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, w.Written(), n)
	return buf.Bytes()
}

func gzipLines(t *testing.T, lines ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	_, err := gz.Write([]byte(strings.Join(lines, "\n")))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func source(name string, data []byte) Source {
	return Source{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func TestExportRoundTrip(t *testing.T) {
	src := seedStore(t, 7)
	data := exportAll(t, src)

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	var got []*order.Order
	for r.Next() {
		got = append(got, r.Order())
	}
	require.NoError(t, r.Err())
	require.Len(t, got, 7)

	for i, o := range got {
		want, err := src.Get(context.Background(), int64(i+1))
		require.NoError(t, err)

		assert.Equal(t, want.ID, o.ID)
		assert.Equal(t, want.Number, o.Number)
		assert.Equal(t, want.CustomerName, o.CustomerName)
		assert.Equal(t, want.CustomerEmail, o.CustomerEmail)
		assert.Equal(t, want.Notes, o.Notes)
		assert.Equal(t, want.Status, o.Status)
		assert.True(t, want.TotalAmount.Equal(o.TotalAmount))
		assert.True(t, want.CreatedAt.Equal(o.CreatedAt))
		assert.True(t, want.UpdatedAt.Equal(o.UpdatedAt))
	}
}

func TestExport_Empty(t *testing.T) {
	data := exportAll(t, memory.NewOrderStore())

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
}

func TestReader_Lines(t *testing.T) {
	data := gzipLines(t,
		`{"orderNumber":"ORD-1","customerName":"Ann","totalAmount":"12.50","status":"PENDING","createdAt":"2024-03-01T09:30:00Z","extra":[1,2]}`,
		``,
		`{"orderNumber":"ORD-2","customerName":"Bob","customerEmail":null,"totalAmount":3,"status":"SHIPPED","createdAt":"2024-03-01T09:30:00Z"}`,
		`{"orderNumber":`,
	)

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	require.True(t, r.Next())
	assert.Equal(t, "ORD-1", r.Order().Number)
	assert.Equal(t, "12.5", r.Order().TotalAmount.String())
	assert.Equal(t, 1, r.Line())

	require.True(t, r.Next())
	assert.Equal(t, "ORD-2", r.Order().Number)
	assert.Equal(t, order.StatusShipped, r.Order().Status)
	assert.Empty(t, r.Order().CustomerEmail)
	assert.Equal(t, 3, r.Line())

	assert.False(t, r.Next())
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "line 4")
	assert.False(t, r.Next())
}

func TestDecodeRecord(t *testing.T) {
	o, err := decodeRecord([]byte(`{"id":4,"orderNumber":"ORD-7","customerName":"Ann Lee","notes":null,` +
		`"totalAmount":19.9,"status":"CONFIRMED","createdAt":"2024-03-01T09:30:00Z","version":2}`))
	require.NoError(t, err)

	assert.Equal(t, int64(4), o.ID)
	assert.Equal(t, "ORD-7", o.Number)
	assert.Equal(t, "Ann Lee", o.CustomerName)
	assert.Empty(t, o.Notes)
	assert.Equal(t, "19.9", o.TotalAmount.String())
	assert.Equal(t, order.StatusConfirmed, o.Status)
	assert.True(t, created.Equal(o.CreatedAt))
	assert.Equal(t, int64(2), o.Version)

	_, err = decodeRecord([]byte(`{"totalAmount":true}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "totalAmount")
}

func TestWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(&order.Order{ID: 1, Number: "ORD-1", CreatedAt: created, UpdatedAt: created}))
	require.NoError(t, w.Close())
	assert.Equal(t, int64(1), w.Written())
	assert.NotEmpty(t, buf.Bytes())
}

func TestNewReader_NotGzip(t *testing.T) {
	_, err := NewReader(strings.NewReader("plain text"))
	require.Error(t, err)
}

func TestImport(t *testing.T) {
	data := exportAll(t, seedStore(t, 6))
	dst := memory.NewOrderStore()

	res, err := Import(context.Background(), dst, ImportConfig{ExpectedOrders: 100},
		[]Source{source("a.ndjson.gz", data), source("b.ndjson.gz", data)})
	require.NoError(t, err)

	assert.Equal(t, &ImportResult{Inserted: 6, Repeated: 6}, res)

	n, err := dst.Count(context.Background(), order.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	sl, err := dst.Fetch(context.Background(), order.StatusFilter(order.StatusDelivered), order.Window{
		Limit: 10,
		Sort:  order.Sort{Field: order.SortByID},
	})
	require.NoError(t, err)
	require.Len(t, sl.Orders, 1)
	assert.Equal(t, int64(0), sl.Orders[0].Version)
	assert.True(t, created.Add(3*time.Hour).Equal(sl.Orders[0].CreatedAt))
}

func TestImport_UndersizedFilter(t *testing.T) {
	const distinct = 200
	data := exportAll(t, seedStore(t, distinct))
	cfg := ImportConfig{ExpectedOrders: 20, FalsePositiveRate: 0.01}

	t.Run("single source", func(t *testing.T) {
		dst := memory.NewOrderStore()
		res, err := Import(context.Background(), dst, cfg, []Source{source("a.ndjson.gz", data)})
		require.NoError(t, err)
		assert.Equal(t, &ImportResult{Inserted: distinct}, res)

		n, err := dst.Count(context.Background(), order.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(distinct), n)
	})

	t.Run("every order twice", func(t *testing.T) {
		dst := memory.NewOrderStore()
		res, err := Import(context.Background(), dst, cfg,
			[]Source{source("a.ndjson.gz", data), source("b.ndjson.gz", data)})
		require.NoError(t, err)
		assert.Equal(t, &ImportResult{Inserted: distinct, Repeated: distinct}, res)

		n, err := dst.Count(context.Background(), order.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(distinct), n)
	})
}

func TestImport_ExistingAndRejected(t *testing.T) {
	dst := seedStore(t, 2)
	data := gzipLines(t,
		`{"orderNumber":"ORD-1-000","customerName":"Customer 0","totalAmount":10,"status":"PENDING","createdAt":"2024-03-01T09:30:00Z"}`,
		`{"orderNumber":"ORD-9","customerName":"X","totalAmount":10,"status":"PENDING","createdAt":"2024-03-01T09:30:00Z"}`,
		`{"orderNumber":"ORD-10","customerName":"Valid Name","totalAmount":10,"status":"LOST","createdAt":"2024-03-01T09:30:00Z"}`,
		`{"orderNumber":"ORD-11","customerName":"Valid Name","totalAmount":10.5,"status":"CANCELLED","createdAt":"2024-03-01T09:30:00Z"}`,
	)

	res, err := Import(context.Background(), dst, ImportConfig{}, []Source{source("c.ndjson.gz", data)})
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Inserted: 1, Existing: 1, Rejected: 2}, res)

	o, err := dst.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "ORD-11", o.Number)
	assert.Equal(t, order.StatusCancelled, o.Status)
	assert.True(t, o.UpdatedAt.Equal(o.CreatedAt))
}

func TestImport_SourceFailure(t *testing.T) {
	good := exportAll(t, seedStore(t, 3))
	bad := Source{
		Name: "missing.ndjson.gz",
		Open: func() (io.ReadCloser, error) { return nil, io.ErrUnexpectedEOF },
	}

	_, err := Import(context.Background(), memory.NewOrderStore(), ImportConfig{},
		[]Source{source("good.ndjson.gz", good), bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open missing.ndjson.gz")
}
