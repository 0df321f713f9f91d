// Package transfer moves orders in and out of a store as gzip-compressed
// newline-delimited JSON.
package transfer

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-service/internal/domain/order"
)

// encodeRecord writes o as a single JSON object. Identity and version are
// included for reference; importers assign fresh values.
func encodeRecord(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("orderNumber", func(e *jx.Encoder) { e.Str(o.Number) })
		e.Field("customerName", func(e *jx.Encoder) { e.Str(o.CustomerName) })
		if o.CustomerEmail != "" {
			e.Field("customerEmail", func(e *jx.Encoder) { e.Str(o.CustomerEmail) })
		}
		e.Field("totalAmount", func(e *jx.Encoder) { e.Num(jx.Num(o.TotalAmount.StringFixed(2))) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		if o.Notes != "" {
			e.Field("notes", func(e *jx.Encoder) { e.Str(o.Notes) })
		}
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano)) })
		e.Field("updatedAt", func(e *jx.Encoder) { e.Str(o.UpdatedAt.UTC().Format(time.RFC3339Nano)) })
		e.Field("version", func(e *jx.Encoder) { e.Int64(o.Version) })
	})
}

// decodeRecord parses one line produced by encodeRecord. Unknown keys are
// skipped so newer exports stay readable.
func decodeRecord(data []byte) (*order.Order, error) {
	var o order.Order
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Int64()
		case "orderNumber":
			o.Number, err = d.Str()
		case "customerName":
			o.CustomerName, err = d.Str()
		case "customerEmail":
			o.CustomerEmail, err = optStr(d)
		case "notes":
			o.Notes, err = optStr(d)
		case "status":
			var s string
			s, err = d.Str()
			o.Status = order.Status(s)
		case "totalAmount":
			o.TotalAmount, err = decodeAmount(d)
		case "createdAt":
			o.CreatedAt, err = decodeTime(d)
		case "updatedAt":
			o.UpdatedAt, err = decodeTime(d)
		case "version":
			o.Version, err = d.Int64()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &o, nil
}

func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	default:
		return decimal.Decimal{}, errors.New("expected number or string")
	}
	return decimal.NewFromString(raw)
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

// checkRecord reports why o cannot be stored as-is, or nil.
func checkRecord(o *order.Order) error {
	if o.Number == "" {
		return errors.New("missing order number")
	}
	if !o.Status.Valid() {
		return errors.Errorf("unknown status %q", o.Status)
	}
	if o.CreatedAt.IsZero() {
		return errors.New("missing creation time")
	}
	f := order.Fields{
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		TotalAmount:   o.TotalAmount,
		Notes:         o.Notes,
	}
	return f.Validate()
}
