package handler

import (
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-service/internal/domain/order"
)

// maxBodySize bounds request bodies; orders are small.
const maxBodySize = 64 << 10

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func money(d decimal.Decimal) jx.Num {
	return jx.Num(d.StringFixed(2))
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("orderNumber", func(e *jx.Encoder) { e.Str(o.Number) })
		e.Field("customerName", func(e *jx.Encoder) { e.Str(o.CustomerName) })
		e.Field("customerEmail", func(e *jx.Encoder) { optStr(e, o.CustomerEmail) })
		e.Field("totalAmount", func(e *jx.Encoder) { e.Num(money(o.TotalAmount)) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("notes", func(e *jx.Encoder) { optStr(e, o.Notes) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano)) })
		e.Field("updatedAt", func(e *jx.Encoder) { e.Str(o.UpdatedAt.UTC().Format(time.RFC3339Nano)) })
		e.Field("version", func(e *jx.Encoder) { e.Int64(o.Version) })
		e.Field("cancellable", func(e *jx.Encoder) { e.Bool(o.CanBeCancelled()) })
	})
}

func encodePage(e *jx.Encoder, p *order.Page) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("content", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range p.Orders {
					encodeOrder(e, &p.Orders[i])
				}
			})
		})
		e.Field("page", func(e *jx.Encoder) { e.Int(p.Page) })
		e.Field("size", func(e *jx.Encoder) { e.Int(p.Size) })
		e.Field("numberOfElements", func(e *jx.Encoder) { e.Int(len(p.Orders)) })
		e.Field("hasMore", func(e *jx.Encoder) { e.Bool(p.HasMore) })
	})
}

func encodeStats(e *jx.Encoder, s *order.Snapshot) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("totalOrders", func(e *jx.Encoder) { e.Int64(s.TotalOrders) })
		for _, st := range order.Statuses() {
			name := strings.ToLower(string(st)) + "Orders"
			e.Field(name, func(e *jx.Encoder) { e.Int64(s.ByStatus[st]) })
		}
		e.Field("totalRevenue", func(e *jx.Encoder) { e.Num(money(s.TotalRevenue)) })
		e.Field("averageOrderValue", func(e *jx.Encoder) { e.Num(money(s.AverageOrderValue)) })
	})
}

func optStr(e *jx.Encoder, s string) {
	if s == "" {
		e.Null()
		return
	}
	e.Str(s)
}

// decodeFields reads an order request body. Syntax errors yield
// errMalformedBody; well-formed values of the wrong type are reported per
// field as a validation error.
func decodeFields(r io.Reader) (order.Fields, error) {
	var (
		f    order.Fields
		bad  = map[string]string{}
		body = jx.Decode(io.LimitReader(r, maxBodySize), 4096)
	)

	if body.Next() != jx.Object {
		return f, errMalformedBody
	}

	err := body.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "customerName":
			return decodeStr(d, key, &f.CustomerName, bad)
		case "customerEmail":
			return decodeStr(d, key, &f.CustomerEmail, bad)
		case "notes":
			return decodeStr(d, key, &f.Notes, bad)
		case "totalAmount":
			amount, ok, err := decodeDecimal(d)
			if err != nil {
				return err
			}
			if !ok {
				bad[key] = "Invalid amount format"
				return nil
			}
			f.TotalAmount = amount
			return nil
		case "status":
			var raw string
			if d.Next() == jx.Null {
				return d.Null()
			}
			if err := decodeStr(d, key, &raw, bad); err != nil {
				return err
			}
			st := order.Status(strings.TrimSpace(raw))
			f.Status = &st
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return f, errors.Wrap(errMalformedBody, err.Error())
	}

	if len(bad) > 0 {
		return f, &order.ValidationError{Fields: bad}
	}
	return f, nil
}

func decodeStr(d *jx.Decoder, key string, dst *string, bad map[string]string) error {
	switch d.Next() {
	case jx.Null:
		return d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		*dst = s
		return nil
	default:
		bad[key] = "Must be a string"
		return d.Skip()
	}
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, bool, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, false, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, false, err
		}
		raw = s
	case jx.Null:
		return decimal.Decimal{}, true, d.Null()
	default:
		return decimal.Decimal{}, false, d.Skip()
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, false, nil
	}
	return amount, true, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
