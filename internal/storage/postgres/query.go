package postgres

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/order-service/internal/domain/order"
)

const orderColumns = `id, order_number, customer_name, COALESCE(customer_email, ''),
	total_amount, status, COALESCE(notes, ''), created_at, updated_at, version`

// sortColumns maps every accepted sort field to its column. Sort fields are
// validated by the domain, so only these identifiers ever reach SQL text.
var sortColumns = map[order.SortField]string{
	order.SortByID:            "id",
	order.SortByNumber:        "order_number",
	order.SortByCustomerName:  "customer_name",
	order.SortByCustomerEmail: "customer_email",
	order.SortByTotalAmount:   "total_amount",
	order.SortByStatus:        "status",
	order.SortByCreatedAt:     "created_at",
	order.SortByUpdatedAt:     "updated_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// query accumulates SQL text and its positional arguments.
type query struct {
	sb   strings.Builder
	args []any
}

func (q *query) write(s string) {
	q.sb.WriteString(s)
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) String() string {
	return q.sb.String()
}

// where appends the conjunction of f's constraints.
func (q *query) where(f order.Filter) error {
	for i, c := range f.Constraints {
		if i == 0 {
			q.write(" WHERE ")
		} else {
			q.write(" AND ")
		}

		switch c := c.(type) {
		case order.NameContains:
			q.write("customer_name ILIKE " + q.arg("%"+likeEscaper.Replace(c.Substring)+"%"))
		case order.StatusEquals:
			q.write("status = " + q.arg(string(c.Status)))
		case order.AmountAtLeast:
			q.write("total_amount >= " + q.arg(c.Min))
		case order.AmountAtMost:
			q.write("total_amount <= " + q.arg(c.Max))
		default:
			return errors.Errorf("unsupported constraint %T", c)
		}
	}
	return nil
}

func (q *query) orderBy(s order.Sort) error {
	col, ok := sortColumns[s.Field]
	if !ok {
		return errors.Errorf("unsupported sort field %q", s.Field)
	}
	dir := " ASC"
	if s.Descending {
		dir = " DESC"
	}
	q.write(" ORDER BY " + col + dir)
	if col != "id" {
		q.write(", id" + dir)
	}
	return nil
}

// selectQuery builds the window query. It asks for one row past the window
// so the caller can tell whether more rows exist.
func selectQuery(f order.Filter, w order.Window) (*query, error) {
	q := &query{}
	q.write("SELECT " + orderColumns + " FROM orders")
	if err := q.where(f); err != nil {
		return nil, err
	}
	if err := q.orderBy(w.Sort); err != nil {
		return nil, err
	}
	q.write(" LIMIT " + q.arg(w.Limit+1))
	q.write(" OFFSET " + q.arg(w.Offset))
	return q, nil
}

func countQuery(f order.Filter) (*query, error) {
	q := &query{}
	q.write("SELECT count(*) FROM orders")
	if err := q.where(f); err != nil {
		return nil, err
	}
	return q, nil
}
