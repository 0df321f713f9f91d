package postgres

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-service/internal/domain/order"
)

func TestSelectQuery_Unrestricted(t *testing.T) {
	q, err := selectQuery(order.Filter{}, order.Window{Offset: 20, Limit: 10, Sort: order.DefaultSort})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
		q.String())
	assert.Equal(t, []any{11, 20}, q.args)
}

func TestSelectQuery_AllConstraints(t *testing.T) {
	minAmount := decimal.RequireFromString("100")
	maxAmount := decimal.RequireFromString("500")
	f, err := order.BuildFilter(order.SearchCriteria{
		CustomerName: "John",
		Status:       "PENDING",
		MinAmount:    &minAmount,
		MaxAmount:    &maxAmount,
	})
	require.NoError(t, err)

	q, err := selectQuery(f, order.Window{Limit: 5, Sort: order.Sort{Field: order.SortByID}})
	require.NoError(t, err)

	assert.Equal(t, "SELECT "+orderColumns+" FROM orders"+
		" WHERE customer_name ILIKE $1 AND status = $2 AND total_amount >= $3 AND total_amount <= $4"+
		" ORDER BY id ASC LIMIT $5 OFFSET $6", q.String())
	require.Len(t, q.args, 6)
	assert.Equal(t, "%john%", q.args[0])
	assert.Equal(t, "PENDING", q.args[1])
	assert.Equal(t, minAmount, q.args[2])
	assert.Equal(t, maxAmount, q.args[3])
}

func TestSelectQuery_EscapesLikeWildcards(t *testing.T) {
	f, err := order.BuildFilter(order.SearchCriteria{CustomerName: `50%_off\`})
	require.NoError(t, err)

	q, err := countQuery(f)
	require.NoError(t, err)

	assert.Equal(t, "SELECT count(*) FROM orders WHERE customer_name ILIKE $1", q.String())
	assert.Equal(t, []any{`%50\%\_off\\%`}, q.args)
}

func TestSelectQuery_EverySortFieldHasColumn(t *testing.T) {
	fields := []order.SortField{
		order.SortByID, order.SortByNumber, order.SortByCustomerName, order.SortByCustomerEmail,
		order.SortByTotalAmount, order.SortByStatus, order.SortByCreatedAt, order.SortByUpdatedAt,
	}
	for _, field := range fields {
		_, err := selectQuery(order.Filter{}, order.Window{Limit: 1, Sort: order.Sort{Field: field}})
		assert.NoError(t, err, field)
	}

	_, err := selectQuery(order.Filter{}, order.Window{Limit: 1, Sort: order.Sort{Field: "password"}})
	require.Error(t, err)
}

func TestCountQuery_Unrestricted(t *testing.T) {
	q, err := countQuery(order.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT count(*) FROM orders", q.String())
	assert.Empty(t, q.args)
}
