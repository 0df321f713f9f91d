package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSort(t *testing.T) {
	s, err := ParseSort("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultSort, s)

	s, err = ParseSort("totalAmount", "ASC")
	require.NoError(t, err)
	assert.Equal(t, Sort{Field: SortByTotalAmount}, s)

	s, err = ParseSort("customerName", "")
	require.NoError(t, err)
	assert.Equal(t, Sort{Field: SortByCustomerName, Descending: true}, s)
}

func TestParseSort_Rejects(t *testing.T) {
	tests := []struct {
		field, direction, param string
	}{
		{"total_amount; DROP TABLE orders", "", "sortBy"},
		{"password", "asc", "sortBy"},
		{"id", "sideways", "sortDirection"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := ParseSort(tt.field, tt.direction)

			var qe *QueryParameterError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.param, qe.Param)
		})
	}
}

func TestSort_Compare_TieBreaksByID(t *testing.T) {
	a := &Order{ID: 1, TotalAmount: decimal.NewFromInt(10), CreatedAt: time.Unix(100, 0)}
	b := &Order{ID: 2, TotalAmount: decimal.NewFromInt(10), CreatedAt: time.Unix(50, 0)}

	asc := Sort{Field: SortByTotalAmount}
	assert.Negative(t, asc.Compare(a, b))

	desc := Sort{Field: SortByTotalAmount, Descending: true}
	assert.Positive(t, desc.Compare(a, b))

	byCreated := Sort{Field: SortByCreatedAt}
	assert.Positive(t, byCreated.Compare(a, b))
}

func TestNewPageRequest(t *testing.T) {
	p, err := NewPageRequest(2, 25, 100, DefaultSort)
	require.NoError(t, err)
	assert.Equal(t, Window{Offset: 50, Limit: 25, Sort: DefaultSort}, p.Window())

	tests := []struct {
		name       string
		page, size int
		param      string
	}{
		{"negative page", -1, 10, "page"},
		{"zero size", 0, 0, "size"},
		{"oversized", 0, 101, "size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPageRequest(tt.page, tt.size, 100, DefaultSort)

			var qe *QueryParameterError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.param, qe.Param)
		})
	}
}
