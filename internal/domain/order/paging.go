package order

import (
	"cmp"
	"strconv"
	"strings"
)

// SortField is a persisted attribute orders may be sorted by. Only the
// values declared below are accepted from callers.
type SortField string

const (
	SortByID            SortField = "id"
	SortByNumber        SortField = "orderNumber"
	SortByCustomerName  SortField = "customerName"
	SortByCustomerEmail SortField = "customerEmail"
	SortByTotalAmount   SortField = "totalAmount"
	SortByStatus        SortField = "status"
	SortByCreatedAt     SortField = "createdAt"
	SortByUpdatedAt     SortField = "updatedAt"
)

var sortFields = map[SortField]struct{}{
	SortByID:            {},
	SortByNumber:        {},
	SortByCustomerName:  {},
	SortByCustomerEmail: {},
	SortByTotalAmount:   {},
	SortByStatus:        {},
	SortByCreatedAt:     {},
	SortByUpdatedAt:     {},
}

// DefaultSort is newest first.
var DefaultSort = Sort{Field: SortByCreatedAt, Descending: true}

// Sort is a validated ordering.
type Sort struct {
	Field      SortField
	Descending bool
}

// ParseSort validates caller-supplied sort parameters. Empty values fall back
// to DefaultSort's field and direction.
func ParseSort(field, direction string) (Sort, error) {
	s := DefaultSort

	if field = strings.TrimSpace(field); field != "" {
		f := SortField(field)
		if _, ok := sortFields[f]; !ok {
			return Sort{}, &QueryParameterError{Param: "sortBy", Value: field}
		}
		s.Field = f
	}

	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "":
	case "asc":
		s.Descending = false
	case "desc":
		s.Descending = true
	default:
		return Sort{}, &QueryParameterError{Param: "sortDirection", Value: direction}
	}
	return s, nil
}

// Compare orders a and b according to s. Ties are broken by ID so that
// paging over equal keys is stable.
func (s Sort) Compare(a, b *Order) int {
	var c int
	switch s.Field {
	case SortByNumber:
		c = cmp.Compare(a.Number, b.Number)
	case SortByCustomerName:
		c = cmp.Compare(a.CustomerName, b.CustomerName)
	case SortByCustomerEmail:
		c = cmp.Compare(a.CustomerEmail, b.CustomerEmail)
	case SortByTotalAmount:
		c = a.TotalAmount.Cmp(b.TotalAmount)
	case SortByStatus:
		c = cmp.Compare(a.Status, b.Status)
	case SortByCreatedAt:
		c = a.CreatedAt.Compare(b.CreatedAt)
	case SortByUpdatedAt:
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	}
	if c == 0 {
		c = cmp.Compare(a.ID, b.ID)
	}
	if s.Descending {
		return -c
	}
	return c
}

// PageRequest is a validated page number, page size and ordering.
type PageRequest struct {
	Page int
	Size int
	Sort Sort
}

// NewPageRequest validates paging input. Page is zero-based; size must be in
// [1, maxSize].
func NewPageRequest(page, size, maxSize int, sort Sort) (PageRequest, error) {
	if page < 0 {
		return PageRequest{}, &QueryParameterError{Param: "page", Value: strconv.Itoa(page)}
	}
	if size < 1 || size > maxSize {
		return PageRequest{}, &QueryParameterError{Param: "size", Value: strconv.Itoa(size)}
	}
	return PageRequest{Page: page, Size: size, Sort: sort}, nil
}

// Window converts the page into an offset/limit range.
func (p PageRequest) Window() Window {
	return Window{Offset: p.Page * p.Size, Limit: p.Size, Sort: p.Sort}
}

// Window is an offset/limit range over a sorted result set.
type Window struct {
	Offset int
	Limit  int
	Sort   Sort
}

// Slice is one fetched window. HasMore reports whether rows exist past it.
type Slice struct {
	Orders  []Order
	HasMore bool
}

// Page is a Slice annotated with the request that produced it.
type Page struct {
	Orders  []Order
	Page    int
	Size    int
	HasMore bool
}
