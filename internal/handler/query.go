package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-service/internal/domain/order"
)

func orderID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &order.QueryParameterError{Param: "id", Value: raw}
	}
	return id, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &order.QueryParameterError{Param: name, Value: raw}
	}
	return v, nil
}

func decimalParam(q url.Values, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &order.QueryParameterError{Param: name, Value: raw}
	}
	return &d, nil
}

// pageRequest reads page, size, sortBy and sortDirection.
func (h *Handler) pageRequest(q url.Values) (order.PageRequest, error) {
	page, err := intParam(q, "page", 0)
	if err != nil {
		return order.PageRequest{}, err
	}
	size, err := intParam(q, "size", h.defaultPageSize)
	if err != nil {
		return order.PageRequest{}, err
	}
	sort, err := order.ParseSort(q.Get("sortBy"), q.Get("sortDirection"))
	if err != nil {
		return order.PageRequest{}, err
	}
	return order.NewPageRequest(page, size, h.orders.MaxPageSize(), sort)
}

func searchCriteria(q url.Values) (order.SearchCriteria, error) {
	c := order.SearchCriteria{
		CustomerName: q.Get("customerName"),
		Status:       q.Get("status"),
	}
	var err error
	if c.MinAmount, err = decimalParam(q, "minAmount"); err != nil {
		return order.SearchCriteria{}, err
	}
	if c.MaxAmount, err = decimalParam(q, "maxAmount"); err != nil {
		return order.SearchCriteria{}, err
	}
	return c, nil
}
