package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/order-service/internal/domain/order"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	f, err := decodeFields(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.orders.Create(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+strconv.FormatInt(o.ID, 10))
	writeOrder(w, http.StatusCreated, o)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := decodeFields(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.orders.Update(r.Context(), id, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// changeStatus performs a checked transition to the status given in the
// "status" query parameter.
func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := r.URL.Query().Get("status")
	if strings.TrimSpace(status) == "" {
		h.writeError(w, r, &order.QueryParameterError{Param: "status", Value: status})
		return
	}

	o, err := h.orders.ChangeStatus(r.Context(), id, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	p, err := h.pageRequest(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.orders.List(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writePage(w, page)
}

func (h *Handler) searchOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := searchCriteria(q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.pageRequest(q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.orders.Search(r.Context(), c, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writePage(w, page)
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.orders.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeStats(e, snap)
	writeJSON(w, http.StatusOK, e.Bytes())
}

func writeOrder(w http.ResponseWriter, status int, o *order.Order) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeOrder(e, o)
	writeJSON(w, status, e.Bytes())
}

func writePage(w http.ResponseWriter, p *order.Page) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodePage(e, p)
	writeJSON(w, http.StatusOK, e.Bytes())
}
