// Package handler exposes the order service over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/xenking/order-service/internal/domain/order"
)

// codeMethodNotAllowed is the error code of a request whose path exists but
// does not accept the method.
const codeMethodNotAllowed order.Kind = "METHOD_NOT_ALLOWED"

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// DefaultPageSize applies when a listing request carries no size.
	DefaultPageSize int
}

// Handler translates HTTP requests into order service calls.
type Handler struct {
	orders          *order.Service
	defaultPageSize int
	now             func() time.Time
}

// NewHandler constructs a Handler on top of the order service.
func NewHandler(cfg HandlerConfig, orders *order.Service) *Handler {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 10
	}
	return &Handler{
		orders:          orders,
		defaultPageSize: min(cfg.DefaultPageSize, orders.MaxPageSize()),
		now:             time.Now,
	}
}

// Routes returns the router serving the order API under /api/v1/orders.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed)

	jsonBody := chimw.AllowContentType("application/json")

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.With(jsonBody).Post("/", h.createOrder)
		r.Get("/", h.listOrders)
		r.Get("/search", h.searchOrders)
		r.Get("/stats", h.orderStats)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getOrder)
			r.With(jsonBody).Put("/", h.updateOrder)
			r.Delete("/", h.deleteOrder)
			r.Patch("/", h.changeStatus)
		})
	})
	return r
}

// InternalError writes a generic 500 error envelope. It backs panic recovery.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	h.writeEnvelope(w, errorEnvelope{
		Code:    order.KindInternal,
		Message: internalMessage,
		Status:  http.StatusInternalServerError,
	})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.writeEnvelope(w, errorEnvelope{
		Code:    order.KindNotFound,
		Message: "No route for " + r.Method + " " + r.URL.Path,
		Status:  http.StatusNotFound,
	})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeEnvelope(w, errorEnvelope{
		Code:    codeMethodNotAllowed,
		Message: "Method " + r.Method + " is not allowed on " + r.URL.Path,
		Status:  http.StatusMethodNotAllowed,
	})
}
