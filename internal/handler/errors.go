package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-service/internal/domain/order"
)

const (
	internalMessage    = "An unexpected error occurred"
	unavailableMessage = "Order storage is temporarily unavailable, retry later"
)

// errMalformedBody reports a request body that is not a JSON object.
var errMalformedBody = errors.New("malformed request body")

// errorEnvelope is the body of every error response.
type errorEnvelope struct {
	Code    order.Kind
	Message string
	Status  int
	Fields  map[string]string
}

// statusOf maps an error kind to its HTTP status code.
func statusOf(k order.Kind) int {
	switch k {
	case order.KindValidation, order.KindInvalidQueryParameter:
		return http.StatusBadRequest
	case order.KindNotFound:
		return http.StatusNotFound
	case order.KindInvalidTransition, order.KindIllegalState, order.KindConcurrentModification:
		return http.StatusConflict
	case order.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError classifies err and writes the matching error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errMalformedBody) {
		h.writeEnvelope(w, errorEnvelope{
			Code:    order.KindValidation,
			Message: "Malformed JSON request body",
			Status:  http.StatusBadRequest,
		})
		return
	}

	kind := order.KindOf(err)
	env := errorEnvelope{
		Code:    kind,
		Message: messageOf(kind, err),
		Status:  statusOf(kind),
	}

	var ve *order.ValidationError
	if errors.As(err, &ve) {
		env.Fields = ve.Fields
	}

	lg := zctx.From(r.Context())
	switch kind {
	case order.KindInternal:
		lg.Error("Request failed", zap.Error(err))
	case order.KindStoreUnavailable:
		lg.Warn("Order store unavailable", zap.Error(err))
	default:
		lg.Debug("Request rejected", zap.String("kind", string(kind)), zap.Error(err))
	}

	h.writeEnvelope(w, env)
}

// messageOf picks the caller-facing message for err. Typed domain errors
// carry their own text; internal failures are never echoed.
func messageOf(kind order.Kind, err error) string {
	var (
		te *order.TransitionError
		qe *order.QueryParameterError
	)
	switch {
	case kind == order.KindValidation:
		return "Validation failed"
	case kind == order.KindNotFound:
		return "Order not found"
	case kind == order.KindIllegalState:
		return "Order is in a final state and cannot be modified"
	case kind == order.KindStoreUnavailable:
		return unavailableMessage
	case errors.As(err, &te):
		return te.Error()
	case errors.As(err, &qe):
		return qe.Error()
	case kind == order.KindConcurrentModification:
		return "Order was modified by another request, reload and retry"
	default:
		return internalMessage
	}
}

func (h *Handler) writeEnvelope(w http.ResponseWriter, env errorEnvelope) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(string(env.Code)) })
		e.Field("message", func(e *jx.Encoder) { e.Str(env.Message) })
		e.Field("status", func(e *jx.Encoder) { e.Int(env.Status) })
		e.Field("timestamp", func(e *jx.Encoder) { e.Str(h.now().UTC().Format(time.RFC3339)) })
		if len(env.Fields) > 0 {
			e.Field("validationErrors", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					for _, name := range sortedKeys(env.Fields) {
						e.Field(name, func(e *jx.Encoder) { e.Str(env.Fields[name]) })
					}
				})
			})
		}
	})
	writeJSON(w, env.Status, e.Bytes())
}
