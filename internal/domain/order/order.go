package order

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Order is a single customer order together with its lifecycle state.
type Order struct {
	ID            int64
	Number        string
	CustomerName  string
	CustomerEmail string
	TotalAmount   decimal.Decimal
	Notes         string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
	// Version is the optimistic concurrency token. The store increments it on
	// every persisted update and rejects writes carrying a stale value.
	Version int64
}

// Fields holds the caller-editable attributes of an order.
//
// Status is honored only by full-record updates, where it is written
// verbatim (see Order.Apply). Creation always starts at PENDING.
type Fields struct {
	CustomerName  string          `json:"customerName" validate:"required,min=2,max=100"`
	CustomerEmail string          `json:"customerEmail" validate:"omitempty,email"`
	TotalAmount   decimal.Decimal `json:"totalAmount" validate:"positive,money"`
	Notes         string          `json:"notes" validate:"max=500"`
	Status        *Status         `json:"status" validate:"omitempty,status"`
}

// Normalize trims surrounding whitespace from the free-text fields.
func (f Fields) Normalize() Fields {
	f.CustomerName = strings.TrimSpace(f.CustomerName)
	f.CustomerEmail = strings.TrimSpace(f.CustomerEmail)
	f.Notes = strings.TrimSpace(f.Notes)
	return f
}

// New returns a PENDING order built from validated fields.
func New(number string, f Fields, now time.Time) *Order {
	return &Order{
		Number:        number,
		CustomerName:  f.CustomerName,
		CustomerEmail: f.CustomerEmail,
		TotalAmount:   f.TotalAmount,
		Notes:         f.Notes,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Terminal reports whether the order can no longer change.
func (o *Order) Terminal() bool {
	return o.Status.Terminal()
}

// CanBeCancelled reports whether a cancel action may be offered for the order.
func (o *Order) CanBeCancelled() bool {
	return o.Status.CanBeCancelled()
}

// ChangeStatus performs a checked transition: the move must be present in
// the transition table.
func (o *Order) ChangeStatus(to Status, now time.Time) error {
	next, err := Transition(o.Status, to)
	if err != nil {
		return err
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

// WriteStatus performs a raw status write. It refuses terminal orders and
// unknown statuses but does NOT consult the transition table, so e.g.
// PENDING -> DELIVERED is accepted. This path backs full-record updates and
// is kept separate from ChangeStatus; see DESIGN.md.
func (o *Order) WriteStatus(to Status, now time.Time) error {
	if o.Terminal() {
		return errors.Wrapf(ErrTerminal, "order %d is %s", o.ID, o.Status)
	}
	if !to.Valid() {
		return &ValidationError{Fields: map[string]string{"status": statusMessage}}
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}

// Apply overwrites the editable attributes with f. Terminal orders are left
// untouched and ErrTerminal is returned. A non-nil f.Status is applied as a
// raw status write.
func (o *Order) Apply(f Fields, now time.Time) error {
	if o.Terminal() {
		return errors.Wrapf(ErrTerminal, "order %d is %s", o.ID, o.Status)
	}
	if f.Status != nil {
		if err := o.WriteStatus(*f.Status, now); err != nil {
			return err
		}
	}
	o.CustomerName = f.CustomerName
	o.CustomerEmail = f.CustomerEmail
	o.TotalAmount = f.TotalAmount
	o.Notes = f.Notes
	o.UpdatedAt = now
	return nil
}
