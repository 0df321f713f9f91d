package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NumberFunc supplies globally unique human-facing order numbers.
type NumberFunc func(now time.Time) string

// NewNumber returns an order number of the form ORD-<unix millis>-<6 hex>.
func NewNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), uuid.NewString()[:6])
}
