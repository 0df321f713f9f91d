package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SearchCriteria is a sparse set of search inputs. Every field is optional.
type SearchCriteria struct {
	CustomerName string
	Status       string
	MinAmount    *decimal.Decimal
	MaxAmount    *decimal.Decimal
}

// Constraint is a single condition over an order. The concrete types below
// form a closed set that store adapters translate into their query language.
type Constraint interface {
	Match(o *Order) bool
	constraint()
}

// NameContains matches a case-insensitive substring of the customer name.
// Substring is stored lower-cased.
type NameContains struct{ Substring string }

// StatusEquals matches an exact status.
type StatusEquals struct{ Status Status }

// AmountAtLeast matches total amount >= Min.
type AmountAtLeast struct{ Min decimal.Decimal }

// AmountAtMost matches total amount <= Max.
type AmountAtMost struct{ Max decimal.Decimal }

func (c NameContains) Match(o *Order) bool {
	return strings.Contains(strings.ToLower(o.CustomerName), c.Substring)
}

func (c StatusEquals) Match(o *Order) bool { return o.Status == c.Status }

func (c AmountAtLeast) Match(o *Order) bool { return o.TotalAmount.GreaterThanOrEqual(c.Min) }

func (c AmountAtMost) Match(o *Order) bool { return o.TotalAmount.LessThanOrEqual(c.Max) }

func (NameContains) constraint()  {}
func (StatusEquals) constraint()  {}
func (AmountAtLeast) constraint() {}
func (AmountAtMost) constraint()  {}

// Filter is the conjunction of its constraints. The zero Filter has no
// constraints and matches every order.
type Filter struct {
	Constraints []Constraint
}

// Match reports whether o satisfies every constraint.
func (f Filter) Match(o *Order) bool {
	for _, c := range f.Constraints {
		if !c.Match(o) {
			return false
		}
	}
	return true
}

// Unrestricted reports whether f matches everything.
func (f Filter) Unrestricted() bool {
	return len(f.Constraints) == 0
}

// And returns a filter with c appended.
func (f Filter) And(c Constraint) Filter {
	out := make([]Constraint, len(f.Constraints), len(f.Constraints)+1)
	copy(out, f.Constraints)
	return Filter{Constraints: append(out, c)}
}

// BuildFilter composes the present criteria into one filter. Blank text
// criteria and nil amounts contribute nothing. An unknown status is an
// ErrInvalidQueryParameter.
func BuildFilter(c SearchCriteria) (Filter, error) {
	var f Filter

	if name := strings.TrimSpace(c.CustomerName); name != "" {
		f = f.And(NameContains{Substring: strings.ToLower(name)})
	}
	if raw := strings.TrimSpace(c.Status); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			return Filter{}, &QueryParameterError{Param: "status", Value: c.Status}
		}
		f = f.And(StatusEquals{Status: st})
	}
	if c.MinAmount != nil {
		f = f.And(AmountAtLeast{Min: *c.MinAmount})
	}
	if c.MaxAmount != nil {
		f = f.And(AmountAtMost{Max: *c.MaxAmount})
	}
	return f, nil
}

// StatusFilter matches orders in status s.
func StatusFilter(s Status) Filter {
	return Filter{Constraints: []Constraint{StatusEquals{Status: s}}}
}
