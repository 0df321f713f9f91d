package order

import (
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	maxIntegerDigits  = 8
	maxFractionDigits = 2
)

var (
	amountCeiling = decimal.New(1, maxIntegerDigits)
	validate      = newValidator()
)

var statusMessage = "Status must be one of: " + strings.Join(statusNames(), ", ")

// fieldMessages maps "<field>.<tag>" to the message reported to callers.
var fieldMessages = map[string]string{
	"customerName.required": "Customer name is required",
	"customerName.min":      "Customer name must be between 2 and 100 characters",
	"customerName.max":      "Customer name must be between 2 and 100 characters",
	"customerEmail.email":   "Invalid email format",
	"totalAmount.positive":  "Total amount must be greater than 0",
	"totalAmount.money":     "Invalid amount format",
	"notes.max":             "Notes cannot exceed 500 characters",
	"status.status":         statusMessage,
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "positive", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	mustRegister(v, "money", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return ValidAmount(d)
	})
	mustRegister(v, "status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// ValidAmount reports whether d fits the persisted money format: at most
// eight integer digits and two fractional digits.
func ValidAmount(d decimal.Decimal) bool {
	if !d.Equal(d.Truncate(maxFractionDigits)) {
		return false
	}
	return d.Abs().LessThan(amountCeiling)
}

// Validate checks every field constraint and reports all violations at once.
func (f Fields) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate fields")
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		name := fe.Field()
		if _, seen := out.Fields[name]; seen {
			continue
		}
		msg, ok := fieldMessages[name+"."+fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		out.Fields[name] = msg
	}
	return out
}

func statusNames() []string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return names
}
