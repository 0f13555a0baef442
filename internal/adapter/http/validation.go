package http

import (
	"errors"
	"reflect"
	"strings"

	"pooled-lending/internal/adapter/middleware"
	domainLoan "pooled-lending/internal/domain/loan"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	Code    string       `json:"code,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

func integerString(s string, allowZero bool) bool {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || d.IsNegative() || d.GreaterThan(domainLoan.MaxAmount) {
		return false
	}
	return allowZero || d.IsPositive()
}

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()
	// report fields by their json name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// amounts travel as base-10 integer strings so they never pass through float64
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		return integerString(fl.Field().String(), false)
	})
	// allowance also takes 0, which revokes
	_ = v.RegisterValidation("allowance", func(fl validator.FieldLevel) bool {
		return integerString(fl.Field().String(), true)
	})
	_ = v.RegisterValidation("principal", func(fl validator.FieldLevel) bool {
		return middleware.ValidPrincipal(fl.Field().String())
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "amount":
			out = append(out, FieldError{Field: field, Message: "must be a positive integer string of at most 65 digits"})
		case "allowance":
			out = append(out, FieldError{Field: field, Message: "must be a non-negative integer string of at most 65 digits"})
		case "principal":
			out = append(out, FieldError{Field: field, Message: "must be 1-128 chars of [A-Za-z0-9._:@-]"})
		case "gte":
			out = append(out, FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "lte":
			out = append(out, FieldError{Field: field, Message: "must be less than or equal to " + e.Param()})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
