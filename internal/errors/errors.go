// Package errors provides the ledger's error taxonomy.
// Every usecase error is an *AppError carrying a Kind (the taxonomy bucket),
// a stable Code, and the HTTP status the adapter layer should answer with.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups error codes into the categories callers branch on.
type Kind string

const (
	KindValidation       Kind = "VALIDATION"
	KindState            Kind = "STATE"
	KindAuthorization    Kind = "AUTHORIZATION"
	KindAlreadyProcessed Kind = "ALREADY_PROCESSED"
	KindNotFound         Kind = "NOT_FOUND"
	KindInternal         Kind = "INTERNAL"
)

// AppError represents a structured ledger error with a kind, code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Kind       Kind   `json:"kind"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so a derived
// instance (Wrap / WithMessage) still matches its sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same kind/code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Kind:       sentinel.Kind,
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Kind:       sentinel.Kind,
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// WithMessagef is WithMessage with formatting.
func WithMessagef(sentinel *AppError, format string, args ...any) *AppError {
	return WithMessage(sentinel, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of err, or KindInternal when err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Validation errors.
var (
	ErrInvalidInput     = &AppError{Kind: KindValidation, Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrUnsupportedAsset = &AppError{Kind: KindValidation, Code: "UNSUPPORTED_ASSET", Message: "Asset is not supported", StatusCode: http.StatusBadRequest}
	ErrZeroAmount       = &AppError{Kind: KindValidation, Code: "ZERO_AMOUNT", Message: "Amount must be greater than zero", StatusCode: http.StatusBadRequest}
	ErrInvalidParameter = &AppError{Kind: KindValidation, Code: "INVALID_PARAMETER", Message: "Invalid parameter", StatusCode: http.StatusBadRequest}
)

// State errors.
var (
	ErrNotInExpectedState   = &AppError{Kind: KindState, Code: "NOT_IN_EXPECTED_STATE", Message: "Loan is not in the expected state", StatusCode: http.StatusConflict}
	ErrNotYetExpired        = &AppError{Kind: KindState, Code: "NOT_YET_EXPIRED", Message: "Loan has not expired yet", StatusCode: http.StatusConflict}
	ErrAlreadyExpired       = &AppError{Kind: KindState, Code: "ALREADY_EXPIRED", Message: "Loan has already expired", StatusCode: http.StatusConflict}
	ErrCapacityExceeded     = &AppError{Kind: KindState, Code: "CAPACITY_EXCEEDED", Message: "Loan has no remaining capacity", StatusCode: http.StatusConflict}
	ErrWithdrawalNotAllowed = &AppError{Kind: KindState, Code: "WITHDRAWAL_NOT_ALLOWED", Message: "Loan does not meet the withdrawal threshold", StatusCode: http.StatusConflict}
	ErrRecipientNotSet      = &AppError{Kind: KindState, Code: "RECIPIENT_NOT_SET", Message: "Withdrawal recipient is not authorized", StatusCode: http.StatusConflict}
	ErrReentrantCall        = &AppError{Kind: KindState, Code: "REENTRANT_CALL", Message: "Re-entrant call rejected", StatusCode: http.StatusConflict}
)

// Already-processed errors.
var (
	ErrAlreadyWithdrawn = &AppError{Kind: KindAlreadyProcessed, Code: "ALREADY_WITHDRAWN", Message: "Loan funds were already withdrawn", StatusCode: http.StatusConflict}
	ErrAlreadySettled   = &AppError{Kind: KindAlreadyProcessed, Code: "ALREADY_SETTLED", Message: "Position is already settled", StatusCode: http.StatusConflict}
)

// Authorization errors.
var (
	ErrForbidden = &AppError{Kind: KindAuthorization, Code: "FORBIDDEN", Message: "Caller lacks the required role", StatusCode: http.StatusForbidden}
)

// Not-found errors.
var (
	ErrLoanNotFound     = &AppError{Kind: KindNotFound, Code: "LOAN_NOT_FOUND", Message: "Loan not found", StatusCode: http.StatusNotFound}
	ErrPositionNotFound = &AppError{Kind: KindNotFound, Code: "POSITION_NOT_FOUND", Message: "Position not found", StatusCode: http.StatusNotFound}
)

// Value transfer errors raised by the bundled balance ledger.
var (
	ErrInsufficientBalance   = &AppError{Kind: KindValidation, Code: "INSUFFICIENT_BALANCE", Message: "Insufficient balance", StatusCode: http.StatusUnprocessableEntity}
	ErrInsufficientAllowance = &AppError{Kind: KindValidation, Code: "INSUFFICIENT_ALLOWANCE", Message: "Insufficient allowance", StatusCode: http.StatusUnprocessableEntity}
)

var ErrInternal = &AppError{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
