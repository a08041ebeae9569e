package models

import (
	"errors"
	"fmt"
)

// Domain error sentinels. Handlers map these onto HTTP status codes:
// validation errors to 400, not-found to 404, state conflicts to 409,
// signature failures to 401.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrAddressNotFound = errors.New("delivery address not found")
	ErrInvalidLineItem = errors.New("invalid line item")

	ErrOfferNotFound         = errors.New("offer not found")
	ErrOfferExpired          = errors.New("offer expired or inactive")
	ErrOfferAudienceMismatch = errors.New("offer not available for this audience")
	ErrMinimumOrderNotMet    = errors.New("order amount below offer minimum")
	ErrUsageLimitReached     = errors.New("offer usage limit reached")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleStatus       = errors.New("order status changed concurrently")

	ErrInsufficientPoints = errors.New("insufficient loyalty points")

	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrDuplicateEvent   = errors.New("payment event already processed")
)

// ValidationError reports a bad input with field-level detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a field-level validation error.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsConflict reports whether err should surface as a retryable conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrStaleStatus) ||
		errors.Is(err, ErrUsageLimitReached)
}

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrOfferNotFound) ||
		errors.Is(err, ErrAddressNotFound)
}

// IsValidation reports whether err is a bad-input error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidLineItem) ||
		errors.Is(err, ErrOfferExpired) ||
		errors.Is(err, ErrOfferAudienceMismatch) ||
		errors.Is(err, ErrMinimumOrderNotMet) ||
		errors.Is(err, ErrInsufficientPoints)
}
