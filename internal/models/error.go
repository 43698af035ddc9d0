package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrConflictData          = errors.New("data conflicts with existing data")
	ErrDataNotFound          = errors.New("data not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrInvalidOrder          = errors.New("invalid order")
	ErrUnknownStatus         = errors.New("unknown status")
	ErrMissingSignature      = errors.New("missing signature")
	ErrInvalidSignature      = errors.New("invalid signature")
	ErrMalformedNotification = errors.New("malformed notification")
	ErrConcurrentUpdate      = errors.New("order was modified concurrently")
	ErrInternalError         = errors.New("internal error")
)

// IllegalTransitionError is returned when a status change is not allowed by the transition graph
type IllegalTransitionError struct {
	From    OrderStatus
	To      OrderStatus
	Allowed []OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	allowed := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		allowed = append(allowed, string(s))
	}
	return fmt.Sprintf("illegal transition %s -> %s, allowed: [%s]", e.From, e.To, strings.Join(allowed, ", "))
}

// RetryableError marks failures the caller may retry without harm
type RetryableError struct {
	Err error
}

// NewRetryableError wraps err as retryable
func NewRetryableError(err error) RetryableError {
	return RetryableError{Err: err}
}

func (e RetryableError) Error() string {
	return "retryable: " + e.Err.Error()
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err or any error it wraps is retryable
func IsRetryable(err error) bool {
	var re RetryableError
	if errors.As(err, &re) {
		return true
	}
	var tm TooManyRequestsError
	return errors.As(err, &tm)
}

// TooManyRequestsError is returned when the provider throttles requests
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

// NewTooManyRequestsError creates TooManyRequestsError
func NewTooManyRequestsError(retryAfter time.Duration) TooManyRequestsError {
	return TooManyRequestsError{RetryAfter: retryAfter}
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %v", e.RetryAfter)
}
