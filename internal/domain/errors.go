package domain

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Is lets errors.Is match wrapped AppErrors by code.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

func errValidation(msg string) error {
	return errors.New(msg)
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or missing API key",
		StatusCode: 401,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	// ErrValidationFailed covers malformed webhook or event submissions.
	// Rejected before persistence, never retried.
	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrWebhookNotFound = &AppError{
		Code:       "WEBHOOK_NOT_FOUND",
		Message:    "Webhook not found",
		StatusCode: 404,
	}

	ErrEventNotFound = &AppError{
		Code:       "EVENT_NOT_FOUND",
		Message:    "Event not found",
		StatusCode: 404,
	}

	ErrDeliveryNotFound = &AppError{
		Code:       "DELIVERY_NOT_FOUND",
		Message:    "Delivery not found",
		StatusCode: 404,
	}

	// ErrDuplicateEvent marks a republished event identifier. The publisher
	// treats it as a no-op success, never surfaced to the caller as failure.
	ErrDuplicateEvent = &AppError{
		Code:       "DUPLICATE_EVENT",
		Message:    "Event with this identifier was already published",
		StatusCode: 409,
	}

	// ErrTransientDelivery marks an attempt that will be retried with
	// backoff: network errors, timeouts, 5xx and 429 responses.
	ErrTransientDelivery = &AppError{
		Code:       "TRANSIENT_DELIVERY_ERROR",
		Message:    "Delivery attempt failed, will retry",
		StatusCode: 502,
	}

	// ErrTerminalDelivery marks an attempt that retrying cannot fix:
	// 4xx responses other than 408/429, or retries exhausted.
	ErrTerminalDelivery = &AppError{
		Code:       "TERMINAL_DELIVERY_ERROR",
		Message:    "Delivery failed permanently",
		StatusCode: 502,
	}

	ErrTenantNotFound = &AppError{
		Code:       "TENANT_NOT_FOUND",
		Message:    "Tenant not found",
		StatusCode: 404,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please retry later",
		StatusCode: 429,
	}
)
