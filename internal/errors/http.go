package errors

import (
	"context"
	"errors"
	"net/http"
)

// FromStatus maps a non-2xx API response to an AppError carrying detail as its message.
//   - 401/403 → Unauthorized
//   - 400/422 → Validation
//   - 409 → Conflict
//   - 5xx and anything else → Unavailable
func FromStatus(status int, detail string) *AppError {
	if detail == "" {
		detail = http.StatusText(status)
	}

	code := ErrCodeUnavailable
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = ErrCodeUnauthorized
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		code = ErrCodeValidation
	case status == http.StatusConflict:
		code = ErrCodeConflict
	}

	return &AppError{Code: code, Message: detail, Status: status}
}

// MapTransportError maps errors from http.Client.Do to AppError instances.
// Context timeouts/cancellations become Timeout/Canceled; anything else is Unavailable.
func MapTransportError(err error) error {
	if err == nil {
		return nil
	}

	var timeout interface{ Timeout() bool }
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &timeout) && timeout.Timeout():
		return Wrap(err, ErrCodeTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "request canceled")
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Wrap(err, ErrCodeUnavailable, "server unreachable")
}
