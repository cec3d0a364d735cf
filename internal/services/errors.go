package services

import (
	"context"
	"errors"
	"net/http"

	"umlexport/internal/compiler"
	"umlexport/internal/emitter"
	"umlexport/internal/packager"
)

var (
	ErrDiagramNotFound  = errors.New("diagram not found")
	ErrExportNotFound   = errors.New("export not found")
	ErrStoreUnavailable = errors.New("diagram store is not configured")
)

// ServiceError carries the HTTP status and caller-facing message for a
// failed operation. Inner keeps the cause for logs.
type ServiceError struct {
	Status  int
	Message string
	Inner   error
}

func (e *ServiceError) Error() string {
	if e.Inner != nil {
		return e.Message + ": " + e.Inner.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Inner
}

// PublicError is the cause safe to show a client. Internal failures only
// expose their message.
func (e *ServiceError) PublicError() error {
	if e.Status >= http.StatusInternalServerError {
		return nil
	}
	return e.Inner
}

func newServiceError(status int, message string, inner error) *ServiceError {
	return &ServiceError{Status: status, Message: message, Inner: inner}
}

// toServiceError classifies err. An existing ServiceError is returned as is.
func toServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var svcErr *ServiceError
	var validation *compiler.InputValidationError
	var ambiguity *compiler.ResolutionAmbiguity
	var emission *emitter.EmissionFailure
	var packaging *packager.PackagingFailure
	var delivery *packager.DeliveryFailure

	switch {
	case errors.As(err, &svcErr):
		return svcErr
	case errors.As(err, &validation):
		return newServiceError(http.StatusBadRequest, "Invalid diagram", err)
	case errors.As(err, &ambiguity):
		return newServiceError(http.StatusUnprocessableEntity, "Ambiguous diagram", err)
	case errors.Is(err, ErrDiagramNotFound):
		return newServiceError(http.StatusNotFound, "Diagram not found", err)
	case errors.Is(err, ErrExportNotFound):
		return newServiceError(http.StatusNotFound, "Export not found", err)
	case errors.Is(err, ErrStoreUnavailable):
		return newServiceError(http.StatusServiceUnavailable, "Diagram store unavailable", err)
	case errors.As(err, &delivery):
		return newServiceError(http.StatusInternalServerError, "Failed to deliver project", err)
	case errors.Is(err, context.DeadlineExceeded):
		return newServiceError(http.StatusGatewayTimeout, "Export timed out", err)
	case errors.As(err, &emission), errors.As(err, &packaging):
		return newServiceError(http.StatusInternalServerError, "Failed to generate project", err)
	default:
		return newServiceError(http.StatusInternalServerError, "Internal server error", err)
	}
}

// IsDeliveryFailure reports whether err happened after the archive started
// streaming, when no error response can be written anymore.
func IsDeliveryFailure(err error) bool {
	var delivery *packager.DeliveryFailure
	return errors.As(err, &delivery)
}
