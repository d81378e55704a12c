package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrDatabase      = errors.New("database error")
	ErrValidation    = errors.New("validation failed")
	ErrQuotaExceeded = errors.New("plan quota exceeded")
	ErrRateLimited   = errors.New("too many scan requests")

	// ErrNoTextDetected means OCR produced empty or whitespace-only text.
	ErrNoTextDetected = errors.New("no text detected in receipt image")
	// ErrOCRProvider is matched by every *OCRError.
	ErrOCRProvider = errors.New("ocr provider error")
)

// OCRError is returned when the external OCR call fails or yields no text at all.
type OCRError struct {
	Provider string
	Timeout  bool
	Cause    error
}

func (e *OCRError) Error() string {
	kind := "failed"
	if e.Timeout {
		kind = "timed out"
	}
	if e.Cause != nil {
		return fmt.Sprintf("ocr provider %s %s: %v", e.Provider, kind, e.Cause)
	}
	return fmt.Sprintf("ocr provider %s %s", e.Provider, kind)
}

func (e *OCRError) Unwrap() error {
	return e.Cause
}

func (e *OCRError) Is(target error) bool {
	return target == ErrOCRProvider
}

// NewOCRError classifies cause, flagging deadline and cancellation as timeouts.
func NewOCRError(provider string, cause error) *OCRError {
	return &OCRError{
		Provider: provider,
		Timeout:  errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled),
		Cause:    cause,
	}
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...any) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

// ToStatus converts a domain error into a gRPC status error.
// Errors that already carry a status pass through.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var ocrErr *OCRError
	switch {
	case errors.As(err, &ocrErr) && ocrErr.Timeout:
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, ErrOCRProvider):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, ErrNoTextDetected):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
