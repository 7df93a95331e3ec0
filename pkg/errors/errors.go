// Package errors provides severity-aware error types for the pipeline.
package errors

import "fmt"

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// RevenueError is a structured error with context. Recoverable errors are
// safe to retry per key; non-recoverable ones need an input fix.
type RevenueError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	HotelID     string   `json:"hotel_id,omitempty"`
	Recoverable bool     `json:"recoverable"`
}

func (e *RevenueError) Error() string {
	if e.HotelID != "" {
		return fmt.Sprintf("[%s] %s: %s (hotel: %s)", e.Severity, e.Code, e.Message, e.HotelID)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

// Error codes
const (
	ErrCodeNoData          = "NO_DATA"
	ErrCodeInvalidBaseRate = "INVALID_BASE_RATE"
	ErrCodeInvalidRange    = "INVALID_RANGE"
	ErrCodeHotelNotFound   = "HOTEL_NOT_FOUND"
	ErrCodeStoreFailure    = "STORE_FAILURE"
)

// NewInvalidBaseRateError marks a non-positive base price: a hard stop, the
// caller gets an error result rather than a clamped number.
func NewInvalidBaseRateError(hotelID string, rate float64) *RevenueError {
	return &RevenueError{
		Code:        ErrCodeInvalidBaseRate,
		Message:     fmt.Sprintf("base rate must be positive, got %.2f", rate),
		Severity:    SeverityError,
		HotelID:     hotelID,
		Recoverable: false,
	}
}

// NewHotelNotFoundError reports a missing hotel configuration row.
func NewHotelNotFoundError(hotelID string) *RevenueError {
	return &RevenueError{
		Code:        ErrCodeHotelNotFound,
		Message:     "no configuration found for hotel",
		Severity:    SeverityError,
		HotelID:     hotelID,
		Recoverable: false,
	}
}

// NewStoreFailureError wraps a transient store error; the caller may retry
// the specific failed key.
func NewStoreFailureError(hotelID string, err error) *RevenueError {
	return &RevenueError{
		Code:        ErrCodeStoreFailure,
		Message:     err.Error(),
		Severity:    SeverityError,
		HotelID:     hotelID,
		Recoverable: true,
	}
}
