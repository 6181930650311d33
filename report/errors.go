/*
errors.go - Centralized error types for the reporting engine

PURPOSE:
  All error types in one place. The API layer maps these onto HTTP
  statuses: validation errors become 400s carrying the offending row,
  missing data becomes 404, anything else is a server fault.

USAGE:
  var rowErr *report.RowError
  if errors.As(err, &rowErr) {
      // 400 with rowErr.Error()
  }
*/
package report

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoCredits is returned when a user has no credits to report on.
	ErrNoCredits = errors.New("no credits found")

	// ErrCategoryNotFound is returned when a plan names a label absent
	// from the dictionary.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrDuplicatePlan is returned when a plan already exists for the
	// same (period, category) pair.
	ErrDuplicatePlan = errors.New("plan already exists for this month and category")

	// ErrPeriodNotMonthStart is returned when a plan period is not the
	// first calendar day of its month.
	ErrPeriodNotMonthStart = errors.New("plan period is not the first day of the month")

	// ErrBadPlanFile is returned when an uploaded plan file cannot be
	// read as a table at all.
	ErrBadPlanFile = errors.New("unable to read the plan file")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RowError reports a validation failure for a specific row of an
// uploaded plan file. Row is the 0-based data row index (header
// excluded); Message already names the row for the client.
type RowError struct {
	Row     int
	Message string
	Err     error
}

func (e *RowError) Error() string {
	return e.Message
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// NewRowError builds a RowError wrapping the given sentinel.
func NewRowError(row int, sentinel error, format string, args ...any) *RowError {
	return &RowError{
		Row:     row,
		Message: fmt.Sprintf(format, args...),
		Err:     sentinel,
	}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var rowErr *RowError
	return errors.As(err, &rowErr) ||
		errors.Is(err, ErrDuplicatePlan) ||
		errors.Is(err, ErrPeriodNotMonthStart) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrBadPlanFile)
}

// IsNotFound returns true if the error indicates missing data.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoCredits)
}
