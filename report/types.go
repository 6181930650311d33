/*
Package report provides the plan-vs-actual aggregation engine for the
lending book.

PURPOSE:
  This package contains the domain types and the reporting computations:
  per-credit repayment summaries, plan performance (target vs. realized
  sum per plan row) and the month-bucketed year performance report.
  It owns no persistence - stores implement the interfaces in store.go
  and the engine reduces the rows they return.

KEY CONCEPTS IN THIS FILE (types.go):
  - Credit/Payment/Plan/Category: the persistent records of the book
  - PaymentType: named enumeration for the body/percent dictionary rows
  - Date helpers: whole-day arithmetic and month windows

DESIGN PRINCIPLES:
  1. Precision: all monetary sums use decimal.Decimal, never float64
  2. Dates are calendar days: midnight UTC, no clock component
  3. Append-only: the engine never mutates rows, it only folds them

SEE ALSO:
  - projection.go: per-credit summaries
  - performance.go: plan performance
  - yearperf.go: twelve-month report
  - store.go: capabilities the engine consumes
*/
package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID int64
type CreditID int64
type CategoryID int64

// =============================================================================
// PAYMENT TYPES - dictionary rows reserved for payment classification
// =============================================================================

// PaymentType classifies a repayment. The values are dictionary row IDs:
// the first two dictionary entries are reserved for the body/percent split.
type PaymentType CategoryID

const (
	// PaymentTypeBody marks a repayment applied to the principal.
	PaymentTypeBody PaymentType = 1

	// PaymentTypePercent marks a repayment applied to the interest.
	PaymentTypePercent PaymentType = 2
)

// Valid reports whether t is one of the reserved payment types.
func (t PaymentType) Valid() bool {
	return t == PaymentTypeBody || t == PaymentTypePercent
}

// =============================================================================
// PLAN CATEGORIES - the two conventional dictionary labels
// =============================================================================

const (
	// CategoryIssuance is the dictionary label for credit issuance targets.
	CategoryIssuance = "issuance"

	// CategoryCollection is the dictionary label for repayment collection targets.
	CategoryCollection = "collection"
)

// =============================================================================
// RECORDS
// =============================================================================

// User owns zero or more credits.
type User struct {
	ID               UserID
	Login            string
	RegistrationDate time.Time
}

// Credit is a loan issued to a user. A credit is closed iff
// ActualReturnDate is set; otherwise it is still open.
type Credit struct {
	ID               CreditID
	UserID           UserID
	IssuanceDate     time.Time
	ReturnDate       time.Time
	ActualReturnDate *time.Time
	Body             decimal.Decimal
	Percent          decimal.Decimal

	// Payments carries the credit's repayments when the store loads them
	// eagerly (CreditsByUser does; the range queries do not).
	Payments []Payment
}

// Closed reports whether the credit has been repaid and closed.
func (c Credit) Closed() bool {
	return c.ActualReturnDate != nil
}

// Payment is a repayment applied against a credit, classified by TypeID.
type Payment struct {
	ID       int64
	Sum      decimal.Decimal
	Date     time.Time
	CreditID CreditID
	TypeID   PaymentType
}

// Category is a dictionary row: a named label shared by plan categories
// and payment types.
type Category struct {
	ID   CategoryID
	Name string
}

// Plan is a monthly monetary target for a category. Period is always the
// first calendar day of the month; at most one plan exists per
// (period, category) pair.
type Plan struct {
	ID         int64
	Period     time.Time
	Sum        decimal.Decimal
	CategoryID CategoryID

	// CategoryName is the joined dictionary label, populated by ListPlans.
	CategoryName string
}

// =============================================================================
// DATE HELPERS
// =============================================================================

// Date builds a calendar day at midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates t to its calendar day at midnight UTC.
func DayOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// DaysBetween returns the number of whole days from one calendar day to
// another. Negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(DayOf(to).Sub(DayOf(from)).Hours() / 24)
}

// MonthWindow returns the half-open window [first day of the month,
// first day of the next month). December rolls into January of year+1.
func MonthWindow(year int, month int) (start, end time.Time) {
	start = Date(year, time.Month(month), 1)
	if month == 12 {
		end = Date(year+1, time.January, 1)
	} else {
		end = Date(year, time.Month(month+1), 1)
	}
	return start, end
}
