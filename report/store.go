/*
store.go - Storage capabilities consumed by the reporting engine

PURPOSE:
  Defines the read/write interfaces the engine needs. Implementations:
  - store/sqlite: production SQLite store
  - report/store: in-memory store for tests and development

CONVENTIONS:
  Two range conventions exist, matching the two reports that use them:
  - the *Between list methods are INCLUSIVE on both ends
    (plan performance windows run [period, as_of])
  - the Count* / Sum* aggregate methods are HALF-OPEN [from, to)
    (year performance windows run [month start, next month start))
  Each method documents which applies.
*/
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CreditSource loads a user's credits with payments attached.
type CreditSource interface {
	// CreditsByUser returns all credits owned by the user, each with its
	// payments loaded, in insertion order. An unknown user yields an
	// empty slice, not an error.
	CreditsByUser(ctx context.Context, userID UserID) ([]Credit, error)
}

// PlanSource reads plan rows and the dictionary.
type PlanSource interface {
	// ListPlans returns every plan with its category name joined, in the
	// store's natural order.
	ListPlans(ctx context.Context) ([]Plan, error)

	// FindCategory looks a dictionary label up by exact name.
	// Returns nil when absent.
	FindCategory(ctx context.Context, name string) (*Category, error)

	// FindPlan returns the plan for (period, categoryID), or nil.
	FindPlan(ctx context.Context, period time.Time, categoryID CategoryID) (*Plan, error)
}

// PlanSink persists validated plan rows.
type PlanSink interface {
	// InsertPlans writes the batch atomically: either every plan commits
	// or none do. A uniqueness violation surfaces as ErrDuplicatePlan.
	InsertPlans(ctx context.Context, plans []Plan) error
}

// TransactionSource lists the raw rows plan performance reduces.
type TransactionSource interface {
	// CreditsIssuedBetween returns credits with issuance_date in
	// [from, to] inclusive. Payments are not attached.
	CreditsIssuedBetween(ctx context.Context, from, to time.Time) ([]Credit, error)

	// PaymentsBetween returns payments with payment_date in
	// [from, to] inclusive.
	PaymentsBetween(ctx context.Context, from, to time.Time) ([]Payment, error)
}

// MonthlyAggregator exposes the per-window aggregates the year report
// issues, one query at a time. All windows are half-open [from, to).
type MonthlyAggregator interface {
	CountCreditsIssued(ctx context.Context, from, to time.Time) (int, error)
	SumCreditBodies(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	CountPayments(ctx context.Context, from, to time.Time) (int, error)
	SumPayments(ctx context.Context, from, to time.Time) (decimal.Decimal, error)

	// SumPlansFor sums plan targets whose period equals the window start
	// exactly and whose category name CONTAINS the given substring,
	// case-insensitively.
	SumPlansFor(ctx context.Context, period time.Time, categorySubstring string) (decimal.Decimal, error)
}

// PerformanceSource is what the plan performance report consumes.
type PerformanceSource interface {
	PlanSource
	TransactionSource
}

// Store is the full capability set of a production store.
type Store interface {
	CreditSource
	PlanSource
	PlanSink
	TransactionSource
	MonthlyAggregator
}
