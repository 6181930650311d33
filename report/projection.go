/*
projection.go - Per-credit repayment summaries

PURPOSE:
  Reduces a user's credits (with payments attached) into one summary
  record per credit. Closed credits get their full repayment total;
  open credits get the body/percent split and the overdue day count.

REPORT SHAPE:
  The returned report covers OUTSTANDING credits only: closed credits
  are summarized (the figures stay available on CreditSummary) but are
  not part of the arrears view the API serves. See DESIGN.md.
*/
package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditSummary is one row of the per-user credit report.
type CreditSummary struct {
	IssuanceDate time.Time
	Body         decimal.Decimal
	Percent      decimal.Decimal
	IsClosed     bool

	// Closed credits only.
	ReturnDate  time.Time
	PaymentsSum decimal.Decimal

	// Open credits only.
	DueDate         time.Time
	OverdueDays     int
	PaymentsBody    decimal.Decimal
	PaymentsPercent decimal.Decimal
}

// CreditSummaries builds the outstanding-credit report for the given
// credits as of today. Input order is preserved. Callers decide how to
// signal an empty input (the API returns ErrNoCredits as a 404).
func CreditSummaries(credits []Credit, today time.Time) []CreditSummary {
	result := make([]CreditSummary, 0, len(credits))

	for _, credit := range credits {
		summary := CreditSummary{
			IssuanceDate: credit.IssuanceDate,
			Body:         credit.Body,
			Percent:      credit.Percent,
			IsClosed:     credit.Closed(),
		}

		if credit.Closed() {
			summary.ReturnDate = *credit.ActualReturnDate
			summary.PaymentsSum = sumPayments(credit.Payments, nil)
			continue
		}

		summary.DueDate = credit.ReturnDate
		summary.OverdueDays = overdueDays(credit.ReturnDate, today)
		summary.PaymentsBody = sumPayments(credit.Payments, typeFilter(PaymentTypeBody))
		summary.PaymentsPercent = sumPayments(credit.Payments, typeFilter(PaymentTypePercent))
		result = append(result, summary)
	}

	return result
}

// overdueDays counts whole days past the due date, never negative.
func overdueDays(due, today time.Time) int {
	if !DayOf(today).After(DayOf(due)) {
		return 0
	}
	return DaysBetween(due, today)
}

func sumPayments(payments []Payment, keep func(Payment) bool) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if keep != nil && !keep(p) {
			continue
		}
		total = total.Add(p.Sum)
	}
	return total
}

func typeFilter(t PaymentType) func(Payment) bool {
	return func(p Payment) bool { return p.TypeID == t }
}
