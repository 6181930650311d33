/*
yearperf.go - Twelve-month plan-vs-actual report

PURPOSE:
  Produces exactly twelve rows for a requested year, one per calendar
  month, comparing planned and realized issuance/collection volumes.
  Months with no data report zeros - rows are never omitted.

QUERY SHAPE:
  Six aggregate store calls per month, issued sequentially; each result
  is consumed fully before the next call. Plan targets are matched by
  period equality with the month start plus a case-insensitive SUBSTRING
  match on the category name (looser than plan performance on purpose;
  see performance.go).
*/
package report

import (
	"context"

	"github.com/shopspring/decimal"
)

// MonthPerformance is one month's row of the year report.
type MonthPerformance struct {
	Month                        int
	CreditsCount                 int
	PlanIssueSum                 decimal.Decimal
	ActualIssueSum               decimal.Decimal
	PerformanceIssuePercent      decimal.Decimal
	PaymentsCount                int
	PlanCollectionSum            decimal.Decimal
	ActualCollectionSum          decimal.Decimal
	PerformanceCollectionPercent decimal.Decimal
}

// YearPerformance computes the twelve-row report for the given year.
func YearPerformance(ctx context.Context, agg MonthlyAggregator, year int) ([]MonthPerformance, error) {
	results := make([]MonthPerformance, 0, 12)

	for month := 1; month <= 12; month++ {
		start, end := MonthWindow(year, month)

		creditsCount, err := agg.CountCreditsIssued(ctx, start, end)
		if err != nil {
			return nil, err
		}
		planIssue, err := agg.SumPlansFor(ctx, start, CategoryIssuance)
		if err != nil {
			return nil, err
		}
		actualIssue, err := agg.SumCreditBodies(ctx, start, end)
		if err != nil {
			return nil, err
		}

		paymentsCount, err := agg.CountPayments(ctx, start, end)
		if err != nil {
			return nil, err
		}
		planCollection, err := agg.SumPlansFor(ctx, start, CategoryCollection)
		if err != nil {
			return nil, err
		}
		actualCollection, err := agg.SumPayments(ctx, start, end)
		if err != nil {
			return nil, err
		}

		results = append(results, MonthPerformance{
			Month:                        month,
			CreditsCount:                 creditsCount,
			PlanIssueSum:                 planIssue,
			ActualIssueSum:               actualIssue,
			PerformanceIssuePercent:      PerformancePercent(actualIssue, planIssue),
			PaymentsCount:                paymentsCount,
			PlanCollectionSum:            planCollection,
			ActualCollectionSum:          actualCollection,
			PerformanceCollectionPercent: PerformancePercent(actualCollection, planCollection),
		})
	}

	return results, nil
}
