/*
performance.go - Plan performance report

PURPOSE:
  For every plan row, determines the realized sum inside the window
  [plan period, as_of] and the resulting completion percentage.

CATEGORY MATCHING:
  The category name is matched case-insensitively and EXACTLY against
  the two conventional labels. Anything else yields a zero actual sum
  without touching the store. (The year report deliberately uses a
  looser substring match; the two reports predate each other and the
  difference is load-bearing for existing dictionaries.)
*/
package report

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PlanPerformance is one row of the plan performance report.
type PlanPerformance struct {
	PlanPeriod         time.Time
	Category           string
	PlanSum            decimal.Decimal
	ActualSum          decimal.Decimal
	PerformancePercent decimal.Decimal
}

// PlanPerformances computes one row per plan, in the store's plan order.
// as_of is the inclusive end of every plan's realization window.
func PlanPerformances(ctx context.Context, src PerformanceSource, asOf time.Time) ([]PlanPerformance, error) {
	plans, err := src.ListPlans(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]PlanPerformance, 0, len(plans))
	for _, plan := range plans {
		actual, err := actualSum(ctx, src, plan, asOf)
		if err != nil {
			return nil, err
		}

		results = append(results, PlanPerformance{
			PlanPeriod:         plan.Period,
			Category:           plan.CategoryName,
			PlanSum:            plan.Sum,
			ActualSum:          actual,
			PerformancePercent: PerformancePercent(actual, plan.Sum),
		})
	}

	return results, nil
}

func actualSum(ctx context.Context, src TransactionSource, plan Plan, asOf time.Time) (decimal.Decimal, error) {
	switch strings.ToLower(plan.CategoryName) {
	case CategoryIssuance:
		credits, err := src.CreditsIssuedBetween(ctx, plan.Period, asOf)
		if err != nil {
			return decimal.Zero, err
		}
		total := decimal.Zero
		for _, c := range credits {
			total = total.Add(c.Body)
		}
		return total, nil

	case CategoryCollection:
		payments, err := src.PaymentsBetween(ctx, plan.Period, asOf)
		if err != nil {
			return decimal.Zero, err
		}
		total := decimal.Zero
		for _, p := range payments {
			total = total.Add(p.Sum)
		}
		return total, nil

	default:
		// Unknown category: no transactions are ever looked up.
		return decimal.Zero, nil
	}
}

var hundred = decimal.NewFromInt(100)

// PerformancePercent returns actual/plan*100 when the plan target is
// positive, else 0. The value is intentionally uncapped: negative and
// over-100 percentages pass through unmodified.
func PerformancePercent(actual, plan decimal.Decimal) decimal.Decimal {
	if !plan.IsPositive() {
		return decimal.Zero
	}
	return actual.Div(plan).Mul(hundred)
}
