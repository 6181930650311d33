package report_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline/loan-reports/report"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func openCredit(issued, due time.Time, body, percent string) report.Credit {
	return report.Credit{
		UserID:       1,
		IssuanceDate: issued,
		ReturnDate:   due,
		Body:         money(body),
		Percent:      money(percent),
	}
}

func closedCredit(issued, due, returned time.Time, body, percent string) report.Credit {
	c := openCredit(issued, due, body, percent)
	c.ActualReturnDate = &returned
	return c
}

func payment(creditID report.CreditID, typeID report.PaymentType, date time.Time, sum string) report.Payment {
	return report.Payment{
		Sum:      money(sum),
		Date:     date,
		CreditID: creditID,
		TypeID:   typeID,
	}
}

// =============================================================================
// CREDIT SUMMARY TESTS
// =============================================================================

func TestCreditSummaries_OpenCredit_SplitsPaymentsByType(t *testing.T) {
	// GIVEN: An open credit with body and percent repayments
	// WHEN: Building the report
	// THEN: The row splits the repayments by type and is not closed

	issued := report.Date(2024, time.January, 10)
	due := report.Date(2024, time.July, 10)

	credit := openCredit(issued, due, "10000", "1200")
	credit.ID = 7
	credit.Payments = []report.Payment{
		payment(7, report.PaymentTypeBody, report.Date(2024, time.February, 1), "2500"),
		payment(7, report.PaymentTypeBody, report.Date(2024, time.March, 1), "2500"),
		payment(7, report.PaymentTypePercent, report.Date(2024, time.March, 1), "300"),
	}

	summaries := report.CreditSummaries([]report.Credit{credit}, report.Date(2024, time.April, 1))

	require.Len(t, summaries, 1)
	row := summaries[0]
	assert.False(t, row.IsClosed)
	assert.True(t, row.Body.Equal(money("10000")))
	assert.True(t, row.Percent.Equal(money("1200")))
	assert.True(t, row.PaymentsBody.Equal(money("5000")), "body payments should sum")
	assert.True(t, row.PaymentsPercent.Equal(money("300")), "percent payments should sum")
	assert.Equal(t, due, row.DueDate)
	assert.Equal(t, 0, row.OverdueDays, "not yet due")
}

func TestCreditSummaries_OverdueDays_CountedFromDueDate(t *testing.T) {
	// GIVEN: An open credit due on March 1
	// WHEN: Reporting on March 11
	// THEN: The credit is 10 days overdue

	due := report.Date(2024, time.March, 1)
	credit := openCredit(report.Date(2024, time.January, 1), due, "5000", "500")

	summaries := report.CreditSummaries([]report.Credit{credit}, report.Date(2024, time.March, 11))

	require.Len(t, summaries, 1)
	assert.Equal(t, 10, summaries[0].OverdueDays)
}

func TestCreditSummaries_DueToday_NotOverdue(t *testing.T) {
	// GIVEN: An open credit due today
	// WHEN: Building the report
	// THEN: Overdue days stay at zero

	due := report.Date(2024, time.March, 1)
	credit := openCredit(report.Date(2024, time.January, 1), due, "5000", "500")

	summaries := report.CreditSummaries([]report.Credit{credit}, due)

	require.Len(t, summaries, 1)
	assert.Equal(t, 0, summaries[0].OverdueDays)
}

func TestCreditSummaries_ClosedCredit_ExcludedFromResult(t *testing.T) {
	// GIVEN: One closed and one open credit
	// WHEN: Building the report
	// THEN: Only the open credit appears; the report covers outstanding
	//       credits only

	closed := closedCredit(
		report.Date(2023, time.May, 1),
		report.Date(2023, time.November, 1),
		report.Date(2023, time.October, 20),
		"8000", "900",
	)
	open := openCredit(report.Date(2024, time.January, 5), report.Date(2024, time.July, 5), "3000", "250")

	summaries := report.CreditSummaries([]report.Credit{closed, open}, report.Date(2024, time.February, 1))

	require.Len(t, summaries, 1)
	assert.False(t, summaries[0].IsClosed)
	assert.Equal(t, open.IssuanceDate, summaries[0].IssuanceDate)
}

func TestCreditSummaries_AllClosed_EmptyResult(t *testing.T) {
	// GIVEN: A user whose every credit is closed
	// WHEN: Building the report
	// THEN: The result is empty (the API maps this to a 404)

	closed := closedCredit(
		report.Date(2023, time.May, 1),
		report.Date(2023, time.November, 1),
		report.Date(2023, time.October, 20),
		"8000", "900",
	)

	summaries := report.CreditSummaries([]report.Credit{closed}, report.Date(2024, time.February, 1))

	assert.Empty(t, summaries)
}

func TestCreditSummaries_PreservesInputOrder(t *testing.T) {
	// GIVEN: Three open credits issued on different dates
	// WHEN: Building the report
	// THEN: Rows come back in input order

	a := openCredit(report.Date(2024, time.January, 1), report.Date(2024, time.July, 1), "100", "10")
	b := openCredit(report.Date(2024, time.February, 1), report.Date(2024, time.August, 1), "200", "20")
	c := openCredit(report.Date(2024, time.March, 1), report.Date(2024, time.September, 1), "300", "30")

	summaries := report.CreditSummaries([]report.Credit{a, b, c}, report.Date(2024, time.April, 1))

	require.Len(t, summaries, 3)
	assert.Equal(t, a.IssuanceDate, summaries[0].IssuanceDate)
	assert.Equal(t, b.IssuanceDate, summaries[1].IssuanceDate)
	assert.Equal(t, c.IssuanceDate, summaries[2].IssuanceDate)
}

// =============================================================================
// DATE HELPER TESTS
// =============================================================================

func TestMonthWindow_DecemberRollsIntoNextYear(t *testing.T) {
	start, end := report.MonthWindow(2024, 12)

	assert.Equal(t, report.Date(2024, time.December, 1), start)
	assert.Equal(t, report.Date(2025, time.January, 1), end)
}

func TestDaysBetween_IgnoresClockComponent(t *testing.T) {
	from := time.Date(2024, time.March, 1, 23, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.March, 3, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 2, report.DaysBetween(from, to))
}
