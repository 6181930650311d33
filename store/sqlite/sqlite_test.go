package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline/loan-reports/report"
	"github.com/crestline/loan-reports/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *sqlite.Store) report.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), "borrower-1", report.Date(2023, time.June, 1))
	require.NoError(t, err)
	return u
}

func seedCredit(t *testing.T, s *sqlite.Store, userID report.UserID, issued time.Time, body string) report.Credit {
	t.Helper()
	c, err := s.CreateCredit(context.Background(), report.Credit{
		UserID:       userID,
		IssuanceDate: issued,
		ReturnDate:   issued.AddDate(0, 6, 0),
		Body:         decimal.RequireFromString(body),
		Percent:      decimal.RequireFromString("0"),
	})
	require.NoError(t, err)
	return c
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// MIGRATION / DICTIONARY TESTS
// =============================================================================

func TestNew_MigratesAndSeedsDictionary(t *testing.T) {
	// GIVEN: A fresh in-memory database
	// WHEN: Opening the store
	// THEN: Migrations ran and the four reserved dictionary rows exist

	s := newTestStore(t)

	categories, err := s.ListCategories(context.Background())
	require.NoError(t, err)

	require.Len(t, categories, 4)
	names := make(map[report.CategoryID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	assert.Equal(t, "body", names[report.CategoryID(report.PaymentTypeBody)])
	assert.Equal(t, "percent", names[report.CategoryID(report.PaymentTypePercent)])
	assert.Equal(t, report.CategoryIssuance, names[3])
	assert.Equal(t, report.CategoryCollection, names[4])
}

func TestFindCategory_Missing_ReturnsNilNoError(t *testing.T) {
	s := newTestStore(t)

	c, err := s.FindCategory(context.Background(), "marketing")
	require.NoError(t, err)
	assert.Nil(t, c)
}

// =============================================================================
// USER / CREDIT TESTS
// =============================================================================

func TestCreateUser_AssignsID(t *testing.T) {
	s := newTestStore(t)

	u, err := s.CreateUser(context.Background(), "alice", report.Date(2024, time.January, 15))
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice", u.Login)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, report.Date(2024, time.January, 15), users[0].RegistrationDate)
}

func TestCreditsByUser_AttachesPayments(t *testing.T) {
	// GIVEN: A user with one credit carrying two payments
	// WHEN: Loading credits by user
	// THEN: Payments come back attached, in insertion order

	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s)
	credit := seedCredit(t, s, user.ID, report.Date(2024, time.January, 10), "10000")

	_, err := s.CreatePayment(ctx, report.Payment{
		Sum: dec("2500"), Date: report.Date(2024, time.February, 1),
		CreditID: credit.ID, TypeID: report.PaymentTypeBody,
	})
	require.NoError(t, err)
	_, err = s.CreatePayment(ctx, report.Payment{
		Sum: dec("300"), Date: report.Date(2024, time.February, 1),
		CreditID: credit.ID, TypeID: report.PaymentTypePercent,
	})
	require.NoError(t, err)

	credits, err := s.CreditsByUser(ctx, user.ID)
	require.NoError(t, err)

	require.Len(t, credits, 1)
	require.Len(t, credits[0].Payments, 2)
	assert.True(t, credits[0].Payments[0].Sum.Equal(dec("2500")))
	assert.Equal(t, report.PaymentTypePercent, credits[0].Payments[1].TypeID)
	assert.True(t, credits[0].Body.Equal(dec("10000")))
	assert.False(t, credits[0].Closed())
}

func TestCreditsByUser_UnknownUser_EmptyNoError(t *testing.T) {
	s := newTestStore(t)

	credits, err := s.CreditsByUser(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, credits)
}

func TestCreateCredit_RoundTripsActualReturnDate(t *testing.T) {
	// GIVEN: A closed credit
	// WHEN: Storing and reloading it
	// THEN: The actual return date survives and Closed() holds

	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s)

	returned := report.Date(2024, time.March, 20)
	_, err := s.CreateCredit(ctx, report.Credit{
		UserID:           user.ID,
		IssuanceDate:     report.Date(2023, time.September, 20),
		ReturnDate:       report.Date(2024, time.March, 20),
		ActualReturnDate: &returned,
		Body:             dec("7000"),
		Percent:          dec("800"),
	})
	require.NoError(t, err)

	credits, err := s.CreditsByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	require.True(t, credits[0].Closed())
	assert.Equal(t, returned, *credits[0].ActualReturnDate)
}

// =============================================================================
// RANGE CONVENTION TESTS
// =============================================================================

func TestCreditsIssuedBetween_InclusiveBothEnds(t *testing.T) {
	// GIVEN: Credits on the window edges and just outside them
	// WHEN: Listing credits issued between Feb 1 and Feb 29
	// THEN: Edge days are included, neighbours are not

	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s)

	seedCredit(t, s, user.ID, report.Date(2024, time.January, 31), "1")
	onFrom := seedCredit(t, s, user.ID, report.Date(2024, time.February, 1), "2")
	onTo := seedCredit(t, s, user.ID, report.Date(2024, time.February, 29), "3")
	seedCredit(t, s, user.ID, report.Date(2024, time.March, 1), "4")

	credits, err := s.CreditsIssuedBetween(ctx, report.Date(2024, time.February, 1), report.Date(2024, time.February, 29))
	require.NoError(t, err)

	require.Len(t, credits, 2)
	assert.Equal(t, onFrom.ID, credits[0].ID)
	assert.Equal(t, onTo.ID, credits[1].ID)
}

func TestMonthlyAggregates_HalfOpenWindow(t *testing.T) {
	// GIVEN: Credits and payments on both edges of a month window
	// WHEN: Running the aggregate queries for [Feb 1, Mar 1)
	// THEN: The window start counts, the window end does not

	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s)

	c := seedCredit(t, s, user.ID, report.Date(2024, time.February, 1), "1000")
	seedCredit(t, s, user.ID, report.Date(2024, time.March, 1), "500")

	for _, p := range []report.Payment{
		{Sum: dec("100"), Date: report.Date(2024, time.February, 1), CreditID: c.ID, TypeID: report.PaymentTypeBody},
		{Sum: dec("200"), Date: report.Date(2024, time.February, 29), CreditID: c.ID, TypeID: report.PaymentTypeBody},
		{Sum: dec("400"), Date: report.Date(2024, time.March, 1), CreditID: c.ID, TypeID: report.PaymentTypeBody},
	} {
		_, err := s.CreatePayment(ctx, p)
		require.NoError(t, err)
	}

	from, to := report.MonthWindow(2024, 2)

	count, err := s.CountCreditsIssued(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	bodies, err := s.SumCreditBodies(ctx, from, to)
	require.NoError(t, err)
	assert.True(t, bodies.Equal(dec("1000")), "got %s", bodies)

	payCount, err := s.CountPayments(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, payCount)

	paySum, err := s.SumPayments(ctx, from, to)
	require.NoError(t, err)
	assert.True(t, paySum.Equal(dec("300")), "got %s", paySum)
}

// =============================================================================
// PLAN TESTS
// =============================================================================

func TestInsertPlans_PersistsBatchWithCategoryNames(t *testing.T) {
	// GIVEN: Two validated plan rows
	// WHEN: Inserting and listing
	// THEN: Both rows come back with joined dictionary labels

	s := newTestStore(t)
	ctx := context.Background()
	feb := report.Date(2024, time.February, 1)

	err := s.InsertPlans(ctx, []report.Plan{
		{Period: feb, Sum: dec("1000000"), CategoryID: 3},
		{Period: feb, Sum: dec("650000"), CategoryID: 4},
	})
	require.NoError(t, err)

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)

	require.Len(t, plans, 2)
	assert.Equal(t, report.CategoryIssuance, plans[0].CategoryName)
	assert.Equal(t, feb, plans[0].Period)
	assert.True(t, plans[0].Sum.Equal(dec("1000000")))
	assert.Equal(t, report.CategoryCollection, plans[1].CategoryName)
}

func TestInsertPlans_Duplicate_RollsBackWholeBatch(t *testing.T) {
	// GIVEN: A committed February issuance plan
	// WHEN: Inserting a batch whose second row collides with it
	// THEN: ErrDuplicatePlan surfaces and the first row is not committed

	s := newTestStore(t)
	ctx := context.Background()
	feb := report.Date(2024, time.February, 1)

	require.NoError(t, s.InsertPlans(ctx, []report.Plan{
		{Period: feb, Sum: dec("1000"), CategoryID: 3},
	}))

	err := s.InsertPlans(ctx, []report.Plan{
		{Period: report.Date(2024, time.March, 1), Sum: dec("2000"), CategoryID: 3},
		{Period: feb, Sum: dec("3000"), CategoryID: 3},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrDuplicatePlan)

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1, "failed batch must leave no partial rows")
}

func TestFindPlan_Missing_ReturnsNil(t *testing.T) {
	s := newTestStore(t)

	p, err := s.FindPlan(context.Background(), report.Date(2024, time.February, 1), 3)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSumPlansFor_SubstringCaseInsensitive(t *testing.T) {
	// GIVEN: Plans under "issuance" and "collection" for the same period
	// WHEN: Summing with a cased substring
	// THEN: Only labels containing the substring contribute

	s := newTestStore(t)
	ctx := context.Background()
	july := report.Date(2024, time.July, 1)

	require.NoError(t, s.InsertPlans(ctx, []report.Plan{
		{Period: july, Sum: dec("100"), CategoryID: 3},
		{Period: july, Sum: dec("200"), CategoryID: 4},
		{Period: report.Date(2024, time.August, 1), Sum: dec("400"), CategoryID: 3},
	}))

	sum, err := s.SumPlansFor(ctx, july, "ISSU")
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("100")), "got %s", sum)

	sum, err = s.SumPlansFor(ctx, july, "collection")
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("200")), "got %s", sum)
}

func TestSumPlansFor_NoMatch_Zero(t *testing.T) {
	s := newTestStore(t)

	sum, err := s.SumPlansFor(context.Background(), report.Date(2024, time.July, 1), "issuance")
	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

// =============================================================================
// DECIMAL PRECISION TESTS
// =============================================================================

func TestSums_KeepDecimalExactness(t *testing.T) {
	// GIVEN: Payments with cents that would drift under float math
	// WHEN: Summing through the store
	// THEN: The total is exact

	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s)
	c := seedCredit(t, s, user.ID, report.Date(2024, time.February, 1), "1000")

	for i := 0; i < 10; i++ {
		_, err := s.CreatePayment(ctx, report.Payment{
			Sum: dec("0.1"), Date: report.Date(2024, time.February, 10),
			CreditID: c.ID, TypeID: report.PaymentTypeBody,
		})
		require.NoError(t, err)
	}

	from, to := report.MonthWindow(2024, 2)
	sum, err := s.SumPayments(ctx, from, to)
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("1")), "got %s", sum)
}
