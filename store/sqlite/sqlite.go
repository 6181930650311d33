/*
Package sqlite provides the SQLite-backed implementation of the
report.Store interfaces.

PURPOSE:
  Persists users, credits, payments, plans and the dictionary. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  users:      account records (unique login)
  credits:    issued loans, nullable actual_return_date marks open/closed
  payments:   repayments, type_id references the dictionary
  plans:      monthly targets, UNIQUE(period, category_id)
  dictionary: shared category lookup, seeded by the first migration

UNIQUENESS:
  The plans table carries UNIQUE(period, category_id). Ingestion
  validates before staging, but the constraint is what actually rules
  out two concurrent uploads committing the same pair - the insert is
  conditional on the constraint, not on a prior read.

STORAGE CONVENTIONS:
  - Dates: YYYY-MM-DD text. Lexicographic comparison matches date order,
    so range predicates run directly against the column.
  - Money: decimal strings. SUMs happen in Go via shopspring/decimal so
    no precision is lost to REAL affinity.

WAL MODE:
  Opened with WAL (Write-Ahead Logging): multiple readers don't block,
  single writer at a time, better crash recovery.

MIGRATION:
  Versioned SQL migrations embedded in the binary, applied on New()
  through golang-migrate's iofs source.

USAGE:
  store, err := sqlite.New("./data/loanbook.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - report/store.go: interface definitions
  - report/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/crestline/loan-reports/report"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const dateLayout = "2006-01-02"

// Store implements report.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A :memory: database exists per connection; the pool must not open
	// a second one. SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the embedded versioned migrations. The migrate
// instance shares our connection (required for :memory: databases), so
// it is not Closed here - that would close the store's own handle.
func (s *Store) migrate() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// =============================================================================
// USERS
// =============================================================================

// CreateUser inserts a user and returns it with its assigned ID.
func (s *Store) CreateUser(ctx context.Context, login string, registrationDate time.Time) (report.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (login, registration_date) VALUES (?, ?)`,
		login, fmtDate(registrationDate),
	)
	if err != nil {
		return report.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return report.User{}, fmt.Errorf("failed to read user id: %w", err)
	}

	return report.User{
		ID:               report.UserID(id),
		Login:            login,
		RegistrationDate: report.DayOf(registrationDate),
	}, nil
}

// ListUsers returns all users in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]report.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, login, registration_date FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []report.User
	for rows.Next() {
		var u report.User
		var regDate string
		if err := rows.Scan(&u.ID, &u.Login, &regDate); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.RegistrationDate = parseDate(regDate)
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// CREDITS (report.CreditSource / report.TransactionSource)
// =============================================================================

// CreditsByUser returns the user's credits with payments attached.
// Payments are loaded one credit at a time; the result set per user is
// small enough that a join buys nothing here.
func (s *Store) CreditsByUser(ctx context.Context, userID report.UserID) ([]report.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credits, err := s.queryCredits(ctx,
		`SELECT id, user_id, issuance_date, return_date, actual_return_date, body, percent
		 FROM credits WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}

	for i := range credits {
		payments, err := s.paymentsOfCredit(ctx, credits[i].ID)
		if err != nil {
			return nil, err
		}
		credits[i].Payments = payments
	}
	return credits, nil
}

func (s *Store) paymentsOfCredit(ctx context.Context, creditID report.CreditID) ([]report.Payment, error) {
	return s.queryPayments(ctx,
		`SELECT id, sum, payment_date, credit_id, type_id
		 FROM payments WHERE credit_id = ? ORDER BY id`, creditID)
}

// CreateCredit inserts a credit row. Credits are not exposed through
// the HTTP surface; this is used by back-office seeding and tests.
func (s *Store) CreateCredit(ctx context.Context, c report.Credit) (report.Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO credits (user_id, issuance_date, return_date, actual_return_date, body, percent)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.UserID,
		fmtDate(c.IssuanceDate),
		nullDate(c.ReturnDate),
		nullDatePtr(c.ActualReturnDate),
		c.Body.String(),
		c.Percent.String(),
	)
	if err != nil {
		return report.Credit{}, fmt.Errorf("failed to create credit: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return report.Credit{}, fmt.Errorf("failed to read credit id: %w", err)
	}
	c.ID = report.CreditID(id)
	return c, nil
}

// CreditsIssuedBetween returns credits issued in [from, to] inclusive.
func (s *Store) CreditsIssuedBetween(ctx context.Context, from, to time.Time) ([]report.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCredits(ctx,
		`SELECT id, user_id, issuance_date, return_date, actual_return_date, body, percent
		 FROM credits WHERE issuance_date >= ? AND issuance_date <= ? ORDER BY id`,
		fmtDate(from), fmtDate(to))
}

func (s *Store) queryCredits(ctx context.Context, query string, args ...any) ([]report.Credit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credits: %w", err)
	}
	defer rows.Close()

	var credits []report.Credit
	for rows.Next() {
		var (
			c            report.Credit
			issuance     string
			returnDate   sql.NullString
			actualReturn sql.NullString
			body         string
			percent      string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &issuance, &returnDate, &actualReturn, &body, &percent); err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		c.IssuanceDate = parseDate(issuance)
		if returnDate.Valid {
			c.ReturnDate = parseDate(returnDate.String)
		}
		if actualReturn.Valid {
			d := parseDate(actualReturn.String)
			c.ActualReturnDate = &d
		}
		c.Body = mustDecimal(body)
		c.Percent = mustDecimal(percent)
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

// CountCreditsIssued counts credits issued in [from, to).
func (s *Store) CountCreditsIssued(ctx context.Context, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credits WHERE issuance_date >= ? AND issuance_date < ?`,
		fmtDate(from), fmtDate(to),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count credits: %w", err)
	}
	return count, nil
}

// SumCreditBodies sums credit principals issued in [from, to).
func (s *Store) SumCreditBodies(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sumColumn(ctx,
		`SELECT body FROM credits WHERE issuance_date >= ? AND issuance_date < ?`,
		fmtDate(from), fmtDate(to))
}

// =============================================================================
// PAYMENTS
// =============================================================================

// CreatePayment records a repayment and returns it with its assigned ID.
func (s *Store) CreatePayment(ctx context.Context, p report.Payment) (report.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (sum, payment_date, credit_id, type_id) VALUES (?, ?, ?, ?)`,
		p.Sum.String(), fmtDate(p.Date), p.CreditID, int64(p.TypeID),
	)
	if err != nil {
		return report.Payment{}, fmt.Errorf("failed to create payment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return report.Payment{}, fmt.Errorf("failed to read payment id: %w", err)
	}
	p.ID = id
	p.Date = report.DayOf(p.Date)
	return p, nil
}

// PaymentsBetween returns payments dated in [from, to] inclusive.
func (s *Store) PaymentsBetween(ctx context.Context, from, to time.Time) ([]report.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx,
		`SELECT id, sum, payment_date, credit_id, type_id
		 FROM payments WHERE payment_date >= ? AND payment_date <= ? ORDER BY id`,
		fmtDate(from), fmtDate(to))
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]report.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []report.Payment
	for rows.Next() {
		var (
			p      report.Payment
			sum    string
			date   string
			typeID int64
		)
		if err := rows.Scan(&p.ID, &sum, &date, &p.CreditID, &typeID); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Sum = mustDecimal(sum)
		p.Date = parseDate(date)
		p.TypeID = report.PaymentType(typeID)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// CountPayments counts payments dated in [from, to).
func (s *Store) CountPayments(ctx context.Context, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE payment_date >= ? AND payment_date < ?`,
		fmtDate(from), fmtDate(to),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}

// SumPayments sums payments dated in [from, to).
func (s *Store) SumPayments(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sumColumn(ctx,
		`SELECT sum FROM payments WHERE payment_date >= ? AND payment_date < ?`,
		fmtDate(from), fmtDate(to))
}

// =============================================================================
// DICTIONARY
// =============================================================================

// ListCategories returns the whole dictionary in ID order.
func (s *Store) ListCategories(ctx context.Context) ([]report.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM dictionary ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dictionary: %w", err)
	}
	defer rows.Close()

	var categories []report.Category
	for rows.Next() {
		var c report.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// FindCategory looks a label up by exact name. Returns nil when absent.
func (s *Store) FindCategory(ctx context.Context, name string) (*report.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c report.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM dictionary WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return &c, nil
}

// =============================================================================
// PLANS
// =============================================================================

// ListPlans returns every plan with its category name joined, in
// insertion order.
func (s *Store) ListPlans(ctx context.Context) ([]report.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.period, p.sum, p.category_id, d.name
		 FROM plans p JOIN dictionary d ON d.id = p.category_id
		 ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []report.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// FindPlan returns the plan for (period, categoryID), or nil.
func (s *Store) FindPlan(ctx context.Context, period time.Time, categoryID report.CategoryID) (*report.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT p.id, p.period, p.sum, p.category_id, d.name
		 FROM plans p JOIN dictionary d ON d.id = p.category_id
		 WHERE p.period = ? AND p.category_id = ?`,
		fmtDate(period), categoryID)

	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertPlans writes the batch in a single transaction. The
// UNIQUE(period, category_id) constraint turns a lost duplicate race
// into ErrDuplicatePlan instead of a corrupted plan set.
func (s *Store) InsertPlans(ctx context.Context, plans []report.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, plan := range plans {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO plans (period, sum, category_id) VALUES (?, ?, ?)`,
			fmtDate(plan.Period), plan.Sum.String(), plan.CategoryID,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return report.ErrDuplicatePlan
			}
			return fmt.Errorf("failed to insert plan: %w", err)
		}
	}

	return tx.Commit()
}

// SumPlansFor sums plan targets for the exact period whose category
// name contains the given substring, case-insensitively.
func (s *Store) SumPlansFor(ctx context.Context, period time.Time, categorySubstring string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sumColumn(ctx,
		`SELECT p.sum
		 FROM plans p JOIN dictionary d ON d.id = p.category_id
		 WHERE p.period = ? AND LOWER(d.name) LIKE '%' || LOWER(?) || '%'`,
		fmtDate(period), categorySubstring)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (report.Plan, error) {
	var (
		p      report.Plan
		period string
		sum    string
	)
	if err := row.Scan(&p.ID, &period, &sum, &p.CategoryID, &p.CategoryName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan plan: %w", err)
	}
	p.Period = parseDate(period)
	p.Sum = mustDecimal(sum)
	return p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// sumColumn runs a single-column query of decimal strings and sums the
// values in Go, keeping decimal exactness instead of handing the sum to
// SQLite's REAL affinity.
func (s *Store) sumColumn(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query sums: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan sum: %w", err)
		}
		total = total.Add(mustDecimal(value))
	}
	return total, rows.Err()
}

func fmtDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) time.Time {
	t, _ := time.ParseInLocation(dateLayout, s, time.UTC)
	return t
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtDate(t), Valid: true}
}

func nullDatePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtDate(*t), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
