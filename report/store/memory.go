// Package store provides an in-memory report.Store implementation
// (for testing/dev).
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crestline/loan-reports/report"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	users      []report.User
	credits    []report.Credit
	payments   []report.Payment
	plans      []report.Plan
	categories []report.Category

	nextID int64
}

func NewMemory() *Memory {
	m := &Memory{nextID: 1}
	// Same dictionary the sqlite migration seeds.
	m.categories = []report.Category{
		{ID: report.CategoryID(report.PaymentTypeBody), Name: "body"},
		{ID: report.CategoryID(report.PaymentTypePercent), Name: "percent"},
		{ID: 3, Name: report.CategoryIssuance},
		{ID: 4, Name: report.CategoryCollection},
	}
	return m
}

func (m *Memory) next() int64 {
	id := m.nextID
	m.nextID++
	return id
}

// =============================================================================
// SEEDING (write side used by tests)
// =============================================================================

func (m *Memory) AddUser(u report.User) report.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = report.UserID(m.next())
	}
	m.users = append(m.users, u)
	return u
}

func (m *Memory) AddCredit(c report.Credit) report.Credit {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = report.CreditID(m.next())
	}
	m.credits = append(m.credits, c)
	return c
}

func (m *Memory) AddPayment(p report.Payment) report.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.next()
	}
	m.payments = append(m.payments, p)
	return p
}

func (m *Memory) AddCategory(c report.Category) report.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = report.CategoryID(m.next())
	}
	m.categories = append(m.categories, c)
	return c
}

// =============================================================================
// report.CreditSource
// =============================================================================

func (m *Memory) CreditsByUser(_ context.Context, userID report.UserID) ([]report.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []report.Credit
	for _, c := range m.credits {
		if c.UserID != userID {
			continue
		}
		c.Payments = m.paymentsOfLocked(c.ID)
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) paymentsOfLocked(creditID report.CreditID) []report.Payment {
	var out []report.Payment
	for _, p := range m.payments {
		if p.CreditID == creditID {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// report.PlanSource / report.PlanSink
// =============================================================================

func (m *Memory) ListPlans(_ context.Context) ([]report.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]report.Plan, len(m.plans))
	copy(out, m.plans)
	for i := range out {
		out[i].CategoryName = m.categoryNameLocked(out[i].CategoryID)
	}
	return out, nil
}

func (m *Memory) categoryNameLocked(id report.CategoryID) string {
	for _, c := range m.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (m *Memory) FindCategory(_ context.Context, name string) (*report.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.categories {
		if c.Name == name {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindPlan(_ context.Context, period time.Time, categoryID report.CategoryID) (*report.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.plans {
		if p.Period.Equal(period) && p.CategoryID == categoryID {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (m *Memory) InsertPlans(_ context.Context, plans []report.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Uniqueness check across the whole batch before any write, including
	// pairs repeated inside the batch itself (mirrors the sqlite UNIQUE
	// constraint).
	for i, plan := range plans {
		for _, existing := range m.plans {
			if existing.Period.Equal(plan.Period) && existing.CategoryID == plan.CategoryID {
				return report.ErrDuplicatePlan
			}
		}
		for _, earlier := range plans[:i] {
			if earlier.Period.Equal(plan.Period) && earlier.CategoryID == plan.CategoryID {
				return report.ErrDuplicatePlan
			}
		}
	}

	for _, plan := range plans {
		if plan.ID == 0 {
			plan.ID = m.next()
		}
		m.plans = append(m.plans, plan)
	}
	return nil
}

// =============================================================================
// report.TransactionSource (inclusive ranges)
// =============================================================================

func (m *Memory) CreditsIssuedBetween(_ context.Context, from, to time.Time) ([]report.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []report.Credit
	for _, c := range m.credits {
		if !c.IssuanceDate.Before(from) && !c.IssuanceDate.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) PaymentsBetween(_ context.Context, from, to time.Time) ([]report.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []report.Payment
	for _, p := range m.payments {
		if !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

// =============================================================================
// report.MonthlyAggregator (half-open ranges)
// =============================================================================

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (m *Memory) CountCreditsIssued(_ context.Context, from, to time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, c := range m.credits {
		if inWindow(c.IssuanceDate, from, to) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) SumCreditBodies(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, c := range m.credits {
		if inWindow(c.IssuanceDate, from, to) {
			total = total.Add(c.Body)
		}
	}
	return total, nil
}

func (m *Memory) CountPayments(_ context.Context, from, to time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, p := range m.payments {
		if inWindow(p.Date, from, to) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) SumPayments(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, p := range m.payments {
		if inWindow(p.Date, from, to) {
			total = total.Add(p.Sum)
		}
	}
	return total, nil
}

func (m *Memory) SumPlansFor(_ context.Context, period time.Time, categorySubstring string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(categorySubstring)
	total := decimal.Zero
	for _, p := range m.plans {
		if !p.Period.Equal(period) {
			continue
		}
		name := strings.ToLower(m.categoryNameLocked(p.CategoryID))
		if strings.Contains(name, needle) {
			total = total.Add(p.Sum)
		}
	}
	return total, nil
}
