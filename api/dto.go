/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the engine's decimal-based domain model from the external
  API contract: monetary values serialize as JSON numbers, dates as
  YYYY-MM-DD strings.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: uses these types
  - report: the domain types converted here
*/
package api

import (
	"time"

	"github.com/crestline/loan-reports/report"
)

const dateLayout = "2006-01-02"

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID               int64  `json:"id"`
	Login            string `json:"login"`
	RegistrationDate string `json:"registration_date"`
}

// CreateUserRequest is the request to create a user.
type CreateUserRequest struct {
	Login            string `json:"login"`
	RegistrationDate string `json:"registration_date"`
}

// CreatePaymentRequest is the request to record a repayment.
type CreatePaymentRequest struct {
	Sum         float64 `json:"sum"`
	PaymentDate string  `json:"payment_date"`
	CreditID    int64   `json:"credit_id"`
	TypeID      int64   `json:"type_id"`
}

// PaymentDTO represents a recorded repayment.
type PaymentDTO struct {
	ID          int64   `json:"id"`
	Sum         float64 `json:"sum"`
	PaymentDate string  `json:"payment_date"`
	CreditID    int64   `json:"credit_id"`
	TypeID      int64   `json:"type_id"`
}

// CategoryDTO represents a dictionary row.
type CategoryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreditSummaryDTO is one row of the per-user credit report. The open
// and closed variants carry different fields; unused ones are omitted.
type CreditSummaryDTO struct {
	IssuanceDate string  `json:"issuance_date"`
	Body         float64 `json:"body"`
	Percent      float64 `json:"percent"`
	IsClosed     bool    `json:"is_closed"`

	// Closed credits.
	ReturnDate  string   `json:"return_date,omitempty"`
	PaymentsSum *float64 `json:"payments_sum,omitempty"`

	// Open credits.
	DueDate         string   `json:"due_date,omitempty"`
	OverdueDays     *int     `json:"overdue_days,omitempty"`
	PaymentsBody    *float64 `json:"payments_body,omitempty"`
	PaymentsPercent *float64 `json:"payments_percent,omitempty"`
}

// PlanPerformanceDTO is one row of the plan performance report.
type PlanPerformanceDTO struct {
	PlanPeriod         string  `json:"plan_period"`
	Category           string  `json:"category"`
	PlanSum            float64 `json:"plan_sum"`
	ActualSum          float64 `json:"actual_sum"`
	PerformancePercent float64 `json:"performance_percent"`
}

// MonthPerformanceDTO is one month's row of the year report.
type MonthPerformanceDTO struct {
	Month                        int     `json:"month"`
	CreditsCount                 int     `json:"credits_count"`
	PlanIssueSum                 float64 `json:"plan_issue_sum"`
	ActualIssueSum               float64 `json:"actual_issue_sum"`
	PerformanceIssuePercent      float64 `json:"performance_issue_percent"`
	PaymentsCount                int     `json:"payments_count"`
	PlanCollectionSum            float64 `json:"plan_collection_sum"`
	ActualCollectionSum          float64 `json:"actual_collection_sum"`
	PerformanceCollectionPercent float64 `json:"performance_collection_percent"`
}

// DetailResponse is the confirmation body for mutating endpoints.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toUserDTO(u report.User) UserDTO {
	return UserDTO{
		ID:               int64(u.ID),
		Login:            u.Login,
		RegistrationDate: u.RegistrationDate.Format(dateLayout),
	}
}

func toPaymentDTO(p report.Payment) PaymentDTO {
	return PaymentDTO{
		ID:          p.ID,
		Sum:         p.Sum.InexactFloat64(),
		PaymentDate: p.Date.Format(dateLayout),
		CreditID:    int64(p.CreditID),
		TypeID:      int64(p.TypeID),
	}
}

func toCreditSummaryDTO(s report.CreditSummary) CreditSummaryDTO {
	dto := CreditSummaryDTO{
		IssuanceDate: s.IssuanceDate.Format(dateLayout),
		Body:         s.Body.InexactFloat64(),
		Percent:      s.Percent.InexactFloat64(),
		IsClosed:     s.IsClosed,
	}

	if s.IsClosed {
		dto.ReturnDate = s.ReturnDate.Format(dateLayout)
		dto.PaymentsSum = floatPtr(s.PaymentsSum.InexactFloat64())
		return dto
	}

	dto.DueDate = s.DueDate.Format(dateLayout)
	dto.OverdueDays = intPtr(s.OverdueDays)
	dto.PaymentsBody = floatPtr(s.PaymentsBody.InexactFloat64())
	dto.PaymentsPercent = floatPtr(s.PaymentsPercent.InexactFloat64())
	return dto
}

func toPlanPerformanceDTO(p report.PlanPerformance) PlanPerformanceDTO {
	return PlanPerformanceDTO{
		PlanPeriod:         p.PlanPeriod.Format(dateLayout),
		Category:           p.Category,
		PlanSum:            p.PlanSum.InexactFloat64(),
		ActualSum:          p.ActualSum.InexactFloat64(),
		PerformancePercent: p.PerformancePercent.InexactFloat64(),
	}
}

func toMonthPerformanceDTO(m report.MonthPerformance) MonthPerformanceDTO {
	return MonthPerformanceDTO{
		Month:                        m.Month,
		CreditsCount:                 m.CreditsCount,
		PlanIssueSum:                 m.PlanIssueSum.InexactFloat64(),
		ActualIssueSum:               m.ActualIssueSum.InexactFloat64(),
		PerformanceIssuePercent:      m.PerformanceIssuePercent.InexactFloat64(),
		PaymentsCount:                m.PaymentsCount,
		PlanCollectionSum:            m.PlanCollectionSum.InexactFloat64(),
		ActualCollectionSum:          m.ActualCollectionSum.InexactFloat64(),
		PerformanceCollectionPercent: m.PerformanceCollectionPercent.InexactFloat64(),
	}
}

func parseDateParam(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
