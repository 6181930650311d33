/*
handlers.go - HTTP API handlers for the lending report service

PURPOSE:
  Exposes the reporting engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Users:
    POST   /users                    Create user
    GET    /users                    List users

  Credits:
    GET    /credits/{userId}         Per-credit repayment summaries

  Payments:
    POST   /payments                 Record a repayment

  Dictionary:
    GET    /dictionary               List categories

  Plans:
    POST   /plans/insert             Upload a tab-separated plan file
    GET    /plans/performance        Plan-vs-actual per plan row
    GET    /plans/year_performance   Twelve-month report

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call engine / store
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: validation errors, unreadable plan files, bad parameters
  - 404: user has no credits
  - 500: store faults

SEE ALSO:
  - dto.go: request/response data structures
  - server.go: router setup and middleware
  - report: the aggregation engine
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/crestline/loan-reports/ingest"
	"github.com/crestline/loan-reports/report"
	"github.com/crestline/loan-reports/store/sqlite"
)

// maxPlanFileBytes caps uploaded plan files. Plan files are a few
// hundred rows at most; anything bigger is a client mistake.
const maxPlanFileBytes = 10 << 20

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	// Now returns the current time; overridable in tests so overdue-day
	// assertions stay deterministic.
	Now func() time.Time
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// CreateUser creates a new user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Login == "" {
		writeError(w, http.StatusBadRequest, "Login is required", nil)
		return
	}

	regDate, err := parseDateParam(req.RegistrationDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid registration_date format (use YYYY-MM-DD)", err)
		return
	}

	user, err := h.Store.CreateUser(r.Context(), req.Login, regDate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CREDIT HANDLERS
// =============================================================================

// UserCredits returns the outstanding-credit report for a user.
func (h *Handler) UserCredits(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id", err)
		return
	}

	credits, err := h.Store.CreditsByUser(r.Context(), report.UserID(userID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load credits", err)
		return
	}
	if len(credits) == 0 {
		writeError(w, http.StatusNotFound, report.ErrNoCredits.Error(), nil)
		return
	}

	summaries := report.CreditSummaries(credits, h.Now())

	dtos := make([]CreditSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = toCreditSummaryDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// CreatePayment records a repayment against a credit.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDateParam(req.PaymentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment_date format (use YYYY-MM-DD)", err)
		return
	}

	typeID := report.PaymentType(req.TypeID)
	if !typeID.Valid() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid type_id %d (1 = body, 2 = percent)", req.TypeID), nil)
		return
	}

	payment, err := h.Store.CreatePayment(r.Context(), report.Payment{
		Sum:      decimal.NewFromFloat(req.Sum),
		Date:     date,
		CreditID: report.CreditID(req.CreditID),
		TypeID:   typeID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create payment", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentDTO(payment))
}

// =============================================================================
// DICTIONARY HANDLERS
// =============================================================================

// ListDictionary returns all dictionary categories.
func (h *Handler) ListDictionary(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list dictionary", err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = CategoryDTO{ID: int64(c.ID), Name: c.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// InsertPlans ingests an uploaded tab-separated plan file. The whole
// file is validated before anything commits; the first bad row rejects
// the entire batch.
func (h *Handler) InsertPlans(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPlanFileBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Unable to read the file", err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unable to read the file", err)
		return
	}
	defer file.Close()

	rows, err := ingest.ParsePlanFile(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx := r.Context()
	staged, err := ingest.Validate(ctx, h.Store, rows)
	if err != nil {
		if report.IsClientError(err) {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to validate plans", err)
		return
	}

	if err := h.Store.InsertPlans(ctx, staged); err != nil {
		if errors.Is(err, report.ErrDuplicatePlan) {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to insert plans", err)
		return
	}

	writeJSON(w, http.StatusOK, DetailResponse{
		Detail: "Plans successfully entered into the database",
	})
}

// PlansPerformance returns the plan-vs-actual report as of a cutoff date.
func (h *Handler) PlansPerformance(w http.ResponseWriter, r *http.Request) {
	asOfParam := r.URL.Query().Get("as_of")
	if asOfParam == "" {
		writeError(w, http.StatusBadRequest, "as_of query parameter is required (YYYY-MM-DD)", nil)
		return
	}

	asOf, err := parseDateParam(asOfParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
		return
	}

	results, err := report.PlanPerformances(r.Context(), h.Store, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute plan performance", err)
		return
	}

	dtos := make([]PlanPerformanceDTO, len(results))
	for i, p := range results {
		dtos[i] = toPlanPerformanceDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// YearPerformance returns the twelve-month report for a year.
func (h *Handler) YearPerformance(w http.ResponseWriter, r *http.Request) {
	yearParam := r.URL.Query().Get("year")
	if yearParam == "" {
		writeError(w, http.StatusBadRequest, "year query parameter is required", nil)
		return
	}

	year, err := strconv.Atoi(yearParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	results, err := report.YearPerformance(r.Context(), h.Store, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute year performance", err)
		return
	}

	dtos := make([]MonthPerformanceDTO, len(results))
	for i, m := range results {
		dtos[i] = toMonthPerformanceDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
