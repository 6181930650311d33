/*
Package ingest converts uploaded plan files into validated plan rows.

PURPOSE:
  Parses a tab-separated plan file (columns: period, category, sum) and
  validates every row against the dictionary and the committed plan set
  before anything is persisted. Finance uploads one file per planning
  round - the whole file commits or the whole file is rejected.

FILE FORMAT:
  period	category	sum
  2024-02-01	issuance	1000000
  2024-02-01	collection	650000

  Dates are YYYY-MM-DD and must fall on the first day of a month.
  Sums are decimal numbers. The header row is required; data rows are
  referred to by their 0-based index in error messages.

VALIDATION ORDER (per row, fail-fast):
  1. period, category and sum present and parseable
  2. period falls on day 1 of its month
  3. category exists in the dictionary (exact name match)
  4. no committed plan and no earlier row in this file holds the same
     (period, category) pair

USAGE:
  rows, err := ingest.ParsePlanFile(file)
  staged, err := ingest.Validate(ctx, src, rows)
  err = sink.InsertPlans(ctx, staged)

SEE ALSO:
  - report/errors.go: RowError and the sentinels wrapped here
  - store/sqlite: the UNIQUE(period, category_id) backstop
*/
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crestline/loan-reports/report"
)

const dateLayout = "2006-01-02"

// Row is one parsed data row of a plan file.
type Row struct {
	Index    int // 0-based data row index, header excluded
	Period   time.Time
	Category string
	Sum      decimal.Decimal
}

// =============================================================================
// PARSING
// =============================================================================

// ParsePlanFile reads a tab-separated plan file. Structural failures
// (unreadable table, missing header columns) wrap ErrBadPlanFile;
// per-row field failures surface as RowError.
func ParsePlanFile(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", report.ErrBadPlanFile, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file is empty", report.ErrBadPlanFile)
	}

	cols, err := headerColumns(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		row, err := parseRow(i, record, cols)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type columns struct {
	period, category, sum int
}

func headerColumns(header []string) (columns, error) {
	cols := columns{period: -1, category: -1, sum: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "period":
			cols.period = i
		case "category":
			cols.category = i
		case "sum":
			cols.sum = i
		}
	}
	if cols.period < 0 || cols.category < 0 || cols.sum < 0 {
		return cols, fmt.Errorf("%w: header must contain period, category and sum columns", report.ErrBadPlanFile)
	}
	return cols, nil
}

func parseRow(index int, record []string, cols columns) (Row, error) {
	field := func(i int) string {
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	periodStr := field(cols.period)
	category := field(cols.category)
	sumStr := field(cols.sum)

	if periodStr == "" || category == "" || sumStr == "" {
		return Row{}, report.NewRowError(index, nil, "empty values in row %d", index)
	}

	period, err := time.ParseInLocation(dateLayout, periodStr, time.UTC)
	if err != nil {
		return Row{}, report.NewRowError(index, nil, "invalid period %q in row %d (expected YYYY-MM-DD)", periodStr, index)
	}

	sum, err := decimal.NewFromString(sumStr)
	if err != nil {
		return Row{}, report.NewRowError(index, nil, "invalid sum %q in row %d", sumStr, index)
	}

	return Row{Index: index, Period: period, Category: category, Sum: sum}, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

type planKey struct {
	period   int64
	category report.CategoryID
}

// Validate checks every parsed row against the dictionary and the
// committed plan set, in file order, failing on the first violation.
// It returns the staged plans ready for a single atomic insert.
//
// Rows staged earlier in the same file count as duplicates too, so a
// file cannot smuggle the same (period, category) pair in twice.
func Validate(ctx context.Context, src report.PlanSource, rows []Row) ([]report.Plan, error) {
	staged := make([]report.Plan, 0, len(rows))
	seen := make(map[planKey]bool)

	for _, row := range rows {
		if row.Period.Day() != 1 {
			return nil, report.NewRowError(row.Index, report.ErrPeriodNotMonthStart,
				"the plan date in row %d is not the first day of the month", row.Index)
		}

		category, err := src.FindCategory(ctx, row.Category)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, report.NewRowError(row.Index, report.ErrCategoryNotFound,
				"category %q not found in row %d", row.Category, row.Index)
		}

		key := planKey{period: row.Period.Unix(), category: category.ID}
		if seen[key] {
			return nil, report.NewRowError(row.Index, report.ErrDuplicatePlan,
				"a plan for this month and category already exists (row %d)", row.Index)
		}

		existing, err := src.FindPlan(ctx, row.Period, category.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, report.NewRowError(row.Index, report.ErrDuplicatePlan,
				"a plan for this month and category already exists (row %d)", row.Index)
		}

		seen[key] = true
		staged = append(staged, report.Plan{
			Period:       row.Period,
			Sum:          row.Sum,
			CategoryID:   category.ID,
			CategoryName: category.Name,
		})
	}

	return staged, nil
}
