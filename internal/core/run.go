package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Endpoints that produce a categorization run.
const (
	EndpointUpload                   = "upload"
	EndpointMonthlyTrend             = "monthly_trend"
	EndpointMonthlyCategoryBreakdown = "monthly_category_breakdown"
	EndpointTopMerchants             = "top_merchants"
	EndpointIncomeVsExpense          = "income_vs_expense"
	EndpointCLI                      = "cli"
)

type (
	// RunSummary describes one pass of an uploaded statement through the
	// categorization pipeline. It is what run recorders persist.
	RunSummary struct {
		ID               string         `json:"id"`
		Filename         string         `json:"filename"`
		Digest           string         `json:"digest"` // sha256 of the uploaded bytes, hex encoded
		Endpoint         string         `json:"endpoint"`
		RowsIn           int            `json:"rows_in"`
		RowsOut          int            `json:"rows_out"`
		DroppedZeroDebit int            `json:"dropped_zero_debit"`
		DroppedTax       int            `json:"dropped_tax"`
		Categories       map[string]int `json:"categories"`
		DurationMs       int64          `json:"duration_ms"`
		CreatedAt        time.Time      `json:"created_at"`
	}
)

var (
	ErrEmptyRunID      = errors.New("empty run id")
	ErrEmptyDigest     = errors.New("empty digest")
	ErrEmptyEndpoint   = errors.New("empty endpoint")
	ErrNegativeCount   = errors.New("row counts cannot be negative")
	ErrRowCountInvalid = errors.New("rows out exceeds rows in")
)

func (r RunSummary) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyRunID
	}
	if strings.TrimSpace(r.Digest) == "" {
		return ErrEmptyDigest
	}
	if strings.TrimSpace(r.Endpoint) == "" {
		return ErrEmptyEndpoint
	}
	if r.RowsIn < 0 || r.RowsOut < 0 || r.DroppedZeroDebit < 0 || r.DroppedTax < 0 {
		return ErrNegativeCount
	}
	if r.RowsOut > r.RowsIn {
		return ErrRowCountInvalid
	}
	if r.CreatedAt.IsZero() {
		return errors.New("created at cannot be zero")
	}
	return nil
}

// Dropped returns how many rows the filters removed.
func (r RunSummary) Dropped() int {
	return r.DroppedZeroDebit + r.DroppedTax
}

// CategoryAmount is a category with the number of rows assigned to it.
type CategoryAmount struct {
	Name  string
	Count int
}

// TopCategories returns categories ordered by row count, largest first, ties
// by name.
func (r RunSummary) TopCategories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(r.Categories))
	for name, n := range r.Categories {
		out = append(out, CategoryAmount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
