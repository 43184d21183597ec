package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MaxLimit bounds the page size of a list query.
const MaxLimit = 1000

// ListQuery holds the list parameters as received. StartDate and EndDate keep
// the caller's literal text so they can be rendered into cache keys unchanged.
type ListQuery struct {
	Page      int
	Limit     int
	Status    *bool
	StartDate string
	EndDate   string
}

// Filter parses the optional date bounds into a store filter.
func (q ListQuery) Filter() (TodoFilter, error) {
	f := TodoFilter{Status: q.Status}
	if q.StartDate != "" {
		t, err := ParseDate(q.StartDate)
		if err != nil {
			return TodoFilter{}, err
		}
		f.CreatedFrom = &t
	}
	if q.EndDate != "" {
		t, err := ParseDate(q.EndDate)
		if err != nil {
			return TodoFilter{}, err
		}
		f.CreatedTo = &t
	}
	return f, nil
}

// Validate checks the paging bounds. A valid query has an offset that fits in an int.
func (q ListQuery) Validate() error {
	if q.Page < 1 || q.Limit < 1 {
		return errors.New("page and limit must be at least 1")
	}
	if q.Limit > MaxLimit {
		return fmt.Errorf("limit must not exceed %d", MaxLimit)
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return fmt.Errorf("page %d is out of range", q.Page)
	}
	return nil
}

// Offset is the number of rows skipped before the requested page. Only
// meaningful for a query that passed Validate.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// TodoPage is the cached result of a list query.
type TodoPage struct {
	Todos      []Todo `json:"todos"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// TotalPages is ceil(total / limit), or 0 when limit is below 1.
func TotalPages(total, limit int) int {
	if limit < 1 {
		return 0
	}
	n := total / limit
	if total%limit != 0 {
		n++
	}
	return n
}

// PageResponse is the list payload returned to clients.
type PageResponse struct {
	Todos        []Todo `json:"todos"`
	Total        int    `json:"total"`
	TotalPages   int    `json:"totalPages"`
	Page         int    `json:"page"`
	Limit        int    `json:"limit"`
	NextPage     *int   `json:"nextPage"`
	PreviousPage *int   `json:"previousPage"`
}

// NewPageResponse decorates a TodoPage with navigation links.
func NewPageResponse(p TodoPage, page, limit int) PageResponse {
	resp := PageResponse{
		Todos:      p.Todos,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		Page:       page,
		Limit:      limit,
	}
	if resp.Todos == nil {
		resp.Todos = []Todo{}
	}
	if page < p.TotalPages {
		next := page + 1
		resp.NextPage = &next
	}
	if page > 1 {
		prev := page - 1
		resp.PreviousPage = &prev
	}
	return resp
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate accepts a calendar date (YYYY-MM-DD, read as UTC midnight) or an
// RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid date", s)
}
