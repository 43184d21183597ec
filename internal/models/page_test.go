package models

import (
	"math"
	"testing"
	"time"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{7, 1, 7},
		{2, math.MaxInt, 1},
		{math.MaxInt, 2, math.MaxInt/2 + 1},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.limit); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}

func TestListQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       ListQuery
		wantErr bool
	}{
		{name: "defaults", q: ListQuery{Page: 1, Limit: 10}},
		{name: "largest limit", q: ListQuery{Page: 1, Limit: MaxLimit}},
		{name: "far page", q: ListQuery{Page: math.MaxInt / MaxLimit, Limit: MaxLimit}},
		{name: "zero page", q: ListQuery{Page: 0, Limit: 10}, wantErr: true},
		{name: "zero limit", q: ListQuery{Page: 1, Limit: 0}, wantErr: true},
		{name: "limit over cap", q: ListQuery{Page: 1, Limit: MaxLimit + 1}, wantErr: true},
		{name: "huge limit", q: ListQuery{Page: 3, Limit: 1 << 62}, wantErr: true},
		{name: "offset overflow", q: ListQuery{Page: math.MaxInt, Limit: 10}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.q.Offset() < 0 {
				t.Fatalf("Offset() = %d for a valid query", tt.q.Offset())
			}
		})
	}
}

func TestNewPageResponseNavigation(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		totalPages int
		wantNext   *int
		wantPrev   *int
	}{
		{name: "single page", page: 1, totalPages: 1},
		{name: "first of three", page: 1, totalPages: 3, wantNext: intPtr(2)},
		{name: "middle", page: 2, totalPages: 3, wantNext: intPtr(3), wantPrev: intPtr(1)},
		{name: "last", page: 3, totalPages: 3, wantPrev: intPtr(2)},
		{name: "beyond data", page: 5, totalPages: 3, wantPrev: intPtr(4)},
		{name: "empty", page: 1, totalPages: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewPageResponse(TodoPage{TotalPages: tt.totalPages}, tt.page, 10)
			if !sameInt(resp.NextPage, tt.wantNext) {
				t.Errorf("NextPage = %v, want %v", deref(resp.NextPage), deref(tt.wantNext))
			}
			if !sameInt(resp.PreviousPage, tt.wantPrev) {
				t.Errorf("PreviousPage = %v, want %v", deref(resp.PreviousPage), deref(tt.wantPrev))
			}
			if resp.Todos == nil {
				t.Error("Todos must be an empty slice, not nil")
			}
		})
	}
}

func TestListQueryFilter(t *testing.T) {
	done := true
	q := ListQuery{Page: 2, Limit: 10, Status: &done, StartDate: "2024-01-01", EndDate: "2024-12-31T23:59:59Z"}

	f, err := q.Filter()
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if f.Status == nil || !*f.Status {
		t.Error("status not carried over")
	}
	if !f.CreatedFrom.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedFrom = %v", f.CreatedFrom)
	}
	if !f.CreatedTo.Equal(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("CreatedTo = %v", f.CreatedTo)
	}
	if q.Offset() != 10 {
		t.Errorf("Offset = %d, want 10", q.Offset())
	}

	if _, err := (ListQuery{StartDate: "yesterday"}).Filter(); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestTodoFilterMatches(t *testing.T) {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	open := false

	todo := Todo{IsCompleted: false, CreatedAt: jan}
	if !(TodoFilter{Status: &open, CreatedFrom: &from, CreatedTo: &to}).Matches(todo) {
		t.Error("expected match inside range")
	}
	todo.IsCompleted = true
	if (TodoFilter{Status: &open}).Matches(todo) {
		t.Error("expected status mismatch")
	}
	todo.CreatedAt = to.Add(time.Second)
	if (TodoFilter{CreatedTo: &to}).Matches(todo) {
		t.Error("expected date mismatch after range")
	}
	if !(TodoFilter{CreatedTo: &to}).Matches(Todo{CreatedAt: to}) {
		t.Error("end bound is inclusive")
	}
}

func intPtr(n int) *int { return &n }

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
