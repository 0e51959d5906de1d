// Package handlers exposes the habit tracker's REST endpoints:
//   - POST  /habits              (create, Idempotency-Key aware)
//   - GET   /habits              (list, paginated, ETag support)
//   - PATCH /habits/{id}/toggle  (toggle today's completion)
//   - GET   /day                 (possible and completed habits of a date)
//   - GET   /summary             (per-day completion summary)
//   - GET   /summary/calendar    (year-to-date grid)
//
// Handlers are transport-thin: they decode input, call application services
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// HabitService creates and lists habits.
type HabitService interface {
	// Create validates and stores a habit created today.
	Create(ctx context.Context, in services.CreateHabitInput) (*domain.Habit, error)
	// ListPage returns a page of habits and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Habit, int64, error)
	// Stats returns the habit count and newest created_at for ETags.
	Stats(ctx context.Context) (int64, *time.Time, error)
}

// DayService reads a date and toggles today's completions.
type DayService interface {
	// GetDay returns possible and completed habits for a raw date value.
	GetDay(ctx context.Context, rawDate string) (*services.DayView, error)
	// Toggle flips today's completion for habitID.
	Toggle(ctx context.Context, habitID string) (bool, error)
}

// SummaryService computes completion aggregates.
type SummaryService interface {
	// Summary returns one row per stored day.
	Summary(ctx context.Context) ([]domain.SummaryRow, error)
	// Calendar returns one cell per date of the current year up to today.
	Calendar(ctx context.Context) ([]services.CalendarCell, error)
}

// IdempotencyStore guards create requests so retries with the same
// Idempotency-Key are not applied twice. A key is reserved before the
// operation runs, then completed or released.
type IdempotencyStore interface {
	// Lookup returns the resource created for (clientID, scope, key) once the
	// operation completed.
	Lookup(ctx context.Context, clientID, scope, key string, now time.Time) (resourceID string, found bool, err error)
	// Reserve claims (clientID, scope, key); false means it is already held.
	Reserve(ctx context.Context, clientID, scope, key string, now time.Time) (bool, error)
	// Complete records resourceID for a reserved key.
	Complete(ctx context.Context, clientID, scope, key, resourceID string, status int) error
	// Release frees a reserved key after a failed operation.
	Release(ctx context.Context, clientID, scope, key string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on service interfaces only.
type Handlers struct {
	habitSvc   HabitService
	daySvc     DayService
	summarySvc SummaryService
	idem       IdempotencyStore
}

// New constructs Handlers. idem may be nil, which disables replay handling.
func New(habitSvc HabitService, daySvc DayService, summarySvc SummaryService, idem IdempotencyStore) *Handlers {
	return &Handlers{habitSvc: habitSvc, daySvc: daySvc, summarySvc: summarySvc, idem: idem}
}

//
// DTOs
//

// CreateHabitRequest is the JSON payload for creating a habit.
type CreateHabitRequest struct {
	// Title is the habit name (1–255 chars).
	Title string `json:"title" example:"Drink 2L of water"`
	// WeekDays lists the weekdays the habit applies to, Sunday=0..Saturday=6.
	WeekDays WeekDayList `json:"weekDays" swaggertype:"array,integer" example:"1,3,5"`
}

// WeekDayList decodes a JSON array of numbers into weekday integers. Whole
// numbers written as floats (3.0) are accepted; fractional values are not.
// Range checks are left to the service.
type WeekDayList []int

// UnmarshalJSON implements json.Unmarshaler.
func (w *WeekDayList) UnmarshalJSON(b []byte) error {
	var raw []float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return &services.ValidationError{Field: "weekDays", Reason: "must be an array of integers"}
	}
	if raw == nil {
		*w = nil
		return nil
	}
	out := make(WeekDayList, len(raw))
	for i, v := range raw {
		if math.Trunc(v) != v {
			return &services.ValidationError{Field: fmt.Sprintf("weekDays[%d]", i), Reason: "must be an integer"}
		}
		// Keep huge values out of range without overflowing int.
		out[i] = int(math.Max(-1, math.Min(v, 7)))
	}
	*w = out
	return nil
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListHabitsResponse wraps a page of habits and pagination information.
type ListHabitsResponse struct {
	Habits     []domain.Habit `json:"habits"`
	Pagination Pagination     `json:"pagination"`
}
