// Package services – SummaryService
//
// This file implements the completion summary: one row per stored day with
// the number of completions and the number of habits that were possible on
// that day. The possible count is aggregated here, with calendar.WeekDay,
// over rows loaded from the four tables, so it always agrees with GetDay for
// the same date regardless of the SQL dialect in use.
package services

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/calendar"
	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
)

// CalendarCell is one date of the year-to-date completion grid.
type CalendarCell struct {
	Date       string  `json:"date"       example:"2026-10-12"`
	Amount     float64 `json:"amount"     example:"3"`
	Completed  float64 `json:"completed"  example:"2"`
	Percentage int     `json:"percentage" example:"67"`
}

// SummaryService computes the per-day summary and the calendar grid.
type SummaryService struct {
	DB    *gorm.DB
	Clock calendar.Clock
	Loc   *time.Location
}

// NewSummaryService constructs a SummaryService using the system clock.
func NewSummaryService(db *gorm.DB, loc *time.Location) *SummaryService {
	return &SummaryService{DB: db, Clock: calendar.SystemClock{}, Loc: loc}
}

// Summary returns one row per stored day ordered by date. Days without
// completions appear with Completed == 0.
func (s *SummaryService) Summary(ctx context.Context) ([]domain.SummaryRow, error) {
	tr := otel.Tracer("services/SummaryService")
	ctx, span := tr.Start(ctx, "Summary")
	defer span.End()

	days, err := repo.ListDayCompletions(ctx, s.DB)
	if err != nil {
		return nil, storageErr("list day completions", err)
	}
	if len(days) == 0 {
		return []domain.SummaryRow{}, nil
	}

	habits, err := repo.ListHabitsWithWeekDays(ctx, s.DB)
	if err != nil {
		return nil, storageErr("list habits", err)
	}
	rules := compileRules(habits)

	out := make([]domain.SummaryRow, 0, len(days))
	for _, dc := range days {
		out = append(out, domain.SummaryRow{
			ID:        dc.Day.ID,
			Date:      dc.Day.Date,
			Completed: float64(dc.Completed),
			Amount:    float64(rules.possibleOn(dc.Day.Date, s.Loc)),
		})
	}
	span.SetAttributes(attribute.Int("summary.rows", len(out)))
	return out, nil
}

// Calendar returns one cell per date from January 1st of the current year
// up to and including today, filled from Summary. Dates without a stored
// day report zero for every field.
func (s *SummaryService) Calendar(ctx context.Context) ([]CalendarCell, error) {
	tr := otel.Tracer("services/SummaryService")
	ctx, span := tr.Start(ctx, "Calendar")
	defer span.End()

	rows, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]domain.SummaryRow, len(rows))
	for _, r := range rows {
		byDate[calendar.FormatDate(r.Date, s.Loc)] = r
	}

	dates := calendar.DatesFromYearBeginning(s.Clock.Now(), s.Loc)
	out := make([]CalendarCell, 0, len(dates))
	for _, d := range dates {
		key := calendar.FormatDate(d, s.Loc)
		cell := CalendarCell{Date: key}
		if r, ok := byDate[key]; ok {
			cell.Amount = r.Amount
			cell.Completed = r.Completed
			cell.Percentage = percentage(r.Completed, r.Amount)
		}
		out = append(out, cell)
	}
	return out, nil
}

// percentage is round(completed/amount*100) clamped to [0,100]; zero when
// nothing was possible.
func percentage(completed, amount float64) int {
	if amount <= 0 {
		return 0
	}
	p := int(math.Round(completed / amount * 100))
	if p > 100 {
		return 100
	}
	return p
}

// weekRules holds, per habit, its creation day and the set of weekdays it
// applies to.
type weekRules []struct {
	createdAt time.Time
	days      [7]bool
}

func compileRules(habits []domain.Habit) weekRules {
	out := make(weekRules, len(habits))
	for i, h := range habits {
		out[i].createdAt = h.CreatedAt
		for _, wd := range h.WeekDays {
			if wd.WeekDay >= 0 && wd.WeekDay <= 6 {
				out[i].days[wd.WeekDay] = true
			}
		}
	}
	return out
}

// possibleOn counts habits created on or before day whose rules include the
// weekday of day. Duplicate weekday rows count once.
func (w weekRules) possibleOn(day time.Time, loc *time.Location) int {
	wd := calendar.WeekDay(day, loc)
	n := 0
	for _, r := range w {
		if r.days[wd] && !r.createdAt.After(day) {
			n++
		}
	}
	return n
}
