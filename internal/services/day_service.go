// Package services – DayService
//
// This file implements the per-day operations: reading which habits are
// possible and completed on a date, and toggling a habit's completion for
// today. Days are created lazily by Toggle only; reads never insert.
//
// Toggle runs find-or-create of the day, the delete and the conditional
// insert inside one transaction. The unique (day_id, habit_id) index is the
// final guard: when two concurrent toggles race, the loser gets
// ErrToggleConflict instead of writing a duplicate row.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/calendar"
	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
)

// DayView is the read model of a single date.
type DayView struct {
	PossibleHabits  []domain.Habit `json:"possibleHabits"`
	CompletedHabits []string       `json:"completedHabits"`
}

// DayService implements Get Day and Toggle.
type DayService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Clock supplies "today" for toggles.
	Clock calendar.Clock
	// Loc is the reference zone in which days are truncated.
	Loc *time.Location
}

// NewDayService constructs a DayService using the system clock.
func NewDayService(db *gorm.DB, loc *time.Location) *DayService {
	return &DayService{DB: db, Clock: calendar.SystemClock{}, Loc: loc}
}

// GetDay parses rawDate and returns the habits possible on that date along
// with the ids completed on it. A date nobody toggled yields an empty
// completion list.
func (s *DayService) GetDay(ctx context.Context, rawDate string) (*DayView, error) {
	tr := otel.Tracer("services/DayService")
	ctx, span := tr.Start(ctx, "GetDay", trace.WithAttributes(attribute.String("date.raw", rawDate)))
	defer span.End()

	rawDate = strings.TrimSpace(rawDate)
	if rawDate == "" {
		return nil, &ValidationError{Field: "date", Reason: "is required"}
	}
	at, err := calendar.ParseDate(rawDate, s.Loc)
	if err != nil {
		return nil, &ValidationError{Field: "date", Reason: "must be a date (YYYY-MM-DD or RFC 3339)"}
	}
	return s.dayAt(ctx, at)
}

// canonicalID lowercases a well-formed UUID in any accepted notation so it
// matches stored ids; anything else is returned trimmed for validation to
// reject.
func canonicalID(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := uuid.Parse(raw); err == nil {
		return u.String()
	}
	return raw
}

func (s *DayService) dayAt(ctx context.Context, at time.Time) (*DayView, error) {
	day := calendar.StartOfDay(at, s.Loc)
	weekDay := calendar.WeekDay(day, s.Loc)

	possible, err := repo.ListPossibleHabits(ctx, s.DB, at, weekDay)
	if err != nil {
		return nil, storageErr("list possible habits", err)
	}
	if possible == nil {
		possible = []domain.Habit{}
	}

	view := &DayView{PossibleHabits: possible, CompletedHabits: []string{}}
	d, err := repo.FindDayByDate(ctx, s.DB, day)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return view, nil
	case err != nil:
		return nil, storageErr("find day", err)
	}

	ids, err := repo.CompletedHabitIDs(ctx, s.DB, d.ID)
	if err != nil {
		return nil, storageErr("list completions", err)
	}
	view.CompletedHabits = ids
	return view, nil
}

// Toggle flips the completion of habitID for today and reports the
// resulting state (true = completed).
//
// Errors:
//   - *ValidationError when habitID is not a UUID.
//   - ErrHabitNotFound when no such habit exists.
//   - ErrToggleConflict when a concurrent toggle won the race.
//   - *StorageError for any other persistence failure.
func (s *DayService) Toggle(ctx context.Context, habitID string) (bool, error) {
	tr := otel.Tracer("services/DayService")
	ctx, span := tr.Start(ctx, "Toggle", trace.WithAttributes(attribute.String("habit.id", habitID)))
	defer span.End()

	in := ToggleInput{ID: canonicalID(habitID)}
	if err := validateStruct(in); err != nil {
		return false, err
	}

	today := calendar.StartOfDay(s.Clock.Now(), s.Loc)

	var completed bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := repo.HabitExists(ctx, tx, in.ID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrHabitNotFound
		}

		day, err := repo.GetOrCreateDay(ctx, tx, today)
		if err != nil {
			return err
		}

		deleted, err := repo.DeleteDayHabit(ctx, tx, day.ID, in.ID)
		if err != nil {
			return err
		}
		if deleted {
			completed = false
			return nil
		}

		if _, err := repo.CreateDayHabit(ctx, tx, day.ID, in.ID); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrToggleConflict
			}
			return err
		}
		completed = true
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return false, storageErr("toggle habit", err)
	}

	state := "uncompleted"
	if completed {
		state = "completed"
	}
	habitToggles.WithLabelValues(state).Inc()
	span.SetAttributes(attribute.Bool("habit.completed", completed))
	return completed, nil
}
