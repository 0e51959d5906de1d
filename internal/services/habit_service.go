// Package services – HabitService
//
// This file implements the HabitService, which creates habits and lists them.
// Input is validated once at the boundary (CreateHabitInput) and the habit
// plus its weekday rules are written in a single transaction, so a failing
// weekday insert never leaves a habit without rules.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/calendar"
	"github.com/tbourn/go-habit-backend/internal/domain"
)

// HabitRepo defines the repository contract required by HabitService.
type HabitRepo interface {
	// CreateHabit inserts a habit and one weekday row per entry.
	CreateHabit(ctx context.Context, db *gorm.DB, title string, createdAt time.Time, weekDays []int) (*domain.Habit, error)

	// CountHabits returns the total number of habits for pagination.
	CountHabits(ctx context.Context, db *gorm.DB) (int64, error)

	// ListHabitsPage returns a page of habits with their weekday rules.
	ListHabitsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Habit, error)

	// HabitsStats returns the habit count and newest created_at.
	HabitsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)
}

// HabitService provides habit-level operations.
type HabitService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the habit repository used by this service.
	Repo HabitRepo
	// Clock supplies "now" for created_at truncation.
	Clock calendar.Clock
	// Loc is the reference zone in which days are truncated.
	Loc *time.Location
}

// NewHabitService constructs a HabitService using the system clock.
func NewHabitService(db *gorm.DB, r HabitRepo, loc *time.Location) *HabitService {
	return &HabitService{DB: db, Repo: r, Clock: calendar.SystemClock{}, Loc: loc}
}

// Create validates in and stores a new habit whose created_at is the start
// of the current day. Weekday duplicates are stored as-is.
func (s *HabitService) Create(ctx context.Context, in CreateHabitInput) (*domain.Habit, error) {
	tr := otel.Tracer("services/HabitService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.Int("habit.week_days", len(in.WeekDays))),
	)
	defer span.End()

	in.Title = normalizeTitle(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	createdAt := calendar.StartOfDay(s.Clock.Now(), s.Loc)

	var h *domain.Habit
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.Repo.CreateHabit(ctx, tx, in.Title, createdAt, in.WeekDays)
		if err != nil {
			return err
		}
		h = created
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, storageErr("create habit", err)
	}

	habitsCreated.Inc()
	span.SetAttributes(attribute.String("habit.id", h.ID))
	return h, nil
}

// ListPage returns a page of habits (newest first) and the total count.
// Invalid page/pageSize fall back to 1 and 20.
func (s *HabitService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Habit, int64, error) {
	tr := otel.Tracer("services/HabitService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize)),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountHabits(ctx, s.DB)
	if err != nil {
		return nil, 0, storageErr("count habits", err)
	}
	if total == 0 {
		return []domain.Habit{}, 0, nil
	}

	items, err := s.Repo.ListHabitsPage(ctx, s.DB, offset, pageSize)
	if err != nil {
		return nil, 0, storageErr("list habits", err)
	}
	return items, total, nil
}

// Stats exposes list metadata for HTTP caching (ETag).
func (s *HabitService) Stats(ctx context.Context) (int64, *time.Time, error) {
	n, ts, err := s.Repo.HabitsStats(ctx, s.DB)
	if err != nil {
		return 0, nil, storageErr("habit stats", err)
	}
	return n, ts, nil
}
