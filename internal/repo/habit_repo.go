// Package repo – habits.
//
// Thin, context-aware repository functions for Habit and HabitWeekDay. They
// accept a *gorm.DB so they can run inside a caller's transaction. Business
// rules (validation, day truncation) live in the services package.
//
// Error semantics:
//   - Missing rows surface as ErrNotFound (gorm.ErrRecordNotFound).
//   - Any other DB error is propagated as-is.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// CreateHabit inserts a habit and one habit_week_days row per entry of
// weekDays, in order and without deduplication. IDs are generated here.
// Callers that need all-or-nothing semantics pass a transaction handle.
func CreateHabit(ctx context.Context, db *gorm.DB, title string, createdAt time.Time, weekDays []int) (*domain.Habit, error) {
	h := &domain.Habit{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: createdAt.UTC(),
	}
	if err := db.WithContext(ctx).Omit("WeekDays").Create(h).Error; err != nil {
		return nil, err
	}
	if len(weekDays) == 0 {
		return h, nil
	}
	rows := make([]domain.HabitWeekDay, 0, len(weekDays))
	for _, wd := range weekDays {
		rows = append(rows, domain.HabitWeekDay{ID: uuid.NewString(), HabitID: h.ID, WeekDay: wd})
	}
	if err := db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	h.WeekDays = rows
	return h, nil
}

// HabitExists reports whether a habit with the given id exists.
func HabitExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Habit{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// ListPossibleHabits returns habits created on or before day whose weekday
// rules include weekDay, ordered by creation date then title. Instants are
// compared in UTC because SQLite compares the stored text form.
func ListPossibleHabits(ctx context.Context, db *gorm.DB, day time.Time, weekDay int) ([]domain.Habit, error) {
	var out []domain.Habit
	err := db.WithContext(ctx).
		Where("created_at <= ?", day.UTC()).
		Where("EXISTS (SELECT 1 FROM habit_week_days hwd WHERE hwd.habit_id = habits.id AND hwd.week_day = ?)", weekDay).
		Order("created_at ASC, title ASC").
		Find(&out).Error
	return out, err
}

// ListHabitsWithWeekDays loads every habit together with its weekday rules.
func ListHabitsWithWeekDays(ctx context.Context, db *gorm.DB) ([]domain.Habit, error) {
	var out []domain.Habit
	err := db.WithContext(ctx).
		Preload("WeekDays", func(tx *gorm.DB) *gorm.DB { return tx.Order("week_day ASC") }).
		Order("created_at ASC, title ASC").
		Find(&out).Error
	return out, err
}

// CountHabits returns the total number of habits.
func CountHabits(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Habit{}).Count(&total).Error
	return total, err
}

// ListHabitsPage returns a page of habits with their weekday rules, newest
// first. The caller computes offset and limit.
func ListHabitsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Habit, error) {
	var out []domain.Habit
	err := db.WithContext(ctx).
		Preload("WeekDays", func(tx *gorm.DB) *gorm.DB { return tx.Order("week_day ASC") }).
		Order("created_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
