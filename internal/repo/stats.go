// Package repo implements the data persistence layer for the habit tracker.
// This file provides aggregate queries: per-day completion counts feeding the
// summary view, and list metadata used for ETag generation in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// DayCompletion pairs a day with its number of completion links.
type DayCompletion struct {
	Day       domain.Day
	Completed int64
}

// ListDayCompletions returns every day ordered by date with the count of its
// DayHabits. Days without completions are included with Completed == 0.
//
// Dates are loaded through the model rather than a grouped projection so the
// driver keeps them typed (SQLite returns aggregated columns as TEXT).
func ListDayCompletions(ctx context.Context, db *gorm.DB) ([]DayCompletion, error) {
	var days []domain.Day
	if err := db.WithContext(ctx).Order("date ASC").Find(&days).Error; err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return []DayCompletion{}, nil
	}

	var counts []struct {
		DayID string
		N     int64
	}
	if err := db.WithContext(ctx).
		Model(&domain.DayHabit{}).
		Select("day_id, COUNT(*) AS n").
		Group("day_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	byDay := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDay[c.DayID] = c.N
	}

	out := make([]DayCompletion, 0, len(days))
	for _, d := range days {
		out = append(out, DayCompletion{Day: d, Completed: byDay[d.ID]})
	}
	return out, nil
}

// HabitsStats returns the number of habits and the newest created_at, or a
// nil timestamp when there are none.
func HabitsStats(ctx context.Context, db *gorm.DB) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Habit{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest created_at via ORDER BY (avoid MAX() -> TEXT in SQLite).
	var row struct {
		CreatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Habit{}).
		Select("created_at").Order("created_at DESC").Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
