// Package repo – days and completions.
//
// Repository functions for Day and DayHabit. A Day is created lazily by the
// toggle path; the read paths never insert. The (day_id, habit_id) unique
// index is the storage-level guard against duplicate completions.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// FindDayByDate fetches the day whose date equals date exactly. The date must
// already be truncated. Returns ErrNotFound when no toggle ever targeted it.
func FindDayByDate(ctx context.Context, db *gorm.DB, date time.Time) (*domain.Day, error) {
	var d domain.Day
	if err := db.WithContext(ctx).Where("date = ?", date.UTC()).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetOrCreateDay returns the day for date, inserting it when missing. The
// insert ignores a conflict on the unique date so two concurrent callers both
// end up with the same row.
func GetOrCreateDay(ctx context.Context, db *gorm.DB, date time.Time) (*domain.Day, error) {
	d, err := FindDayByDate(ctx, db, date)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &domain.Day{ID: uuid.NewString(), Date: date.UTC()}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "date"}}, DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, err
	}
	return FindDayByDate(ctx, db, date)
}

// CompletedHabitIDs lists the habit ids linked to a day.
func CompletedHabitIDs(ctx context.Context, db *gorm.DB, dayID string) ([]string, error) {
	ids := []string{}
	err := db.WithContext(ctx).
		Model(&domain.DayHabit{}).
		Where("day_id = ?", dayID).
		Order("habit_id ASC").
		Pluck("habit_id", &ids).Error
	return ids, err
}

// DeleteDayHabit removes the completion link for (dayID, habitID) and
// reports whether a row was deleted.
func DeleteDayHabit(ctx context.Context, db *gorm.DB, dayID, habitID string) (bool, error) {
	res := db.WithContext(ctx).
		Where("day_id = ? AND habit_id = ?", dayID, habitID).
		Delete(&domain.DayHabit{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreateDayHabit inserts a completion link. A concurrent insert of the same
// pair is reported as ErrDuplicate.
func CreateDayHabit(ctx context.Context, db *gorm.DB, dayID, habitID string) (*domain.DayHabit, error) {
	dh := &domain.DayHabit{ID: uuid.NewString(), DayID: dayID, HabitID: habitID}
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(dh).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return dh, nil
}
