// Package domain defines the persistence models for habits, their weekday
// rules, calendar days, and day/habit completion links. These types are
// mapped with GORM and form the core data layer of the habit tracker.
package domain

import "time"

// Habit is a recurring task. It is "possible" on every day on or after
// CreatedAt whose weekday matches one of its WeekDays.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Title: display name, NFC-normalized on creation.
//   - CreatedAt: start of the creation day in the reference zone (no time part).
//   - WeekDays: weekday rules; only loaded when explicitly preloaded.
type Habit struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_habits_created_at"`

	WeekDays []HabitWeekDay `json:"week_days,omitempty" gorm:"foreignKey:HabitID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Habit.
func (Habit) TableName() string { return "habits" }

// HabitWeekDay binds a habit to one weekday, Sunday=0 .. Saturday=6.
// Duplicate rows for the same habit and weekday are allowed.
type HabitWeekDay struct {
	ID      string `json:"id"       gorm:"type:char(36);primaryKey"`
	HabitID string `json:"habit_id" gorm:"type:char(36);not null;index:idx_hwd_habit_week,priority:1"`
	WeekDay int    `json:"week_day" gorm:"not null;index:idx_hwd_habit_week,priority:2;check:week_day BETWEEN 0 AND 6"`
}

// TableName returns the database table name for HabitWeekDay.
func (HabitWeekDay) TableName() string { return "habit_week_days" }

// Day is a calendar date on which at least one toggle happened. Date is the
// UTC instant of local midnight and acts as a natural key.
type Day struct {
	ID   string    `json:"id"   gorm:"type:char(36);primaryKey"`
	Date time.Time `json:"date" gorm:"not null;uniqueIndex:ux_days_date"`

	DayHabits []DayHabit `json:"-" gorm:"foreignKey:DayID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Day.
func (Day) TableName() string { return "days" }

// DayHabit records that a habit was completed on a day. Existence means
// completed; the (day_id, habit_id) pair is unique at the storage layer.
type DayHabit struct {
	ID      string `json:"id"       gorm:"type:char(36);primaryKey"`
	DayID   string `json:"day_id"   gorm:"type:char(36);not null;uniqueIndex:ux_day_habits_day_habit,priority:1"`
	HabitID string `json:"habit_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_day_habits_day_habit,priority:2"`

	Habit Habit `json:"-" gorm:"foreignKey:HabitID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for DayHabit.
func (DayHabit) TableName() string { return "day_habits" }

// SummaryRow is one per-day aggregate of the summary view. It is computed,
// never stored.
type SummaryRow struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Completed float64   `json:"completed"`
	Amount    float64   `json:"amount"`
}
