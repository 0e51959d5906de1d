package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/repo"
)

// ---------- test helpers ----------

// testLoc is a fixed zone west of UTC so that local midnight and UTC
// midnight fall on different instants.
var testLoc = time.FixedZone("UTC-3", -3*60*60)

// at builds a local instant in testLoc.
func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, testLoc)
}

// stepClock is a mutable clock shared by the services under test.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// habitRepoShim adapts the repo free functions to HabitRepo.
type habitRepoShim struct{}

func (habitRepoShim) CreateHabit(ctx context.Context, db *gorm.DB, title string, createdAt time.Time, weekDays []int) (*domain.Habit, error) {
	return repo.CreateHabit(ctx, db, title, createdAt, weekDays)
}

func (habitRepoShim) CountHabits(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountHabits(ctx, db)
}

func (habitRepoShim) ListHabitsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Habit, error) {
	return repo.ListHabitsPage(ctx, db, offset, limit)
}

func (habitRepoShim) HabitsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.HabitsStats(ctx, db)
}

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_%s.db", uuid.NewString()))

	db, err := gorm.Open(sqlite.Open(dsn+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// Serialize writers; races are staged explicitly by the tests.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fixture bundles the three services over one DB and one clock.
type fixture struct {
	db      *gorm.DB
	clock   *stepClock
	habits  *HabitService
	days    *DayService
	summary *SummaryService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	db := newSvcDB(t)
	clk := &stepClock{t: now}
	return &fixture{
		db:      db,
		clock:   clk,
		habits:  &HabitService{DB: db, Repo: habitRepoShim{}, Clock: clk, Loc: testLoc},
		days:    &DayService{DB: db, Clock: clk, Loc: testLoc},
		summary: &SummaryService{DB: db, Clock: clk, Loc: testLoc},
	}
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
