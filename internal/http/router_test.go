package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/config"
	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/http/handlers"
	"github.com/tbourn/go-habit-backend/internal/http/middleware"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/services"
)

// --- test DB helper (pure-Go sqlite file, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.Open(repo.Options{
		Driver:       repo.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "router.db"),
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(db) })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/",
		RateRPS:        100,
		RateBurst:      100,
		IdempotencyTTL: time.Hour,
		Log:            config.LogConfig{Redact: true},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newTestRouter(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, cfg, time.UTC)
	return r, db
}

func call(t *testing.T, r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := call(t, r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://any.example"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	w = call(t, r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	w = call(t, r, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	w = call(t, r, http.MethodDelete, "/habits", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /habits expected 405, got %d", w.Code)
	}

	// swagger is off by default
	if w = call(t, r, http.MethodGet, "/swagger/index.html", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be disabled, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _ := newTestRouter(t, cfg)

	w := call(t, r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_SwaggerEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r, _ := newTestRouter(t, cfg)

	w := call(t, r, http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	for _, p := range []string{"/habits", "/day", "/habits/{id}/toggle", "/summary"} {
		if _, ok := paths[p]; !ok {
			t.Fatalf("swagger doc misses %s", p)
		}
	}
}

func TestRegisterRoutes_BasePathAndGzip(t *testing.T) {
	cfg := testConfig()
	cfg.APIBasePath = "/api/v1"
	r, _ := newTestRouter(t, cfg)

	if w := call(t, r, http.MethodGet, "/summary", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unprefixed route should 404, got %d", w.Code)
	}
	w := call(t, r, http.MethodGet, "/api/v1/summary/calendar", "", map[string]string{"Accept-Encoding": "gzip"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/summary/calendar = %d", w.Code)
	}
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding, headers=%v", w.Header())
	}
}

// End-to-end scenario: create, read the day, toggle twice, summarize.
func TestHabitLifecycle_EndToEnd(t *testing.T) {
	r, db := newTestRouter(t, testConfig())
	today := time.Now().UTC().Format("2006-01-02")

	w := call(t, r, http.MethodPost, "/habits", `{"title":"Run","weekDays":[0,1,2,3,4,5,6]}`, nil)
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Fatalf("POST /habits = %d %q", w.Code, w.Body.String())
	}

	var list handlers.ListHabitsResponse
	w = call(t, r, http.MethodGet, "/habits", "", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list.Habits) != 1 {
		t.Fatalf("GET /habits: %v %s", err, w.Body.String())
	}
	id := list.Habits[0].ID

	day := func() services.DayView {
		t.Helper()
		w := call(t, r, http.MethodGet, "/day?date="+today, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("GET /day = %d %s", w.Code, w.Body.String())
		}
		var v services.DayView
		if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
			t.Fatalf("json: %v", err)
		}
		return v
	}

	v := day()
	if len(v.PossibleHabits) != 1 || v.PossibleHabits[0].ID != id || len(v.CompletedHabits) != 0 {
		t.Fatalf("before toggle: %+v", v)
	}

	if w := call(t, r, http.MethodPatch, "/habits/"+id+"/toggle", "", nil); w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Fatalf("toggle on = %d %q", w.Code, w.Body.String())
	}
	if v = day(); len(v.CompletedHabits) != 1 || v.CompletedHabits[0] != id {
		t.Fatalf("after toggle on: %+v", v)
	}

	var rows []domain.SummaryRow
	w = call(t, r, http.MethodGet, "/summary", "", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil || len(rows) != 1 || rows[0].Completed != 1 || rows[0].Amount != 1 {
		t.Fatalf("summary after on: %v %s", err, w.Body.String())
	}

	if w := call(t, r, http.MethodPatch, "/habits/"+id+"/toggle", "", nil); w.Code != http.StatusOK {
		t.Fatalf("toggle off = %d", w.Code)
	}
	if v = day(); len(v.CompletedHabits) != 0 {
		t.Fatalf("after toggle off: %+v", v)
	}

	// The day row persists with zero completions.
	var days int64
	db.Model(&domain.Day{}).Count(&days)
	w = call(t, r, http.MethodGet, "/summary", "", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil || days != 1 || len(rows) != 1 || rows[0].Completed != 0 || rows[0].Amount != 1 {
		t.Fatalf("summary after off: days=%d %v %s", days, err, w.Body.String())
	}
}

func TestHabitErrors_EndToEnd(t *testing.T) {
	r, db := newTestRouter(t, testConfig())

	w := call(t, r, http.MethodPost, "/habits", `{"title":"Run","weekDays":[7]}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("weekDays [7] = %d", w.Code)
	}
	var er handlers.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != handlers.ErrCodeValidation || er.Details == nil || er.Details.Field != "weekDays[0]" {
		t.Fatalf("unexpected error body: %s", w.Body.String())
	}
	var habits, weekDays int64
	db.Model(&domain.Habit{}).Count(&habits)
	db.Model(&domain.HabitWeekDay{}).Count(&weekDays)
	if habits != 0 || weekDays != 0 {
		t.Fatalf("validation failure must not write rows: habits=%d weekDays=%d", habits, weekDays)
	}

	if w := call(t, r, http.MethodGet, "/day", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("GET /day without date = %d", w.Code)
	}
	if w := call(t, r, http.MethodPatch, "/habits/not-a-uuid/toggle", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("toggle invalid id = %d", w.Code)
	}
	if w := call(t, r, http.MethodPatch, "/habits/141add05-4415-4938-b5a1-17e0d3171aff/toggle", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("toggle unknown habit = %d", w.Code)
	}
}

func TestIdempotentCreate_EndToEnd(t *testing.T) {
	r, db := newTestRouter(t, testConfig())
	hdr := map[string]string{middleware.HeaderIdempotencyKey: "create-run-1", middleware.HeaderClientID: "web-1"}
	body := `{"title":"Run","weekDays":[1]}`

	if w := call(t, r, http.MethodPost, "/habits", body, hdr); w.Code != http.StatusOK || w.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("first create = %d", w.Code)
	}
	w := call(t, r, http.MethodPost, "/habits", body, hdr)
	if w.Code != http.StatusOK || w.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay = %d replayed=%q", w.Code, w.Header().Get(middleware.HeaderIdempotencyReplayed))
	}

	var n int64
	db.Model(&domain.Habit{}).Count(&n)
	if n != 1 {
		t.Fatalf("replay must not create a second habit, got %d", n)
	}

	if w := call(t, r, http.MethodPost, "/habits", body, map[string]string{middleware.HeaderIdempotencyKey: "bad key!"}); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed key = %d", w.Code)
	}
}

func Test_idempotencyStore(t *testing.T) {
	db := newTestDB(t)
	s := idempotencyStore{db: db, ttl: time.Minute}
	ctx := context.Background()

	if _, found, err := s.Lookup(ctx, "client:a", "POST /habits", "k", time.Now().UTC()); err != nil || found {
		t.Fatalf("miss: found=%v err=%v", found, err)
	}
	if won, err := s.Reserve(ctx, "client:a", "POST /habits", "k", time.Now().UTC()); err != nil || !won {
		t.Fatalf("reserve: won=%v err=%v", won, err)
	}
	// a pending reservation is held but not yet a replay
	if won, err := s.Reserve(ctx, "client:a", "POST /habits", "k", time.Now().UTC()); err != nil || won {
		t.Fatalf("second reserve: won=%v err=%v", won, err)
	}
	if _, found, err := s.Lookup(ctx, "client:a", "POST /habits", "k", time.Now().UTC()); err != nil || found {
		t.Fatalf("pending: found=%v err=%v", found, err)
	}
	if err := s.Complete(ctx, "client:a", "POST /habits", "k", "h-1", http.StatusOK); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.Release(ctx, "client:a", "POST /habits", "k"); err != nil {
		t.Fatalf("release of a completed key: %v", err)
	}
	id, found, err := s.Lookup(ctx, "client:a", "POST /habits", "k", time.Now().UTC())
	if err != nil || !found || id != "h-1" {
		t.Fatalf("hit: id=%q found=%v err=%v", id, found, err)
	}
	if _, found, _ := s.Lookup(ctx, "client:a", "POST /habits", "k", time.Now().UTC().Add(2*time.Minute)); found {
		t.Fatalf("expired record must not be found")
	}

	_ = repo.Close(db)
	if _, _, err := s.Lookup(ctx, "client:a", "POST /habits", "k", time.Now().UTC()); err == nil {
		t.Fatalf("expected error on closed db")
	}
}

func Test_habitRepoShim_Proxies(t *testing.T) {
	db := newTestDB(t)
	shim := habitRepoShim{}
	ctx := context.Background()
	day := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

	h, err := shim.CreateHabit(ctx, db, "Read", day, []int{1, 3})
	if err != nil || h.ID == "" {
		t.Fatalf("CreateHabit: %+v %v", h, err)
	}
	if _, err := shim.CreateHabit(ctx, db, "Swim", day.Add(24*time.Hour), []int{2}); err != nil {
		t.Fatalf("CreateHabit 2: %v", err)
	}

	if n, err := shim.CountHabits(ctx, db); err != nil || n != 2 {
		t.Fatalf("CountHabits: %d %v", n, err)
	}
	page, err := shim.ListHabitsPage(ctx, db, 0, 1)
	if err != nil || len(page) != 1 {
		t.Fatalf("ListHabitsPage: %v %v", page, err)
	}
	n, maxTS, err := shim.HabitsStats(ctx, db)
	if err != nil || n != 2 || maxTS == nil || !maxTS.Equal(day.Add(24*time.Hour)) {
		t.Fatalf("HabitsStats: %d %v %v", n, maxTS, err)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}
