package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/http/middleware"
	"github.com/tbourn/go-habit-backend/internal/services"
)

// ---------- flexible service stubs ----------

type stubHabitSvc struct {
	create   func(context.Context, services.CreateHabitInput) (*domain.Habit, error)
	listPage func(context.Context, int, int) ([]domain.Habit, int64, error)
	stats    func(context.Context) (int64, *time.Time, error)
	calls    int
}

func (s *stubHabitSvc) Create(ctx context.Context, in services.CreateHabitInput) (*domain.Habit, error) {
	s.calls++
	if s.create != nil {
		return s.create(ctx, in)
	}
	return &domain.Habit{ID: "h-1", Title: in.Title}, nil
}

func (s *stubHabitSvc) ListPage(ctx context.Context, p, ps int) ([]domain.Habit, int64, error) {
	if s.listPage != nil {
		return s.listPage(ctx, p, ps)
	}
	return nil, 0, nil
}

func (s *stubHabitSvc) Stats(ctx context.Context) (int64, *time.Time, error) {
	if s.stats != nil {
		return s.stats(ctx)
	}
	return 0, nil, nil
}

type stubDaySvc struct {
	getDay func(context.Context, string) (*services.DayView, error)
	toggle func(context.Context, string) (bool, error)
}

func (s stubDaySvc) GetDay(ctx context.Context, raw string) (*services.DayView, error) {
	if s.getDay != nil {
		return s.getDay(ctx, raw)
	}
	return &services.DayView{PossibleHabits: []domain.Habit{}, CompletedHabits: []string{}}, nil
}

func (s stubDaySvc) Toggle(ctx context.Context, id string) (bool, error) {
	if s.toggle != nil {
		return s.toggle(ctx, id)
	}
	return true, nil
}

type stubSummarySvc struct {
	summary  func(context.Context) ([]domain.SummaryRow, error)
	calendar func(context.Context) ([]services.CalendarCell, error)
}

func (s stubSummarySvc) Summary(ctx context.Context) ([]domain.SummaryRow, error) {
	if s.summary != nil {
		return s.summary(ctx)
	}
	return []domain.SummaryRow{}, nil
}

func (s stubSummarySvc) Calendar(ctx context.Context) ([]services.CalendarCell, error) {
	if s.calendar != nil {
		return s.calendar(ctx)
	}
	return []services.CalendarCell{}, nil
}

// memIdem is an in-memory IdempotencyStore keyed by client|scope|key. A
// pending reservation is stored with an empty resource id.
type memIdem struct {
	mu        sync.Mutex
	recs      map[string]string
	completes int
	releases  int
}

func newMemIdem() *memIdem { return &memIdem{recs: map[string]string{}} }

func (m *memIdem) Lookup(_ context.Context, clientID, scope, key string, _ time.Time) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.recs[clientID+"|"+scope+"|"+key]
	return id, id != "", nil
}

func (m *memIdem) Reserve(_ context.Context, clientID, scope, key string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := clientID + "|" + scope + "|" + key
	if _, held := m.recs[k]; held {
		return false, nil
	}
	m.recs[k] = ""
	return true, nil
}

func (m *memIdem) Complete(_ context.Context, clientID, scope, key, resourceID string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completes++
	m.recs[clientID+"|"+scope+"|"+key] = resourceID
	return nil
}

func (m *memIdem) Release(_ context.Context, clientID, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	delete(m.recs, clientID+"|"+scope+"|"+key)
	return nil
}

// ---------- router + request helpers ----------

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))

	r.POST("/habits", h.CreateHabit)
	r.GET("/habits", h.ListHabits)
	r.PATCH("/habits/:id/toggle", h.ToggleHabit)
	r.GET("/day", h.GetDay)
	r.GET("/summary", h.Summary)
	r.GET("/summary/calendar", h.Calendar)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return er
}
