// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, rate limiting and compression.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-habit-backend/docs"
	"github.com/tbourn/go-habit-backend/internal/config"
	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/http/handlers"
	"github.com/tbourn/go-habit-backend/internal/http/middleware"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/services"
)

// maxBodyBytes caps every request body. Habit payloads are tiny.
const maxBodyBytes = 1 << 20

// habitRepoShim adapts the repository free functions to the
// services.HabitRepo interface expected by the HabitService.
type habitRepoShim struct{}

// CreateHabit proxies repo.CreateHabit.
func (habitRepoShim) CreateHabit(ctx context.Context, db *gorm.DB, title string, createdAt time.Time, weekDays []int) (*domain.Habit, error) {
	return repo.CreateHabit(ctx, db, title, createdAt, weekDays)
}

// CountHabits proxies repo.CountHabits (pagination support).
func (habitRepoShim) CountHabits(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountHabits(ctx, db)
}

// ListHabitsPage proxies repo.ListHabitsPage (pagination support).
func (habitRepoShim) ListHabitsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Habit, error) {
	return repo.ListHabitsPage(ctx, db, offset, limit)
}

// HabitsStats proxies repo.HabitsStats (ETag support).
func (habitRepoShim) HabitsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.HabitsStats(ctx, db)
}

// idempotencyStore persists Idempotency-Key outcomes through the repo.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup returns the resource recorded for a completed, still-valid key.
// Pending reservations are not reported.
func (s idempotencyStore) Lookup(ctx context.Context, clientID, scope, key string, now time.Time) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, clientID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if rec.Status == 0 {
		return "", false, nil
	}
	return rec.ResourceID, true, nil
}

// Reserve claims the key; false means another request already holds it.
func (s idempotencyStore) Reserve(ctx context.Context, clientID, scope, key string, now time.Time) (bool, error) {
	_, err := repo.ReserveIdempotency(ctx, s.db, clientID, scope, key, now, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return false, nil
	}
	return err == nil, err
}

// Complete records the outcome of a reserved key.
func (s idempotencyStore) Complete(ctx context.Context, clientID, scope, key, resourceID string, status int) error {
	return repo.CompleteIdempotency(ctx, s.db, clientID, scope, key, resourceID, status)
}

// Release frees a reserved key after a failed operation.
func (s idempotencyStore) Release(ctx context.Context, clientID, scope, key string) error {
	return repo.ReleaseIdempotency(ctx, s.db, clientID, scope, key)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. loc is the reference zone in which dates are truncated.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger (or Logger when LOG_REDACT is off)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per client, bypass on replay)
//  9. CORS and security headers
//  10. gzip
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, loc *time.Location) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logs
	if cfg.Log.Redact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
		}))
	} else {
		r.Use(middleware.Logger())
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics(middleware.MetricsOptions{SkipPaths: []string{"/metrics"}}))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	idem := idempotencyStore{db: db, ttl: cfg.IdempotencyTTL}
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, clientID, scope, key string, now time.Time) (bool, error) {
			_, found, err := idem.Lookup(ctx, clientID, scope, key, now)
			return found, err
		},
	))

	// 8) Token-bucket rate limiter per client
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClient())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// 10) Compress JSON bodies (summaries grow with history)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	h := handlers.New(
		services.NewHabitService(db, habitRepoShim{}, loc),
		services.NewDayService(db, loc),
		services.NewSummaryService(db, loc),
		idem,
	)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Habits
		api.POST("/habits", h.CreateHabit)
		api.GET("/habits", h.ListHabits)
		api.PATCH("/habits/:id/toggle", h.ToggleHabit)

		// Days
		api.GET("/day", h.GetDay)

		// Summary
		api.GET("/summary", h.Summary)
		api.GET("/summary/calendar", h.Calendar)
	}
}

// corsConfig allows every origin when the allow-list is empty and echoes
// allow-listed origins otherwise. Credentials are never allowed.
func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderClientID, middleware.HeaderIdempotencyKey, "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", middleware.HeaderIdempotencyReplayed, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cc
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
