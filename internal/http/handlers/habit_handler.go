package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-habit-backend/internal/http/middleware"
	"github.com/tbourn/go-habit-backend/internal/services"
	"github.com/tbourn/go-habit-backend/internal/utils"
)

// CreateHabit godoc
// @ID          createHabit
// @Summary     Create a habit
// @Description Creates a habit available from today on the given weekdays. Duplicate weekdays are kept.
// @Description Supports idempotency via the Idempotency-Key header (same key → no second habit,
// @Description 409 while the first request with that key is still running).
// @Tags        Habits
// @Accept      json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       X-Client-ID      header  string  false "Client identifier (scopes idempotency and rate limits)"
// @Param       body             body    handlers.CreateHabitRequest  true  "Habit payload"
//
// @Success     200  "Created (no body)"
// @Header      200  {string} Idempotency-Replayed "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse  "Same Idempotency-Key still in progress"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /habits [post]
func (h *Handlers) CreateHabit(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failErr(c, bindError(err), ErrCodeCreateFailed)
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	client := middleware.ClientID(c)
	scope := middleware.IdempotencyScope(c)

	// Replay path: the validator middleware may already have seen the key.
	replay := middleware.IsReplay(c)
	reserved := false
	if !replay && idemKey != "" && h.idem != nil {
		won, err := h.idem.Reserve(ctx, client, scope, idemKey, time.Now().UTC())
		if err != nil {
			failErr(c, err, ErrCodeCreateFailed)
			return
		}
		reserved = won
		if !won {
			// Held by another request: replay if it finished, else report it busy.
			if _, found, err := h.idem.Lookup(ctx, client, scope, idemKey, time.Now().UTC()); err != nil || !found {
				fail(c, http.StatusConflict, ErrCodeIdempotencyInProgress, "a request with this Idempotency-Key is in progress")
				return
			}
			replay = true
		}
	}
	if replay {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		okEmpty(c)
		return
	}

	habit, err := h.habitSvc.Create(ctx, services.CreateHabitInput{Title: req.Title, WeekDays: []int(req.WeekDays)})
	if err != nil {
		if reserved {
			if rerr := h.idem.Release(ctx, client, scope, idemKey); rerr != nil {
				middleware.LoggerFrom(c).Warn().Err(rerr).Msg("idempotency key not released")
			}
		}
		failErr(c, err, ErrCodeCreateFailed)
		return
	}

	if reserved {
		if err := h.idem.Complete(ctx, client, scope, idemKey, habit.ID, http.StatusOK); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not completed")
		}
	}

	okEmpty(c)
}

// ListHabits godoc
// @ID          listHabits
// @Summary     List habits (paginated)
// @Description Returns habits newest first with their weekdays. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Habits
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"habits:3:1760227200\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListHabitsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /habits [get]
func (h *Handlers) ListHabits(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), utils.DefaultPage),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
	)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.habitSvc.Stats(ctx); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"habits:%d:%d"`, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.habitSvc.ListPage(ctx, page, pageSize)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListHabitsResponse{
		Habits: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ToggleHabit godoc
// @ID          toggleHabit
// @Summary     Toggle today's completion of a habit
// @Description Marks the habit completed today, or un-marks it when already completed. Calling it twice restores the previous state.
// @Tags        Habits
//
// @Param       id  path  string  true  "Habit ID (UUID)"  format(uuid) example(141add05-4415-4938-b5a1-17e0d3171aff)
//
// @Success     200  "Toggled (no body)"
// @Failure     400  {object} handlers.ErrorResponse "Invalid id"
// @Failure     404  {object} handlers.ErrorResponse "Habit not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent toggle"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /habits/{id}/toggle [patch]
func (h *Handlers) ToggleHabit(c *gin.Context) {
	if _, err := h.daySvc.Toggle(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err, ErrCodeToggleFailed)
		return
	}
	okEmpty(c)
}

// bindError turns a JSON decoding failure into a ValidationError naming the
// offending field when the decoder reports one.
func bindError(err error) error {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		return &services.ValidationError{Field: ute.Field, Reason: "must be of type " + ute.Type.String()}
	}
	if errors.Is(err, io.EOF) {
		return &services.ValidationError{Field: "body", Reason: "is required"}
	}
	return &services.ValidationError{Field: "body", Reason: "must be a valid JSON object"}
}
