package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDay godoc
// @ID          getDay
// @Summary     Habits of a day
// @Description Lists the habits possible on the given date (created on or before it and scheduled on its weekday)
// @Description and the ids of those completed that day. Never creates a day.
// @Tags        Days
// @Produce     json
//
// @Param       date  query  string  true  "Date (YYYY-MM-DD or RFC3339)"  example(2026-10-12)
//
// @Success     200  {object} services.DayView
// @Failure     400  {object} handlers.ErrorResponse "Missing or invalid date"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /day [get]
func (h *Handlers) GetDay(c *gin.Context) {
	view, err := h.daySvc.GetDay(c.Request.Context(), c.Query("date"))
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, view)
}
