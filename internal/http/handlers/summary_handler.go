package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Summary godoc
// @ID          getSummary
// @Summary     Per-day completion summary
// @Description One row per stored day, ordered by date: completed habits and possible habits (amount) of that day.
// @Tags        Summary
// @Produce     json
//
// @Success     200  {array}  domain.SummaryRow
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /summary [get]
func (h *Handlers) Summary(c *gin.Context) {
	rows, err := h.summarySvc.Summary(c.Request.Context())
	if err != nil {
		failErr(c, err, ErrCodeSummaryFailed)
		return
	}
	ok(c, http.StatusOK, rows)
}

// Calendar godoc
// @ID          getCalendar
// @Summary     Year-to-date completion grid
// @Description One cell per date from January 1st of the current year up to today, with completion percentage.
// @Tags        Summary
// @Produce     json
//
// @Success     200  {array}  services.CalendarCell
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /summary/calendar [get]
func (h *Handlers) Calendar(c *gin.Context) {
	cells, err := h.summarySvc.Calendar(c.Request.Context())
	if err != nil {
		failErr(c, err, ErrCodeSummaryFailed)
		return
	}
	ok(c, http.StatusOK, cells)
}
