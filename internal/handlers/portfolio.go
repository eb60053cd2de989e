package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetPortfolioSummary(c *gin.Context) {
	summary, err := h.portfolio.Summary(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetExpectedReturn computes the 30-day projection for every holding. This
// endpoint makes sequential rate-limited calls per quoted holding, so it is
// the slowest read in the API.
func (h *Handler) GetExpectedReturn(c *gin.Context) {
	report, err := h.portfolio.ExpectedMonthlyReturn(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
