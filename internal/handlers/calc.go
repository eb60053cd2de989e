package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"carteira/internal/calc"
)

type distributeRequest struct {
	Total       decimal.Decimal   `json:"total"`
	Percentages []decimal.Decimal `json:"percentages"`
	Amounts     []decimal.Decimal `json:"amounts"`
	Targets     []string          `json:"targets"`
}

// Distribute splits an amount across targets by percentages or fixed
// amounts. The response carries the rounding residual so callers can show
// when the split is not exact.
func (h *Handler) Distribute(c *gin.Context) {
	var req distributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := calc.Distribute(req.Total, req.Percentages, req.Amounts, req.Targets)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) PercentageOf(c *gin.Context) {
	value, err := decimal.NewFromString(c.Query("value"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value"})
		return
	}
	total, err := decimal.NewFromString(c.Query("total"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid total"})
		return
	}

	pct, err := calc.PercentageOf(value, total)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": value, "total": total, "percentage": pct})
}
