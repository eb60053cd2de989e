package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carteira/internal/brapi"
)

func (h *Handler) ListWatchlist(c *gin.Context) {
	rows, err := h.repo.ListMonitoredStocks(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": rows})
}

type watchlistRequest struct {
	Ticker string `json:"ticker" binding:"required"`
}

func (h *Handler) AddToWatchlist(c *gin.Context) {
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	userID := c.Param("userId")

	if err := h.repo.EnsureUserExists(ctx, userID, ""); err != nil {
		h.respondError(c, err)
		return
	}
	ticker := brapi.NormalizeTicker(req.Ticker)
	if err := h.repo.AddMonitoredStock(ctx, userID, ticker); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticker": ticker})
}

func (h *Handler) RemoveFromWatchlist(c *gin.Context) {
	ticker := brapi.NormalizeTicker(c.Param("ticker"))
	if err := h.repo.RemoveMonitoredStock(c.Request.Context(), c.Param("userId"), ticker); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

type reorderRequest struct {
	Tickers []string `json:"tickers" binding:"required"`
}

func (h *Handler) ReorderWatchlist(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	normalized := make([]string, 0, len(req.Tickers))
	for _, t := range req.Tickers {
		normalized = append(normalized, brapi.NormalizeTicker(t))
	}
	if err := h.repo.UpdateMonitoredStockOrder(c.Request.Context(), c.Param("userId"), normalized); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reordered"})
}

type refreshRequest struct {
	Tickers []string `json:"tickers"`
}

// RefreshWatchlist force-refreshes the given tickers, or the user's whole
// watchlist when the body names none.
func (h *Handler) RefreshWatchlist(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	tickers := req.Tickers
	if len(tickers) == 0 {
		rows, err := h.repo.ListMonitoredStocks(ctx, c.Param("userId"))
		if err != nil {
			h.respondError(c, err)
			return
		}
		for _, row := range rows {
			tickers = append(tickers, row.Ticker)
		}
	}
	if len(tickers) == 0 {
		c.JSON(http.StatusOK, gin.H{"report": []any{}})
		return
	}

	report := h.quotes.RefreshTickers(ctx, tickers)
	c.JSON(http.StatusOK, gin.H{"report": report})
}
