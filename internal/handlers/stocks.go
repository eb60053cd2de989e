package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetStock answers with the ticker's current quote, run through the cache
// fallback chain. ?force=true bypasses the cache.
func (h *Handler) GetStock(c *gin.Context) {
	force := c.Query("force") == "true"
	res, err := h.quotes.GetQuote(c.Request.Context(), c.Param("ticker"), force)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetStockHistory(c *gin.Context) {
	force := c.Query("force") == "true"
	res, err := h.quotes.GetHistory(c.Request.Context(), c.Param("ticker"), c.Query("period"), c.Query("interval"), force)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) SearchStocks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	results, err := h.quotes.Search(c.Request.Context(), c.Query("q"), limit, c.Query("type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
