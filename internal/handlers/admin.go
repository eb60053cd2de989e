package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carteira/internal/brapi"
)

func (h *Handler) ListCache(c *gin.Context) {
	entries, err := h.repo.ListCachedStocks(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "entries": entries})
}

func (h *Handler) ClearCache(c *gin.Context) {
	deleted, err := h.repo.ClearStockCache(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.log.Infof("[admin] stock cache cleared, %d entries removed", deleted)
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handler) DeleteCacheEntry(c *gin.Context) {
	ticker := brapi.NormalizeTicker(c.Param("ticker"))
	if err := h.repo.DeleteStockFromCache(c.Request.Context(), ticker); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "ticker": ticker})
}
