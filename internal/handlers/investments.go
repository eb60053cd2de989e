package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carteira/internal/service"
)

func (h *Handler) ListInvestments(c *gin.Context) {
	rows, err := h.investments.ListInvestments(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investments": rows})
}

func (h *Handler) CreateInvestment(c *gin.Context) {
	var in service.CreateInvestmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.log.Warnf("[http] invalid investment body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in.UserID = c.Param("userId")

	inv, err := h.investments.CreateInvestment(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *Handler) UpdateInvestment(c *gin.Context) {
	var in service.UpdateInvestmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.log.Warnf("[http] invalid update body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.investments.UpdateInvestment(c.Request.Context(), c.Param("userId"), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handler) DeleteInvestment(c *gin.Context) {
	if err := h.investments.DeleteInvestment(c.Request.Context(), c.Param("userId"), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) RefreshInvestments(c *gin.Context) {
	report, err := h.investments.RefreshAll(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
