// Package handlers exposes the HTTP surface: stock quotes, investments,
// portfolio aggregation, the watchlist and the distribution calculator.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"carteira/internal/brapi"
	"carteira/internal/database"
	"carteira/internal/service"
)

type Handler struct {
	repo        *database.Repo
	quotes      *service.QuoteService
	investments *service.InvestmentService
	portfolio   *service.PortfolioService
	log         *logrus.Logger
}

func NewHandler(repo *database.Repo, quotes *service.QuoteService, investments *service.InvestmentService, portfolio *service.PortfolioService, log *logrus.Logger) *Handler {
	return &Handler{
		repo:        repo,
		quotes:      quotes,
		investments: investments,
		portfolio:   portfolio,
		log:         log,
	}
}

// RegisterRoutes wires every endpoint onto the router.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.GET("/stocks/search", h.SearchStocks)
	api.GET("/stocks/:ticker", h.GetStock)
	api.GET("/stocks/:ticker/history", h.GetStockHistory)

	users := api.Group("/users/:userId")
	users.GET("/investments", h.ListInvestments)
	users.POST("/investments", h.CreateInvestment)
	users.PUT("/investments/:id", h.UpdateInvestment)
	users.DELETE("/investments/:id", h.DeleteInvestment)
	users.POST("/investments/refresh", h.RefreshInvestments)

	users.GET("/portfolio", h.GetPortfolioSummary)
	users.GET("/portfolio/expected-return", h.GetExpectedReturn)

	users.GET("/watchlist", h.ListWatchlist)
	users.POST("/watchlist", h.AddToWatchlist)
	users.DELETE("/watchlist/:ticker", h.RemoveFromWatchlist)
	users.PUT("/watchlist/order", h.ReorderWatchlist)
	users.POST("/watchlist/refresh", h.RefreshWatchlist)

	api.POST("/calc/distribute", h.Distribute)
	api.GET("/calc/percentage", h.PercentageOf)

	admin := api.Group("/admin")
	admin.GET("/cache", h.ListCache)
	admin.DELETE("/cache", h.ClearCache)
	admin.DELETE("/cache/:ticker", h.DeleteCacheEntry)
}

// respondError maps service errors onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrInvestmentNotFound), errors.Is(err, brapi.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrAlreadyMonitored), errors.Is(err, database.ErrWatchlistFull):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoPrice):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, brapi.ErrRateLimited):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.log.Errorf("[http] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
