package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bitmax/internal/ledger"
	"bitmax/internal/models"
	"bitmax/internal/repository"
)

// HoldingsWriter replaces an owner's balances. ledger.Executor satisfies it.
type HoldingsWriter interface {
	SetHoldings(ctx context.Context, owner string, balances map[string]decimal.Decimal) (*models.Portfolio, error)
}

type PortfolioHandler struct {
	Repo   repository.PortfolioRepository
	Ledger HoldingsWriter
}

func (h *PortfolioHandler) Register(r *gin.Engine) {
	group := r.Group("/api/portfolio")
	group.GET("", h.list)
	group.GET("/:owner", h.get)
	group.POST("/:owner", h.set)
}

func (h *PortfolioHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListPortfolios(c.Request.Context(), limit, offset)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]portfolioDTO, 0, len(items))
	for _, p := range items {
		out = append(out, toPortfolioDTO(p))
	}
	Ok(c, out, nil)
}

// @Summary Get portfolio, creating the seeded ledger on first reference
// @Tags portfolio
// @Produce json
// @Param owner path string true "owner"
// @Success 200 {object} apiResponse
// @Router /api/portfolio/{owner} [get]
func (h *PortfolioHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	owner := strings.TrimSpace(c.Param("owner"))
	if owner == "" {
		Error(c, http.StatusBadRequest, "owner required", nil)
		return
	}
	p, err := h.Repo.GetOrCreatePortfolio(c.Request.Context(), owner)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if p == nil {
		Error(c, http.StatusNotFound, "portfolio not found", nil)
		return
	}
	Ok(c, toPortfolioDTO(*p), nil)
}

func (h *PortfolioHandler) set(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	owner := strings.TrimSpace(c.Param("owner"))
	if owner == "" {
		Error(c, http.StatusBadRequest, "owner required", nil)
		return
	}
	var req struct {
		Holdings map[string]decimal.Decimal `json:"holdings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	p, err := h.Ledger.SetHoldings(c.Request.Context(), owner, req.Holdings)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidHoldings) {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, toPortfolioDTO(*p), nil)
}
