package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bitmax/internal/repository"
)

type TradeHandler struct {
	Repo repository.TradeRepository
}

func (h *TradeHandler) Register(r *gin.Engine) {
	group := r.Group("/api/trades")
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.GET("/owner/:owner", h.byOwner)
	group.GET("/strategy/:id", h.byStrategy)
}

func (h *TradeHandler) list(c *gin.Context) {
	h.respond(c, repository.ListTradesParams{
		Owner:      strQueryPtr(c, "owner"),
		StrategyID: uint64QueryPtr(c, "strategy_id"),
		Symbol:     strQueryPtr(c, "symbol"),
		Side:       strQueryPtr(c, "side"),
	})
}

func (h *TradeHandler) byOwner(c *gin.Context) {
	owner := strings.TrimSpace(c.Param("owner"))
	if owner == "" {
		Error(c, http.StatusBadRequest, "owner required", nil)
		return
	}
	h.respond(c, repository.ListTradesParams{Owner: &owner})
}

func (h *TradeHandler) byStrategy(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	h.respond(c, repository.ListTradesParams{StrategyID: &id})
}

func (h *TradeHandler) respond(c *gin.Context, params repository.ListTradesParams) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params.Limit = intQuery(c, "limit", 100)
	params.Offset = intQuery(c, "offset", 0)
	params.OrderBy = parseOrder(c.Query("order_by"), map[string]string{
		"created_at": "created_at",
		"notional":   "notional",
		"price":      "price",
	})
	params.Asc = boolPtr(strings.ToLower(strings.TrimSpace(c.Query("order"))) == "asc")
	items, err := h.Repo.ListTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, toTradeDTOs(items), paginationMeta(params.Limit, params.Offset, total))
}

func (h *TradeHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetTradeByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "trade not found", nil)
		return
	}
	Ok(c, toTradeDTO(*item), nil)
}
