package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bitmax/internal/pricefeed"
)

type PriceHandler struct {
	Source pricefeed.Source
}

func (h *PriceHandler) Register(r *gin.Engine) {
	group := r.Group("/api/prices")
	group.GET("/:symbol", h.current)
	group.GET("/:symbol/history", h.history)
}

// @Summary Current USD price
// @Tags prices
// @Produce json
// @Param symbol path string true "asset symbol"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/prices/{symbol} [get]
func (h *PriceHandler) current(c *gin.Context) {
	if h.Source == nil {
		Error(c, http.StatusInternalServerError, "price source unavailable", nil)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		Error(c, http.StatusBadRequest, "symbol required", nil)
		return
	}
	price, err := h.Source.CurrentPrice(c.Request.Context(), symbol)
	if err != nil {
		h.fail(c, err)
		return
	}
	Ok(c, map[string]any{
		"symbol": symbol,
		"price":  price.InexactFloat64(),
	}, nil)
}

func (h *PriceHandler) history(c *gin.Context) {
	if h.Source == nil {
		Error(c, http.StatusInternalServerError, "price source unavailable", nil)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	hours := intQuery(c, "hours", 24)
	if hours <= 0 || hours > 24*30 {
		Error(c, http.StatusBadRequest, "hours must be between 1 and 720", nil)
		return
	}
	points, err := h.Source.HistoricalPrices(c.Request.Context(), symbol, hours)
	if err != nil {
		h.fail(c, err)
		return
	}
	type point struct {
		Timestamp time.Time `json:"timestamp"`
		Price     float64   `json:"price"`
	}
	out := make([]point, 0, len(points))
	for _, p := range points {
		out = append(out, point{Timestamp: p.Timestamp, Price: p.Price.InexactFloat64()})
	}
	Ok(c, out, map[string]any{"symbol": symbol, "hours": hours})
}

func (h *PriceHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, pricefeed.ErrPriceUnavailable) {
		Error(c, http.StatusNotFound, err.Error(), nil)
		return
	}
	Error(c, http.StatusBadGateway, err.Error(), nil)
}
