package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"bitmax/internal/models"
	"bitmax/internal/repository"
	"bitmax/internal/strategy"
)

type StrategyHandler struct {
	Repo     repository.StrategyRepository
	Registry *strategy.Registry
}

func (h *StrategyHandler) Register(r *gin.Engine) {
	group := r.Group("/api/strategies")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.PUT("/:id", h.update)
	group.DELETE("/:id", h.delete)
	group.POST("/:id/go_live", h.goLive)
	group.POST("/:id/pause", h.pause)
	group.POST("/:id/status", h.setStatus)
}

type strategyRequest struct {
	Name      *string         `json:"name"`
	Owner     *string         `json:"owner"`
	BotType   *string         `json:"bot_type"`
	Symbol    *string         `json:"symbol"`
	BaseAsset *string         `json:"base_asset"`
	Params    json.RawMessage `json:"params"`
}

// @Summary Create strategy
// @Tags strategies
// @Accept json
// @Produce json
// @Param body body strategyRequest true "strategy"
// @Success 200 {object} apiResponse
// @Router /api/strategies [post]
func (h *StrategyHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item := &models.Strategy{
		BaseAsset: "USDC",
		Status:    models.StrategyStatusDraft,
	}
	if err := h.apply(item, req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if item.Owner == "" || item.Symbol == "" || item.BotType == "" {
		Error(c, http.StatusBadRequest, "owner, bot_type and symbol required", nil)
		return
	}
	if item.Name == "" {
		item.Name = item.BotType + " " + item.Symbol
	}
	if err := h.Repo.InsertStrategy(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, toStrategyDTO(*item), nil)
}

func (h *StrategyHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	orderBy := parseOrder(c.Query("order_by"), map[string]string{
		"id":         "id",
		"created_at": "created_at",
		"updated_at": "updated_at",
		"name":       "name",
	})
	asc := strings.ToLower(strings.TrimSpace(c.Query("order"))) != "desc"
	params := repository.ListStrategiesParams{
		Limit:   limit,
		Offset:  offset,
		Owner:   strQueryPtr(c, "owner"),
		Status:  strQueryPtr(c, "status"),
		BotType: strQueryPtr(c, "bot_type"),
		OrderBy: orderBy,
		Asc:     boolPtr(asc),
	}
	items, err := h.Repo.ListStrategies(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountStrategies(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]strategyDTO, 0, len(items))
	for _, it := range items {
		out = append(out, toStrategyDTO(it))
	}
	Ok(c, out, paginationMeta(limit, offset, total))
}

func (h *StrategyHandler) get(c *gin.Context) {
	item, ok := h.load(c)
	if !ok {
		return
	}
	Ok(c, toStrategyDTO(*item), nil)
}

func (h *StrategyHandler) update(c *gin.Context) {
	item, ok := h.load(c)
	if !ok {
		return
	}
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.Owner != nil && strings.TrimSpace(*req.Owner) != item.Owner {
		Error(c, http.StatusBadRequest, "owner cannot be changed", nil)
		return
	}
	if err := h.apply(item, req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Repo.UpdateStrategy(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, toStrategyDTO(*item), nil)
}

func (h *StrategyHandler) delete(c *gin.Context) {
	item, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.Repo.DeleteStrategy(c.Request.Context(), item.ID); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"id": item.ID, "deleted": true}, nil)
}

func (h *StrategyHandler) goLive(c *gin.Context) {
	h.transition(c, models.StrategyStatusLive)
}

func (h *StrategyHandler) pause(c *gin.Context) {
	h.transition(c, models.StrategyStatusPaused)
}

// @Summary Set strategy status
// @Tags strategies
// @Accept json
// @Produce json
// @Param id path int true "strategy id"
// @Param body body map[string]string true "{\"status\": \"live|paused|draft\"}"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/strategies/{id}/status [post]
func (h *StrategyHandler) setStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !models.ValidStrategyStatus(status) {
		Error(c, http.StatusBadRequest, "status must be one of live, paused, draft", nil)
		return
	}
	h.transition(c, status)
}

func (h *StrategyHandler) transition(c *gin.Context, status string) {
	item, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.Repo.SetStrategyStatus(c.Request.Context(), item.ID, status); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	item.Status = status
	Ok(c, toStrategyDTO(*item), nil)
}

func (h *StrategyHandler) load(c *gin.Context) (*models.Strategy, bool) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return nil, false
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return nil, false
	}
	item, err := h.Repo.GetStrategyByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil, false
	}
	if item == nil {
		Error(c, http.StatusNotFound, "strategy not found", nil)
		return nil, false
	}
	return item, true
}

// apply copies the set fields of req onto item and validates the result.
func (h *StrategyHandler) apply(item *models.Strategy, req strategyRequest) error {
	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Owner != nil {
		item.Owner = strings.TrimSpace(*req.Owner)
	}
	if req.Symbol != nil {
		item.Symbol = strings.TrimSpace(*req.Symbol)
	}
	if req.BaseAsset != nil && strings.TrimSpace(*req.BaseAsset) != "" {
		item.BaseAsset = strings.TrimSpace(*req.BaseAsset)
	}
	if req.BotType != nil {
		variant := strings.ToLower(strings.TrimSpace(*req.BotType))
		if _, err := h.Registry.Get(variant); err != nil {
			return err
		}
		item.BotType = variant
	}
	if len(bytes.TrimSpace(req.Params)) > 0 && !bytes.Equal(bytes.TrimSpace(req.Params), []byte("null")) {
		var obj map[string]any
		if err := json.Unmarshal(req.Params, &obj); err != nil {
			return errors.New("params must be a JSON object")
		}
		item.Params = datatypes.JSON(bytes.TrimSpace(req.Params))
	}
	if len(item.Params) == 0 {
		item.Params = datatypes.JSON(`{}`)
	}
	return nil
}
