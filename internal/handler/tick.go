package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bitmax/internal/engine"
)

// TickRunner runs one evaluation pass. engine.Engine satisfies it.
type TickRunner interface {
	RunTick(ctx context.Context) (*engine.TickResult, error)
}

type TickHandler struct {
	Engine TickRunner
}

func (h *TickHandler) Register(r *gin.Engine) {
	r.POST("/api/tick", h.tick)
}

// @Summary Run one tick over all live strategies
// @Tags tick
// @Produce json
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/tick [post]
func (h *TickHandler) tick(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	res, err := h.Engine.RunTick(c.Request.Context())
	if err != nil {
		if errors.Is(err, engine.ErrTickInProgress) {
			Error(c, http.StatusConflict, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, toTickDTO(res), nil)
}
