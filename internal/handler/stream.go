package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"bitmax/internal/models"
)

// TradeSubscriber hands out trade feeds. stream.TradeHub satisfies it.
type TradeSubscriber interface {
	Subscribe(buf int) (<-chan models.Trade, func())
}

type StreamHandler struct {
	Hub    TradeSubscriber
	Logger *zap.Logger

	// OriginPatterns is passed to websocket.Accept; empty means same-origin only.
	OriginPatterns []string
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/api/stream/trades", h.trades)
}

func (h *StreamHandler) trades(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusInternalServerError, "stream unavailable", nil)
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.OriginPatterns,
	})
	if err != nil {
		h.logger().Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	feed, cancel := h.Hub.Subscribe(64)
	defer cancel()

	// Client frames are ignored; CloseRead cancels ctx once the peer goes away.
	ctx := conn.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case trade, ok := <-feed:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "hub closed")
				return
			}
			payload, err := json.Marshal(toTradeDTO(trade))
			if err != nil {
				continue
			}
			if err := writeWithTimeout(ctx, conn, payload); err != nil {
				h.logger().Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func (h *StreamHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
