package stream

import (
	"sync"
	"sync/atomic"

	"bitmax/internal/models"
)

// TradeHub fans executed trades out to subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the trade.
type TradeHub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan models.Trade
	nextID uint64

	dropped uint64
}

func NewTradeHub() *TradeHub {
	return &TradeHub{subs: map[uint64]chan models.Trade{}}
}

// Subscribe returns a channel of trades and a func that unsubscribes and closes it.
func (h *TradeHub) Subscribe(buf int) (<-chan models.Trade, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan models.Trade, buf)
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *TradeHub) Publish(trade models.Trade) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- trade:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

func (h *TradeHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *TradeHub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}
