package stream

import (
	"testing"

	"bitmax/internal/models"
)

func TestTradeHub_PublishSubscribe(t *testing.T) {
	h := NewTradeHub()
	a, cancelA := h.Subscribe(4)
	b, cancelB := h.Subscribe(4)
	defer cancelB()

	h.Publish(models.Trade{ID: 1, Symbol: "BTC"})
	if got := <-a; got.ID != 1 {
		t.Fatalf("a got id=%d want=1", got.ID)
	}
	if got := <-b; got.ID != 1 {
		t.Fatalf("b got id=%d want=1", got.ID)
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Fatalf("expected closed channel after cancel")
	}
	if h.Subscribers() != 1 {
		t.Fatalf("subscribers=%d want=1", h.Subscribers())
	}
}

func TestTradeHub_SlowSubscriberDrops(t *testing.T) {
	h := NewTradeHub()
	_, cancel := h.Subscribe(1)
	defer cancel()
	h.Publish(models.Trade{ID: 1})
	h.Publish(models.Trade{ID: 2})
	if h.Dropped() != 1 {
		t.Fatalf("dropped=%d want=1", h.Dropped())
	}
}
