package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestRegistry_UnknownVariant(t *testing.T) {
	r := DefaultRegistry(nil)
	if _, err := r.Get("martingale"); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("err=%v want ErrUnknownVariant", err)
	}
	want := []string{"arbitrage", "dca", "grid", "rebalance"}
	got := r.Variants()
	if len(got) != len(want) {
		t.Fatalf("variants=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("variants=%v want=%v", got, want)
		}
	}
}

func TestRegistry_ParamsMergeOrder(t *testing.T) {
	r := DefaultRegistry(map[string]any{
		"grid": map[string]any{"grid_count": 20, "order_size": 50},
	})
	ev, _ := r.Get("grid")
	merged, malformed := r.Params(ev, []byte(`{"order_size":"25"}`))
	if malformed {
		t.Fatalf("unexpected malformed")
	}
	p, err := ParseGridParams(merged)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if p.GridCount == nil || *p.GridCount != 20 {
		t.Fatalf("grid_count=%v want=20", p.GridCount)
	}
	if p.OrderSize == nil || !p.OrderSize.Equal(d("25")) {
		t.Fatalf("order_size=%v want=25", p.OrderSize)
	}
}

func TestRegistry_MalformedParamsFallBackToDefaults(t *testing.T) {
	r := DefaultRegistry(nil)
	ev, _ := r.Get("dca")
	merged, malformed := r.Params(ev, []byte(`{not json`))
	if !malformed {
		t.Fatalf("expected malformed")
	}
	var m map[string]any
	if err := json.Unmarshal(merged, &m); err != nil {
		t.Fatalf("merged=%s err=%v", merged, err)
	}
	if m["amount_usd"] != float64(100) {
		t.Fatalf("amount_usd=%v want=100", m["amount_usd"])
	}

	intents, err := r.Evaluate(context.Background(), "dca", []byte(`{not json`), Input{Symbol: "BTC", Price: d("1000")})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(intents) != 1 || !intents[0].Qty.Equal(d("0.1")) {
		t.Fatalf("intents=%+v want qty 0.1", intents)
	}
}
