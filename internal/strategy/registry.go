package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Registry maps a variant name to its evaluator.
type Registry struct {
	evByName map[string]StrategyEvaluator

	// Defaults is the config-sourced override map (config.strategy_defaults).
	// Shape: { "grid": { "grid_count": 20 }, ... }
	Defaults map[string]any
}

func NewRegistry(evaluators ...StrategyEvaluator) *Registry {
	r := &Registry{evByName: map[string]StrategyEvaluator{}}
	for _, ev := range evaluators {
		if ev != nil && ev.Name() != "" {
			r.evByName[ev.Name()] = ev
		}
	}
	return r
}

// DefaultRegistry holds the grid, dca, rebalance and arbitrage evaluators.
func DefaultRegistry(defaults map[string]any) *Registry {
	r := NewRegistry(
		&GridStrategy{},
		&DCAStrategy{},
		&RebalanceStrategy{},
		&ArbitrageStrategy{},
	)
	r.Defaults = defaults
	return r
}

func (r *Registry) Get(variant string) (StrategyEvaluator, error) {
	if r != nil {
		if ev, ok := r.evByName[strings.ToLower(strings.TrimSpace(variant))]; ok {
			return ev, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
}

func (r *Registry) Variants() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.evByName))
	for name := range r.evByName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Params merges evaluator defaults < config defaults < stored params.
// malformed is true when stored could not be decoded and was ignored.
func (r *Registry) Params(ev StrategyEvaluator, stored []byte) (merged json.RawMessage, malformed bool) {
	var defaults map[string]any
	if r != nil {
		defaults = r.Defaults
	}
	name := ""
	if ev != nil {
		name = ev.Name()
	}
	return mergeParams(ev, defaults, name, stored)
}

// Evaluate resolves the variant, merges params and runs the evaluator.
func (r *Registry) Evaluate(ctx context.Context, variant string, stored []byte, in Input) ([]Intent, error) {
	ev, err := r.Get(variant)
	if err != nil {
		return nil, err
	}
	in.Params, _ = r.Params(ev, stored)
	return ev.Evaluate(ctx, in)
}

func mergeParams(ev StrategyEvaluator, defaults map[string]any, name string, stored []byte) (json.RawMessage, bool) {
	base := map[string]any{}
	// Start from evaluator defaults.
	if ev != nil {
		_ = json.Unmarshal(ev.DefaultParams(), &base)
	}
	// Apply config defaults for this variant.
	if raw, ok := defaults[name]; ok {
		if m, ok := raw.(map[string]any); ok {
			for k, v := range m {
				base[k] = v
			}
		}
	}
	// Stored overrides.
	malformed := false
	if len(bytes.TrimSpace(stored)) > 0 {
		override := map[string]any{}
		dec := json.NewDecoder(bytes.NewReader(stored))
		dec.UseNumber()
		if err := dec.Decode(&override); err == nil {
			for k, v := range override {
				base[k] = v
			}
		} else {
			malformed = true
		}
	}
	raw, err := json.Marshal(base)
	if err != nil {
		if ev != nil {
			return ev.DefaultParams(), malformed
		}
		return json.RawMessage(`{}`), malformed
	}
	return raw, malformed
}
