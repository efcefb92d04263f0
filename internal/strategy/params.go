package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// rawParams is the generic payload decoded at the evaluator boundary.
type rawParams map[string]any

func parseParams(raw json.RawMessage) (rawParams, error) {
	out := rawParams{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return out, nil
}

// number returns nil when key is absent or null. Numbers and numeric strings are accepted.
func (p rawParams) number(key string) (*decimal.Decimal, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	var (
		d   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(t.String())
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		d, err = decimal.NewFromString(strings.TrimSpace(t))
	case float64:
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	default:
		return nil, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidParameters, key, v)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParameters, key, err)
	}
	return &d, nil
}

func (p rawParams) integer(key string) (*int, error) {
	d, err := p.number(key)
	if err != nil || d == nil {
		return nil, err
	}
	if !d.Equal(d.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s must be an integer", ErrInvalidParameters, key)
	}
	n := int(d.IntPart())
	return &n, nil
}

func decimalOr(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v == nil {
		return fallback
	}
	return *v
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidParameters}, args...)...)
}
