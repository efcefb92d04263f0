package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bitmax/internal/config"
)

const defaultLlamaBaseURL = "https://coins.llama.fi"

// LlamaClient reads prices from the DefiLlama coins API.
type LlamaClient struct {
	HTTP   *http.Client
	Logger *zap.Logger

	BaseURL    string
	CoinPrefix string

	Limiter      *rate.Limiter
	MaxRetries   uint
	RetryInitial time.Duration
}

func NewLlamaClient(cfg config.PriceFeedConfig, logger *zap.Logger) *LlamaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	c := &LlamaClient{
		HTTP:       &http.Client{Timeout: timeout},
		Logger:     logger,
		BaseURL:    cfg.BaseURL,
		CoinPrefix: cfg.CoinPrefix,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// CoinID maps a ticker to the "<prefix>:<symbol>" id the API expects.
func (c *LlamaClient) CoinID(symbol string) string {
	prefix := strings.TrimSpace(c.CoinPrefix)
	if prefix == "" {
		prefix = "coingecko"
	}
	return prefix + ":" + strings.ToLower(strings.TrimSpace(symbol))
}

type currentResponse struct {
	Coins map[string]struct {
		Price      decimal.Decimal `json:"price"`
		Symbol     string          `json:"symbol"`
		Timestamp  int64           `json:"timestamp"`
		Confidence float64         `json:"confidence"`
	} `json:"coins"`
}

type chartResponse struct {
	Coins map[string]struct {
		Symbol string `json:"symbol"`
		Prices []struct {
			Timestamp int64           `json:"timestamp"`
			Price     decimal.Decimal `json:"price"`
		} `json:"prices"`
	} `json:"coins"`
}

func (c *LlamaClient) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if strings.TrimSpace(symbol) == "" {
		return decimal.Zero, fmt.Errorf("%w: empty symbol", ErrPriceUnavailable)
	}
	id := c.CoinID(symbol)
	var out currentResponse
	if err := c.getJSON(ctx, "/prices/current/"+url.PathEscape(id), nil, &out); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, id, err)
	}
	coin, ok := out.Coins[id]
	if !ok || !coin.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s: no price in response", ErrPriceUnavailable, id)
	}
	return coin.Price, nil
}

func (c *LlamaClient) HistoricalPrices(ctx context.Context, symbol string, hours int) ([]PricePoint, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrPriceUnavailable)
	}
	if hours <= 0 {
		hours = 24
	}
	id := c.CoinID(symbol)
	start := time.Now().Add(-time.Duration(hours) * time.Hour).Unix()
	q := url.Values{}
	q.Set("start", strconv.FormatInt(start, 10))
	q.Set("span", strconv.Itoa(hours))
	q.Set("period", "1h")
	var out chartResponse
	if err := c.getJSON(ctx, "/chart/"+url.PathEscape(id), q, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, id, err)
	}
	coin, ok := out.Coins[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no series in response", ErrPriceUnavailable, id)
	}
	points := make([]PricePoint, 0, len(coin.Prices))
	for _, p := range coin.Prices {
		points = append(points, PricePoint{
			Timestamp: time.Unix(p.Timestamp, 0).UTC(),
			Price:     p.Price,
		})
	}
	return points, nil
}

type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

func (c *LlamaClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = defaultLlamaBaseURL
	}
	endpoint := base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 25 * time.Second}
	}

	op := func() (struct{}, error) {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return struct{}{}, backoff.Permanent(err)
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			serr := &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return struct{}{}, serr
			}
			return struct{}{}, backoff.Permanent(serr)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decode: %w", err))
		}
		return struct{}{}, nil
	}

	b := backoff.NewExponentialBackOff()
	if c.RetryInitial > 0 {
		b.InitialInterval = c.RetryInitial
	}
	tries := c.MaxRetries + 1
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, next time.Duration) {
			if c.Logger != nil {
				c.Logger.Debug("price request retry",
					zap.String("endpoint", endpoint),
					zap.Duration("next", next),
					zap.Error(err),
				)
			}
		}),
	)
	return err
}
