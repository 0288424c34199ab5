// Package pool resolves the liquidity pool that takes the other side of a
// house bet, either from a remote pool service or from a static list.
package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/wagerbook/internal/domain"
	"github.com/alejandrodnm/wagerbook/internal/ports"
)

const (
	poolsPath = "/pools"

	defaultRatePerSec = 10

	maxRetries    = 3
	baseRetryWait = 200 * time.Millisecond
)

var _ ports.PoolMatcher = (*Client)(nil)

// Client consulta el servicio de pools con rate limiting y retries.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

// NewClient crea un Client contra base. ratePerSec <= 0 usa el default.
func NewClient(base string, ratePerSec float64) *Client {
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	return &Client{
		http:    &http.Client{Timeout: 5 * time.Second},
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), int(math.Max(1, ratePerSec/2))),
	}
}

// SelectPool fetches the pools of category and picks the best one that can
// cover stake.
func (c *Client) SelectPool(ctx context.Context, category string, stake domain.Amount) (domain.PoolMatch, bool, error) {
	pools, err := c.FetchPools(ctx, category)
	if err != nil {
		return domain.PoolMatch{}, false, fmt.Errorf("pool.SelectPool: %w", err)
	}
	best, ok := domain.BestPool(pools, category, stake)
	if !ok {
		slog.Debug("no pool can cover stake", "category", category, "stake", stake.String(), "pools", len(pools))
		return domain.PoolMatch{}, false, nil
	}
	return matchOf(best), true, nil
}

// FetchPools returns the pools the service lists for category.
func (c *Client) FetchPools(ctx context.Context, category string) ([]domain.Pool, error) {
	u := fmt.Sprintf("%s%s?category=%s", c.base, poolsPath, url.QueryEscape(category))
	var resp poolsResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("pool.FetchPools: %w", err)
	}
	return mapPools(resp.Pools), nil
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("pool service unavailable, retrying", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
