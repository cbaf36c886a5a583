package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/fetch"
	"github.com/statement-engine/internal/logging"
)

// FxSource provides the USD to AED conversion rate. The live rate is
// cached for the configured TTL; on fetch failure the last known rate
// is kept, falling back to the configured static rate before any fetch
// has succeeded.
type FxSource struct {
	baseURL  string
	client   *fetch.Client
	ttl      time.Duration
	fallback decimal.Decimal

	mu        sync.Mutex
	rate      decimal.Decimal
	fetchedAt time.Time
	now       func() time.Time
}

// NewFxSource creates an FX source with a static fallback rate.
func NewFxSource(baseURL string, client *fetch.Client, ttl time.Duration, fallback float64) *FxSource {
	return &FxSource{
		baseURL:  baseURL,
		client:   client,
		ttl:      ttl,
		fallback: decimal.NewFromFloat(fallback),
		now:      time.Now,
	}
}

// USDToAED returns the current conversion rate.
func (f *FxSource) USDToAED(ctx context.Context) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.fetchedAt.IsZero() && f.now().Sub(f.fetchedAt) < f.ttl {
		return f.rate
	}

	rate, err := f.fetchRate(ctx)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("fx rate fetch failed, using last known rate")
		if f.fetchedAt.IsZero() {
			return f.fallback
		}
		return f.rate
	}

	f.rate = rate
	f.fetchedAt = f.now()
	return f.rate
}

func (f *FxSource) fetchRate(ctx context.Context) (decimal.Decimal, error) {
	var resp struct {
		Rates map[string]float64 `json:"rates"`
	}
	u := fmt.Sprintf("%s/latest/USD", f.baseURL)
	if err := f.client.GetJSON(ctx, u, nil, &resp); err != nil {
		return decimal.Zero, err
	}
	aed, ok := resp.Rates["AED"]
	if !ok {
		return decimal.Zero, fmt.Errorf("AED rate missing from response")
	}
	return decimal.NewFromFloat(aed), nil
}
