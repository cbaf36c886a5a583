// Package pricing resolves fiat quotes for asset symbols via the
// CoinGecko batch price API and a USD to AED FX source. Unknown
// symbols degrade to zero quotes rather than failing the statement.
package pricing

import (
	"fmt"
	"net/url"
	"strings"

	"context"

	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/fetch"
	"github.com/statement-engine/internal/logging"
	"github.com/statement-engine/internal/types"
)

// coinGeckoIDs maps asset symbols to CoinGecko coin ids. Symbols not
// listed here fall back to their lowercased form as a best-effort id.
var coinGeckoIDs = map[string]string{
	"ETH":    "ethereum",
	"BTC":    "bitcoin",
	"BNB":    "binancecoin",
	"AVAX":   "avalanche-2",
	"SOL":    "solana",
	"ADA":    "cardano",
	"TRX":    "tron",
	"MATIC":  "polygon-ecosystem-token",
	"POL":    "polygon-ecosystem-token",
	"WPOL":   "polygon-ecosystem-token",
	"WMATIC": "polygon-ecosystem-token",
	"USDT":   "tether",
	"USDC":   "usd-coin",
	"DAI":    "dai",
	"WBTC":   "wrapped-bitcoin",
	"WETH":   "weth",
	"WBNB":   "wbnb",
	"LINK":   "chainlink",
	"UNI":    "uniswap",
	"AAVE":   "aave",
	"ARB":    "arbitrum",
	"AUSDT":  "tether",
	"AUSDC":  "usd-coin",
	"HNST":   "honest-mining",
	"PYTH":   "pyth-network",
}

func coinGeckoID(symbol string) string {
	if id, ok := coinGeckoIDs[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// Oracle batches symbol price lookups against CoinGecko.
type Oracle struct {
	baseURL string
	client  *fetch.Client
	cache   QuoteCache
	fx      *FxSource
}

// NewOracle creates a price oracle.
func NewOracle(baseURL string, client *fetch.Client, cache QuoteCache, fx *FxSource) *Oracle {
	return &Oracle{baseURL: baseURL, client: client, cache: cache, fx: fx}
}

// GetPrices returns USD and AED quotes for each requested symbol.
// Cached quotes are served without an upstream call; the remainder are
// fetched in one batched request. Symbols the upstream does not know
// get a zero quote.
func (o *Oracle) GetPrices(ctx context.Context, symbols []string) map[string]types.Quote {
	logger := logging.FromContext(ctx)
	quotes := make(map[string]types.Quote, len(symbols))

	var missing []string
	for _, symbol := range symbols {
		if _, seen := quotes[symbol]; seen {
			continue
		}
		if quote, ok := o.cache.Get(ctx, symbol); ok {
			quotes[symbol] = quote
			continue
		}
		missing = append(missing, symbol)
	}
	if len(missing) == 0 {
		return quotes
	}

	// One upstream call covers every uncached symbol
	ids := make([]string, 0, len(missing))
	seen := make(map[string]bool, len(missing))
	for _, symbol := range missing {
		id := coinGeckoID(symbol)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		o.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	var resp map[string]map[string]float64
	if err := o.client.GetJSON(ctx, u, nil, &resp); err != nil {
		logger.WithError(err).Error("batch price fetch failed")
		for _, symbol := range missing {
			quotes[symbol] = types.Quote{USD: decimal.Zero, Fiat: decimal.Zero}
		}
		return quotes
	}

	rate := o.fx.USDToAED(ctx)
	for _, symbol := range missing {
		id := coinGeckoID(symbol)
		entry, ok := resp[id]
		if !ok {
			logger.WithFields(map[string]interface{}{
				"symbol":  symbol,
				"coin_id": id,
			}).Warn("price not found for symbol")
			quotes[symbol] = types.Quote{USD: decimal.Zero, Fiat: decimal.Zero}
			continue
		}
		usd := decimal.NewFromFloat(entry["usd"])
		quote := types.Quote{USD: usd, Fiat: usd.Mul(rate)}
		quotes[symbol] = quote
		o.cache.Set(ctx, symbol, quote)
	}
	return quotes
}
