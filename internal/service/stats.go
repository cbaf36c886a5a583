package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/statement-engine/internal/types"
)

// AssetBreakdown aggregates one asset's activity inside a statement
type AssetBreakdown struct {
	Incoming decimal.Decimal `json:"incoming"`
	Outgoing decimal.Decimal `json:"outgoing"`
	Net      decimal.Decimal `json:"net"`
	Count    int             `json:"count"`
}

// TokenStats counts and sums token-transfer activity per symbol
type TokenStats struct {
	Count  int             `json:"count"`
	Volume decimal.Decimal `json:"volume"`
}

// MixedTotals sums amounts across all assets without unit conversion.
// ETH and USDT quantities land in the same number, so these are only
// meaningful as rough activity indicators, never as balances.
type MixedTotals struct {
	Incoming decimal.Decimal `json:"incoming"`
	Outgoing decimal.Decimal `json:"outgoing"`
}

// Statistics summarizes a statement's transaction list
type Statistics struct {
	TotalTransactions int                           `json:"total_transactions"`
	ByAsset           map[string]AssetBreakdown     `json:"by_asset"`
	ByType            map[types.TransactionType]int `json:"by_type"`
	Tokens            map[string]TokenStats         `json:"token_transactions"`
	MixedUnitTotals   MixedTotals                   `json:"mixed_unit_totals"`
}

// Summarize aggregates transactions per asset, per type and per token.
// Native transfers are keyed by their chain's native symbol.
func Summarize(txs []types.Transaction) *Statistics {
	stats := &Statistics{
		TotalTransactions: len(txs),
		ByAsset:           map[string]AssetBreakdown{},
		ByType:            map[types.TransactionType]int{},
		Tokens:            map[string]TokenStats{},
	}

	for _, tx := range txs {
		stats.ByType[tx.Type]++

		symbol := types.NativeSymbols[tx.Chain]
		if tx.Asset != nil {
			symbol = *tx.Asset
		}

		breakdown := stats.ByAsset[symbol]
		breakdown.Count++
		switch tx.Direction {
		case types.DirectionIn:
			breakdown.Incoming = breakdown.Incoming.Add(tx.Amount)
			stats.MixedUnitTotals.Incoming = stats.MixedUnitTotals.Incoming.Add(tx.Amount)
		case types.DirectionOut:
			breakdown.Outgoing = breakdown.Outgoing.Add(tx.Amount)
			stats.MixedUnitTotals.Outgoing = stats.MixedUnitTotals.Outgoing.Add(tx.Amount)
		}
		breakdown.Net = breakdown.Incoming.Sub(breakdown.Outgoing)
		stats.ByAsset[symbol] = breakdown

		if tx.Type == types.TypeTokenTransfer && tx.Asset != nil {
			token := stats.Tokens[*tx.Asset]
			token.Count++
			token.Volume = token.Volume.Add(tx.Amount)
			stats.Tokens[*tx.Asset] = token
		}
	}

	return stats
}

// PortfolioValuation is a balance map priced against quotes
type PortfolioValuation struct {
	Holdings  []types.PricedHolding `json:"holdings"`
	TotalUSD  decimal.Decimal       `json:"total_usd"`
	TotalFiat decimal.Decimal       `json:"total_fiat"`
}

// PriceHoldings values balances against quotes. Symbols without a
// quote get zero prices; a zero portfolio total yields 0% shares.
// Holdings are sorted by USD value descending, ties by symbol.
func PriceHoldings(balances map[string]decimal.Decimal, quotes map[string]types.Quote) *PortfolioValuation {
	valuation := &PortfolioValuation{}

	for symbol, balance := range balances {
		quote := quotes[symbol]
		holding := types.PricedHolding{
			Symbol:    symbol,
			Balance:   balance,
			PriceUSD:  quote.USD,
			PriceFiat: quote.Fiat,
			ValueUSD:  balance.Mul(quote.USD),
			ValueFiat: balance.Mul(quote.Fiat),
		}
		valuation.TotalUSD = valuation.TotalUSD.Add(holding.ValueUSD)
		valuation.TotalFiat = valuation.TotalFiat.Add(holding.ValueFiat)
		valuation.Holdings = append(valuation.Holdings, holding)
	}

	hundred := decimal.NewFromInt(100)
	for i := range valuation.Holdings {
		if valuation.TotalUSD.IsPositive() {
			valuation.Holdings[i].PortfolioPct = valuation.Holdings[i].ValueUSD.Div(valuation.TotalUSD).Mul(hundred)
		}
	}

	sort.Slice(valuation.Holdings, func(i, j int) bool {
		a, b := valuation.Holdings[i], valuation.Holdings[j]
		if !a.ValueUSD.Equal(b.ValueUSD) {
			return a.ValueUSD.GreaterThan(b.ValueUSD)
		}
		return a.Symbol < b.Symbol
	})

	return valuation
}
