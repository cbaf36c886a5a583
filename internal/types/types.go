// Package types provides common type definitions for the statement engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the upstream category of a transaction
type TransactionType string

const (
	// TypeNativeTransfer represents a plain native-asset transfer
	TypeNativeTransfer TransactionType = "NativeTransfer"
	// TypeInternalTransfer represents a contract-triggered internal transfer
	TypeInternalTransfer TransactionType = "InternalTransfer"
	// TypeTokenTransfer represents a fungible-token transfer
	TypeTokenTransfer TransactionType = "TokenTransfer"
	// TypeUnknown represents a transaction whose upstream category is unrecognized
	TypeUnknown TransactionType = "Unknown"
)

// TransactionDirection represents whether a transaction is incoming or outgoing
type TransactionDirection string

const (
	// DirectionIn represents an incoming transaction (wallet is recipient)
	DirectionIn TransactionDirection = "in"
	// DirectionOut represents an outgoing transaction (wallet is sender)
	DirectionOut TransactionDirection = "out"
)

// TransactionStatus represents transaction execution status
type TransactionStatus string

const (
	// StatusSuccess represents a successful transaction
	StatusSuccess TransactionStatus = "Success"
	// StatusFailed represents a failed transaction
	StatusFailed TransactionStatus = "Failed"
	// StatusPending represents a transaction not yet confirmed
	StatusPending TransactionStatus = "Pending"
)

// Chain represents supported blockchain networks
type Chain string

const (
	ChainEthereum  Chain = "ethereum"
	ChainPolygon   Chain = "polygon"
	ChainBSC       Chain = "bsc"
	ChainArbitrum  Chain = "arbitrum"
	ChainOptimism  Chain = "optimism"
	ChainAvalanche Chain = "avalanche"
	ChainBase      Chain = "base"
	ChainBlast     Chain = "blast"
	ChainLinea     Chain = "linea"
	ChainScroll    Chain = "scroll"
	ChainZkSync    Chain = "zksync"
	ChainBitcoin   Chain = "bitcoin"
	ChainSolana    Chain = "solana"
	ChainTron      Chain = "tron"
	ChainCardano   Chain = "cardano"
)

// EVMChainIDs maps EVM chain names to their Etherscan V2 chain ids.
var EVMChainIDs = map[Chain]int64{
	ChainEthereum:  1,
	ChainPolygon:   137,
	ChainBSC:       56,
	ChainArbitrum:  42161,
	ChainOptimism:  10,
	ChainAvalanche: 43114,
	ChainBase:      8453,
	ChainBlast:     81457,
	ChainLinea:     59144,
	ChainScroll:    534352,
	ChainZkSync:    324,
}

// NativeSymbols maps chains to their native asset symbol.
var NativeSymbols = map[Chain]string{
	ChainEthereum:  "ETH",
	ChainPolygon:   "POL",
	ChainBSC:       "BNB",
	ChainArbitrum:  "ETH",
	ChainOptimism:  "ETH",
	ChainAvalanche: "AVAX",
	ChainBase:      "ETH",
	ChainBlast:     "ETH",
	ChainLinea:     "ETH",
	ChainScroll:    "ETH",
	ChainZkSync:    "ETH",
	ChainBitcoin:   "BTC",
	ChainSolana:    "SOL",
	ChainTron:      "TRX",
	ChainCardano:   "ADA",
}

// IsEVM reports whether the chain is served by the Etherscan V2 API family.
func (c Chain) IsEVM() bool {
	_, ok := EVMChainIDs[c]
	return ok
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Transaction represents a transaction in the canonical chain-agnostic format.
// Amount is an unsigned display-unit quantity; Direction carries the sign
// semantics. Asset is nil for native transfers and a whitelist symbol for
// token transfers.
type Transaction struct {
	Hash          string               `json:"hash"`
	Chain         Chain                `json:"chain"`
	Timestamp     int64                `json:"timestamp"`
	Date          string               `json:"date"` // ISO-8601, display only
	Type          TransactionType      `json:"type"`
	Direction     TransactionDirection `json:"direction"`
	From          string               `json:"from"`
	To            string               `json:"to"`
	Amount        decimal.Decimal      `json:"amount"`
	Asset         *string              `json:"asset,omitempty"`
	AssetName     *string              `json:"assetName,omitempty"`
	Contract      *string              `json:"contract,omitempty"`
	Status        TransactionStatus    `json:"status"`
	Fee           *decimal.Decimal     `json:"fee,omitempty"`
	GasUsed       *uint64              `json:"gasUsed,omitempty"`
	GasPrice      *decimal.Decimal     `json:"gasPrice,omitempty"`
	BlockNumber   uint64               `json:"blockNumber,omitempty"`
	Confirmations uint64               `json:"confirmations,omitempty"`
}

// FormatDate derives the display date from the timestamp.
func FormatDate(ts int64) string {
	if ts == 0 {
		return "Unknown"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

// TokenBalance represents a live balance for a whitelisted token
type TokenBalance struct {
	Balance  decimal.Decimal `json:"balance"`
	Contract string          `json:"contract"`
	Name     string          `json:"name"`
	Decimals int32           `json:"decimals"`
}

// BalanceSnapshot is a point-in-time balance map computed by replaying
// signed transaction deltas from the historical ledger.
type BalanceSnapshot struct {
	Date                string                     `json:"date"`
	Balances            map[string]decimal.Decimal `json:"balances"`
	TransactionsCounted int                        `json:"transactionsCounted"`
}

// EmptySnapshot returns a snapshot with no balances for the given date.
// Unknown wallets are a legitimate "no data" case, not a fault.
func EmptySnapshot(date string) *BalanceSnapshot {
	return &BalanceSnapshot{
		Date:     date,
		Balances: map[string]decimal.Decimal{},
	}
}

// Quote is a fiat price for one asset symbol
type Quote struct {
	USD  decimal.Decimal `json:"usd"`
	Fiat decimal.Decimal `json:"fiat"`
}

// PricedHolding is a balance valued against a price quote. Derived, never stored.
type PricedHolding struct {
	Symbol       string          `json:"symbol"`
	Balance      decimal.Decimal `json:"balance"`
	PriceUSD     decimal.Decimal `json:"priceUsd"`
	PriceFiat    decimal.Decimal `json:"priceFiat"`
	ValueUSD     decimal.Decimal `json:"valueUsd"`
	ValueFiat    decimal.Decimal `json:"valueFiat"`
	PortfolioPct decimal.Decimal `json:"portfolioPct"`
}

// LedgerRow is one historical ledger record consumed by the replay strategy.
type LedgerRow struct {
	Hash      string          `json:"hash"`
	Timestamp time.Time       `json:"timestamp"`
	Asset     string          `json:"asset"`
	Value     decimal.Decimal `json:"value"`
	Direction string          `json:"direction"` // "incoming" or "outgoing"
	Network   string          `json:"network"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	USDValue  *decimal.Decimal `json:"usdValue,omitempty"`
	Category  string          `json:"category"`
}

// DirectionIncoming and DirectionOutgoing are the ledger's direction labels,
// distinct from the canonical in/out tags used on normalized transactions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)
