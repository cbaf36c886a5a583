// Package adapter contains one ChainAdapter per chain family. Adapters
// fetch raw history from upstream explorers and normalize it into the
// canonical transaction shape, applying whitelist filtering and
// direction inference along the way.
package adapter

import (
	"context"
	"fmt"

	"github.com/statement-engine/internal/types"
)

// Window is an inclusive unix-timestamp range for history queries.
type Window struct {
	Start int64
	End   int64
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts int64) bool {
	return ts >= w.Start && ts <= w.End
}

// SkipReason explains why a raw upstream record was dropped during
// normalization.
type SkipReason string

const (
	// SkipNotWhitelisted means the token contract or mint is not in the whitelist
	SkipNotWhitelisted SkipReason = "not_whitelisted"
	// SkipWalletNotInvolved means the queried wallet does not appear in the record
	SkipWalletNotInvolved SkipReason = "wallet_not_involved"
	// SkipMalformed means a required field is missing or unparseable
	SkipMalformed SkipReason = "malformed"
	// SkipZeroDelta means the record produced no balance change for the wallet
	SkipZeroDelta SkipReason = "zero_delta"
	// SkipOutsideWindow means the record falls outside the requested date range
	SkipOutsideWindow SkipReason = "outside_window"
)

// SkippedRecord is a dropped raw record with the reason it was dropped.
// Counts of these are surfaced for observability; the records never
// reach statement output.
type SkippedRecord struct {
	Reason SkipReason `json:"reason"`
	Hash   string     `json:"hash,omitempty"`
	Detail string     `json:"detail,omitempty"`
}

// FeedError records a soft failure of one upstream feed. Remaining
// feeds still contribute to the result.
type FeedError struct {
	Feed    string `json:"feed"`
	Message string `json:"message"`
}

// FetchResult is the outcome of one adapter history fetch.
type FetchResult struct {
	Transactions []types.Transaction
	Skipped      []SkippedRecord
	FeedErrors   []FeedError
	// FeedsAttempted counts upstream feeds queried; when it equals
	// len(FeedErrors) every feed failed and the fetch is a hard failure.
	FeedsAttempted int
}

// AllFeedsFailed reports whether no upstream feed produced data.
func (r *FetchResult) AllFeedsFailed() bool {
	return r.FeedsAttempted > 0 && len(r.FeedErrors) == r.FeedsAttempted
}

// ChainAdapter is the capability set implemented per chain family.
type ChainAdapter interface {
	// Chain returns the chain this adapter serves
	Chain() types.Chain

	// NativeSymbol returns the chain's native asset symbol
	NativeSymbol() string

	// NativeDecimals returns smallest-unit decimals for the native asset
	NativeDecimals() int32

	// ValidateAddress checks if address format is plausible for this chain
	ValidateAddress(address string) bool

	// FetchTransactions retrieves and normalizes history for an address
	// within the window. Partial feed failures are reported in the
	// result, not as an error.
	FetchTransactions(ctx context.Context, address string, window Window) (*FetchResult, error)

	// NativeBalance retrieves the current native balance in smallest
	// units, as a decimal integer string.
	NativeBalance(ctx context.Context, address string) (string, error)

	// TokenBalances retrieves current balances for whitelisted tokens,
	// keyed by symbol. Only nonzero balances are returned.
	TokenBalances(ctx context.Context, address string) (map[string]types.TokenBalance, error)
}

// Common adapter errors

var (
	// ErrInvalidAddress indicates the address format is invalid for the chain
	ErrInvalidAddress = fmt.Errorf("invalid address format")

	// ErrUnsupportedChain indicates no adapter is registered for the chain
	ErrUnsupportedChain = fmt.Errorf("unsupported chain")

	// ErrAllFeedsFailed indicates every upstream feed failed
	ErrAllFeedsFailed = fmt.Errorf("all upstream feeds failed")
)

// AdapterError wraps errors with chain and operation context
type AdapterError struct {
	Chain types.Chain
	Op    string
	Err   error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("chain adapter error [%s:%s]: %v", e.Chain, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a new AdapterError
func NewAdapterError(chain types.Chain, op string, err error) *AdapterError {
	return &AdapterError{Chain: chain, Op: op, Err: err}
}

// Registry holds the configured adapters keyed by chain name.
type Registry struct {
	adapters map[types.Chain]ChainAdapter
}

// NewRegistry creates a registry from a set of adapters.
func NewRegistry(adapters ...ChainAdapter) *Registry {
	r := &Registry{adapters: make(map[types.Chain]ChainAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Chain()] = a
	}
	return r
}

// Get returns the adapter for a chain, or ErrUnsupportedChain.
func (r *Registry) Get(chain types.Chain) (ChainAdapter, error) {
	a, ok := r.adapters[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, chain)
	}
	return a, nil
}

// Chains returns the registered chain names.
func (r *Registry) Chains() []types.Chain {
	out := make([]types.Chain, 0, len(r.adapters))
	for c := range r.adapters {
		out = append(out, c)
	}
	return out
}
