package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/statement-engine/internal/fetch"
	"github.com/statement-engine/internal/logging"
	"github.com/statement-engine/internal/types"
	"github.com/statement-engine/internal/units"
	"github.com/statement-engine/internal/whitelist"
)

// EVMAdapter serves every Etherscan V2 chain, parametrized by chain id.
type EVMAdapter struct {
	chain   types.Chain
	chainID int64
	baseURL string
	apiKey  string
	client  *fetch.Client
	tokens  *whitelist.Table
}

// NewEVMAdapter creates an adapter for one EVM chain.
func NewEVMAdapter(chain types.Chain, baseURL, apiKey string, client *fetch.Client, tokens *whitelist.Table) (*EVMAdapter, error) {
	chainID, ok := types.EVMChainIDs[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an EVM chain", ErrUnsupportedChain, chain)
	}
	return &EVMAdapter{
		chain:   chain,
		chainID: chainID,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		tokens:  tokens,
	}, nil
}

func (a *EVMAdapter) Chain() types.Chain    { return a.chain }
func (a *EVMAdapter) NativeSymbol() string  { return types.NativeSymbols[a.chain] }
func (a *EVMAdapter) NativeDecimals() int32 { return units.DecimalsEVM }

// ValidateAddress checks for a 0x-prefixed 20-byte hex address.
func (a *EVMAdapter) ValidateAddress(address string) bool {
	return common.IsHexAddress(address)
}

// etherscanEnvelope is the common Etherscan V2 response wrapper.
// Result is a JSON array for list actions and a bare string for
// balance actions.
type etherscanEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// etherscanTx covers the fields shared by the txlist, txlistinternal
// and tokentx feeds. Etherscan reports every numeric field as a string.
type etherscanTx struct {
	Hash            string `json:"hash"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	IsError         string `json:"isError"`
	GasUsed         string `json:"gasUsed"`
	GasPrice        string `json:"gasPrice"`
	BlockNumber     string `json:"blockNumber"`
	Confirmations   string `json:"confirmations"`
	ContractAddress string `json:"contractAddress"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenName       string `json:"tokenName"`
	TokenDecimal    string `json:"tokenDecimal"`
}

func (a *EVMAdapter) queryURL(params map[string]string) string {
	v := url.Values{}
	v.Set("chainid", strconv.FormatInt(a.chainID, 10))
	v.Set("apikey", a.apiKey)
	for k, val := range params {
		v.Set(k, val)
	}
	return a.baseURL + "?" + v.Encode()
}

func (a *EVMAdapter) fetchFeed(ctx context.Context, action, address string) ([]etherscanTx, error) {
	u := a.queryURL(map[string]string{
		"module":     "account",
		"action":     action,
		"address":    address,
		"startblock": "0",
		"endblock":   "99999999",
		"sort":       "desc",
	})

	var envelope etherscanEnvelope
	if err := a.client.GetJSON(ctx, u, nil, &envelope); err != nil {
		return nil, err
	}

	// Status "0" with an empty result means no transactions, not an error
	var txs []etherscanTx
	if len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, &txs); err != nil {
			if envelope.Status == "0" {
				return nil, nil
			}
			return nil, fmt.Errorf("decoding %s result: %w", action, err)
		}
	}
	return txs, nil
}

type feedOutcome struct {
	feed         string
	transactions []types.Transaction
	skipped      []SkippedRecord
	err          error
}

// FetchTransactions queries the normal, internal and token feeds
// concurrently and merges the normalized results.
func (a *EVMAdapter) FetchTransactions(ctx context.Context, address string, window Window) (*FetchResult, error) {
	if !a.ValidateAddress(address) {
		return nil, NewAdapterError(a.chain, "FetchTransactions", ErrInvalidAddress)
	}

	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"chain":   a.chain,
		"address": address,
	})

	feeds := []struct {
		name      string
		action    string
		normalize func(etherscanTx, string) (*types.Transaction, *SkippedRecord)
	}{
		{name: "normal", action: "txlist", normalize: a.normalizeNormalTx},
		{name: "internal", action: "txlistinternal", normalize: a.normalizeInternalTx},
		{name: "token", action: "tokentx", normalize: a.normalizeTokenTx},
	}

	outcomes := make([]feedOutcome, len(feeds))
	var wg sync.WaitGroup
	for i, feed := range feeds {
		wg.Add(1)
		go func(i int, name, action string, normalize func(etherscanTx, string) (*types.Transaction, *SkippedRecord)) {
			defer wg.Done()
			outcome := feedOutcome{feed: name}
			raw, err := a.fetchFeed(ctx, action, address)
			if err != nil {
				outcome.err = err
				outcomes[i] = outcome
				return
			}
			for _, tx := range raw {
				ts, err := strconv.ParseInt(tx.TimeStamp, 10, 64)
				if err != nil {
					outcome.skipped = append(outcome.skipped, SkippedRecord{
						Reason: SkipMalformed,
						Hash:   tx.Hash,
						Detail: "unparseable timestamp",
					})
					continue
				}
				if !window.Contains(ts) {
					continue
				}
				normalized, skip := normalize(tx, address)
				if skip != nil {
					outcome.skipped = append(outcome.skipped, *skip)
					continue
				}
				outcome.transactions = append(outcome.transactions, *normalized)
			}
			outcomes[i] = outcome
		}(i, feed.name, feed.action, feed.normalize)
	}
	wg.Wait()

	result := &FetchResult{FeedsAttempted: len(feeds)}
	for _, outcome := range outcomes {
		if outcome.err != nil {
			logger.WithField("feed", outcome.feed).WithError(outcome.err).Warn("feed fetch failed")
			result.FeedErrors = append(result.FeedErrors, FeedError{
				Feed:    outcome.feed,
				Message: outcome.err.Error(),
			})
			continue
		}
		result.Transactions = append(result.Transactions, outcome.transactions...)
		result.Skipped = append(result.Skipped, outcome.skipped...)
	}

	return result, nil
}

func defaultAddress(addr string) string {
	if addr == "" {
		return "Unknown"
	}
	return addr
}

// direction is "in" exactly when the wallet is the recipient. Self
// transfers therefore count as incoming.
func evmDirection(to, wallet string) types.TransactionDirection {
	if common.HexToAddress(to) == common.HexToAddress(wallet) && to != "" {
		return types.DirectionIn
	}
	return types.DirectionOut
}

func (a *EVMAdapter) normalizeNormalTx(tx etherscanTx, wallet string) (*types.Transaction, *SkippedRecord) {
	ts, _ := strconv.ParseInt(tx.TimeStamp, 10, 64)
	amount, err := units.FromSmallestString(tx.Value, units.DecimalsEVM)
	if err != nil {
		return nil, &SkippedRecord{Reason: SkipMalformed, Hash: tx.Hash, Detail: "unparseable value"}
	}

	status := types.StatusSuccess
	if tx.IsError != "0" {
		status = types.StatusFailed
	}

	out := &types.Transaction{
		Hash:      tx.Hash,
		Chain:     a.chain,
		Timestamp: ts,
		Date:      types.FormatDate(ts),
		Type:      types.TypeNativeTransfer,
		Direction: evmDirection(tx.To, wallet),
		From:      defaultAddress(tx.From),
		To:        defaultAddress(tx.To),
		Amount:    amount,
		Status:    status,
	}
	setGasFields(out, tx)
	return out, nil
}

func (a *EVMAdapter) normalizeInternalTx(tx etherscanTx, wallet string) (*types.Transaction, *SkippedRecord) {
	ts, _ := strconv.ParseInt(tx.TimeStamp, 10, 64)
	amount, err := units.FromSmallestString(tx.Value, units.DecimalsEVM)
	if err != nil {
		return nil, &SkippedRecord{Reason: SkipMalformed, Hash: tx.Hash, Detail: "unparseable value"}
	}

	status := types.StatusSuccess
	if tx.IsError != "0" {
		status = types.StatusFailed
	}

	// Internal transfers carry no gas of their own
	return &types.Transaction{
		Hash:      tx.Hash,
		Chain:     a.chain,
		Timestamp: ts,
		Date:      types.FormatDate(ts),
		Type:      types.TypeInternalTransfer,
		Direction: evmDirection(tx.To, wallet),
		From:      defaultAddress(tx.From),
		To:        defaultAddress(tx.To),
		Amount:    amount,
		Status:    status,
		BlockNumber: func() uint64 {
			n, _ := strconv.ParseUint(tx.BlockNumber, 10, 64)
			return n
		}(),
	}, nil
}

func (a *EVMAdapter) normalizeTokenTx(tx etherscanTx, wallet string) (*types.Transaction, *SkippedRecord) {
	meta, ok := a.tokens.EVMToken(a.chainID, tx.ContractAddress)
	if !ok {
		return nil, &SkippedRecord{
			Reason: SkipNotWhitelisted,
			Hash:   tx.Hash,
			Detail: fmt.Sprintf("%s at %s", tx.TokenSymbol, tx.ContractAddress),
		}
	}

	ts, _ := strconv.ParseInt(tx.TimeStamp, 10, 64)

	// The feed reports decimals per record; the whitelist value is the
	// fallback when the field is missing
	decimals := meta.Decimals
	if tx.TokenDecimal != "" {
		if d, err := strconv.ParseInt(tx.TokenDecimal, 10, 32); err == nil {
			decimals = int32(d)
		}
	}

	amount, err := units.FromSmallestString(tx.Value, decimals)
	if err != nil {
		return nil, &SkippedRecord{Reason: SkipMalformed, Hash: tx.Hash, Detail: "unparseable value"}
	}

	symbol := meta.Symbol
	name := meta.Name
	contract := tx.ContractAddress

	out := &types.Transaction{
		Hash:      tx.Hash,
		Chain:     a.chain,
		Timestamp: ts,
		Date:      types.FormatDate(ts),
		Type:      types.TypeTokenTransfer,
		Direction: evmDirection(tx.To, wallet),
		From:      defaultAddress(tx.From),
		To:        defaultAddress(tx.To),
		Amount:    amount,
		Asset:     &symbol,
		AssetName: &name,
		Contract:  &contract,
		Status:    types.StatusSuccess,
	}
	setGasFields(out, tx)
	return out, nil
}

// setGasFields parses gas usage onto a normalized transaction. Gas
// price is reported in gwei.
func setGasFields(out *types.Transaction, tx etherscanTx) {
	if n, err := strconv.ParseUint(tx.GasUsed, 10, 64); err == nil {
		out.GasUsed = &n
	}
	if gp, err := units.FromSmallestString(tx.GasPrice, 9); err == nil {
		out.GasPrice = &gp
	}
	if n, err := strconv.ParseUint(tx.BlockNumber, 10, 64); err == nil {
		out.BlockNumber = n
	}
	if n, err := strconv.ParseUint(tx.Confirmations, 10, 64); err == nil {
		out.Confirmations = n
	}
}

// NativeBalance returns the current balance in wei.
func (a *EVMAdapter) NativeBalance(ctx context.Context, address string) (string, error) {
	if !a.ValidateAddress(address) {
		return "", NewAdapterError(a.chain, "NativeBalance", ErrInvalidAddress)
	}

	u := a.queryURL(map[string]string{
		"module":  "account",
		"action":  "balance",
		"address": address,
		"tag":     "latest",
	})

	var envelope etherscanEnvelope
	if err := a.client.GetJSON(ctx, u, nil, &envelope); err != nil {
		return "", NewAdapterError(a.chain, "NativeBalance", err)
	}
	if envelope.Status != "1" {
		return "0", nil
	}

	var balance string
	if err := json.Unmarshal(envelope.Result, &balance); err != nil {
		return "", NewAdapterError(a.chain, "NativeBalance", fmt.Errorf("decoding balance: %w", err))
	}
	return balance, nil
}

// TokenBalances scans every whitelisted contract for the chain
// concurrently and keeps nonzero balances. When two contracts map to
// the same symbol the higher balance wins.
func (a *EVMAdapter) TokenBalances(ctx context.Context, address string) (map[string]types.TokenBalance, error) {
	if !a.ValidateAddress(address) {
		return nil, NewAdapterError(a.chain, "TokenBalances", ErrInvalidAddress)
	}

	logger := logging.FromContext(ctx).WithField("chain", a.chain)
	contracts := a.tokens.EVMContracts(a.chainID)

	var mu sync.Mutex
	balances := make(map[string]types.TokenBalance)

	var wg sync.WaitGroup
	for contract, meta := range contracts {
		wg.Add(1)
		go func(contract string, meta whitelist.TokenMeta) {
			defer wg.Done()

			u := a.queryURL(map[string]string{
				"module":          "account",
				"action":          "tokenbalance",
				"contractaddress": contract,
				"address":         address,
				"tag":             "latest",
			})

			var envelope etherscanEnvelope
			if err := a.client.GetJSON(ctx, u, nil, &envelope); err != nil {
				logger.WithField("token", meta.Symbol).WithError(err).Warn("token balance fetch failed")
				return
			}
			if envelope.Status != "1" {
				return
			}

			var raw string
			if err := json.Unmarshal(envelope.Result, &raw); err != nil {
				return
			}
			balance, err := units.FromSmallestString(raw, meta.Decimals)
			if err != nil || balance.Sign() <= 0 {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if existing, ok := balances[meta.Symbol]; ok && existing.Balance.GreaterThanOrEqual(balance) {
				return
			}
			balances[meta.Symbol] = types.TokenBalance{
				Balance:  balance,
				Contract: contract,
				Name:     meta.Name,
				Decimals: meta.Decimals,
			}
		}(contract, meta)
	}
	wg.Wait()

	return balances, nil
}
