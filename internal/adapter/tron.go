package adapter

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/fetch"
	"github.com/statement-engine/internal/logging"
	"github.com/statement-engine/internal/types"
	"github.com/statement-engine/internal/units"
	"github.com/statement-engine/internal/whitelist"
)

// TronAdapter fetches history from the TronGrid account APIs. Native
// TRX transfers and whitelisted TRC-20 transfers come from separate
// feeds.
type TronAdapter struct {
	baseURL string
	apiKey  string
	client  *fetch.Client
	tokens  *whitelist.Table
}

// NewTronAdapter creates a Tron adapter.
func NewTronAdapter(baseURL, apiKey string, client *fetch.Client, tokens *whitelist.Table) *TronAdapter {
	return &TronAdapter{baseURL: baseURL, apiKey: apiKey, client: client, tokens: tokens}
}

func (a *TronAdapter) Chain() types.Chain    { return types.ChainTron }
func (a *TronAdapter) NativeSymbol() string  { return "TRX" }
func (a *TronAdapter) NativeDecimals() int32 { return units.DecimalsTron }

// Base58check addresses start with T and are 34 characters.
var tronAddressRe = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)

func (a *TronAdapter) ValidateAddress(address string) bool {
	return tronAddressRe.MatchString(address)
}

func (a *TronAdapter) headers() map[string]string {
	if a.apiKey == "" {
		return nil
	}
	return map[string]string{"TRON-PRO-API-KEY": a.apiKey}
}

type tronNativeResponse struct {
	Data []tronNativeTx `json:"data"`
}

type tronNativeTx struct {
	TxID           string      `json:"txID"`
	BlockTimestamp int64       `json:"block_timestamp"` // milliseconds
	Ret            []tronRet   `json:"ret"`
	RawData        tronRawData `json:"raw_data"`
}

type tronRet struct {
	ContractRet string `json:"contractRet"`
}

type tronRawData struct {
	Contract []tronContract `json:"contract"`
}

type tronContract struct {
	Type      string `json:"type"`
	Parameter struct {
		Value tronTransferValue `json:"value"`
	} `json:"parameter"`
}

type tronTransferValue struct {
	Amount       int64  `json:"amount"`
	OwnerAddress string `json:"owner_address"`
	ToAddress    string `json:"to_address"`
}

type tronTRC20Response struct {
	Data []tronTRC20Tx `json:"data"`
}

type tronTRC20Tx struct {
	TransactionID  string `json:"transaction_id"`
	BlockTimestamp int64  `json:"block_timestamp"` // milliseconds
	From           string `json:"from"`
	To             string `json:"to"`
	Value          string `json:"value"`
	TokenInfo      struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Decimals int32  `json:"decimals"`
	} `json:"token_info"`
}

// FetchTransactions queries the native and TRC-20 feeds concurrently.
func (a *TronAdapter) FetchTransactions(ctx context.Context, address string, window Window) (*FetchResult, error) {
	if !a.ValidateAddress(address) {
		return nil, NewAdapterError(types.ChainTron, "FetchTransactions", ErrInvalidAddress)
	}

	logger := logging.FromContext(ctx).WithField("chain", types.ChainTron)

	// TronGrid filters by millisecond timestamps server side
	params := url.Values{}
	params.Set("limit", "200")
	params.Set("min_timestamp", strconv.FormatInt(window.Start*1000, 10))
	params.Set("max_timestamp", strconv.FormatInt(window.End*1000, 10))

	var (
		wg             sync.WaitGroup
		nativeResp     tronNativeResponse
		trc20Resp      tronTRC20Response
		nativeErr      error
		trc20Err       error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		u := fmt.Sprintf("%s/v1/accounts/%s/transactions?%s", a.baseURL, address, params.Encode())
		nativeErr = a.client.GetJSON(ctx, u, a.headers(), &nativeResp)
	}()
	go func() {
		defer wg.Done()
		u := fmt.Sprintf("%s/v1/accounts/%s/transactions/trc20?%s", a.baseURL, address, params.Encode())
		trc20Err = a.client.GetJSON(ctx, u, a.headers(), &trc20Resp)
	}()
	wg.Wait()

	result := &FetchResult{FeedsAttempted: 2}

	if nativeErr != nil {
		logger.WithError(nativeErr).Warn("native feed fetch failed")
		result.FeedErrors = append(result.FeedErrors, FeedError{Feed: "native", Message: nativeErr.Error()})
	} else {
		for _, tx := range nativeResp.Data {
			normalized, skip := a.normalizeNativeTx(tx, address, window)
			if skip != nil {
				if skip.Reason != SkipOutsideWindow {
					result.Skipped = append(result.Skipped, *skip)
				}
				continue
			}
			result.Transactions = append(result.Transactions, *normalized)
		}
	}

	if trc20Err != nil {
		logger.WithError(trc20Err).Warn("trc20 feed fetch failed")
		result.FeedErrors = append(result.FeedErrors, FeedError{Feed: "trc20", Message: trc20Err.Error()})
	} else {
		for _, tx := range trc20Resp.Data {
			normalized, skip := a.normalizeTRC20Tx(tx, address, window)
			if skip != nil {
				if skip.Reason != SkipOutsideWindow {
					result.Skipped = append(result.Skipped, *skip)
				}
				continue
			}
			result.Transactions = append(result.Transactions, *normalized)
		}
	}

	return result, nil
}

func (a *TronAdapter) normalizeNativeTx(tx tronNativeTx, wallet string, window Window) (*types.Transaction, *SkippedRecord) {
	ts := tx.BlockTimestamp / 1000
	if !window.Contains(ts) {
		return nil, &SkippedRecord{Reason: SkipOutsideWindow, Hash: tx.TxID}
	}
	if len(tx.RawData.Contract) == 0 {
		return nil, &SkippedRecord{Reason: SkipMalformed, Hash: tx.TxID, Detail: "no contract entry"}
	}

	contract := tx.RawData.Contract[0]
	if contract.Type != "TransferContract" {
		// Smart-contract calls and TRC-10 transfers are out of scope
		return nil, &SkippedRecord{Reason: SkipNotWhitelisted, Hash: tx.TxID, Detail: contract.Type}
	}

	status := types.StatusSuccess
	if len(tx.Ret) > 0 && tx.Ret[0].ContractRet != "SUCCESS" {
		status = types.StatusFailed
	}

	value := contract.Parameter.Value
	direction := types.DirectionOut
	if strings.EqualFold(value.ToAddress, wallet) {
		direction = types.DirectionIn
	}

	return &types.Transaction{
		Hash:      tx.TxID,
		Chain:     types.ChainTron,
		Timestamp: ts,
		Date:      types.FormatDate(ts),
		Type:      types.TypeNativeTransfer,
		Direction: direction,
		From:      defaultAddress(value.OwnerAddress),
		To:        defaultAddress(value.ToAddress),
		Amount:    units.FromSmallest(decimal.NewFromInt(value.Amount), units.DecimalsTron),
		Status:    status,
	}, nil
}

func (a *TronAdapter) normalizeTRC20Tx(tx tronTRC20Tx, wallet string, window Window) (*types.Transaction, *SkippedRecord) {
	ts := tx.BlockTimestamp / 1000
	if !window.Contains(ts) {
		return nil, &SkippedRecord{Reason: SkipOutsideWindow, Hash: tx.TransactionID}
	}

	meta, ok := a.tokens.TronContract(tx.TokenInfo.Address)
	if !ok {
		return nil, &SkippedRecord{
			Reason: SkipNotWhitelisted,
			Hash:   tx.TransactionID,
			Detail: fmt.Sprintf("%s at %s", tx.TokenInfo.Symbol, tx.TokenInfo.Address),
		}
	}

	decimals := meta.Decimals
	if tx.TokenInfo.Decimals > 0 {
		decimals = tx.TokenInfo.Decimals
	}
	amount, err := units.FromSmallestString(tx.Value, decimals)
	if err != nil {
		return nil, &SkippedRecord{Reason: SkipMalformed, Hash: tx.TransactionID, Detail: "unparseable value"}
	}

	direction := types.DirectionOut
	if strings.EqualFold(tx.To, wallet) {
		direction = types.DirectionIn
	}

	symbol := meta.Symbol
	name := meta.Name
	contract := strings.ToLower(tx.TokenInfo.Address)

	return &types.Transaction{
		Hash:      tx.TransactionID,
		Chain:     types.ChainTron,
		Timestamp: ts,
		Date:      types.FormatDate(ts),
		Type:      types.TypeTokenTransfer,
		Direction: direction,
		From:      defaultAddress(tx.From),
		To:        defaultAddress(tx.To),
		Amount:    amount,
		Asset:     &symbol,
		AssetName: &name,
		Contract:  &contract,
		Status:    types.StatusSuccess,
	}, nil
}

type tronAccountResponse struct {
	Data []struct {
		Balance int64               `json:"balance"`
		TRC20   []map[string]string `json:"trc20"`
	} `json:"data"`
}

// NativeBalance returns the current balance in SUN.
func (a *TronAdapter) NativeBalance(ctx context.Context, address string) (string, error) {
	if !a.ValidateAddress(address) {
		return "", NewAdapterError(types.ChainTron, "NativeBalance", ErrInvalidAddress)
	}

	var resp tronAccountResponse
	u := fmt.Sprintf("%s/v1/accounts/%s", a.baseURL, address)
	if err := a.client.GetJSON(ctx, u, a.headers(), &resp); err != nil {
		return "", NewAdapterError(types.ChainTron, "NativeBalance", err)
	}
	if len(resp.Data) == 0 {
		return "0", nil
	}
	return strconv.FormatInt(resp.Data[0].Balance, 10), nil
}

// TokenBalances reads the TRC-20 holdings reported on the account and
// keeps whitelisted contracts with a nonzero balance.
func (a *TronAdapter) TokenBalances(ctx context.Context, address string) (map[string]types.TokenBalance, error) {
	if !a.ValidateAddress(address) {
		return nil, NewAdapterError(types.ChainTron, "TokenBalances", ErrInvalidAddress)
	}

	var resp tronAccountResponse
	u := fmt.Sprintf("%s/v1/accounts/%s", a.baseURL, address)
	if err := a.client.GetJSON(ctx, u, a.headers(), &resp); err != nil {
		return nil, NewAdapterError(types.ChainTron, "TokenBalances", err)
	}

	balances := make(map[string]types.TokenBalance)
	if len(resp.Data) == 0 {
		return balances, nil
	}

	for _, holding := range resp.Data[0].TRC20 {
		for contract, raw := range holding {
			meta, ok := a.tokens.TronContract(contract)
			if !ok {
				continue
			}
			balance, err := units.FromSmallestString(raw, meta.Decimals)
			if err != nil || balance.Sign() <= 0 {
				continue
			}
			balances[meta.Symbol] = types.TokenBalance{
				Balance:  balance,
				Contract: strings.ToLower(contract),
				Name:     meta.Name,
				Decimals: meta.Decimals,
			}
		}
	}
	return balances, nil
}
