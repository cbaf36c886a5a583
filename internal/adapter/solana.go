package adapter

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/fetch"
	"github.com/statement-engine/internal/logging"
	"github.com/statement-engine/internal/types"
	"github.com/statement-engine/internal/units"
	"github.com/statement-engine/internal/whitelist"
)

// splTokenProgram is the SPL Token program id used to enumerate token
// accounts for an owner.
const splTokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// Per-query caps keep a statement request from fanning out into
// hundreds of getTransaction calls on busy wallets.
const (
	solanaSignatureLimit = 100
	solanaDetailLimit    = 20
)

// SolanaAdapter fetches history via the Solana JSON-RPC API.
type SolanaAdapter struct {
	rpcURL string
	client *fetch.Client
	tokens *whitelist.Table
}

// NewSolanaAdapter creates a Solana adapter.
func NewSolanaAdapter(rpcURL string, client *fetch.Client, tokens *whitelist.Table) *SolanaAdapter {
	return &SolanaAdapter{rpcURL: rpcURL, client: client, tokens: tokens}
}

func (a *SolanaAdapter) Chain() types.Chain    { return types.ChainSolana }
func (a *SolanaAdapter) NativeSymbol() string  { return "SOL" }
func (a *SolanaAdapter) NativeDecimals() int32 { return units.DecimalsSolana }

// Base58 public keys are 32 to 44 characters.
var solanaAddressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

func (a *SolanaAdapter) ValidateAddress(address string) bool {
	return solanaAddressRe.MatchString(address)
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a *SolanaAdapter) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	req := rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
	var resp rpcResponse
	if err := a.client.PostJSON(ctx, a.rpcURL, nil, req, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return NewAdapterError(types.ChainSolana, method, &types.ServiceError{
			Code:    "RPC_ERROR",
			Message: resp.Error.Message,
		})
	}
	if result != nil && len(resp.Result) > 0 {
		return json.Unmarshal(resp.Result, result)
	}
	return nil
}

type signatureInfo struct {
	Signature string `json:"signature"`
	BlockTime int64  `json:"blockTime"`
}

type solanaTx struct {
	Slot        uint64         `json:"slot"`
	BlockTime   int64          `json:"blockTime"`
	Meta        *solanaTxMeta  `json:"meta"`
	Transaction solanaTxDetail `json:"transaction"`
}

type solanaTxMeta struct {
	Err          interface{} `json:"err"`
	Fee          int64       `json:"fee"`
	PreBalances  []int64     `json:"preBalances"`
	PostBalances []int64     `json:"postBalances"`
}

type solanaTxDetail struct {
	Message solanaMessage `json:"message"`
}

type solanaMessage struct {
	AccountKeys  []solanaAccountKey  `json:"accountKeys"`
	Instructions []solanaInstruction `json:"instructions"`
}

// solanaAccountKey accepts both the plain-string and the jsonParsed
// object encodings of an account key.
type solanaAccountKey struct {
	Pubkey string
}

func (k *solanaAccountKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		k.Pubkey = s
		return nil
	}
	var obj struct {
		Pubkey string `json:"pubkey"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	k.Pubkey = obj.Pubkey
	return nil
}

type solanaInstruction struct {
	Parsed *solanaParsedInstruction `json:"parsed,omitempty"`
}

type solanaParsedInstruction struct {
	Type string `json:"type"`
	Info struct {
		Mint        string `json:"mint"`
		Source      string `json:"source"`
		Destination string `json:"destination"`
		Amount      string `json:"amount"`
		TokenAmount *struct {
			Amount   string  `json:"amount"`
			Decimals int32   `json:"decimals"`
			UIAmount float64 `json:"uiAmount"`
		} `json:"tokenAmount,omitempty"`
	} `json:"info"`
}

// FetchTransactions lists recent signatures and resolves each in-window
// signature to a full transaction. The signature listing is the single
// upstream feed; individual detail failures degrade to skips.
func (a *SolanaAdapter) FetchTransactions(ctx context.Context, address string, window Window) (*FetchResult, error) {
	if !a.ValidateAddress(address) {
		return nil, NewAdapterError(types.ChainSolana, "FetchTransactions", ErrInvalidAddress)
	}

	logger := logging.FromContext(ctx).WithField("chain", types.ChainSolana)

	var signatures []signatureInfo
	err := a.call(ctx, "getSignaturesForAddress", []interface{}{
		address,
		map[string]interface{}{"limit": solanaSignatureLimit},
	}, &signatures)
	if err != nil {
		return &FetchResult{
			FeedsAttempted: 1,
			FeedErrors:     []FeedError{{Feed: "signatures", Message: err.Error()}},
		}, nil
	}

	result := &FetchResult{FeedsAttempted: 1}
	resolved := 0
	for _, sig := range signatures {
		if resolved >= solanaDetailLimit {
			break
		}
		if sig.BlockTime == 0 || !window.Contains(sig.BlockTime) {
			continue
		}
		resolved++

		var tx solanaTx
		err := a.call(ctx, "getTransaction", []interface{}{
			sig.Signature,
			map[string]interface{}{
				"encoding":                       "jsonParsed",
				"maxSupportedTransactionVersion": 0,
			},
		}, &tx)
		if err != nil {
			logger.WithField("signature", sig.Signature).WithError(err).Warn("transaction detail fetch failed")
			result.Skipped = append(result.Skipped, SkippedRecord{
				Reason: SkipMalformed,
				Hash:   sig.Signature,
				Detail: "detail fetch failed",
			})
			continue
		}

		normalized, skip := a.normalizeTx(&tx, address, sig.Signature)
		if skip != nil {
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		result.Transactions = append(result.Transactions, *normalized)
	}

	return result, nil
}

// normalizeTx prefers a whitelisted SPL transfer instruction; otherwise
// the transaction is treated as a native SOL movement derived from the
// wallet's pre/post lamport delta.
func (a *SolanaAdapter) normalizeTx(tx *solanaTx, wallet, signature string) (*types.Transaction, *SkippedRecord) {
	if tx.Meta == nil || len(tx.Transaction.Message.AccountKeys) == 0 {
		return nil, &SkippedRecord{Reason: SkipMalformed, Hash: signature, Detail: "missing meta or account keys"}
	}

	if out := a.normalizeSPLTransfer(tx, wallet, signature); out != nil {
		return out, nil
	}
	return a.normalizeNativeTransfer(tx, wallet, signature)
}

func (a *SolanaAdapter) normalizeSPLTransfer(tx *solanaTx, wallet, signature string) *types.Transaction {
	for _, instruction := range tx.Transaction.Message.Instructions {
		parsed := instruction.Parsed
		if parsed == nil {
			continue
		}
		if parsed.Type != "transfer" && parsed.Type != "transferChecked" {
			continue
		}
		meta, ok := a.tokens.SolanaMint(parsed.Info.Mint)
		if !ok {
			continue
		}

		var amount decimal.Decimal
		if ta := parsed.Info.TokenAmount; ta != nil && ta.Amount != "" {
			raw, err := units.ParseRaw(ta.Amount)
			if err != nil {
				continue
			}
			amount = units.FromSmallest(raw, ta.Decimals)
		} else {
			raw, err := units.ParseRaw(parsed.Info.Amount)
			if err != nil {
				continue
			}
			amount = units.FromSmallest(raw, meta.Decimals)
		}

		direction := types.DirectionOut
		if strings.EqualFold(parsed.Info.Destination, wallet) {
			direction = types.DirectionIn
		}

		status := types.StatusSuccess
		if tx.Meta.Err != nil {
			status = types.StatusFailed
		}

		symbol := meta.Symbol
		name := meta.Name
		mint := strings.ToLower(parsed.Info.Mint)
		fee := units.FromSmallest(decimal.NewFromInt(tx.Meta.Fee), units.DecimalsSolana)

		return &types.Transaction{
			Hash:        signature,
			Chain:       types.ChainSolana,
			Timestamp:   tx.BlockTime,
			Date:        types.FormatDate(tx.BlockTime),
			Type:        types.TypeTokenTransfer,
			Direction:   direction,
			From:        parsed.Info.Source,
			To:          parsed.Info.Destination,
			Amount:      amount,
			Asset:       &symbol,
			AssetName:   &name,
			Contract:    &mint,
			Status:      status,
			Fee:         &fee,
			BlockNumber: tx.Slot,
		}
	}
	return nil
}

func (a *SolanaAdapter) normalizeNativeTransfer(tx *solanaTx, wallet, signature string) (*types.Transaction, *SkippedRecord) {
	keys := tx.Transaction.Message.AccountKeys

	walletIndex := -1
	for i, key := range keys {
		if key.Pubkey == wallet {
			walletIndex = i
			break
		}
	}
	if walletIndex == -1 {
		return nil, &SkippedRecord{Reason: SkipWalletNotInvolved, Hash: signature}
	}

	var delta int64
	if walletIndex < len(tx.Meta.PreBalances) && walletIndex < len(tx.Meta.PostBalances) {
		delta = tx.Meta.PostBalances[walletIndex] - tx.Meta.PreBalances[walletIndex]
	}
	if delta == 0 {
		return nil, &SkippedRecord{Reason: SkipZeroDelta, Hash: signature}
	}

	direction := types.DirectionOut
	if delta > 0 {
		direction = types.DirectionIn
	}
	lamports := delta
	if lamports < 0 {
		lamports = -lamports
	}

	var from, to string
	if len(keys) >= 2 {
		from = keys[0].Pubkey
		to = keys[1].Pubkey
	}

	status := types.StatusSuccess
	if tx.Meta.Err != nil {
		status = types.StatusFailed
	}
	fee := units.FromSmallest(decimal.NewFromInt(tx.Meta.Fee), units.DecimalsSolana)

	return &types.Transaction{
		Hash:        signature,
		Chain:       types.ChainSolana,
		Timestamp:   tx.BlockTime,
		Date:        types.FormatDate(tx.BlockTime),
		Type:        types.TypeNativeTransfer,
		Direction:   direction,
		From:        from,
		To:          to,
		Amount:      units.FromSmallest(decimal.NewFromInt(lamports), units.DecimalsSolana),
		Status:      status,
		Fee:         &fee,
		BlockNumber: tx.Slot,
	}, nil
}

// NativeBalance returns the current balance in lamports.
func (a *SolanaAdapter) NativeBalance(ctx context.Context, address string) (string, error) {
	if !a.ValidateAddress(address) {
		return "", NewAdapterError(types.ChainSolana, "NativeBalance", ErrInvalidAddress)
	}

	var result struct {
		Value int64 `json:"value"`
	}
	if err := a.call(ctx, "getBalance", []interface{}{address}, &result); err != nil {
		return "", NewAdapterError(types.ChainSolana, "NativeBalance", err)
	}
	return decimal.NewFromInt(result.Value).String(), nil
}

// TokenBalances enumerates the owner's SPL token accounts and keeps
// whitelisted mints with a nonzero balance.
func (a *SolanaAdapter) TokenBalances(ctx context.Context, address string) (map[string]types.TokenBalance, error) {
	if !a.ValidateAddress(address) {
		return nil, NewAdapterError(types.ChainSolana, "TokenBalances", ErrInvalidAddress)
	}

	var result struct {
		Value []struct {
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Mint        string `json:"mint"`
							TokenAmount struct {
								Amount   string `json:"amount"`
								Decimals int32  `json:"decimals"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}

	err := a.call(ctx, "getTokenAccountsByOwner", []interface{}{
		address,
		map[string]interface{}{"programId": splTokenProgram},
		map[string]interface{}{"encoding": "jsonParsed"},
	}, &result)
	if err != nil {
		return nil, NewAdapterError(types.ChainSolana, "TokenBalances", err)
	}

	balances := make(map[string]types.TokenBalance)
	for _, account := range result.Value {
		info := account.Account.Data.Parsed.Info
		meta, ok := a.tokens.SolanaMint(info.Mint)
		if !ok {
			continue
		}

		raw, err := units.ParseRaw(info.TokenAmount.Amount)
		if err != nil {
			continue
		}
		decimals := info.TokenAmount.Decimals
		if decimals == 0 {
			decimals = meta.Decimals
		}
		balance := units.FromSmallest(raw, decimals)
		if balance.Sign() <= 0 {
			continue
		}

		balances[meta.Symbol] = types.TokenBalance{
			Balance:  balance,
			Contract: strings.ToLower(info.Mint),
			Name:     meta.Name,
			Decimals: decimals,
		}
	}
	return balances, nil
}
