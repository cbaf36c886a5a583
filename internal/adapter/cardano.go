package adapter

import (
	"context"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/fetch"
	"github.com/statement-engine/internal/logging"
	"github.com/statement-engine/internal/types"
	"github.com/statement-engine/internal/units"
)

// cardanoTxLimit caps per-query UTXO resolution the same way the
// Solana adapter caps getTransaction calls.
const cardanoTxLimit = 100

// CardanoAdapter fetches history from a Blockfrost-compatible API.
// Amounts are derived from the wallet's net lovelace difference across
// a transaction's input and output UTXO sets.
type CardanoAdapter struct {
	baseURL string
	apiKey  string
	client  *fetch.Client
}

// NewCardanoAdapter creates a Cardano adapter.
func NewCardanoAdapter(baseURL, apiKey string, client *fetch.Client) *CardanoAdapter {
	return &CardanoAdapter{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (a *CardanoAdapter) Chain() types.Chain    { return types.ChainCardano }
func (a *CardanoAdapter) NativeSymbol() string  { return "ADA" }
func (a *CardanoAdapter) NativeDecimals() int32 { return units.DecimalsCardano }

// Shelley bech32 addresses plus the two Byron-era prefixes.
var cardanoAddressRe = regexp.MustCompile(`^(?:addr1[a-z0-9]{20,}|Ae2[1-9A-HJ-NP-Za-km-z]{20,}|DdzFF[1-9A-HJ-NP-Za-km-z]{20,})$`)

func (a *CardanoAdapter) ValidateAddress(address string) bool {
	return cardanoAddressRe.MatchString(address)
}

func (a *CardanoAdapter) headers() map[string]string {
	if a.apiKey == "" {
		return nil
	}
	return map[string]string{"project_id": a.apiKey}
}

type cardanoAddressTx struct {
	TxHash    string `json:"tx_hash"`
	BlockTime int64  `json:"block_time"`
}

type cardanoUTXOs struct {
	Inputs  []cardanoUTXO `json:"inputs"`
	Outputs []cardanoUTXO `json:"outputs"`
}

type cardanoUTXO struct {
	Address string `json:"address"`
	Amount  []struct {
		Unit     string `json:"unit"`
		Quantity string `json:"quantity"`
	} `json:"amount"`
}

// FetchTransactions lists the address's transactions and resolves each
// in-window hash to its UTXO sets.
func (a *CardanoAdapter) FetchTransactions(ctx context.Context, address string, window Window) (*FetchResult, error) {
	if !a.ValidateAddress(address) {
		return nil, NewAdapterError(types.ChainCardano, "FetchTransactions", ErrInvalidAddress)
	}

	logger := logging.FromContext(ctx).WithField("chain", types.ChainCardano)

	var txs []cardanoAddressTx
	u := fmt.Sprintf("%s/addresses/%s/transactions?order=desc&count=%d", a.baseURL, address, cardanoTxLimit)
	if err := a.client.GetJSON(ctx, u, a.headers(), &txs); err != nil {
		return &FetchResult{
			FeedsAttempted: 1,
			FeedErrors:     []FeedError{{Feed: "transactions", Message: err.Error()}},
		}, nil
	}

	result := &FetchResult{FeedsAttempted: 1}
	for _, tx := range txs {
		if !window.Contains(tx.BlockTime) {
			continue
		}

		var utxos cardanoUTXOs
		utxoURL := fmt.Sprintf("%s/txs/%s/utxos", a.baseURL, tx.TxHash)
		if err := a.client.GetJSON(ctx, utxoURL, a.headers(), &utxos); err != nil {
			logger.WithField("hash", tx.TxHash).WithError(err).Warn("utxo fetch failed")
			result.Skipped = append(result.Skipped, SkippedRecord{
				Reason: SkipMalformed,
				Hash:   tx.TxHash,
				Detail: "utxo fetch failed",
			})
			continue
		}

		normalized, skip := a.normalizeTx(tx, &utxos, address)
		if skip != nil {
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		result.Transactions = append(result.Transactions, *normalized)
	}
	return result, nil
}

// lovelaceFor sums the lovelace attributable to the wallet across one
// UTXO set.
func lovelaceFor(utxos []cardanoUTXO, wallet string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, utxo := range utxos {
		if utxo.Address != wallet {
			continue
		}
		for _, amount := range utxo.Amount {
			if amount.Unit != "lovelace" {
				continue
			}
			q, err := units.ParseRaw(amount.Quantity)
			if err != nil {
				return decimal.Zero, err
			}
			total = total.Add(q)
		}
	}
	return total, nil
}

func (a *CardanoAdapter) normalizeTx(tx cardanoAddressTx, utxos *cardanoUTXOs, wallet string) (*types.Transaction, *SkippedRecord) {
	spent, err := lovelaceFor(utxos.Inputs, wallet)
	if err != nil {
		return nil, &SkippedRecord{Reason: SkipMalformed, Hash: tx.TxHash, Detail: "unparseable input quantity"}
	}
	received, err := lovelaceFor(utxos.Outputs, wallet)
	if err != nil {
		return nil, &SkippedRecord{Reason: SkipMalformed, Hash: tx.TxHash, Detail: "unparseable output quantity"}
	}

	net := received.Sub(spent)
	if net.IsZero() {
		return nil, &SkippedRecord{Reason: SkipZeroDelta, Hash: tx.TxHash}
	}

	direction := types.DirectionOut
	if net.Sign() > 0 {
		direction = types.DirectionIn
	}

	// UTXO transactions have no single counterparty
	from := "Cardano Network"
	if len(utxos.Inputs) > 1 {
		from = "Multiple"
	}
	to := "Cardano Network"
	if len(utxos.Outputs) > 1 {
		to = "Multiple"
	}

	return &types.Transaction{
		Hash:      tx.TxHash,
		Chain:     types.ChainCardano,
		Timestamp: tx.BlockTime,
		Date:      types.FormatDate(tx.BlockTime),
		Type:      types.TypeNativeTransfer,
		Direction: direction,
		From:      from,
		To:        to,
		Amount:    units.FromSmallest(net.Abs(), units.DecimalsCardano),
		Status:    types.StatusSuccess,
	}, nil
}

// NativeBalance returns the current balance in lovelace.
func (a *CardanoAdapter) NativeBalance(ctx context.Context, address string) (string, error) {
	if !a.ValidateAddress(address) {
		return "", NewAdapterError(types.ChainCardano, "NativeBalance", ErrInvalidAddress)
	}

	var resp struct {
		Amount []struct {
			Unit     string `json:"unit"`
			Quantity string `json:"quantity"`
		} `json:"amount"`
	}
	u := fmt.Sprintf("%s/addresses/%s", a.baseURL, address)
	if err := a.client.GetJSON(ctx, u, a.headers(), &resp); err != nil {
		return "", NewAdapterError(types.ChainCardano, "NativeBalance", err)
	}

	for _, amount := range resp.Amount {
		if amount.Unit == "lovelace" {
			return amount.Quantity, nil
		}
	}
	return "0", nil
}

// TokenBalances is empty for Cardano; no native assets are whitelisted.
func (a *CardanoAdapter) TokenBalances(ctx context.Context, address string) (map[string]types.TokenBalance, error) {
	return map[string]types.TokenBalance{}, nil
}
