package adapter

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/fetch"
	"github.com/statement-engine/internal/types"
	"github.com/statement-engine/internal/units"
)

// BitcoinAdapter fetches history from the blockchain.info rawaddr API.
type BitcoinAdapter struct {
	baseURL string
	client  *fetch.Client
}

// NewBitcoinAdapter creates a Bitcoin adapter.
func NewBitcoinAdapter(baseURL string, client *fetch.Client) *BitcoinAdapter {
	return &BitcoinAdapter{baseURL: baseURL, client: client}
}

func (a *BitcoinAdapter) Chain() types.Chain    { return types.ChainBitcoin }
func (a *BitcoinAdapter) NativeSymbol() string  { return "BTC" }
func (a *BitcoinAdapter) NativeDecimals() int32 { return units.DecimalsBitcoin }

// Legacy (1...), P2SH (3...) and bech32 (bc1...) address shapes.
var bitcoinAddressRe = regexp.MustCompile(`^(?:[13][a-km-zA-HJ-NP-Z1-9]{25,34}|bc1[ac-hj-np-z02-9]{11,87})$`)

func (a *BitcoinAdapter) ValidateAddress(address string) bool {
	return bitcoinAddressRe.MatchString(address)
}

type rawAddrResponse struct {
	FinalBalance int64       `json:"final_balance"`
	Txs          []rawAddrTx `json:"txs"`
}

type rawAddrTx struct {
	Hash        string         `json:"hash"`
	Time        int64          `json:"time"`
	BlockHeight uint64         `json:"block_height"`
	Inputs      []rawAddrInput `json:"inputs"`
	Out         []rawAddrOut   `json:"out"`
}

type rawAddrInput struct {
	PrevOut rawAddrOut `json:"prev_out"`
}

type rawAddrOut struct {
	Addr  string `json:"addr"`
	Value int64  `json:"value"`
}

// FetchTransactions retrieves and normalizes the address history. The
// rawaddr endpoint is a single feed, so a fetch failure here means the
// whole query failed.
func (a *BitcoinAdapter) FetchTransactions(ctx context.Context, address string, window Window) (*FetchResult, error) {
	if !a.ValidateAddress(address) {
		return nil, NewAdapterError(types.ChainBitcoin, "FetchTransactions", ErrInvalidAddress)
	}

	var resp rawAddrResponse
	if err := a.client.GetJSON(ctx, a.rawAddrURL(address), nil, &resp); err != nil {
		return &FetchResult{
			FeedsAttempted: 1,
			FeedErrors:     []FeedError{{Feed: "rawaddr", Message: err.Error()}},
		}, nil
	}

	result := &FetchResult{FeedsAttempted: 1}
	for _, tx := range resp.Txs {
		if !window.Contains(tx.Time) {
			continue
		}
		result.Transactions = append(result.Transactions, a.normalizeTx(tx, address))
	}
	return result, nil
}

// normalizeTx derives direction from the transaction's output set: the
// transaction is incoming when any output pays the wallet. Incoming
// amount is the sum paid to the wallet; outgoing amount is the total
// output value.
func (a *BitcoinAdapter) normalizeTx(tx rawAddrTx, wallet string) types.Transaction {
	var received, totalOut int64
	for _, out := range tx.Out {
		totalOut += out.Value
		if out.Addr == wallet {
			received += out.Value
		}
	}

	direction := types.DirectionOut
	amountSats := totalOut
	if received > 0 {
		direction = types.DirectionIn
		amountSats = received
	}

	// UTXO transactions have no single counterparty
	from := "Bitcoin Network"
	if len(tx.Inputs) > 1 {
		from = "Multiple"
	}
	to := "Bitcoin Network"
	if len(tx.Out) > 1 {
		to = "Multiple"
	}

	return types.Transaction{
		Hash:        tx.Hash,
		Chain:       types.ChainBitcoin,
		Timestamp:   tx.Time,
		Date:        types.FormatDate(tx.Time),
		Type:        types.TypeNativeTransfer,
		Direction:   direction,
		From:        from,
		To:          to,
		Amount:      units.FromSmallest(decimal.NewFromInt(amountSats), units.DecimalsBitcoin),
		Status:      types.StatusSuccess,
		BlockNumber: tx.BlockHeight,
	}
}

// NativeBalance returns the confirmed balance in satoshis.
func (a *BitcoinAdapter) NativeBalance(ctx context.Context, address string) (string, error) {
	if !a.ValidateAddress(address) {
		return "", NewAdapterError(types.ChainBitcoin, "NativeBalance", ErrInvalidAddress)
	}

	var resp rawAddrResponse
	if err := a.client.GetJSON(ctx, a.rawAddrURL(address), nil, &resp); err != nil {
		return "", NewAdapterError(types.ChainBitcoin, "NativeBalance", err)
	}
	return strconv.FormatInt(resp.FinalBalance, 10), nil
}

// TokenBalances is empty for Bitcoin; there are no tokens to scan.
func (a *BitcoinAdapter) TokenBalances(ctx context.Context, address string) (map[string]types.TokenBalance, error) {
	return map[string]types.TokenBalance{}, nil
}

func (a *BitcoinAdapter) rawAddrURL(address string) string {
	return fmt.Sprintf("%s/rawaddr/%s", a.baseURL, address)
}
