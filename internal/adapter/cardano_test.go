package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/types"
)

const adaWallet = "addr1qxck8e5mdzqqtwkn5tm9p4l3e0yjrjmq2jq8mnyv5u9l6a4t2m8q"

func cardanoStub(t *testing.T, txList, utxos string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/transactions"):
			_, _ = w.Write([]byte(txList))
		case strings.Contains(r.URL.Path, "/utxos"):
			_, _ = w.Write([]byte(utxos))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestCardanoIncomingTransfer(t *testing.T) {
	txList := `[{"tx_hash": "ada-1", "block_time": 1700000100}]`
	utxos := `{
		"inputs": [{"address": "addr1senderxxxxxxxxxxxxxxxxxxxxxxx", "amount": [{"unit": "lovelace", "quantity": "10000000"}]}],
		"outputs": [
			{"address": "` + adaWallet + `", "amount": [{"unit": "lovelace", "quantity": "7500000"}]},
			{"address": "addr1changexxxxxxxxxxxxxxxxxxxxxxx", "amount": [{"unit": "lovelace", "quantity": "2300000"}]}
		]
	}`

	server := cardanoStub(t, txList, utxos)
	defer server.Close()

	a := NewCardanoAdapter(server.URL, "test-project", testFetchClient())
	result, err := a.FetchTransactions(context.Background(), adaWallet, Window{Start: 1700000000, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}

	if len(result.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(result.Transactions))
	}
	tx := result.Transactions[0]
	if tx.Direction != types.DirectionIn {
		t.Errorf("Direction = %v, want in", tx.Direction)
	}
	want, _ := decimal.NewFromString("7.5")
	if !tx.Amount.Equal(want) {
		t.Errorf("Amount = %s, want 7.5", tx.Amount)
	}
	if tx.To != "Multiple" {
		t.Errorf("To = %s, want Multiple for two outputs", tx.To)
	}
}

func TestCardanoOutgoingNetsChangeOutput(t *testing.T) {
	// Wallet spends 10 ADA, gets 4 ADA back as change: net outgoing 6
	txList := `[{"tx_hash": "ada-2", "block_time": 1700000200}]`
	utxos := `{
		"inputs": [{"address": "` + adaWallet + `", "amount": [{"unit": "lovelace", "quantity": "10000000"}]}],
		"outputs": [
			{"address": "addr1receiverxxxxxxxxxxxxxxxxxxxxx", "amount": [{"unit": "lovelace", "quantity": "5800000"}]},
			{"address": "` + adaWallet + `", "amount": [{"unit": "lovelace", "quantity": "4000000"}]}
		]
	}`

	server := cardanoStub(t, txList, utxos)
	defer server.Close()

	a := NewCardanoAdapter(server.URL, "test-project", testFetchClient())
	result, err := a.FetchTransactions(context.Background(), adaWallet, Window{Start: 1700000000, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}

	tx := result.Transactions[0]
	if tx.Direction != types.DirectionOut {
		t.Errorf("Direction = %v, want out", tx.Direction)
	}
	want, _ := decimal.NewFromString("6")
	if !tx.Amount.Equal(want) {
		t.Errorf("Amount = %s, want 6 (net of change)", tx.Amount)
	}
}

func TestCardanoZeroDeltaDropped(t *testing.T) {
	txList := `[{"tx_hash": "ada-3", "block_time": 1700000300}]`
	utxos := `{
		"inputs": [{"address": "addr1otherxxxxxxxxxxxxxxxxxxxxxxxx", "amount": [{"unit": "lovelace", "quantity": "1000000"}]}],
		"outputs": [{"address": "addr1otherxxxxxxxxxxxxxxxxxxxxxxxx", "amount": [{"unit": "lovelace", "quantity": "900000"}]}]
	}`

	server := cardanoStub(t, txList, utxos)
	defer server.Close()

	a := NewCardanoAdapter(server.URL, "test-project", testFetchClient())
	result, err := a.FetchTransactions(context.Background(), adaWallet, Window{Start: 1700000000, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}

	if len(result.Transactions) != 0 {
		t.Errorf("got %d transactions, want 0", len(result.Transactions))
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != SkipZeroDelta {
		t.Errorf("Skipped = %+v, want one zero_delta", result.Skipped)
	}
}

func TestCardanoNativeBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("project_id"); got != "test-project" {
			t.Errorf("project_id header = %q, want test-project", got)
		}
		_, _ = w.Write([]byte(`{"amount": [{"unit": "lovelace", "quantity": "42000000"}]}`))
	}))
	defer server.Close()

	a := NewCardanoAdapter(server.URL, "test-project", testFetchClient())
	balance, err := a.NativeBalance(context.Background(), adaWallet)
	if err != nil {
		t.Fatalf("NativeBalance() error = %v", err)
	}
	if balance != "42000000" {
		t.Errorf("balance = %s, want 42000000 lovelace", balance)
	}
}
