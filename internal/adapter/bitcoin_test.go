package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/types"
)

const btcWallet = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

func TestBitcoinIncomingTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"final_balance": 150000000,
			"txs": [{
				"hash": "btc-hash-1",
				"time": 1700000100,
				"block_height": 800000,
				"inputs": [{"prev_out": {"addr": "bc1qsender", "value": 60000000}}],
				"out": [
					{"addr": "` + btcWallet + `", "value": 50000000},
					{"addr": "bc1qchange", "value": 9000000}
				]
			}]
		}`))
	}))
	defer server.Close()

	a := NewBitcoinAdapter(server.URL, testFetchClient())
	result, err := a.FetchTransactions(context.Background(), btcWallet, Window{Start: 1700000000, End: 1700001000})
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
	// Incoming amount is what the wallet received, not the total output
	want, _ := decimal.NewFromString("0.5")
	if !tx.Amount.Equal(want) {
		t.Errorf("Amount = %s, want 0.5", tx.Amount)
	}
	if tx.To != "Multiple" {
		t.Errorf("To = %s, want Multiple for two outputs", tx.To)
	}
	if tx.From != "Bitcoin Network" {
		t.Errorf("From = %s, want Bitcoin Network for single input", tx.From)
	}
}

func TestBitcoinOutgoingTransferUsesTotalOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"final_balance": 0,
			"txs": [{
				"hash": "btc-hash-2",
				"time": 1700000200,
				"block_height": 800001,
				"inputs": [{"prev_out": {"addr": "` + btcWallet + `", "value": 30000000}}],
				"out": [{"addr": "bc1qreceiver", "value": 29000000}]
			}]
		}`))
	}))
	defer server.Close()

	a := NewBitcoinAdapter(server.URL, testFetchClient())
	result, err := a.FetchTransactions(context.Background(), btcWallet, Window{Start: 1700000000, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}

	tx := result.Transactions[0]
	if tx.Direction != types.DirectionOut {
		t.Errorf("Direction = %v, want out", tx.Direction)
	}
	want, _ := decimal.NewFromString("0.29")
	if !tx.Amount.Equal(want) {
		t.Errorf("Amount = %s, want 0.29", tx.Amount)
	}
}

func TestBitcoinFetchFailureIsSoft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	a := NewBitcoinAdapter(server.URL, testFetchClient())
	result, err := a.FetchTransactions(context.Background(), btcWallet, Window{Start: 0, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v, want soft failure", err)
	}
	if !result.AllFeedsFailed() {
		t.Error("expected AllFeedsFailed after upstream failure")
	}
}

func TestBitcoinNativeBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"final_balance": 123456, "txs": []}`))
	}))
	defer server.Close()

	a := NewBitcoinAdapter(server.URL, testFetchClient())
	balance, err := a.NativeBalance(context.Background(), btcWallet)
	if err != nil {
		t.Fatalf("NativeBalance() error = %v", err)
	}
	if balance != "123456" {
		t.Errorf("balance = %s, want 123456 satoshis", balance)
	}
}

func TestBitcoinValidateAddress(t *testing.T) {
	a := NewBitcoinAdapter("http://example.test", testFetchClient())
	valid := []string{
		"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
		"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy",
		"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq",
	}
	for _, addr := range valid {
		if !a.ValidateAddress(addr) {
			t.Errorf("ValidateAddress(%s) = false, want true", addr)
		}
	}
	invalid := []string{"", "0x1111111111111111111111111111111111111111", "bc2qxxxx", "1short"}
	for _, addr := range invalid {
		if a.ValidateAddress(addr) {
			t.Errorf("ValidateAddress(%s) = true, want false", addr)
		}
	}
}
