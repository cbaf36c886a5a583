package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/config"
	"github.com/statement-engine/internal/fetch"
	"github.com/statement-engine/internal/types"
	"github.com/statement-engine/internal/whitelist"
)

const (
	testWallet      = "0x1111111111111111111111111111111111111111"
	otherWallet     = "0x2222222222222222222222222222222222222222"
	usdtMainnet     = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	unknownContract = "0x000000000000000000000000000000000000dead"
)

func testFetchClient() *fetch.Client {
	return fetch.NewClient(config.FetchConfig{
		MaxCallsPerSecond: 0,
		MaxRetries:        0,
		Timeout:           5 * time.Second,
	})
}

// etherscanStub routes requests by the action query parameter.
func etherscanStub(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := r.URL.Query().Get("action")
		body, ok := responses[action]
		if !ok {
			body = `{"status":"0","message":"No transactions found","result":[]}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func newTestEVMAdapter(t *testing.T, baseURL string) *EVMAdapter {
	t.Helper()
	a, err := NewEVMAdapter(types.ChainEthereum, baseURL, "test-key", testFetchClient(), whitelist.Builtin())
	if err != nil {
		t.Fatalf("NewEVMAdapter() error = %v", err)
	}
	return a
}

func TestEVMFetchNormalTransfer(t *testing.T) {
	normal := fmt.Sprintf(`{"status":"1","message":"OK","result":[{
		"hash":"0xabc","timeStamp":"1700000100","from":"%s","to":"%s",
		"value":"1000000000000000000","isError":"0","gasUsed":"21000",
		"gasPrice":"20000000000","blockNumber":"1000","confirmations":"12"
	}]}`, otherWallet, testWallet)

	server := etherscanStub(t, map[string]string{"txlist": normal})
	defer server.Close()

	a := newTestEVMAdapter(t, server.URL)
	result, err := a.FetchTransactions(context.Background(), testWallet, Window{Start: 1700000000, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}

	if len(result.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(result.Transactions))
	}
	tx := result.Transactions[0]
	if tx.Type != types.TypeNativeTransfer {
		t.Errorf("Type = %v, want NativeTransfer", tx.Type)
	}
	if tx.Direction != types.DirectionIn {
		t.Errorf("Direction = %v, want in", tx.Direction)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Amount = %s, want 1", tx.Amount)
	}
	if tx.Asset != nil {
		t.Errorf("Asset = %v, want nil for native transfer", *tx.Asset)
	}
	if tx.Status != types.StatusSuccess {
		t.Errorf("Status = %v, want Success", tx.Status)
	}
	if tx.GasPrice == nil || !tx.GasPrice.Equal(decimal.NewFromInt(20)) {
		t.Errorf("GasPrice = %v, want 20 gwei", tx.GasPrice)
	}
}

func TestEVMDirectionCaseInsensitive(t *testing.T) {
	// Recipient reported in checksummed mixed case
	normal := fmt.Sprintf(`{"status":"1","message":"OK","result":[{
		"hash":"0xabc","timeStamp":"1700000100","from":"%s",
		"to":"0x1111111111111111111111111111111111111111",
		"value":"0","isError":"0","gasUsed":"21000","gasPrice":"1000000000",
		"blockNumber":"1000","confirmations":"1"
	}]}`, otherWallet)

	server := etherscanStub(t, map[string]string{"txlist": normal})
	defer server.Close()

	a := newTestEVMAdapter(t, server.URL)
	result, err := a.FetchTransactions(context.Background(), "0x1111111111111111111111111111111111111111", Window{Start: 1700000000, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}
	if len(result.Transactions) != 1 || result.Transactions[0].Direction != types.DirectionIn {
		t.Error("expected case-insensitive recipient match to yield direction in")
	}
}

func TestEVMTokenWhitelistFiltering(t *testing.T) {
	token := fmt.Sprintf(`{"status":"1","message":"OK","result":[
		{"hash":"0xt1","timeStamp":"1700000100","from":"%s","to":"%s",
		 "value":"5000000","contractAddress":"%s","tokenSymbol":"USDT",
		 "tokenName":"Tether USD","tokenDecimal":"6","gasUsed":"50000",
		 "gasPrice":"20000000000","blockNumber":"1001","confirmations":"10"},
		{"hash":"0xt2","timeStamp":"1700000200","from":"%s","to":"%s",
		 "value":"999999","contractAddress":"%s","tokenSymbol":"SCAM",
		 "tokenName":"Spam Token","tokenDecimal":"18","gasUsed":"50000",
		 "gasPrice":"20000000000","blockNumber":"1002","confirmations":"9"}
	]}`, otherWallet, testWallet, usdtMainnet, otherWallet, testWallet, unknownContract)

	server := etherscanStub(t, map[string]string{"tokentx": token})
	defer server.Close()

	a := newTestEVMAdapter(t, server.URL)
	result, err := a.FetchTransactions(context.Background(), testWallet, Window{Start: 1700000000, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}

	if len(result.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1 (spam filtered)", len(result.Transactions))
	}
	tx := result.Transactions[0]
	if tx.Asset == nil || *tx.Asset != "USDT" {
		t.Errorf("Asset = %v, want USDT", tx.Asset)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Amount = %s, want 5", tx.Amount)
	}

	found := false
	for _, skip := range result.Skipped {
		if skip.Reason == SkipNotWhitelisted && skip.Hash == "0xt2" {
			found = true
		}
	}
	if !found {
		t.Error("expected a not_whitelisted skip for the spam token")
	}
}

func TestEVMWindowFiltering(t *testing.T) {
	normal := fmt.Sprintf(`{"status":"1","message":"OK","result":[
		{"hash":"0xin","timeStamp":"1700000500","from":"%s","to":"%s",
		 "value":"1","isError":"0","gasUsed":"21000","gasPrice":"1",
		 "blockNumber":"1","confirmations":"1"},
		{"hash":"0xearly","timeStamp":"1699999999","from":"%s","to":"%s",
		 "value":"1","isError":"0","gasUsed":"21000","gasPrice":"1",
		 "blockNumber":"1","confirmations":"1"},
		{"hash":"0xlate","timeStamp":"1700001001","from":"%s","to":"%s",
		 "value":"1","isError":"0","gasUsed":"21000","gasPrice":"1",
		 "blockNumber":"1","confirmations":"1"}
	]}`, otherWallet, testWallet, otherWallet, testWallet, otherWallet, testWallet)

	server := etherscanStub(t, map[string]string{"txlist": normal})
	defer server.Close()

	a := newTestEVMAdapter(t, server.URL)
	result, err := a.FetchTransactions(context.Background(), testWallet, Window{Start: 1700000000, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}
	if len(result.Transactions) != 1 || result.Transactions[0].Hash != "0xin" {
		t.Errorf("window filtering kept %d transactions, want only 0xin", len(result.Transactions))
	}
}

func TestEVMFailedTransactionStatus(t *testing.T) {
	normal := fmt.Sprintf(`{"status":"1","message":"OK","result":[{
		"hash":"0xfail","timeStamp":"1700000100","from":"%s","to":"%s",
		"value":"1000","isError":"1","gasUsed":"21000","gasPrice":"1",
		"blockNumber":"1","confirmations":"1"
	}]}`, testWallet, otherWallet)

	server := etherscanStub(t, map[string]string{"txlist": normal})
	defer server.Close()

	a := newTestEVMAdapter(t, server.URL)
	result, err := a.FetchTransactions(context.Background(), testWallet, Window{Start: 1700000000, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}
	if len(result.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(result.Transactions))
	}
	if result.Transactions[0].Status != types.StatusFailed {
		t.Errorf("Status = %v, want Failed", result.Transactions[0].Status)
	}
	if result.Transactions[0].Direction != types.DirectionOut {
		t.Errorf("Direction = %v, want out", result.Transactions[0].Direction)
	}
}

func TestEVMEmptyFeedIsNotAnError(t *testing.T) {
	server := etherscanStub(t, nil) // every feed returns the no-transactions envelope
	defer server.Close()

	a := newTestEVMAdapter(t, server.URL)
	result, err := a.FetchTransactions(context.Background(), testWallet, Window{Start: 0, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}
	if len(result.FeedErrors) != 0 {
		t.Errorf("FeedErrors = %v, want none for empty feeds", result.FeedErrors)
	}
	if len(result.Transactions) != 0 {
		t.Errorf("got %d transactions, want 0", len(result.Transactions))
	}
}

func TestEVMAllFeedsFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	a := newTestEVMAdapter(t, server.URL)
	result, err := a.FetchTransactions(context.Background(), testWallet, Window{Start: 0, End: 1700001000})
	if err != nil {
		t.Fatalf("FetchTransactions() error = %v", err)
	}
	if !result.AllFeedsFailed() {
		t.Errorf("AllFeedsFailed() = false with %d/%d feed errors", len(result.FeedErrors), result.FeedsAttempted)
	}
}

func TestEVMInvalidAddressRejected(t *testing.T) {
	a := newTestEVMAdapter(t, "http://invalid.test")
	_, err := a.FetchTransactions(context.Background(), "not-an-address", Window{})
	if err == nil {
		t.Fatal("expected validation error for malformed address")
	}
}

func TestEVMNativeBalance(t *testing.T) {
	server := etherscanStub(t, map[string]string{
		"balance": `{"status":"1","message":"OK","result":"123456789000000000"}`,
	})
	defer server.Close()

	a := newTestEVMAdapter(t, server.URL)
	balance, err := a.NativeBalance(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("NativeBalance() error = %v", err)
	}
	if balance != "123456789000000000" {
		t.Errorf("balance = %s, want raw wei string", balance)
	}
}

func TestEVMTokenBalancesKeepsNonzero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contract := r.URL.Query().Get("contractaddress")
		body := `{"status":"1","message":"OK","result":"0"}`
		if contract == usdtMainnet {
			body = `{"status":"1","message":"OK","result":"2500000"}`
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	a := newTestEVMAdapter(t, server.URL)
	balances, err := a.TokenBalances(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("TokenBalances() error = %v", err)
	}
	if len(balances) != 1 {
		t.Fatalf("got %d balances, want 1", len(balances))
	}
	usdt, ok := balances["USDT"]
	if !ok {
		t.Fatal("expected USDT balance")
	}
	want, _ := decimal.NewFromString("2.5")
	if !usdt.Balance.Equal(want) {
		t.Errorf("Balance = %s, want 2.5", usdt.Balance)
	}
}

func TestRegistryDispatch(t *testing.T) {
	a := newTestEVMAdapter(t, "http://example.test")
	registry := NewRegistry(a)

	got, err := registry.Get(types.ChainEthereum)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Chain() != types.ChainEthereum {
		t.Errorf("Chain() = %v, want ethereum", got.Chain())
	}

	if _, err := registry.Get(types.Chain("dogecoin")); err == nil {
		t.Error("expected ErrUnsupportedChain for unregistered chain")
	}
}
