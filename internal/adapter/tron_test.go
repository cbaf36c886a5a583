package adapter

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/statement-engine/internal/types"
	"github.com/statement-engine/internal/whitelist"
)

const (
	tronWallet  = "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8"
	tronOther   = "TN3W4H6rK2ce4vX9YnFQHwKENnHjoxb3m9"
	trc20USDT   = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	trc20Random = "TXYZabcdefghijklmnopqrstuvwx12345p"
)

func newTronTestAdapter() *TronAdapter {
	return NewTronAdapter("http://unused.test", "", testFetchClient(), whitelist.Builtin())
}

func TestTronNativeTransfer(t *testing.T) {
	a := newTronTestAdapter()

	contract := tronContract{Type: "TransferContract"}
	contract.Parameter.Value = tronTransferValue{
		Amount:       2500000,
		OwnerAddress: tronOther,
		ToAddress:    tronWallet,
	}
	tx := tronNativeTx{
		TxID:           "trx-1",
		BlockTimestamp: 1700000100000,
		Ret:            []tronRet{{ContractRet: "SUCCESS"}},
		RawData:        tronRawData{Contract: []tronContract{contract}},
	}

	out, skip := a.normalizeNativeTx(tx, tronWallet, Window{Start: 1700000000, End: 1700001000})
	if skip != nil {
		t.Fatalf("unexpected skip: %+v", skip)
	}
	if out.Direction != types.DirectionIn {
		t.Errorf("Direction = %v, want in", out.Direction)
	}
	// 2_500_000 SUN is 2.5 TRX
	want, _ := decimal.NewFromString("2.5")
	if !out.Amount.Equal(want) {
		t.Errorf("Amount = %s, want 2.5", out.Amount)
	}
	if out.Timestamp != 1700000100 {
		t.Errorf("Timestamp = %d, want seconds not milliseconds", out.Timestamp)
	}
}

func TestTronNonTransferContractSkipped(t *testing.T) {
	a := newTronTestAdapter()

	tx := tronNativeTx{
		TxID:           "trx-2",
		BlockTimestamp: 1700000100000,
		RawData:        tronRawData{Contract: []tronContract{{Type: "TriggerSmartContract"}}},
	}

	out, skip := a.normalizeNativeTx(tx, tronWallet, Window{Start: 1700000000, End: 1700001000})
	if out != nil {
		t.Fatal("expected smart contract call to be skipped")
	}
	if skip == nil || skip.Reason != SkipNotWhitelisted {
		t.Errorf("skip = %+v, want not_whitelisted", skip)
	}
}

func TestTronTRC20WhitelistFiltering(t *testing.T) {
	a := newTronTestAdapter()

	listed := tronTRC20Tx{
		TransactionID:  "trc20-1",
		BlockTimestamp: 1700000200000,
		From:           tronWallet,
		To:             tronOther,
		Value:          "7000000",
	}
	listed.TokenInfo.Address = trc20USDT
	listed.TokenInfo.Symbol = "USDT"
	listed.TokenInfo.Decimals = 6

	out, skip := a.normalizeTRC20Tx(listed, tronWallet, Window{Start: 1700000000, End: 1700001000})
	if skip != nil {
		t.Fatalf("unexpected skip: %+v", skip)
	}
	if out.Asset == nil || *out.Asset != "USDT" {
		t.Errorf("Asset = %v, want USDT", out.Asset)
	}
	if out.Direction != types.DirectionOut {
		t.Errorf("Direction = %v, want out", out.Direction)
	}
	want, _ := decimal.NewFromString("7")
	if !out.Amount.Equal(want) {
		t.Errorf("Amount = %s, want 7", out.Amount)
	}

	spam := listed
	spam.TransactionID = "trc20-2"
	spam.TokenInfo.Address = trc20Random
	spam.TokenInfo.Symbol = "SPAM"

	out, skip = a.normalizeTRC20Tx(spam, tronWallet, Window{Start: 1700000000, End: 1700001000})
	if out != nil {
		t.Fatal("expected unlisted TRC-20 to be skipped")
	}
	if skip == nil || skip.Reason != SkipNotWhitelisted {
		t.Errorf("skip = %+v, want not_whitelisted", skip)
	}
}

func TestTronValidateAddress(t *testing.T) {
	a := newTronTestAdapter()
	if !a.ValidateAddress(tronWallet) {
		t.Error("expected T-prefixed base58 address to validate")
	}
	if a.ValidateAddress("0x1111111111111111111111111111111111111111") {
		t.Error("hex address must not validate as Tron")
	}
	if a.ValidateAddress("Tshort") {
		t.Error("short string must not validate")
	}
}
