package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/statement-engine/internal/adapter"
	"github.com/statement-engine/internal/logging"
	"github.com/statement-engine/internal/pricing"
	"github.com/statement-engine/internal/types"
	"github.com/statement-engine/internal/units"
)

const dateLayout = "2006-01-02"

// StatementService serves live wallet statements: balances and
// transactions fetched from explorer APIs at request time.
type StatementService struct {
	registry *adapter.Registry
	oracle   *pricing.Oracle
	fx       *pricing.FxSource
	replay   *ReplayService // nil when the ledger is disabled
}

// NewStatementService creates a new statement service. replay may be
// nil; statements then omit the opening balance section.
func NewStatementService(registry *adapter.Registry, oracle *pricing.Oracle, fx *pricing.FxSource, replay *ReplayService) *StatementService {
	return &StatementService{
		registry: registry,
		oracle:   oracle,
		fx:       fx,
		replay:   replay,
	}
}

// StatementData is the live query result. Balance is the native
// balance in raw smallest units; BalanceDisplay is the same value in
// display units. Partial upstream failures leave Success true with
// FeedErrors populated; only all feeds failing flips Success to false.
type StatementData struct {
	Success        bool                          `json:"success"`
	Chain          types.Chain                   `json:"chain"`
	Address        string                        `json:"address"`
	StartDate      string                        `json:"start_date"`
	EndDate        string                        `json:"end_date"`
	Balance        string                        `json:"balance"`
	BalanceDisplay decimal.Decimal               `json:"balance_display"`
	NativeSymbol   string                        `json:"native_symbol"`
	TokenBalances  map[string]types.TokenBalance `json:"token_balances"`
	Transactions   []types.Transaction           `json:"transactions"`
	Count          int                           `json:"count"`
	Skipped        []adapter.SkippedRecord       `json:"skipped,omitempty"`
	FeedErrors     []adapter.FeedError           `json:"feed_errors,omitempty"`
	Error          string                        `json:"error,omitempty"`
}

// ParseWindow converts calendar dates to an inclusive Unix-second
// window: start at 00:00:00 UTC, end at 23:59:59 UTC.
func ParseWindow(startDate, endDate string) (adapter.Window, error) {
	start, err := time.ParseInLocation(dateLayout, startDate, time.UTC)
	if err != nil {
		return adapter.Window{}, &types.ServiceError{
			Code:    "INVALID_DATE",
			Message: fmt.Sprintf("invalid start_date %q, expected YYYY-MM-DD", startDate),
		}
	}
	end, err := time.ParseInLocation(dateLayout, endDate, time.UTC)
	if err != nil {
		return adapter.Window{}, &types.ServiceError{
			Code:    "INVALID_DATE",
			Message: fmt.Sprintf("invalid end_date %q, expected YYYY-MM-DD", endDate),
		}
	}
	if end.Before(start) {
		return adapter.Window{}, &types.ServiceError{
			Code:    "INVALID_DATE",
			Message: "end_date is before start_date",
		}
	}
	return adapter.Window{
		Start: start.Unix(),
		End:   end.Add(23*time.Hour + 59*time.Minute + 59*time.Second).Unix(),
	}, nil
}

// GetTransactionsAndBalance runs the live strategy for one wallet:
// native balance, window-filtered transactions from every feed, and
// per-token balances for whitelisted holdings.
func (s *StatementService) GetTransactionsAndBalance(ctx context.Context, chain types.Chain, address, startDate, endDate string) (*StatementData, error) {
	a, err := s.registry.Get(chain)
	if err != nil {
		return nil, err
	}
	if !a.ValidateAddress(address) {
		return nil, fmt.Errorf("%w: %s on %s", adapter.ErrInvalidAddress, address, chain)
	}

	window, err := ParseWindow(startDate, endDate)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"chain":   string(chain),
		"address": address,
	})

	data := &StatementData{
		Success:       true,
		Chain:         chain,
		Address:       address,
		StartDate:     startDate,
		EndDate:       endDate,
		Balance:       "0",
		NativeSymbol:  a.NativeSymbol(),
		TokenBalances: map[string]types.TokenBalance{},
	}

	balance, err := a.NativeBalance(ctx, address)
	if err != nil {
		log.WithError(err).Warn("Native balance fetch failed")
	} else {
		data.Balance = balance
	}
	display, err := units.FromSmallestString(data.Balance, a.NativeDecimals())
	if err != nil {
		log.WithError(err).WithField("balance", data.Balance).Warn("Unparseable native balance")
		data.Balance = "0"
		display = decimal.Zero
	}
	data.BalanceDisplay = display

	result, err := a.FetchTransactions(ctx, address, window)
	if err != nil {
		return nil, err
	}

	txs := result.Transactions
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp > txs[j].Timestamp
	})
	data.Transactions = txs
	data.Count = len(txs)
	data.Skipped = result.Skipped
	data.FeedErrors = result.FeedErrors

	if result.AllFeedsFailed() {
		data.Success = false
		data.Error = adapter.ErrAllFeedsFailed.Error()
		log.WithField("feeds", result.FeedsAttempted).Error("All transaction feeds failed")
	}

	tokens, err := a.TokenBalances(ctx, address)
	if err != nil {
		log.WithError(err).Warn("Token balance scan failed")
	} else {
		data.TokenBalances = tokens
	}

	return data, nil
}

// Statement is the renderer input: everything a JSON/PDF/CSV statement
// needs in one payload. Rendering itself happens downstream.
type Statement struct {
	Wallet          string                     `json:"wallet"`
	Chain           types.Chain                `json:"chain"`
	StartDate       string                     `json:"start_date"`
	EndDate         string                     `json:"end_date"`
	ClosingBalances map[string]decimal.Decimal `json:"closing_balances"`
	OpeningBalances map[string]decimal.Decimal `json:"opening_balances,omitempty"`
	OpeningSource   string                     `json:"opening_source,omitempty"`
	Transactions    []types.Transaction        `json:"transactions"`
	Statistics      *Statistics                `json:"statistics"`
	Prices          map[string]types.Quote     `json:"prices"`
	Valuation       *PortfolioValuation        `json:"valuation"`
	FxRate          decimal.Decimal            `json:"fx_rate"`
	Success         bool                       `json:"success"`
	Error           string                     `json:"error,omitempty"`
}

// GetStatement assembles the full statement payload: live data,
// statistics, batched prices, the FX rate, and, when the ledger is
// enabled, a replayed opening balance for the day before the window.
func (s *StatementService) GetStatement(ctx context.Context, chain types.Chain, address, startDate, endDate string) (*Statement, error) {
	data, err := s.GetTransactionsAndBalance(ctx, chain, address, startDate, endDate)
	if err != nil {
		return nil, err
	}

	stmt := &Statement{
		Wallet:       address,
		Chain:        chain,
		StartDate:    startDate,
		EndDate:      endDate,
		Transactions: data.Transactions,
		Statistics:   Summarize(data.Transactions),
		Success:      data.Success,
		Error:        data.Error,
	}

	closing := map[string]decimal.Decimal{data.NativeSymbol: data.BalanceDisplay}
	for symbol, tb := range data.TokenBalances {
		closing[symbol] = tb.Balance
	}
	stmt.ClosingBalances = closing

	symbols := make([]string, 0, len(closing))
	for symbol := range closing {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	stmt.Prices = s.oracle.GetPrices(ctx, symbols)
	stmt.Valuation = PriceHoldings(closing, stmt.Prices)
	stmt.FxRate = s.fx.USDToAED(ctx)

	if s.replay != nil {
		start, _ := time.ParseInLocation(dateLayout, startDate, time.UTC)
		openingDate := start.AddDate(0, 0, -1).Format(dateLayout)
		snapshot, err := s.replay.CalculateOpeningBalance(ctx, address, openingDate, string(chain))
		if err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Opening balance replay failed")
		} else if len(snapshot.Balances) > 0 {
			stmt.OpeningBalances = snapshot.Balances
			stmt.OpeningSource = "ledger-replay"
		}
	}

	return stmt, nil
}
