package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/statement-engine/internal/storage"
	"github.com/statement-engine/internal/types"
)

// WalletFinder resolves wallet addresses to ledger wallet ids
type WalletFinder interface {
	FindWalletID(ctx context.Context, address string) (uuid.UUID, error)
}

// HistoryReader reads signed-delta rows from the historical ledger
type HistoryReader interface {
	DeltasBefore(ctx context.Context, walletID uuid.UUID, cutoff time.Time, network string) ([]types.LedgerRow, error)
	DeltasThrough(ctx context.Context, walletID uuid.UUID, end *time.Time, network string) ([]types.LedgerRow, error)
	RowsInRange(ctx context.Context, walletID uuid.UUID, start, end time.Time, network string) ([]types.LedgerRow, error)
}

// ReplayService computes point-in-time balances by folding signed
// transaction deltas from the historical ledger. It never touches
// upstream explorers, so results are exact and reproducible for any
// wallet already ingested. Unknown wallets get an empty snapshot.
type ReplayService struct {
	wallets WalletFinder
	history HistoryReader
}

// NewReplayService creates a new replay service
func NewReplayService(wallets WalletFinder, history HistoryReader) *ReplayService {
	return &ReplayService{wallets: wallets, history: history}
}

// CalculateOpeningBalance folds all ledger rows strictly before the
// end of the given date (23:59:59 UTC) into a per-asset balance map.
func (s *ReplayService) CalculateOpeningBalance(ctx context.Context, address, date, network string) (*types.BalanceSnapshot, error) {
	day, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return nil, &types.ServiceError{
			Code:    "INVALID_DATE",
			Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date),
		}
	}
	cutoff := day.Add(23*time.Hour + 59*time.Minute + 59*time.Second)

	walletID, err := s.wallets.FindWalletID(ctx, address)
	if errors.Is(err, storage.ErrWalletNotFound) {
		return types.EmptySnapshot(date), nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.history.DeltasBefore(ctx, walletID, cutoff, network)
	if err != nil {
		return nil, err
	}

	balances, counted := foldDeltas(rows)
	return &types.BalanceSnapshot{
		Date:                date,
		Balances:            balances,
		TransactionsCounted: counted,
	}, nil
}

// GetCurrentBalance folds all ledger rows up to and including the end
// of endDate (23:59:59 UTC). An empty endDate means the whole ledger.
func (s *ReplayService) GetCurrentBalance(ctx context.Context, address, endDate, network string) (*types.BalanceSnapshot, error) {
	var end *time.Time
	label := "now"
	if endDate != "" {
		day, err := time.ParseInLocation(dateLayout, endDate, time.UTC)
		if err != nil {
			return nil, &types.ServiceError{
				Code:    "INVALID_DATE",
				Message: fmt.Sprintf("invalid end_date %q, expected YYYY-MM-DD", endDate),
			}
		}
		t := day.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		end = &t
		label = endDate
	}

	walletID, err := s.wallets.FindWalletID(ctx, address)
	if errors.Is(err, storage.ErrWalletNotFound) {
		return types.EmptySnapshot(label), nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.history.DeltasThrough(ctx, walletID, end, network)
	if err != nil {
		return nil, err
	}

	balances, counted := foldDeltas(rows)
	return &types.BalanceSnapshot{
		Date:                label,
		Balances:            balances,
		TransactionsCounted: counted,
	}, nil
}

// GetTransactionsInPeriod returns the ledger rows inside the inclusive
// date window, newest first. No balance math, only windowing.
func (s *ReplayService) GetTransactionsInPeriod(ctx context.Context, address, startDate, endDate, network string) ([]types.LedgerRow, error) {
	start, err := time.ParseInLocation(dateLayout, startDate, time.UTC)
	if err != nil {
		return nil, &types.ServiceError{
			Code:    "INVALID_DATE",
			Message: fmt.Sprintf("invalid start_date %q, expected YYYY-MM-DD", startDate),
		}
	}
	endDay, err := time.ParseInLocation(dateLayout, endDate, time.UTC)
	if err != nil {
		return nil, &types.ServiceError{
			Code:    "INVALID_DATE",
			Message: fmt.Sprintf("invalid end_date %q, expected YYYY-MM-DD", endDate),
		}
	}
	end := endDay.Add(23*time.Hour + 59*time.Minute + 59*time.Second)

	walletID, err := s.wallets.FindWalletID(ctx, address)
	if errors.Is(err, storage.ErrWalletNotFound) {
		return []types.LedgerRow{}, nil
	}
	if err != nil {
		return nil, err
	}

	return s.history.RowsInRange(ctx, walletID, start, end, network)
}

// foldDeltas applies signed deltas in order: incoming adds, anything
// else subtracts. The ledger only distinguishes inflows; every other
// label is an outflow.
func foldDeltas(rows []types.LedgerRow) (map[string]decimal.Decimal, int) {
	balances := map[string]decimal.Decimal{}
	for _, row := range rows {
		if row.Direction == types.DirectionIncoming {
			balances[row.Asset] = balances[row.Asset].Add(row.Value)
		} else {
			balances[row.Asset] = balances[row.Asset].Sub(row.Value)
		}
	}
	return balances, len(rows)
}
