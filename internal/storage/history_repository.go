package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/statement-engine/internal/types"
)

// HistoryRepository reads and writes the transaction_history ledger in
// ClickHouse. Replay queries only return rows with a usable asset and
// value; rows missing either cannot move a balance.
type HistoryRepository struct {
	db *ClickHouseDB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *ClickHouseDB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const historyColumns = `hash, timestamp, asset, value, direction, network, from_address, to_address, usd_value, category`

// DeltasBefore returns ledger rows strictly before the cutoff,
// timestamp-ascending. Used to fold an opening balance.
func (r *HistoryRepository) DeltasBefore(ctx context.Context, walletID uuid.UUID, cutoff time.Time, network string) ([]types.LedgerRow, error) {
	query := `SELECT ` + historyColumns + `
		FROM transaction_history
		WHERE wallet_id = ?
		  AND timestamp < ?
		  AND asset IS NOT NULL
		  AND value IS NOT NULL`
	args := []interface{}{walletID, cutoff}
	if network != "" {
		query += ` AND network = ?`
		args = append(args, network)
	}
	query += ` ORDER BY timestamp ASC`

	return r.queryRows(ctx, query, args...)
}

// DeltasThrough returns ledger rows up to and including the end time,
// timestamp-ascending. A nil end means the whole ledger.
func (r *HistoryRepository) DeltasThrough(ctx context.Context, walletID uuid.UUID, end *time.Time, network string) ([]types.LedgerRow, error) {
	query := `SELECT ` + historyColumns + `
		FROM transaction_history
		WHERE wallet_id = ?
		  AND asset IS NOT NULL
		  AND value IS NOT NULL`
	args := []interface{}{walletID}
	if end != nil {
		query += ` AND timestamp <= ?`
		args = append(args, *end)
	}
	if network != "" {
		query += ` AND network = ?`
		args = append(args, network)
	}
	query += ` ORDER BY timestamp ASC`

	return r.queryRows(ctx, query, args...)
}

// RowsInRange returns ledger rows inside the inclusive window,
// newest first. No balance math is applied.
func (r *HistoryRepository) RowsInRange(ctx context.Context, walletID uuid.UUID, start, end time.Time, network string) ([]types.LedgerRow, error) {
	query := `SELECT ` + historyColumns + `
		FROM transaction_history
		WHERE wallet_id = ?
		  AND timestamp >= ?
		  AND timestamp <= ?
		  AND asset IS NOT NULL
		  AND value IS NOT NULL`
	args := []interface{}{walletID, start, end}
	if network != "" {
		query += ` AND network = ?`
		args = append(args, network)
	}
	query += ` ORDER BY timestamp DESC`

	return r.queryRows(ctx, query, args...)
}

// InsertRows batch-inserts ledger rows for a wallet
func (r *HistoryRepository) InsertRows(ctx context.Context, walletID uuid.UUID, rows []types.LedgerRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `INSERT INTO transaction_history
		(wallet_id, hash, timestamp, asset, value, direction, network, from_address, to_address, usd_value, category)`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, row := range rows {
		if err := batch.Append(
			walletID,
			row.Hash,
			row.Timestamp,
			&row.Asset,
			&row.Value,
			row.Direction,
			row.Network,
			row.From,
			row.To,
			row.USDValue,
			row.Category,
		); err != nil {
			return fmt.Errorf("failed to append row %s: %w", row.Hash, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (r *HistoryRepository) queryRows(ctx context.Context, query string, args ...interface{}) ([]types.LedgerRow, error) {
	rows, err := r.db.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction_history: %w", err)
	}
	defer rows.Close()

	var result []types.LedgerRow
	for rows.Next() {
		var (
			row   types.LedgerRow
			asset *string
			value *decimal.Decimal
		)
		if err := rows.Scan(
			&row.Hash,
			&row.Timestamp,
			&asset,
			&value,
			&row.Direction,
			&row.Network,
			&row.From,
			&row.To,
			&row.USDValue,
			&row.Category,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if asset == nil || value == nil {
			continue
		}
		row.Asset = *asset
		row.Value = *value
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return result, nil
}
