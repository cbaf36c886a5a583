package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrWalletNotFound is returned when an address has no ledger wallet.
// Callers treat this as "no data", not a fault.
var ErrWalletNotFound = errors.New("wallet not found")

// WalletRepository resolves wallet addresses to ledger wallet ids
type WalletRepository struct {
	db *PostgresDB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *PostgresDB) *WalletRepository {
	return &WalletRepository{db: db}
}

// FindWalletID returns the wallet id for an address. Matching is
// case-insensitive because EVM addresses arrive in mixed checksum forms.
func (r *WalletRepository) FindWalletID(ctx context.Context, address string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.Pool().QueryRow(ctx,
		`SELECT id FROM wallets WHERE LOWER(address) = LOWER($1)`,
		strings.TrimSpace(address),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrWalletNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to find wallet: %w", err)
	}
	return id, nil
}

// CreateWallet registers an address and returns its id. Re-registering
// an existing address returns the existing id.
func (r *WalletRepository) CreateWallet(ctx context.Context, address string) (uuid.UUID, error) {
	id, err := r.FindWalletID(ctx, address)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return uuid.Nil, err
	}

	id = uuid.New()
	_, err = r.db.Pool().Exec(ctx,
		`INSERT INTO wallets (id, address) VALUES ($1, $2)`,
		id, strings.ToLower(strings.TrimSpace(address)),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return id, nil
}
