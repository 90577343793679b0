package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EtherLoda/minifc/internal/domain"
)

// LedgerRepository holds per-team balances and the append-only transaction
// log. Balances live on the teams table; debits are guarded so a balance can
// never go negative.
type LedgerRepository struct {
	db
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db{pool: pool}}
}

func (r *LedgerRepository) GetBalance(ctx context.Context, teamID string) (int64, error) {
	const query = `SELECT balance FROM teams WHERE id = $1`

	var balance int64
	if err := r.queryRow(ctx, query, teamID).Scan(&balance); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return 0, domain.ErrTeamNotFound
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (r *LedgerRepository) Debit(ctx context.Context, teamID string, amount int64) error {
	const stmt = `UPDATE teams SET balance = balance - $2 WHERE id = $1 AND balance >= $2`

	tag, err := r.exec(ctx, stmt, teamID, amount)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("debit team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetBalance(ctx, teamID); err != nil {
			return err
		}
		return domain.ErrInsufficientFunds
	}
	return nil
}

func (r *LedgerRepository) Credit(ctx context.Context, teamID string, amount int64) error {
	const stmt = `UPDATE teams SET balance = balance + $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, teamID, amount)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("credit team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

func (r *LedgerRepository) RecordTransaction(ctx context.Context, tx domain.LedgerTransaction) error {
	const stmt = `
INSERT INTO ledger_transactions (id, team_id, amount, kind, season, auction_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt, tx.ID, tx.TeamID, tx.Amount, string(tx.Kind), tx.Season, tx.AuctionID, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("record ledger transaction: %w", err)
	}
	return nil
}
