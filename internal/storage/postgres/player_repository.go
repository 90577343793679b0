package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EtherLoda/minifc/internal/domain"
)

// PlayerRepository exposes ownership and history logging for players.
// Ownership is mutated only by settlement, never by bidding.
type PlayerRepository struct {
	db
}

func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db{pool: pool}}
}

func (r *PlayerRepository) GetOwner(ctx context.Context, playerID string) (string, error) {
	const query = `SELECT team_id FROM players WHERE id = $1`

	var teamID string
	if err := r.queryRow(ctx, query, playerID).Scan(&teamID); err != nil {
		if isInvalidUUID(err) {
			return "", domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return "", domain.ErrPlayerNotFound
		}
		return "", fmt.Errorf("get player owner: %w", err)
	}
	return teamID, nil
}

func (r *PlayerRepository) Reassign(ctx context.Context, playerID, teamID string) error {
	const stmt = `UPDATE players SET team_id = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, playerID, teamID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("reassign player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

func (r *PlayerRepository) AppendHistory(ctx context.Context, event domain.PlayerEvent) error {
	const stmt = `
INSERT INTO player_history (id, player_id, event_type, from_team_id, to_team_id, price, auction_id, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		event.ID,
		event.PlayerID,
		string(event.Type),
		event.FromTeamID,
		event.ToTeamID,
		event.Price,
		event.AuctionID,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append player history: %w", err)
	}
	return nil
}

func (r *PlayerRepository) RecordTransfer(ctx context.Context, transfer domain.Transfer) error {
	const stmt = `
INSERT INTO transfers (id, player_id, from_team_id, to_team_id, price, auction_id, season, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		transfer.ID,
		transfer.PlayerID,
		transfer.FromTeamID,
		transfer.ToTeamID,
		transfer.Price,
		transfer.AuctionID,
		transfer.Season,
		transfer.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("record transfer: %w", err)
	}
	return nil
}
