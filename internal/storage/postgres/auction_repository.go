package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EtherLoda/minifc/internal/domain"
)

type AuctionRepository struct {
	db
}

func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{db{pool: pool}}
}

func (r *AuctionRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.withTx(ctx, fn)
}

const auctionColumns = `id, player_id, seller_team_id, start_price, buyout_price, current_price, current_bidder_id, status, started_at, expires_at, ends_at`

func scanAuction(row pgx.Row) (domain.Auction, error) {
	var (
		a      domain.Auction
		status string
	)
	err := row.Scan(
		&a.ID,
		&a.PlayerID,
		&a.SellerTeamID,
		&a.StartPrice,
		&a.BuyoutPrice,
		&a.CurrentPrice,
		&a.CurrentBidderID,
		&status,
		&a.StartedAt,
		&a.ExpiresAt,
		&a.EndsAt,
	)
	if err != nil {
		return domain.Auction{}, err
	}
	a.Status = domain.AuctionStatus(status)
	return a, nil
}

func (r *AuctionRepository) Get(ctx context.Context, auctionID string) (domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	return r.getByQuery(ctx, query, auctionID)
}

// GetForUpdate locks the auction row for the rest of the transaction. Every
// mutating path must go through this before reading any field.
func (r *AuctionRepository) GetForUpdate(ctx context.Context, auctionID string) (domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`
	return r.getByQuery(ctx, query, auctionID)
}

func (r *AuctionRepository) getByQuery(ctx context.Context, query, auctionID string) (domain.Auction, error) {
	a, err := scanAuction(r.queryRow(ctx, query, auctionID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Auction{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Auction{}, domain.ErrAuctionNotFound
		}
		return domain.Auction{}, fmt.Errorf("get auction: %w", err)
	}
	return a, nil
}

func (r *AuctionRepository) FindActiveByPlayer(ctx context.Context, playerID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE player_id = $1 AND status = 'active'`

	a, err := scanAuction(r.queryRow(ctx, query, playerID))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active auction by player: %w", err)
	}
	return &a, nil
}

func (r *AuctionRepository) Create(ctx context.Context, auction domain.Auction) error {
	const stmt = `
INSERT INTO auctions (id, player_id, seller_team_id, start_price, buyout_price, current_price, current_bidder_id, status, started_at, expires_at, ends_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.exec(ctx, stmt,
		auction.ID,
		auction.PlayerID,
		auction.SellerTeamID,
		auction.StartPrice,
		auction.BuyoutPrice,
		auction.CurrentPrice,
		auction.CurrentBidderID,
		string(auction.Status),
		auction.StartedAt,
		auction.ExpiresAt,
		auction.EndsAt,
	)
	if err != nil {
		// The partial unique index on (player_id) WHERE status = 'active'
		// backs the one-active-auction-per-player invariant.
		if isUniqueViolation(err) {
			return domain.ErrPlayerAlreadyListed
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create auction: %w", err)
	}
	return nil
}

func (r *AuctionRepository) Save(ctx context.Context, auction domain.Auction) error {
	const stmt = `
UPDATE auctions
SET current_price = $2, current_bidder_id = $3, status = $4, expires_at = $5, ends_at = $6
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		auction.ID,
		auction.CurrentPrice,
		auction.CurrentBidderID,
		string(auction.Status),
		auction.ExpiresAt,
		auction.EndsAt,
	)
	if err != nil {
		return fmt.Errorf("save auction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuctionNotFound
	}
	return nil
}

func (r *AuctionRepository) AppendBid(ctx context.Context, bid domain.Bid) error {
	const stmt = `
INSERT INTO bids (id, auction_id, team_id, amount, placed_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, bid.ID, bid.AuctionID, bid.TeamID, bid.Amount, bid.PlacedAt)
	if err != nil {
		return fmt.Errorf("append bid: %w", err)
	}
	return nil
}

func (r *AuctionRepository) ListBids(ctx context.Context, auctionID string) ([]domain.Bid, error) {
	const query = `
SELECT id, auction_id, team_id, amount, placed_at
FROM bids
WHERE auction_id = $1
ORDER BY seq`

	rows, err := r.query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.TeamID, &b.Amount, &b.PlacedAt); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return bids, nil
}

func (r *AuctionRepository) ListActive(ctx context.Context) ([]domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = 'active' ORDER BY expires_at ASC`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active auctions: %w", err)
	}
	defer rows.Close()

	var auctions []domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active auctions: %w", err)
	}
	return auctions, nil
}

func (r *AuctionRepository) ListExpiredIDs(ctx context.Context, now time.Time) ([]string, error) {
	const query = `SELECT id FROM auctions WHERE status = 'active' AND expires_at <= $1 ORDER BY expires_at`

	rows, err := r.query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan auction id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	return ids, nil
}
