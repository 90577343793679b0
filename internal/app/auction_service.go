package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/EtherLoda/minifc/internal/clock"
	"github.com/EtherLoda/minifc/internal/domain"
)

// AuctionRepository is the durable store of auction aggregates. GetForUpdate
// must take a row lock so that every read-modify-write on one auction is
// serialized; unrelated auctions proceed in parallel.
type AuctionRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetForUpdate(ctx context.Context, auctionID string) (domain.Auction, error)
	Get(ctx context.Context, auctionID string) (domain.Auction, error)
	FindActiveByPlayer(ctx context.Context, playerID string) (*domain.Auction, error)
	Create(ctx context.Context, auction domain.Auction) error
	Save(ctx context.Context, auction domain.Auction) error
	AppendBid(ctx context.Context, bid domain.Bid) error
	ListBids(ctx context.Context, auctionID string) ([]domain.Bid, error)
	ListActive(ctx context.Context) ([]domain.Auction, error)
	ListExpiredIDs(ctx context.Context, now time.Time) ([]string, error)
}

// FinanceLedger exposes per-team balances. Balances are mutated only during
// settlement, never speculatively while bidding.
type FinanceLedger interface {
	GetBalance(ctx context.Context, teamID string) (int64, error)
	Debit(ctx context.Context, teamID string, amount int64) error
	Credit(ctx context.Context, teamID string, amount int64) error
	RecordTransaction(ctx context.Context, tx domain.LedgerTransaction) error
}

// PlayerRegistry exposes player ownership and history logging.
type PlayerRegistry interface {
	GetOwner(ctx context.Context, playerID string) (string, error)
	Reassign(ctx context.Context, playerID, teamID string) error
	AppendHistory(ctx context.Context, event domain.PlayerEvent) error
	RecordTransfer(ctx context.Context, transfer domain.Transfer) error
}

// TeamDirectory resolves the calling user's team.
type TeamDirectory interface {
	FindByManager(ctx context.Context, managerID string) (domain.Team, error)
}

// EventNotifier receives market events after they have been committed.
type EventNotifier interface {
	BidAccepted(auction domain.Auction, bid domain.Bid)
	AuctionSettled(auction domain.Auction)
	AuctionExpired(auction domain.Auction)
}

type AuctionService struct {
	auctions   AuctionRepository
	ledger     FinanceLedger
	players    PlayerRegistry
	teams      TeamDirectory
	settlement *Settlement
	clock      clock.Clock
	notifier   EventNotifier

	maxDuration time.Duration
}

const defaultMaxDuration = 14 * 24 * time.Hour

func NewAuctionService(auctions AuctionRepository, ledger FinanceLedger, players PlayerRegistry, teams TeamDirectory, clk clock.Clock, opts ...AuctionServiceOption) *AuctionService {
	svc := &AuctionService{
		auctions:    auctions,
		ledger:      ledger,
		players:     players,
		teams:       teams,
		settlement:  NewSettlement(auctions, ledger, players, clk),
		clock:       clk,
		maxDuration: defaultMaxDuration,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type AuctionServiceOption func(*AuctionService)

// WithSeason tags settlement ledger rows and transfer records with a season.
func WithSeason(season int) AuctionServiceOption {
	return func(s *AuctionService) {
		s.settlement.season = season
	}
}

// WithNotifier publishes committed market events, e.g. to a websocket feed.
func WithNotifier(n EventNotifier) AuctionServiceOption {
	return func(s *AuctionService) {
		s.notifier = n
	}
}

// WithMaxDuration overrides the longest listing a seller may create.
func WithMaxDuration(d time.Duration) AuctionServiceOption {
	return func(s *AuctionService) {
		if d > 0 {
			s.maxDuration = d
		}
	}
}

type CreateAuctionInput struct {
	SellerUserID  string
	PlayerID      string
	StartPrice    int64
	BuyoutPrice   int64
	DurationHours int
}

func (s *AuctionService) CreateAuction(ctx context.Context, in CreateAuctionInput) (domain.Auction, error) {
	if err := domain.ValidatePriceRange(in.StartPrice, in.BuyoutPrice); err != nil {
		return domain.Auction{}, err
	}
	duration := time.Duration(in.DurationHours) * time.Hour
	if duration <= 0 || duration > s.maxDuration {
		return domain.Auction{}, domain.ErrInvalidDuration
	}

	team, err := s.teams.FindByManager(ctx, in.SellerUserID)
	if err != nil {
		return domain.Auction{}, err
	}

	now := s.clock.Now()
	var result domain.Auction

	err = s.auctions.WithTx(ctx, func(txCtx context.Context) error {
		owner, err := s.players.GetOwner(txCtx, in.PlayerID)
		if err != nil {
			return err
		}
		if owner != team.ID {
			return domain.ErrNotPlayerOwner
		}

		if existing, err := s.auctions.FindActiveByPlayer(txCtx, in.PlayerID); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrPlayerAlreadyListed
		}

		auction := domain.Auction{
			ID:           uuid.NewString(),
			PlayerID:     in.PlayerID,
			SellerTeamID: team.ID,
			StartPrice:   in.StartPrice,
			BuyoutPrice:  in.BuyoutPrice,
			CurrentPrice: in.StartPrice,
			Status:       domain.AuctionStatusActive,
			StartedAt:    now,
			ExpiresAt:    now.Add(duration),
		}

		if err := s.auctions.Create(txCtx, auction); err != nil {
			return err
		}
		result = auction
		return nil
	})
	if err != nil {
		return domain.Auction{}, err
	}
	return result, nil
}

type PlaceBidInput struct {
	BidderUserID string
	AuctionID    string
	Amount       int64
}

func (s *AuctionService) PlaceBid(ctx context.Context, in PlaceBidInput) (domain.Auction, error) {
	if in.Amount <= 0 {
		return domain.Auction{}, domain.ErrInvalidAmount
	}

	team, err := s.teams.FindByManager(ctx, in.BidderUserID)
	if err != nil {
		return domain.Auction{}, err
	}

	var (
		result  domain.Auction
		bid     domain.Bid
		settled bool
	)

	err = s.auctions.WithTx(ctx, func(txCtx context.Context) error {
		auction, err := s.openAuctionForUpdate(txCtx, in.AuctionID)
		if err != nil {
			return err
		}
		if auction.SellerTeamID == team.ID {
			return domain.ErrOwnAuctionBid
		}

		// A bid at or above the buyout price exercises the buyout and
		// settles at the buyout price, same as the explicit operation.
		if in.Amount >= auction.BuyoutPrice {
			if err := s.settlement.Settle(txCtx, &auction, team.ID, auction.BuyoutPrice); err != nil {
				return err
			}
			settled = true
			result = auction
			return nil
		}

		if min := auction.MinBid(); in.Amount < min {
			return domain.BidTooLowError{MinBid: min}
		}

		// Funds are not escrowed; the balance is re-checked at settlement.
		balance, err := s.ledger.GetBalance(txCtx, team.ID)
		if err != nil {
			return err
		}
		if balance < in.Amount {
			return domain.ErrInsufficientFunds
		}

		now := s.clock.Now()
		auction.CurrentPrice = in.Amount
		auction.CurrentBidderID = &team.ID
		auction.ExtendIfClosing(now)

		bid = domain.Bid{
			ID:        uuid.NewString(),
			AuctionID: auction.ID,
			TeamID:    team.ID,
			Amount:    in.Amount,
			PlacedAt:  now,
		}
		if err := s.auctions.AppendBid(txCtx, bid); err != nil {
			return err
		}
		if err := s.auctions.Save(txCtx, auction); err != nil {
			return err
		}
		result = auction
		return nil
	})
	if err != nil {
		return domain.Auction{}, err
	}

	if s.notifier != nil {
		if settled {
			s.notifier.AuctionSettled(result)
		} else {
			s.notifier.BidAccepted(result, bid)
		}
	}
	return result, nil
}

type BuyoutInput struct {
	BuyerUserID string
	AuctionID   string
}

func (s *AuctionService) Buyout(ctx context.Context, in BuyoutInput) (domain.Auction, error) {
	team, err := s.teams.FindByManager(ctx, in.BuyerUserID)
	if err != nil {
		return domain.Auction{}, err
	}

	var result domain.Auction
	err = s.auctions.WithTx(ctx, func(txCtx context.Context) error {
		auction, err := s.openAuctionForUpdate(txCtx, in.AuctionID)
		if err != nil {
			return err
		}
		if auction.SellerTeamID == team.ID {
			return domain.ErrOwnAuctionBid
		}
		if err := s.settlement.Settle(txCtx, &auction, team.ID, auction.BuyoutPrice); err != nil {
			return err
		}
		result = auction
		return nil
	})
	if err != nil {
		return domain.Auction{}, err
	}

	if s.notifier != nil {
		s.notifier.AuctionSettled(result)
	}
	return result, nil
}

// openAuctionForUpdate locks the auction row and verifies it is still
// biddable: active and before its deadline.
func (s *AuctionService) openAuctionForUpdate(ctx context.Context, auctionID string) (domain.Auction, error) {
	auction, err := s.auctions.GetForUpdate(ctx, auctionID)
	if err != nil {
		return domain.Auction{}, err
	}
	if auction.Status != domain.AuctionStatusActive {
		return domain.Auction{}, domain.ErrAuctionClosed
	}
	if s.clock.Now().After(auction.ExpiresAt) {
		return domain.Auction{}, domain.ErrAuctionExpired
	}
	return auction, nil
}

// GetAuction returns one auction with its bid history, newest last.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (domain.Auction, []domain.Bid, error) {
	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		return domain.Auction{}, nil, err
	}
	bids, err := s.auctions.ListBids(ctx, auctionID)
	if err != nil {
		return domain.Auction{}, nil, err
	}
	return auction, bids, nil
}

// ListActiveAuctions returns active auctions ordered by deadline, soonest
// first.
func (s *AuctionService) ListActiveAuctions(ctx context.Context) ([]domain.Auction, error) {
	return s.auctions.ListActive(ctx)
}
