package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/EtherLoda/minifc/internal/clock"
	"github.com/EtherLoda/minifc/internal/domain"
)

// Settlement performs the atomic "sale completes" transition: money moves
// from buyer to seller, ownership moves from seller to buyer, and the
// auction closes as sold. It must be called inside the transaction that
// holds the auction row lock so the whole exchange commits or rolls back as
// one unit.
type Settlement struct {
	auctions AuctionRepository
	ledger   FinanceLedger
	players  PlayerRegistry
	clock    clock.Clock
	season   int
}

func NewSettlement(auctions AuctionRepository, ledger FinanceLedger, players PlayerRegistry, clk clock.Clock) *Settlement {
	return &Settlement{
		auctions: auctions,
		ledger:   ledger,
		players:  players,
		clock:    clk,
	}
}

// Settle closes the auction as sold to buyerTeamID at the given price and
// mutates the passed aggregate in place.
//
// The buyer's balance is the authoritative check here: funds are never
// escrowed at bid time, so a winning bidder may no longer afford the price.
// That and a missing seller ledger row are the only recoverable failures;
// anything after the ledger starts moving wraps ErrInvariantViolation and
// aborts the transaction with no partial effect.
func (s *Settlement) Settle(ctx context.Context, auction *domain.Auction, buyerTeamID string, price int64) error {
	balance, err := s.ledger.GetBalance(ctx, buyerTeamID)
	if err != nil {
		return err
	}
	if balance < price {
		return domain.ErrInsufficientFunds
	}
	if _, err := s.ledger.GetBalance(ctx, auction.SellerTeamID); err != nil {
		return fmt.Errorf("%w: seller %s has no ledger record: %v", domain.ErrInvariantViolation, auction.SellerTeamID, err)
	}

	if err := s.ledger.Debit(ctx, buyerTeamID, price); err != nil {
		return fmt.Errorf("%w: debit buyer: %v", domain.ErrInvariantViolation, err)
	}
	if err := s.ledger.Credit(ctx, auction.SellerTeamID, price); err != nil {
		return fmt.Errorf("%w: credit seller: %v", domain.ErrInvariantViolation, err)
	}

	now := s.clock.Now()
	auctionID := auction.ID
	for _, tx := range []domain.LedgerTransaction{
		{ID: uuid.NewString(), TeamID: buyerTeamID, Amount: -price, Kind: domain.TransactionTransferOut, Season: s.season, AuctionID: &auctionID, CreatedAt: now},
		{ID: uuid.NewString(), TeamID: auction.SellerTeamID, Amount: price, Kind: domain.TransactionTransferIn, Season: s.season, AuctionID: &auctionID, CreatedAt: now},
	} {
		if err := s.ledger.RecordTransaction(ctx, tx); err != nil {
			return fmt.Errorf("%w: record ledger transaction: %v", domain.ErrInvariantViolation, err)
		}
	}

	if err := s.players.Reassign(ctx, auction.PlayerID, buyerTeamID); err != nil {
		return fmt.Errorf("%w: reassign player: %v", domain.ErrInvariantViolation, err)
	}

	// Record the settling price in the history unless it is already the
	// last accepted bid (a deadline settlement repeats the winning bid).
	closingEntry := auction.CurrentBidderID == nil ||
		*auction.CurrentBidderID != buyerTeamID ||
		auction.CurrentPrice != price

	auction.Status = domain.AuctionStatusSold
	auction.CurrentBidderID = &buyerTeamID
	auction.CurrentPrice = price
	auction.EndsAt = &now

	if closingEntry {
		bid := domain.Bid{
			ID:        uuid.NewString(),
			AuctionID: auction.ID,
			TeamID:    buyerTeamID,
			Amount:    price,
			PlacedAt:  now,
		}
		if err := s.auctions.AppendBid(ctx, bid); err != nil {
			return fmt.Errorf("%w: append closing bid: %v", domain.ErrInvariantViolation, err)
		}
	}
	if err := s.auctions.Save(ctx, *auction); err != nil {
		return fmt.Errorf("%w: save auction: %v", domain.ErrInvariantViolation, err)
	}

	event := domain.PlayerEvent{
		ID:         uuid.NewString(),
		PlayerID:   auction.PlayerID,
		Type:       domain.PlayerEventTransfer,
		FromTeamID: auction.SellerTeamID,
		ToTeamID:   buyerTeamID,
		Price:      price,
		AuctionID:  auction.ID,
		OccurredAt: now,
	}
	if err := s.players.AppendHistory(ctx, event); err != nil {
		return fmt.Errorf("%w: append player history: %v", domain.ErrInvariantViolation, err)
	}

	transfer := domain.Transfer{
		ID:          uuid.NewString(),
		PlayerID:    auction.PlayerID,
		FromTeamID:  auction.SellerTeamID,
		ToTeamID:    buyerTeamID,
		Price:       price,
		AuctionID:   auction.ID,
		Season:      s.season,
		CompletedAt: now,
	}
	if err := s.players.RecordTransfer(ctx, transfer); err != nil {
		return fmt.Errorf("%w: record transfer: %v", domain.ErrInvariantViolation, err)
	}
	return nil
}
