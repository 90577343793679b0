package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EtherLoda/minifc/internal/clock"
	"github.com/EtherLoda/minifc/internal/domain"
)

func newSettlementFixture(t *testing.T) (*fakeStore, *Settlement, domain.Auction) {
	t.Helper()

	store := newFakeStore()
	store.addTeam(domain.Team{ID: "team-seller", ManagerID: "user-seller", Balance: 1_000_000})
	store.addTeam(domain.Team{ID: "team-buyer", ManagerID: "user-buyer", Balance: 2_000_000})
	store.addPlayer(domain.Player{ID: "player-1", Name: "Nine", TeamID: "team-seller"})

	auction := domain.Auction{
		ID:           "auction-1",
		PlayerID:     "player-1",
		SellerTeamID: "team-seller",
		StartPrice:   100_000,
		BuyoutPrice:  500_000,
		CurrentPrice: 100_000,
		Status:       domain.AuctionStatusActive,
		StartedAt:    testStart,
		ExpiresAt:    testStart.Add(24 * time.Hour),
	}
	require.NoError(t, store.Create(context.Background(), auction))

	settlement := NewSettlement(store, store, store, clock.NewFixed(testStart.Add(time.Hour)))
	settlement.season = 2025
	return store, settlement, auction
}

func TestSettlement_Settle(t *testing.T) {
	t.Parallel()

	t.Run("moves money, ownership and records", func(t *testing.T) {
		store, settlement, auction := newSettlementFixture(t)

		err := store.WithTx(context.Background(), func(ctx context.Context) error {
			return settlement.Settle(ctx, &auction, "team-buyer", 500_000)
		})
		require.NoError(t, err)

		assert.Equal(t, domain.AuctionStatusSold, auction.Status)
		assert.Equal(t, int64(500_000), auction.CurrentPrice)
		require.NotNil(t, auction.EndsAt)

		ctx := context.Background()
		buyerBal, _ := store.GetBalance(ctx, "team-buyer")
		sellerBal, _ := store.GetBalance(ctx, "team-seller")
		assert.Equal(t, int64(1_500_000), buyerBal)
		assert.Equal(t, int64(1_500_000), sellerBal)
		assert.Equal(t, int64(0), store.ledgerSum())

		require.Len(t, store.ledger, 2)
		assert.Equal(t, domain.TransactionTransferOut, store.ledger[0].Kind)
		assert.Equal(t, int64(-500_000), store.ledger[0].Amount)
		assert.Equal(t, domain.TransactionTransferIn, store.ledger[1].Kind)
		assert.Equal(t, int64(500_000), store.ledger[1].Amount)

		owner, _ := store.GetOwner(ctx, "player-1")
		assert.Equal(t, "team-buyer", owner)

		bids, _ := store.ListBids(ctx, auction.ID)
		require.Len(t, bids, 1, "closing price appended when it is not the last accepted bid")
		assert.Equal(t, int64(500_000), bids[0].Amount)
	})

	t.Run("no closing entry when the winning bid already matches", func(t *testing.T) {
		store, settlement, auction := newSettlementFixture(t)

		bidder := "team-buyer"
		auction.CurrentBidderID = &bidder
		auction.CurrentPrice = 120_000
		require.NoError(t, store.Save(context.Background(), auction))
		require.NoError(t, store.AppendBid(context.Background(), domain.Bid{
			ID: "bid-1", AuctionID: auction.ID, TeamID: bidder, Amount: 120_000, PlacedAt: testStart,
		}))

		err := store.WithTx(context.Background(), func(ctx context.Context) error {
			return settlement.Settle(ctx, &auction, bidder, 120_000)
		})
		require.NoError(t, err)

		bids, _ := store.ListBids(context.Background(), auction.ID)
		assert.Len(t, bids, 1)
	})

	t.Run("buyer cannot afford the price", func(t *testing.T) {
		store, settlement, auction := newSettlementFixture(t)
		store.addTeam(domain.Team{ID: "team-broke", ManagerID: "user-broke", Balance: 10_000})

		err := store.WithTx(context.Background(), func(ctx context.Context) error {
			return settlement.Settle(ctx, &auction, "team-broke", 500_000)
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.Empty(t, store.ledger)
	})

	t.Run("missing seller ledger record", func(t *testing.T) {
		store, settlement, auction := newSettlementFixture(t)
		auction.SellerTeamID = "team-gone"

		err := store.WithTx(context.Background(), func(ctx context.Context) error {
			return settlement.Settle(ctx, &auction, "team-buyer", 500_000)
		})
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	})

	t.Run("rolls back cleanly when reassignment fails", func(t *testing.T) {
		store, settlement, auction := newSettlementFixture(t)
		store.failReassign = errors.New("boom")

		err := store.WithTx(context.Background(), func(ctx context.Context) error {
			return settlement.Settle(ctx, &auction, "team-buyer", 500_000)
		})
		require.ErrorIs(t, err, domain.ErrInvariantViolation)

		ctx := context.Background()
		buyerBal, _ := store.GetBalance(ctx, "team-buyer")
		sellerBal, _ := store.GetBalance(ctx, "team-seller")
		assert.Equal(t, int64(2_000_000), buyerBal, "debit must roll back")
		assert.Equal(t, int64(1_000_000), sellerBal, "credit must roll back")
		assert.Empty(t, store.ledger)

		owner, _ := store.GetOwner(ctx, "player-1")
		assert.Equal(t, "team-seller", owner)

		got, _ := store.Get(ctx, auction.ID)
		assert.Equal(t, domain.AuctionStatusActive, got.Status)
	})

	t.Run("rolls back cleanly when the ledger write fails", func(t *testing.T) {
		store, settlement, auction := newSettlementFixture(t)
		store.failRecordTransaction = errors.New("boom")

		err := store.WithTx(context.Background(), func(ctx context.Context) error {
			return settlement.Settle(ctx, &auction, "team-buyer", 500_000)
		})
		require.ErrorIs(t, err, domain.ErrInvariantViolation)

		ctx := context.Background()
		buyerBal, _ := store.GetBalance(ctx, "team-buyer")
		assert.Equal(t, int64(2_000_000), buyerBal)
		assert.Equal(t, int64(0), store.ledgerSum())
	})
}
