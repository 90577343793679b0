package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/EtherLoda/minifc/internal/domain"
)

// ReconcileExpired finalizes every active auction whose deadline has passed:
// with a standing bidder it settles at the current price, otherwise the
// auction expires with no money or ownership change. Each auction is handled
// in its own locked transaction, so the sweep is safe to re-run concurrently
// with itself and with live bids; auctions already terminal are skipped.
//
// Per-auction failures are logged and do not halt the sweep. In particular a
// winner who can no longer afford the price leaves the auction active for
// the next sweep to retry.
func (s *AuctionService) ReconcileExpired(ctx context.Context) error {
	now := s.clock.Now()
	ids, err := s.auctions.ListExpiredIDs(ctx, now)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.reconcileOne(ctx, id); err != nil {
			level := slog.LevelWarn
			if errors.Is(err, domain.ErrInvariantViolation) {
				level = slog.LevelError
			}
			slog.Log(ctx, level, "reconcile auction failed", "auction_id", id, "err", err)
		}
	}
	return nil
}

func (s *AuctionService) reconcileOne(ctx context.Context, auctionID string) error {
	var (
		result  domain.Auction
		settled bool
		touched bool
	)

	err := s.auctions.WithTx(ctx, func(txCtx context.Context) error {
		auction, err := s.auctions.GetForUpdate(txCtx, auctionID)
		if err != nil {
			return err
		}
		// Another caller may have settled or extended it since the scan.
		if auction.Status != domain.AuctionStatusActive {
			return nil
		}
		now := s.clock.Now()
		if auction.ExpiresAt.After(now) {
			return nil
		}

		if auction.CurrentBidderID != nil {
			if err := s.settlement.Settle(txCtx, &auction, *auction.CurrentBidderID, auction.CurrentPrice); err != nil {
				return err
			}
			settled = true
		} else {
			auction.Status = domain.AuctionStatusExpired
			auction.EndsAt = &now
			if err := s.auctions.Save(txCtx, auction); err != nil {
				return err
			}
		}
		result = auction
		touched = true
		return nil
	})
	if err != nil {
		return err
	}

	if touched && s.notifier != nil {
		if settled {
			s.notifier.AuctionSettled(result)
		} else {
			s.notifier.AuctionExpired(result)
		}
	}
	return nil
}

// Reconciler is the sweep entry point driven by the Sweeper.
type Reconciler interface {
	ReconcileExpired(ctx context.Context) error
}

// SweeperConfig holds sweep loop configuration.
type SweeperConfig struct {
	Interval time.Duration
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{Interval: 30 * time.Second}
}

// Sweeper drives ReconcileExpired on a fixed interval until stopped.
type Sweeper struct {
	cfg    SweeperConfig
	rec    Reconciler
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSweeper(cfg SweeperConfig, rec Reconciler, logger *slog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweeperConfig().Interval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cfg:    cfg,
		rec:    rec,
		logger: logger,
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("expiration sweeper started", "interval", s.cfg.Interval)
}

// Stop shuts the loop down, waiting up to the context deadline.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("expiration sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Sweep immediately on start.
	s.sweep()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	start := time.Now()
	if err := s.rec.ReconcileExpired(s.ctx); err != nil {
		s.logger.Warn("sweep failed", "err", err)
		return
	}
	s.logger.Debug("sweep complete", "duration", time.Since(start))
}
