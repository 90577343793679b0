package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTeamNotFound        = errors.New("team not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrAuctionNotFound     = errors.New("auction not found")
	ErrNotPlayerOwner      = errors.New("player is not owned by the selling team")
	ErrPlayerAlreadyListed = errors.New("player already has an active auction")
	ErrOwnAuctionBid       = errors.New("cannot bid on own auction")
	ErrInvalidPriceRange   = errors.New("buyout price must exceed start price and both must be positive")
	ErrInvalidDuration     = errors.New("invalid auction duration")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrBidTooLow           = errors.New("bid below minimum")
	ErrAuctionClosed       = errors.New("auction is closed")
	ErrAuctionExpired      = errors.New("auction deadline has passed")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrInvalidID           = errors.New("invalid id")
)

// BidTooLowError reports the minimum acceptable bid so callers can render
// "minimum bid is X". It matches ErrBidTooLow under errors.Is.
type BidTooLowError struct {
	MinBid int64
}

func (e BidTooLowError) Error() string {
	return fmt.Sprintf("bid below minimum: minimum bid is %d", e.MinBid)
}

func (e BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}
