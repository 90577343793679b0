package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuctionStatus string

const (
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusSold      AuctionStatus = "sold"
	AuctionStatusExpired   AuctionStatus = "expired"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionStatusSold || s == AuctionStatusExpired || s == AuctionStatusCancelled
}

// Auction is the sellable listing for one player. All read-modify-write
// access goes through a row lock; closed auctions are kept as history and
// never deleted.
type Auction struct {
	ID              string
	PlayerID        string
	SellerTeamID    string
	StartPrice      int64
	BuyoutPrice     int64
	CurrentPrice    int64
	CurrentBidderID *string
	Status          AuctionStatus
	StartedAt       time.Time
	ExpiresAt       time.Time
	EndsAt          *time.Time
}

// Bid is one accepted entry in an auction's append-only history.
type Bid struct {
	ID        string
	AuctionID string
	TeamID    string
	Amount    int64
	PlacedAt  time.Time
}

const (
	// FixedMinIncrement keeps small early bids moving by a meaningful step.
	FixedMinIncrement int64 = 10_000

	// ExtensionThreshold and ExtensionWindow implement the anti-snipe rule:
	// a bid landing with less than the threshold remaining pushes the
	// deadline to now + window.
	ExtensionThreshold = 3 * time.Minute
	ExtensionWindow    = 3 * time.Minute
)

var percentIncrement = decimal.NewFromFloat(0.02)

// BidIncrement returns the minimum raise over the given price:
// max(FixedMinIncrement, ceil(price * 2%)).
func BidIncrement(price int64) int64 {
	pct := decimal.NewFromInt(price).Mul(percentIncrement).Ceil().IntPart()
	if pct < FixedMinIncrement {
		return FixedMinIncrement
	}
	return pct
}

// MinBid is the lowest acceptable next bid. The start price itself is a
// valid first bid; afterwards every bid must clear the increment.
func (a Auction) MinBid() int64 {
	if a.CurrentBidderID == nil {
		return a.StartPrice
	}
	return a.CurrentPrice + BidIncrement(a.CurrentPrice)
}

// ExtendIfClosing applies the anti-snipe extension and reports whether the
// deadline moved. The deadline only ever moves forward.
func (a *Auction) ExtendIfClosing(now time.Time) bool {
	if a.ExpiresAt.Sub(now) < ExtensionThreshold {
		a.ExpiresAt = now.Add(ExtensionWindow)
		return true
	}
	return false
}

// ValidatePriceRange checks the listing invariant buyout > start > 0.
func ValidatePriceRange(startPrice, buyoutPrice int64) error {
	if startPrice <= 0 || buyoutPrice <= startPrice {
		return ErrInvalidPriceRange
	}
	return nil
}
