package domain

import "time"

type Player struct {
	ID       string
	Name     string
	Position string
	TeamID   string
}

type PlayerEventType string

const PlayerEventTransfer PlayerEventType = "transfer"

// PlayerEvent is one append-only entry in a player's history log.
type PlayerEvent struct {
	ID         string
	PlayerID   string
	Type       PlayerEventType
	FromTeamID string
	ToTeamID   string
	Price      int64
	AuctionID  string
	OccurredAt time.Time
}

// Transfer mirrors the facts of a completed sale as a discrete record.
type Transfer struct {
	ID          string
	PlayerID    string
	FromTeamID  string
	ToTeamID    string
	Price       int64
	AuctionID   string
	Season      int
	CompletedAt time.Time
}
