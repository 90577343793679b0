package domain

import "time"

// Team carries the finance-ledger balance and resolves a manager (user) to
// the team they act for.
type Team struct {
	ID        string
	Name      string
	ManagerID string
	Balance   int64
}

type TransactionKind string

const (
	TransactionTransferOut TransactionKind = "transfer_out"
	TransactionTransferIn  TransactionKind = "transfer_in"
)

// LedgerTransaction is one signed ledger row. A settlement writes two of
// equal magnitude and opposite sign.
type LedgerTransaction struct {
	ID        string
	TeamID    string
	Amount    int64
	Kind      TransactionKind
	Season    int
	AuctionID *string
	CreatedAt time.Time
}
