package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/EtherLoda/minifc/internal/domain"
)

// fakeStore backs all four repository interfaces in memory. WithTx snapshots
// the state and restores it when the closure fails, mirroring the rollback
// behavior of the real transaction; the store mutex stands in for the
// database row lock by serializing whole transactions.
type fakeStore struct {
	mu sync.Mutex

	teams     map[string]domain.Team
	players   map[string]domain.Player
	auctions  map[string]domain.Auction
	bids      map[string][]domain.Bid
	ledger    []domain.LedgerTransaction
	history   []domain.PlayerEvent
	transfers []domain.Transfer

	failDebit             error
	failCredit            error
	failReassign          error
	failRecordTransaction error
	failAppendHistory     error
}

var (
	_ AuctionRepository = (*fakeStore)(nil)
	_ FinanceLedger     = (*fakeStore)(nil)
	_ PlayerRegistry    = (*fakeStore)(nil)
	_ TeamDirectory     = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		teams:    make(map[string]domain.Team),
		players:  make(map[string]domain.Player),
		auctions: make(map[string]domain.Auction),
		bids:     make(map[string][]domain.Bid),
	}
}

func (f *fakeStore) addTeam(t domain.Team) { f.teams[t.ID] = t }

func (f *fakeStore) addPlayer(p domain.Player) { f.players[p.ID] = p }

type txMarker struct{}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

// lock takes the store mutex unless the context is already inside WithTx,
// which holds it for the whole transaction.
func (f *fakeStore) lock(ctx context.Context) func() {
	if ctx.Value(txMarker{}) != nil {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

type storeSnapshot struct {
	teams     map[string]domain.Team
	players   map[string]domain.Player
	auctions  map[string]domain.Auction
	bids      map[string][]domain.Bid
	ledger    []domain.LedgerTransaction
	history   []domain.PlayerEvent
	transfers []domain.Transfer
}

func (f *fakeStore) snapshot() storeSnapshot {
	s := storeSnapshot{
		teams:     make(map[string]domain.Team, len(f.teams)),
		players:   make(map[string]domain.Player, len(f.players)),
		auctions:  make(map[string]domain.Auction, len(f.auctions)),
		bids:      make(map[string][]domain.Bid, len(f.bids)),
		ledger:    append([]domain.LedgerTransaction{}, f.ledger...),
		history:   append([]domain.PlayerEvent{}, f.history...),
		transfers: append([]domain.Transfer{}, f.transfers...),
	}
	for k, v := range f.teams {
		s.teams[k] = v
	}
	for k, v := range f.players {
		s.players[k] = v
	}
	for k, v := range f.auctions {
		s.auctions[k] = v
	}
	for k, v := range f.bids {
		s.bids[k] = append([]domain.Bid{}, v...)
	}
	return s
}

func (f *fakeStore) restore(s storeSnapshot) {
	f.teams = s.teams
	f.players = s.players
	f.auctions = s.auctions
	f.bids = s.bids
	f.ledger = s.ledger
	f.history = s.history
	f.transfers = s.transfers
}

// AuctionRepository

func (f *fakeStore) Get(ctx context.Context, auctionID string) (domain.Auction, error) {
	defer f.lock(ctx)()
	a, ok := f.auctions[auctionID]
	if !ok {
		return domain.Auction{}, domain.ErrAuctionNotFound
	}
	return a, nil
}

func (f *fakeStore) GetForUpdate(ctx context.Context, auctionID string) (domain.Auction, error) {
	return f.Get(ctx, auctionID)
}

func (f *fakeStore) FindActiveByPlayer(ctx context.Context, playerID string) (*domain.Auction, error) {
	defer f.lock(ctx)()
	for _, a := range f.auctions {
		if a.PlayerID == playerID && a.Status == domain.AuctionStatusActive {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Create(ctx context.Context, auction domain.Auction) error {
	defer f.lock(ctx)()
	for _, a := range f.auctions {
		if a.PlayerID == auction.PlayerID && a.Status == domain.AuctionStatusActive {
			return domain.ErrPlayerAlreadyListed
		}
	}
	f.auctions[auction.ID] = auction
	return nil
}

func (f *fakeStore) Save(ctx context.Context, auction domain.Auction) error {
	defer f.lock(ctx)()
	if _, ok := f.auctions[auction.ID]; !ok {
		return domain.ErrAuctionNotFound
	}
	f.auctions[auction.ID] = auction
	return nil
}

func (f *fakeStore) AppendBid(ctx context.Context, bid domain.Bid) error {
	defer f.lock(ctx)()
	f.bids[bid.AuctionID] = append(f.bids[bid.AuctionID], bid)
	return nil
}

func (f *fakeStore) ListBids(ctx context.Context, auctionID string) ([]domain.Bid, error) {
	defer f.lock(ctx)()
	return append([]domain.Bid{}, f.bids[auctionID]...), nil
}

func (f *fakeStore) ListActive(ctx context.Context) ([]domain.Auction, error) {
	defer f.lock(ctx)()
	var out []domain.Auction
	for _, a := range f.auctions {
		if a.Status == domain.AuctionStatusActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (f *fakeStore) ListExpiredIDs(ctx context.Context, now time.Time) ([]string, error) {
	defer f.lock(ctx)()
	var ids []string
	for _, a := range f.auctions {
		if a.Status == domain.AuctionStatusActive && !a.ExpiresAt.After(now) {
			ids = append(ids, a.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// FinanceLedger

func (f *fakeStore) GetBalance(ctx context.Context, teamID string) (int64, error) {
	defer f.lock(ctx)()
	t, ok := f.teams[teamID]
	if !ok {
		return 0, domain.ErrTeamNotFound
	}
	return t.Balance, nil
}

func (f *fakeStore) Debit(ctx context.Context, teamID string, amount int64) error {
	defer f.lock(ctx)()
	if f.failDebit != nil {
		return f.failDebit
	}
	t, ok := f.teams[teamID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	if t.Balance < amount {
		return domain.ErrInsufficientFunds
	}
	t.Balance -= amount
	f.teams[teamID] = t
	return nil
}

func (f *fakeStore) Credit(ctx context.Context, teamID string, amount int64) error {
	defer f.lock(ctx)()
	if f.failCredit != nil {
		return f.failCredit
	}
	t, ok := f.teams[teamID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	t.Balance += amount
	f.teams[teamID] = t
	return nil
}

func (f *fakeStore) RecordTransaction(ctx context.Context, tx domain.LedgerTransaction) error {
	defer f.lock(ctx)()
	if f.failRecordTransaction != nil {
		return f.failRecordTransaction
	}
	f.ledger = append(f.ledger, tx)
	return nil
}

// PlayerRegistry

func (f *fakeStore) GetOwner(ctx context.Context, playerID string) (string, error) {
	defer f.lock(ctx)()
	p, ok := f.players[playerID]
	if !ok {
		return "", domain.ErrPlayerNotFound
	}
	return p.TeamID, nil
}

func (f *fakeStore) Reassign(ctx context.Context, playerID, teamID string) error {
	defer f.lock(ctx)()
	if f.failReassign != nil {
		return f.failReassign
	}
	p, ok := f.players[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	p.TeamID = teamID
	f.players[playerID] = p
	return nil
}

func (f *fakeStore) AppendHistory(ctx context.Context, event domain.PlayerEvent) error {
	defer f.lock(ctx)()
	if f.failAppendHistory != nil {
		return f.failAppendHistory
	}
	f.history = append(f.history, event)
	return nil
}

func (f *fakeStore) RecordTransfer(ctx context.Context, transfer domain.Transfer) error {
	defer f.lock(ctx)()
	f.transfers = append(f.transfers, transfer)
	return nil
}

// TeamDirectory

func (f *fakeStore) FindByManager(ctx context.Context, managerID string) (domain.Team, error) {
	defer f.lock(ctx)()
	for _, t := range f.teams {
		if t.ManagerID == managerID {
			return t, nil
		}
	}
	return domain.Team{}, domain.ErrTeamNotFound
}

func (f *fakeStore) ledgerSum() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, tx := range f.ledger {
		sum += tx.Amount
	}
	return sum
}

// recordingNotifier captures committed events for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	accepted []domain.Bid
	settled  []domain.Auction
	expired  []domain.Auction
}

func (n *recordingNotifier) BidAccepted(_ domain.Auction, bid domain.Bid) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, bid)
}

func (n *recordingNotifier) AuctionSettled(a domain.Auction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.settled = append(n.settled, a)
}

func (n *recordingNotifier) AuctionExpired(a domain.Auction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, a)
}
