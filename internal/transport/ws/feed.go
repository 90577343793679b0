package ws

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/EtherLoda/minifc/internal/domain"
)

// Event is one market update pushed to feed subscribers.
type Event struct {
	Type            string     `json:"type"`
	AuctionID       string     `json:"auction_id"`
	PlayerID        string     `json:"player_id"`
	TeamID          string     `json:"team_id,omitempty"`
	Amount          int64      `json:"amount,omitempty"`
	Status          string     `json:"status"`
	ExpiresAt       time.Time  `json:"expires_at"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
}

const (
	EventBidAccepted    = "bid_accepted"
	EventAuctionSettled = "auction_sold"
	EventAuctionExpired = "auction_expired"
)

const (
	pingInterval    = 30 * time.Second
	writeTimeout    = 10 * time.Second
	subscriberDepth = 64
)

// Feed broadcasts committed market events to websocket subscribers. Slow
// subscribers are evicted rather than allowed to block publishers.
type Feed struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewFeed(logger *log.Logger) *Feed {
	if logger == nil {
		logger = log.Default()
	}
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
		subs:   make(map[chan Event]struct{}),
	}
}

// BidAccepted implements app.EventNotifier.
func (f *Feed) BidAccepted(auction domain.Auction, bid domain.Bid) {
	f.publish(Event{
		Type:      EventBidAccepted,
		AuctionID: auction.ID,
		PlayerID:  auction.PlayerID,
		TeamID:    bid.TeamID,
		Amount:    bid.Amount,
		Status:    string(auction.Status),
		ExpiresAt: auction.ExpiresAt,
	})
}

// AuctionSettled implements app.EventNotifier.
func (f *Feed) AuctionSettled(auction domain.Auction) {
	ev := Event{
		Type:      EventAuctionSettled,
		AuctionID: auction.ID,
		PlayerID:  auction.PlayerID,
		Amount:    auction.CurrentPrice,
		Status:    string(auction.Status),
		ExpiresAt: auction.ExpiresAt,
		EndsAt:    auction.EndsAt,
	}
	if auction.CurrentBidderID != nil {
		ev.TeamID = *auction.CurrentBidderID
	}
	f.publish(ev)
}

// AuctionExpired implements app.EventNotifier.
func (f *Feed) AuctionExpired(auction domain.Auction) {
	f.publish(Event{
		Type:      EventAuctionExpired,
		AuctionID: auction.ID,
		PlayerID:  auction.PlayerID,
		Status:    string(auction.Status),
		ExpiresAt: auction.ExpiresAt,
		EndsAt:    auction.EndsAt,
	})
}

func (f *Feed) publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- ev:
		default:
			// Evict the slow subscriber; its writer loop exits on close.
			delete(f.subs, ch)
			close(ch)
		}
	}
}

// Subscribe registers a new event channel; the returned func unsubscribes.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberDepth)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
}

// ServeHTTP upgrades the connection and streams events until the client
// disconnects.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := f.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				f.logger.Printf("ws write: %v", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
