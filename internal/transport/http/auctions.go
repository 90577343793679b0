package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/EtherLoda/minifc/internal/app"
	"github.com/EtherLoda/minifc/internal/domain"
)

// MarketService is the transfer-market surface consumed by the handlers.
type MarketService interface {
	CreateAuction(ctx context.Context, in app.CreateAuctionInput) (domain.Auction, error)
	PlaceBid(ctx context.Context, in app.PlaceBidInput) (domain.Auction, error)
	Buyout(ctx context.Context, in app.BuyoutInput) (domain.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (domain.Auction, []domain.Bid, error)
	ListActiveAuctions(ctx context.Context) ([]domain.Auction, error)
}

// HandleAuctions serves GET (list active) and POST (create) on /auctions.
func HandleAuctions(svc MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			listAuctions(svc, w, r)
		case http.MethodPost:
			createAuction(svc, w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAuctionActions serves /auctions/{id}, /auctions/{id}/bids and
// /auctions/{id}/buyout.
func HandleAuctionActions(svc MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auctionID, action, ok := parseAuctionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			getAuction(svc, w, r, auctionID)
		case action == "bids" && r.Method == http.MethodPost:
			placeBid(svc, w, r, auctionID)
		case action == "buyout" && r.Method == http.MethodPost:
			buyout(svc, w, r, auctionID)
		case action == "" || action == "bids" || action == "buyout":
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func parseAuctionPath(path string) (auctionID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "auctions" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[1], "", true
	}
	return parts[1], parts[2], true
}

type createAuctionRequest struct {
	UserID        string `json:"user_id"`
	PlayerID      string `json:"player_id"`
	StartPrice    int64  `json:"start_price"`
	BuyoutPrice   int64  `json:"buyout_price"`
	DurationHours int    `json:"duration_hours"`
}

func createAuction(svc MarketService, w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "user_id and player_id are required")
		return
	}

	auction, err := svc.CreateAuction(r.Context(), app.CreateAuctionInput{
		SellerUserID:  req.UserID,
		PlayerID:      req.PlayerID,
		StartPrice:    req.StartPrice,
		BuyoutPrice:   req.BuyoutPrice,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuctionResponse(auction))
}

type placeBidRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

func placeBid(svc MarketService, w http.ResponseWriter, r *http.Request, auctionID string) {
	var req placeBidRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "user_id is required")
		return
	}

	auction, err := svc.PlaceBid(r.Context(), app.PlaceBidInput{
		BidderUserID: req.UserID,
		AuctionID:    auctionID,
		Amount:       req.Amount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionResponse(auction))
}

type buyoutRequest struct {
	UserID string `json:"user_id"`
}

func buyout(svc MarketService, w http.ResponseWriter, r *http.Request, auctionID string) {
	var req buyoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "user_id is required")
		return
	}

	auction, err := svc.Buyout(r.Context(), app.BuyoutInput{
		BuyerUserID: req.UserID,
		AuctionID:   auctionID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionResponse(auction))
}

func getAuction(svc MarketService, w http.ResponseWriter, r *http.Request, auctionID string) {
	auction, bids, err := svc.GetAuction(r.Context(), auctionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := auctionDetailResponse{
		auctionResponse: toAuctionResponse(auction),
		Bids:            make([]bidResponse, 0, len(bids)),
	}
	for _, b := range bids {
		resp.Bids = append(resp.Bids, bidResponse{
			TeamID:   b.TeamID,
			Amount:   b.Amount,
			PlacedAt: b.PlacedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func listAuctions(svc MarketService, w http.ResponseWriter, r *http.Request) {
	auctions, err := svc.ListActiveAuctions(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]auctionResponse, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, toAuctionResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type auctionResponse struct {
	ID              string     `json:"id"`
	PlayerID        string     `json:"player_id"`
	SellerTeamID    string     `json:"seller_team_id"`
	StartPrice      int64      `json:"start_price"`
	BuyoutPrice     int64      `json:"buyout_price"`
	CurrentPrice    int64      `json:"current_price"`
	CurrentBidderID *string    `json:"current_bidder_id,omitempty"`
	MinBid          int64      `json:"min_bid"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
}

type auctionDetailResponse struct {
	auctionResponse
	Bids []bidResponse `json:"bids"`
}

type bidResponse struct {
	TeamID   string    `json:"team_id"`
	Amount   int64     `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
}

func toAuctionResponse(a domain.Auction) auctionResponse {
	return auctionResponse{
		ID:              a.ID,
		PlayerID:        a.PlayerID,
		SellerTeamID:    a.SellerTeamID,
		StartPrice:      a.StartPrice,
		BuyoutPrice:     a.BuyoutPrice,
		CurrentPrice:    a.CurrentPrice,
		CurrentBidderID: a.CurrentBidderID,
		MinBid:          a.MinBid(),
		Status:          string(a.Status),
		StartedAt:       a.StartedAt,
		ExpiresAt:       a.ExpiresAt,
		EndsAt:          a.EndsAt,
	}
}
