package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/EtherLoda/minifc/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeInvalidAmount       = "invalid_amount"
	codeInvalidPriceRange   = "invalid_price_range"
	codeInvalidDuration     = "invalid_duration"
	codeBidTooLow           = "bid_too_low"
	codeTeamNotFound        = "team_not_found"
	codePlayerNotFound      = "player_not_found"
	codeAuctionNotFound     = "auction_not_found"
	codeNotPlayerOwner      = "not_player_owner"
	codePlayerAlreadyListed = "player_already_listed"
	codeOwnAuctionBid       = "own_auction_bid"
	codeAuctionClosed       = "auction_closed"
	codeAuctionExpired      = "auction_expired"
	codeInsufficientFunds   = "insufficient_funds"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps business-rule rejections onto HTTP statuses and
// machine codes. Anything unmapped is an internal error.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
	case errors.Is(err, domain.ErrInvalidPriceRange):
		writeError(w, http.StatusBadRequest, codeInvalidPriceRange, err.Error())
	case errors.Is(err, domain.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, codeInvalidDuration, err.Error())
	case errors.Is(err, domain.ErrBidTooLow):
		writeError(w, http.StatusBadRequest, codeBidTooLow, err.Error())
	case errors.Is(err, domain.ErrTeamNotFound):
		writeError(w, http.StatusNotFound, codeTeamNotFound, err.Error())
	case errors.Is(err, domain.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, codePlayerNotFound, err.Error())
	case errors.Is(err, domain.ErrAuctionNotFound):
		writeError(w, http.StatusNotFound, codeAuctionNotFound, err.Error())
	case errors.Is(err, domain.ErrNotPlayerOwner):
		writeError(w, http.StatusForbidden, codeNotPlayerOwner, err.Error())
	case errors.Is(err, domain.ErrPlayerAlreadyListed):
		writeError(w, http.StatusConflict, codePlayerAlreadyListed, err.Error())
	case errors.Is(err, domain.ErrOwnAuctionBid):
		writeError(w, http.StatusConflict, codeOwnAuctionBid, err.Error())
	case errors.Is(err, domain.ErrAuctionClosed):
		writeError(w, http.StatusConflict, codeAuctionClosed, err.Error())
	case errors.Is(err, domain.ErrAuctionExpired):
		writeError(w, http.StatusConflict, codeAuctionExpired, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, codeInsufficientFunds, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
