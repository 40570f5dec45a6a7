package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bus event payloads. One type per business fact; every payload is a flat
// JSON object carrying the subject auction's id.

// AuctionStarted announces that an auction entered its active window.
type AuctionStarted struct {
	AuctionID     string          `json:"auction_id"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
}

// AuctionFinalized announces that an auction's window closed.
type AuctionFinalized struct {
	AuctionID   string    `json:"auction_id"`
	Description string    `json:"description"`
	EndTime     time.Time `json:"end_time"`
}

// BidValidated announces a bid accepted as the new highest.
type BidValidated struct {
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// BidInvalidated announces a rejected bid together with the reason.
type BidInvalidated struct {
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// AuctionWon announces the winner extracted at finalization. Broadcast:
// both the payment orchestrator and the event router consume every one.
type AuctionWon struct {
	AuctionID string          `json:"auction_id"`
	WinnerID  string          `json:"winner_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// PaymentLinkIssued announces the checkout link for a winner. When the
// external gateway could not be reached, Link is empty and Error carries
// the failure instead.
type PaymentLinkIssued struct {
	AuctionID string          `json:"auction_id"`
	WinnerID  string          `json:"winner_id"`
	Link      string          `json:"link,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Error     string          `json:"error,omitempty"`
}

// PaymentStatusResolved relays the gateway's approval or decline.
type PaymentStatusResolved struct {
	AuctionID     string            `json:"auction_id"`
	WinnerID      string            `json:"winner_id"`
	Status        PaymentResolution `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	TransactionID string            `json:"transaction_id"`
}
