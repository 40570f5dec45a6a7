package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus tracks where an auction sits in its lifecycle.
// Transitions are monotonic: scheduled -> active -> finalized.
type AuctionStatus string

const (
	AuctionStatusScheduled AuctionStatus = "scheduled"
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusFinalized AuctionStatus = "finalized"
)

// Auction is the authoritative record owned by the lifecycle manager.
// Records are never deleted; finalized auctions stay around for inspection.
type Auction struct {
	ID            string          `json:"id"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	CreatorID     string          `json:"creator_id"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	Status        AuctionStatus   `json:"status"`
}

// HighestBid is the current winning offer on an active auction, owned by the
// bid arbiter for exactly the auction's active window. An empty BidderID
// means nobody has bid yet.
type HighestBid struct {
	BidderID string          `json:"bidder_id"`
	Amount   decimal.Decimal `json:"amount"`
}
