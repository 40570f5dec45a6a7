package bus

// The seven event streams of the auction system. Every stream is durable
// (append-only Redis Stream); one stream per canonical event type.
const (
	StreamAuctionStarted   = "auction_started"
	StreamAuctionFinalized = "auction_finalized"
	StreamBidValidated     = "bid_validated"
	StreamBidInvalidated   = "bid_invalidated"
	StreamAuctionWon       = "auction_won"
	StreamPaymentLink      = "payment_link"
	StreamPaymentStatus    = "payment_status"
)

// AllStreams lists every stream Connect declares.
func AllStreams() []string {
	return []string{
		StreamAuctionStarted,
		StreamAuctionFinalized,
		StreamBidValidated,
		StreamBidInvalidated,
		StreamAuctionWon,
		StreamPaymentLink,
		StreamPaymentStatus,
	}
}
