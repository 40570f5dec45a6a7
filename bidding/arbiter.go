package bidding

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"gavel/adapters/bus"
	"gavel/models"
)

var (
	ErrInvalidAmount    = errors.New("bid amount must be positive")
	ErrAuctionNotActive = errors.New("auction not active")
	ErrBidTooLow        = errors.New("bid does not exceed current highest")
)

// Publisher is the slice of the bus the arbiter needs.
type Publisher interface {
	Publish(stream string, data any) error
}

type arbiterOptions struct {
	logger *slog.Logger
}

type ArbiterOption func(*arbiterOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ArbiterOption {
	return func(o *arbiterOptions) {
		o.logger = logger
	}
}

// Arbiter tracks the current highest bid per active auction. One mutex
// guards both the active set and the highest-bid map, so a bid's
// compare-and-replace and a finalization's lookup-and-discard always see a
// consistent snapshot.
type Arbiter struct {
	mu      sync.Mutex
	active  map[string]struct{}
	highest map[string]models.HighestBid

	publisher Publisher
	logger    *slog.Logger
}

// NewArbiter creates a bid arbiter publishing through pub.
func NewArbiter(pub Publisher, opts ...ArbiterOption) (*Arbiter, error) {
	if pub == nil {
		return nil, errors.New("publisher cannot be nil")
	}

	options := arbiterOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	return &Arbiter{
		active:    make(map[string]struct{}),
		highest:   make(map[string]models.HighestBid),
		publisher: pub,
		logger:    options.logger.With(slog.String("caller", "bidding.Arbiter")),
	}, nil
}

// HandleAuctionStarted marks the auction biddable and initializes its
// highest-bid entry. Idempotent: a redelivered event never resets a bid
// that already landed.
func (a *Arbiter) HandleAuctionStarted(ev models.AuctionStarted) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.active[ev.AuctionID] = struct{}{}
	if _, exists := a.highest[ev.AuctionID]; !exists {
		a.highest[ev.AuctionID] = models.HighestBid{Amount: decimal.Zero}
	}
	a.logger.Info("auction open for bids", slog.String("auctionId", ev.AuctionID))
}

// Submit arbitrates one bid. Exactly one of three things happens: the bid is
// rejected for inactivity, rejected for price, or recorded as the new
// highest; the matching event is published after the state settles.
func (a *Arbiter) Submit(auctionID, bidderID string, amount decimal.Decimal) (models.HighestBid, error) {
	const op = "Arbiter.Submit"

	if !amount.IsPositive() {
		return models.HighestBid{}, fmt.Errorf("[%s] amount=%s, err=%w", op, amount, ErrInvalidAmount)
	}

	a.mu.Lock()
	if _, ok := a.active[auctionID]; !ok {
		a.mu.Unlock()
		a.publishInvalidated(auctionID, bidderID, amount, "auction not active")
		return models.HighestBid{}, fmt.Errorf("[%s] auctionId=%s, err=%w", op, auctionID, ErrAuctionNotActive)
	}

	current := a.highest[auctionID]
	if amount.LessThanOrEqual(current.Amount) {
		floor := current.Amount
		a.mu.Unlock()
		reason := fmt.Sprintf("bid must exceed %s", floor)
		a.publishInvalidated(auctionID, bidderID, amount, reason)
		return models.HighestBid{}, fmt.Errorf("[%s] %s, err=%w", op, reason, ErrBidTooLow)
	}

	recorded := models.HighestBid{BidderID: bidderID, Amount: amount}
	a.highest[auctionID] = recorded
	a.mu.Unlock()

	if err := a.publisher.Publish(bus.StreamBidValidated, models.BidValidated{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
	}); err != nil {
		a.logger.Error("publish bid validated failed",
			slog.String("auctionId", auctionID), slog.Any("error", err))
	}

	a.logger.Info("bid accepted",
		slog.String("auctionId", auctionID),
		slog.String("bidderId", bidderID),
		slog.String("amount", amount.String()))
	return recorded, nil
}

// HandleAuctionFinalized closes bidding, extracts the winner if anyone bid,
// and discards the highest-bid entry. The won event goes out only after the
// entry is gone, so a racing bid either landed before the snapshot or is
// rejected as inactive.
func (a *Arbiter) HandleAuctionFinalized(ev models.AuctionFinalized) {
	a.mu.Lock()
	delete(a.active, ev.AuctionID)
	winner, hadEntry := a.highest[ev.AuctionID]
	delete(a.highest, ev.AuctionID)
	a.mu.Unlock()

	if !hadEntry || winner.BidderID == "" {
		a.logger.Info("auction finalized with no bids", slog.String("auctionId", ev.AuctionID))
		return
	}

	if err := a.publisher.Publish(bus.StreamAuctionWon, models.AuctionWon{
		AuctionID: ev.AuctionID,
		WinnerID:  winner.BidderID,
		Amount:    winner.Amount,
	}); err != nil {
		a.logger.Error("publish auction won failed",
			slog.String("auctionId", ev.AuctionID), slog.Any("error", err))
		return
	}

	a.logger.Info("auction won",
		slog.String("auctionId", ev.AuctionID),
		slog.String("winnerId", winner.BidderID),
		slog.String("amount", winner.Amount.String()))
}

// Highest returns the current highest bid for an active auction.
func (a *Arbiter) Highest(auctionID string) (models.HighestBid, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	hb, ok := a.highest[auctionID]
	return hb, ok
}

func (a *Arbiter) publishInvalidated(auctionID, bidderID string, amount decimal.Decimal, reason string) {
	if err := a.publisher.Publish(bus.StreamBidInvalidated, models.BidInvalidated{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Reason:    reason,
	}); err != nil {
		a.logger.Error("publish bid invalidated failed",
			slog.String("auctionId", auctionID), slog.Any("error", err))
	}
}
