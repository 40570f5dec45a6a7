package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"gavel/adapters/bus"
	"gavel/models"
)

var (
	ErrInvalidStatus   = errors.New("status must be approved or declined")
	ErrPaymentNotFound = errors.New("pending payment not found")
)

// Publisher is the slice of the bus the orchestrator needs.
type Publisher interface {
	Publish(stream string, data any) error
}

type orchestratorOptions struct {
	logger   *slog.Logger
	currency string
}

type OrchestratorOption func(*orchestratorOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *orchestratorOptions) {
		o.logger = logger
	}
}

// WithCurrency sets the currency tag sent to the gateway.
func WithCurrency(currency string) OrchestratorOption {
	return func(o *orchestratorOptions) {
		o.currency = currency
	}
}

// Orchestrator turns winner events into gateway transactions and relays the
// gateway's asynchronous verdict back onto the bus. Pending payments live in
// one mutex-guarded map keyed by auction id.
type Orchestrator struct {
	mu      sync.Mutex
	pending map[string]models.PendingPayment

	gateway   Gateway
	publisher Publisher
	logger    *slog.Logger
	currency  string
}

// NewOrchestrator creates a payment orchestrator.
func NewOrchestrator(gateway Gateway, pub Publisher, opts ...OrchestratorOption) (*Orchestrator, error) {
	if gateway == nil {
		return nil, errors.New("gateway cannot be nil")
	}
	if pub == nil {
		return nil, errors.New("publisher cannot be nil")
	}

	options := orchestratorOptions{
		logger:   slog.Default(),
		currency: "BRL",
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Orchestrator{
		pending:   make(map[string]models.PendingPayment),
		gateway:   gateway,
		publisher: pub,
		logger:    options.logger.With(slog.String("caller", "payment.Orchestrator")),
		currency:  options.currency,
	}, nil
}

// HandleAuctionWon requests a payment link for the winner. On success the
// payment is tracked as pending and the link event goes out; on gateway
// failure the link event carries the error instead and nothing is tracked.
func (o *Orchestrator) HandleAuctionWon(ctx context.Context, ev models.AuctionWon) {
	info, err := o.gateway.CreateTransaction(ctx, TransactionRequest{
		Amount:      ev.Amount,
		Currency:    o.currency,
		PayerID:     ev.WinnerID,
		AuctionID:   ev.AuctionID,
		Description: fmt.Sprintf("payment for auction %s", ev.AuctionID),
	})
	if err != nil {
		o.logger.Error("gateway transaction failed",
			slog.String("auctionId", ev.AuctionID),
			slog.Any("error", err))
		o.publishLink(models.PaymentLinkIssued{
			AuctionID: ev.AuctionID,
			WinnerID:  ev.WinnerID,
			Amount:    ev.Amount,
			Error:     err.Error(),
		})
		return
	}

	o.mu.Lock()
	o.pending[ev.AuctionID] = models.PendingPayment{
		AuctionID:     ev.AuctionID,
		WinnerID:      ev.WinnerID,
		Amount:        ev.Amount,
		Link:          info.PaymentLink,
		TransactionID: info.TransactionID,
	}
	o.mu.Unlock()

	o.publishLink(models.PaymentLinkIssued{
		AuctionID: ev.AuctionID,
		WinnerID:  ev.WinnerID,
		Link:      info.PaymentLink,
		Amount:    ev.Amount,
	})
	o.logger.Info("payment link issued",
		slog.String("auctionId", ev.AuctionID),
		slog.String("transactionId", info.TransactionID))
}

// HandleWebhook resolves a pending payment with the gateway's verdict. The
// pending entry is removed only on approval; a declined payment stays
// visible for inspection and can still be approved later.
func (o *Orchestrator) HandleWebhook(auctionID string, status models.PaymentResolution, transactionID string) (models.PendingPayment, error) {
	const op = "Orchestrator.HandleWebhook"

	if !status.Valid() {
		return models.PendingPayment{}, fmt.Errorf("[%s] status=%s, err=%w", op, status, ErrInvalidStatus)
	}

	o.mu.Lock()
	pending, ok := o.pending[auctionID]
	if !ok {
		o.mu.Unlock()
		return models.PendingPayment{}, fmt.Errorf("[%s] auctionId=%s, err=%w", op, auctionID, ErrPaymentNotFound)
	}
	if status == models.PaymentApproved {
		delete(o.pending, auctionID)
	}
	o.mu.Unlock()

	if err := o.publisher.Publish(bus.StreamPaymentStatus, models.PaymentStatusResolved{
		AuctionID:     auctionID,
		WinnerID:      pending.WinnerID,
		Status:        status,
		Amount:        pending.Amount,
		TransactionID: transactionID,
	}); err != nil {
		o.logger.Error("publish payment status failed",
			slog.String("auctionId", auctionID), slog.Any("error", err))
	}

	o.logger.Info("payment resolved",
		slog.String("auctionId", auctionID),
		slog.String("status", string(status)))
	return pending, nil
}

// Pending snapshots the payments still awaiting checkout.
func (o *Orchestrator) Pending() []models.PendingPayment {
	o.mu.Lock()
	defer o.mu.Unlock()
	return lo.Values(o.pending)
}

func (o *Orchestrator) publishLink(ev models.PaymentLinkIssued) {
	if err := o.publisher.Publish(bus.StreamPaymentLink, ev); err != nil {
		o.logger.Error("publish payment link failed",
			slog.String("auctionId", ev.AuctionID), slog.Any("error", err))
	}
}
