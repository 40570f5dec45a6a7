package paymentsim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"gavel/clock"
	"gavel/models"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyResolved     = errors.New("transaction already resolved")
	ErrInvalidStatus       = errors.New("status must be approved or declined")
)

type simulatorOptions struct {
	logger         *slog.Logger
	clock          clock.Clock
	webhookTimeout time.Duration
	webhookDelay   time.Duration
}

type Option func(*simulatorOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *simulatorOptions) {
		o.logger = logger
	}
}

// WithClock sets the time source.
func WithClock(clk clock.Clock) Option {
	return func(o *simulatorOptions) {
		o.clock = clk
	}
}

// WithWebhookDelay sets the simulated processing delay before the webhook
// fires.
func WithWebhookDelay(d time.Duration) Option {
	return func(o *simulatorOptions) {
		o.webhookDelay = d
	}
}

// Simulator stands in for the external payment system: it issues payment
// links, resolves checkouts, and notifies the orchestrator's webhook
// asynchronously.
type Simulator struct {
	mu           sync.Mutex
	transactions map[string]*models.Transaction

	publicBaseURL string
	webhookURL    string
	client        *http.Client
	logger        *slog.Logger
	clock         clock.Clock
	webhookDelay  time.Duration
	wg            sync.WaitGroup
}

// NewSimulator creates a simulator issuing links under publicBaseURL and
// notifying webhookURL on resolution.
func NewSimulator(publicBaseURL, webhookURL string, opts ...Option) (*Simulator, error) {
	if publicBaseURL == "" {
		return nil, errors.New("public base URL cannot be empty")
	}

	options := simulatorOptions{
		logger:         slog.Default(),
		clock:          clock.Real{},
		webhookTimeout: 10 * time.Second,
		webhookDelay:   time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Simulator{
		transactions:  make(map[string]*models.Transaction),
		publicBaseURL: publicBaseURL,
		webhookURL:    webhookURL,
		client:        &http.Client{Timeout: options.webhookTimeout},
		logger:        options.logger.With(slog.String("caller", "paymentsim.Simulator")),
		clock:         options.clock,
		webhookDelay:  options.webhookDelay,
	}, nil
}

// CreateParams carries a transaction creation request.
type CreateParams struct {
	Amount      decimal.Decimal
	Currency    string
	PayerID     string
	AuctionID   string
	Description string
}

// Create records a pending transaction and returns it together with its
// payment link.
func (s *Simulator) Create(params CreateParams) (models.Transaction, string) {
	tx := &models.Transaction{
		TransactionID: uuid.New().String(),
		AuctionID:     params.AuctionID,
		PayerID:       params.PayerID,
		Amount:        params.Amount,
		Currency:      params.Currency,
		Description:   params.Description,
		Status:        models.TransactionPending,
		CreatedAt:     s.clock.Now(),
	}

	s.mu.Lock()
	s.transactions[tx.TransactionID] = tx
	s.mu.Unlock()

	link := fmt.Sprintf("%s/payments/%s/process", s.publicBaseURL, tx.TransactionID)
	s.logger.Info("transaction created",
		slog.String("transactionId", tx.TransactionID),
		slog.String("auctionId", tx.AuctionID))
	return *tx, link
}

// Resolve marks a pending transaction approved or declined and fires the
// webhook asynchronously. A transaction resolves at most once.
func (s *Simulator) Resolve(transactionID string, status models.TransactionStatus) (models.Transaction, error) {
	const op = "Simulator.Resolve"

	if status != models.TransactionApproved && status != models.TransactionDeclined {
		return models.Transaction{}, fmt.Errorf("[%s] status=%s, err=%w", op, status, ErrInvalidStatus)
	}

	s.mu.Lock()
	tx, ok := s.transactions[transactionID]
	if !ok {
		s.mu.Unlock()
		return models.Transaction{}, fmt.Errorf("[%s] transactionId=%s, err=%w", op, transactionID, ErrTransactionNotFound)
	}
	if tx.Status != models.TransactionPending {
		current := tx.Status
		s.mu.Unlock()
		return models.Transaction{}, fmt.Errorf("[%s] status=%s, err=%w", op, current, ErrAlreadyResolved)
	}
	tx.Status = status
	resolvedAt := s.clock.Now()
	tx.ResolvedAt = &resolvedAt
	resolved := *tx
	s.mu.Unlock()

	s.wg.Add(1)
	go s.sendWebhook(resolved)

	s.logger.Info("transaction resolved",
		slog.String("transactionId", transactionID),
		slog.String("status", string(status)))
	return resolved, nil
}

// Get returns one transaction.
func (s *Simulator) Get(transactionID string) (models.Transaction, error) {
	const op = "Simulator.Get"

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[transactionID]
	if !ok {
		return models.Transaction{}, fmt.Errorf("[%s] transactionId=%s, err=%w", op, transactionID, ErrTransactionNotFound)
	}
	return *tx, nil
}

// List snapshots every transaction.
func (s *Simulator) List() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(lo.Values(s.transactions), func(tx *models.Transaction, _ int) models.Transaction {
		return *tx
	})
}

// Wait blocks until every in-flight webhook finished. Test hook.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

// webhookBody is the notification sent to the orchestrator.
type webhookBody struct {
	AuctionID     string                   `json:"auction_id"`
	TransactionID string                   `json:"transaction_id"`
	Status        models.PaymentResolution `json:"status"`
}

func (s *Simulator) sendWebhook(tx models.Transaction) {
	defer s.wg.Done()

	if s.webhookURL == "" {
		return
	}
	time.Sleep(s.webhookDelay)

	body, _ := json.Marshal(webhookBody{
		AuctionID:     tx.AuctionID,
		TransactionID: tx.TransactionID,
		Status:        models.PaymentResolution(tx.Status),
	})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("webhook request build failed", slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("webhook delivery failed",
			slog.String("transactionId", tx.TransactionID),
			slog.Any("error", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("webhook rejected",
			slog.String("transactionId", tx.TransactionID),
			slog.Int("status", resp.StatusCode))
		return
	}
	s.logger.Info("webhook delivered", slog.String("transactionId", tx.TransactionID))
}
