package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentResolution is the outcome reported by the external gateway.
type PaymentResolution string

const (
	PaymentApproved PaymentResolution = "approved"
	PaymentDeclined PaymentResolution = "declined"
)

// Valid reports whether the resolution is one the webhook accepts.
func (r PaymentResolution) Valid() bool {
	return r == PaymentApproved || r == PaymentDeclined
}

// PendingPayment tracks a winner awaiting checkout, keyed by auction id in
// the orchestrator. Removed on approval; a declined payment stays visible.
type PendingPayment struct {
	AuctionID     string          `json:"auction_id"`
	WinnerID      string          `json:"winner_id"`
	Amount        decimal.Decimal `json:"amount"`
	Link          string          `json:"link"`
	TransactionID string          `json:"transaction_id"`
}

// TransactionStatus is the state of a transaction inside the external
// payment system.
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionApproved TransactionStatus = "approved"
	TransactionDeclined TransactionStatus = "declined"
)

// Transaction is the external payment system's record of a checkout.
type Transaction struct {
	TransactionID string            `json:"transaction_id"`
	AuctionID     string            `json:"auction_id"`
	PayerID       string            `json:"payer_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Description   string            `json:"description"`
	Status        TransactionStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	ResolvedAt    *time.Time        `json:"resolved_at,omitempty"`
}
