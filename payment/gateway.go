package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRequest is the body sent to the external payment system.
type TransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PayerID     string          `json:"payer_id"`
	AuctionID   string          `json:"auction_id"`
	Description string          `json:"description"`
}

// TransactionInfo is the external system's answer to a created transaction.
type TransactionInfo struct {
	TransactionID string `json:"transaction_id"`
	PaymentLink   string `json:"payment_link"`
}

// Gateway creates transactions in the external payment system.
type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (TransactionInfo, error)
}

// GatewayClient talks to the external payment system over HTTP with a
// bounded timeout and no retry; a failed call is terminal for that
// auction's automated flow.
type GatewayClient struct {
	baseURL string
	client  *http.Client
}

// NewGatewayClient creates a client for the gateway at baseURL.
func NewGatewayClient(baseURL string, timeout time.Duration) (*GatewayClient, error) {
	if baseURL == "" {
		return nil, errors.New("gateway base URL cannot be empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GatewayClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// CreateTransaction asks the gateway for a transaction id and payment link.
func (g *GatewayClient) CreateTransaction(ctx context.Context, req TransactionRequest) (TransactionInfo, error) {
	const op = "GatewayClient.CreateTransaction"

	body, err := json.Marshal(req)
	if err != nil {
		return TransactionInfo{}, fmt.Errorf("[%s] fail to encode request, err=%w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return TransactionInfo{}, fmt.Errorf("[%s] fail to build request, err=%w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return TransactionInfo{}, fmt.Errorf("[%s] gateway unreachable, err=%w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return TransactionInfo{}, fmt.Errorf("[%s] gateway returned status %d: %s", op, resp.StatusCode, payload)
	}

	var info TransactionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return TransactionInfo{}, fmt.Errorf("[%s] fail to decode response, err=%w", op, err)
	}
	if info.PaymentLink == "" {
		return TransactionInfo{}, fmt.Errorf("[%s] gateway returned no payment link", op)
	}
	return info, nil
}
