package paymentsim

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel/models"
)

func newTestSimulator(t *testing.T, webhookURL string) *Simulator {
	t.Helper()
	s, err := NewSimulator("http://pay.local", webhookURL, WithWebhookDelay(time.Millisecond))
	require.NoError(t, err)
	return s
}

func TestNewSimulatorValidation(t *testing.T) {
	s, err := NewSimulator("", "")
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestCreate(t *testing.T) {
	s := newTestSimulator(t, "")

	tx, link := s.Create(CreateParams{
		Amount:    decimal.NewFromInt(150),
		Currency:  "BRL",
		PayerID:   "bob",
		AuctionID: "a1",
	})

	assert.NotEmpty(t, tx.TransactionID)
	assert.Equal(t, models.TransactionPending, tx.Status)
	assert.Equal(t, fmt.Sprintf("http://pay.local/payments/%s/process", tx.TransactionID), link)

	stored, err := s.Get(tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, "a1", stored.AuctionID)
	assert.Nil(t, stored.ResolvedAt)
}

func TestResolve(t *testing.T) {
	t.Run("approve", func(t *testing.T) {
		s := newTestSimulator(t, "")
		tx, _ := s.Create(CreateParams{Amount: decimal.NewFromInt(10), AuctionID: "a1"})

		resolved, err := s.Resolve(tx.TransactionID, models.TransactionApproved)
		require.NoError(t, err)
		assert.Equal(t, models.TransactionApproved, resolved.Status)
		require.NotNil(t, resolved.ResolvedAt)
		s.Wait()
	})

	t.Run("unknown transaction", func(t *testing.T) {
		s := newTestSimulator(t, "")
		_, err := s.Resolve("ghost", models.TransactionApproved)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("invalid status", func(t *testing.T) {
		s := newTestSimulator(t, "")
		tx, _ := s.Create(CreateParams{Amount: decimal.NewFromInt(10), AuctionID: "a1"})
		_, err := s.Resolve(tx.TransactionID, models.TransactionStatus("maybe"))
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("resolves at most once", func(t *testing.T) {
		s := newTestSimulator(t, "")
		tx, _ := s.Create(CreateParams{Amount: decimal.NewFromInt(10), AuctionID: "a1"})

		_, err := s.Resolve(tx.TransactionID, models.TransactionDeclined)
		require.NoError(t, err)

		_, err = s.Resolve(tx.TransactionID, models.TransactionApproved)
		assert.ErrorIs(t, err, ErrAlreadyResolved)
		s.Wait()
	})
}

func TestResolveDeliversWebhook(t *testing.T) {
	var mu sync.Mutex
	var received []webhookBody
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body webhookBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		received = append(received, body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	s := newTestSimulator(t, hook.URL)
	tx, _ := s.Create(CreateParams{Amount: decimal.NewFromInt(10), AuctionID: "a1"})

	_, err := s.Resolve(tx.TransactionID, models.TransactionApproved)
	require.NoError(t, err)
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "a1", received[0].AuctionID)
	assert.Equal(t, tx.TransactionID, received[0].TransactionID)
	assert.Equal(t, models.PaymentApproved, received[0].Status)
}

func TestList(t *testing.T) {
	s := newTestSimulator(t, "")
	assert.Empty(t, s.List())

	s.Create(CreateParams{Amount: decimal.NewFromInt(1), AuctionID: "a1"})
	s.Create(CreateParams{Amount: decimal.NewFromInt(2), AuctionID: "a2"})
	assert.Len(t, s.List(), 2)
}
