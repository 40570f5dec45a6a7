package bidding

import (
	"fmt"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel/adapters/bus"
	"gavel/models"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	stream string
	data   any
}

func (p *fakePublisher) Publish(stream string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{stream: stream, data: data})
	return nil
}

func (p *fakePublisher) byStream(stream string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.FilterMap(p.events, func(e publishedEvent, _ int) (any, bool) {
		return e.data, e.stream == stream
	})
}

func newTestArbiter(t *testing.T) (*Arbiter, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	a, err := NewArbiter(pub)
	require.NoError(t, err)
	return a, pub
}

func TestNewArbiterRequiresPublisher(t *testing.T) {
	a, err := NewArbiter(nil)
	assert.Error(t, err)
	assert.Nil(t, a)
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name       string
		prepare    func(a *Arbiter)
		auctionID  string
		amount     decimal.Decimal
		wantErr    error
		wantReason string
	}{
		{
			name: "first bid accepted",
			prepare: func(a *Arbiter) {
				a.HandleAuctionStarted(models.AuctionStarted{AuctionID: "a1"})
			},
			auctionID: "a1",
			amount:    decimal.NewFromInt(100),
		},
		{
			name:      "unknown auction",
			auctionID: "ghost",
			amount:    decimal.NewFromInt(100),
			wantErr:   ErrAuctionNotActive,
		},
		{
			name: "bid equal to current highest",
			prepare: func(a *Arbiter) {
				a.HandleAuctionStarted(models.AuctionStarted{AuctionID: "a1"})
				_, err := a.Submit("a1", "alice", decimal.NewFromInt(100))
				require.NoError(t, err)
			},
			auctionID:  "a1",
			amount:     decimal.NewFromInt(100),
			wantErr:    ErrBidTooLow,
			wantReason: "bid must exceed 100",
		},
		{
			name: "bid below current highest",
			prepare: func(a *Arbiter) {
				a.HandleAuctionStarted(models.AuctionStarted{AuctionID: "a1"})
				_, err := a.Submit("a1", "alice", decimal.NewFromInt(100))
				require.NoError(t, err)
			},
			auctionID:  "a1",
			amount:     decimal.NewFromInt(50),
			wantErr:    ErrBidTooLow,
			wantReason: "bid must exceed 100",
		},
		{
			name: "zero amount",
			prepare: func(a *Arbiter) {
				a.HandleAuctionStarted(models.AuctionStarted{AuctionID: "a1"})
			},
			auctionID: "a1",
			amount:    decimal.Zero,
			wantErr:   ErrInvalidAmount,
		},
		{
			name: "finalized auction rejects bids",
			prepare: func(a *Arbiter) {
				a.HandleAuctionStarted(models.AuctionStarted{AuctionID: "a1"})
				a.HandleAuctionFinalized(models.AuctionFinalized{AuctionID: "a1"})
			},
			auctionID: "a1",
			amount:    decimal.NewFromInt(100),
			wantErr:   ErrAuctionNotActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, pub := newTestArbiter(t)
			if tt.prepare != nil {
				tt.prepare(a)
			}

			got, err := a.Submit(tt.auctionID, "bob", tt.amount)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.wantReason != "" {
					invalidated := pub.byStream(bus.StreamBidInvalidated)
					require.NotEmpty(t, invalidated)
					last := invalidated[len(invalidated)-1].(models.BidInvalidated)
					assert.Equal(t, tt.wantReason, last.Reason)
					assert.Equal(t, "bob", last.BidderID)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "bob", got.BidderID)
			assert.True(t, tt.amount.Equal(got.Amount))

			validated := pub.byStream(bus.StreamBidValidated)
			require.Len(t, validated, 1)
			ev := validated[0].(models.BidValidated)
			assert.Equal(t, tt.auctionID, ev.AuctionID)
			assert.True(t, tt.amount.Equal(ev.Amount))
		})
	}
}

func TestHandleAuctionStartedIdempotent(t *testing.T) {
	a, _ := newTestArbiter(t)

	a.HandleAuctionStarted(models.AuctionStarted{AuctionID: "a1"})
	_, err := a.Submit("a1", "alice", decimal.NewFromInt(200))
	require.NoError(t, err)

	// A redelivered started event must not wipe the standing bid.
	a.HandleAuctionStarted(models.AuctionStarted{AuctionID: "a1"})

	hb, ok := a.Highest("a1")
	require.True(t, ok)
	assert.Equal(t, "alice", hb.BidderID)
	assert.True(t, decimal.NewFromInt(200).Equal(hb.Amount))
}

func TestHandleAuctionFinalized(t *testing.T) {
	t.Run("with winner", func(t *testing.T) {
		a, pub := newTestArbiter(t)
		a.HandleAuctionStarted(models.AuctionStarted{AuctionID: "a1"})
		_, err := a.Submit("a1", "alice", decimal.NewFromInt(100))
		require.NoError(t, err)
		_, err = a.Submit("a1", "bob", decimal.NewFromInt(150))
		require.NoError(t, err)

		a.HandleAuctionFinalized(models.AuctionFinalized{AuctionID: "a1"})

		won := pub.byStream(bus.StreamAuctionWon)
		require.Len(t, won, 1)
		ev := won[0].(models.AuctionWon)
		assert.Equal(t, "a1", ev.AuctionID)
		assert.Equal(t, "bob", ev.WinnerID)
		assert.True(t, decimal.NewFromInt(150).Equal(ev.Amount))

		_, ok := a.Highest("a1")
		assert.False(t, ok)
	})

	t.Run("no bids", func(t *testing.T) {
		a, pub := newTestArbiter(t)
		a.HandleAuctionStarted(models.AuctionStarted{AuctionID: "a1"})

		a.HandleAuctionFinalized(models.AuctionFinalized{AuctionID: "a1"})
		assert.Empty(t, pub.byStream(bus.StreamAuctionWon))
	})

	t.Run("never started", func(t *testing.T) {
		a, pub := newTestArbiter(t)
		a.HandleAuctionFinalized(models.AuctionFinalized{AuctionID: "ghost"})
		assert.Empty(t, pub.byStream(bus.StreamAuctionWon))
	})
}

func TestConcurrentBidsKeepMaximum(t *testing.T) {
	a, pub := newTestArbiter(t)
	a.HandleAuctionStarted(models.AuctionStarted{AuctionID: "a1"})

	const bidders = 50
	var wg sync.WaitGroup
	for i := 1; i <= bidders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// Rejections are expected; only the ordering invariant matters.
			a.Submit("a1", fmt.Sprintf("bidder-%d", n), decimal.NewFromInt(int64(n)))
		}(i)
	}
	wg.Wait()

	hb, ok := a.Highest("a1")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(bidders).Equal(hb.Amount))
	assert.Equal(t, fmt.Sprintf("bidder-%d", bidders), hb.BidderID)

	// Accepted amounts are distinct and the maximum was accepted; publish
	// order is not guaranteed across goroutines, only distinctness is.
	validated := pub.byStream(bus.StreamBidValidated)
	require.NotEmpty(t, validated)
	amounts := lo.Map(validated, func(raw any, _ int) string {
		return raw.(models.BidValidated).Amount.String()
	})
	assert.Len(t, lo.Uniq(amounts), len(amounts))
	assert.Contains(t, amounts, decimal.NewFromInt(bidders).String())
}
