package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"gavel/adapters/bus"
	"gavel/clock"
	"gavel/models"
)

var (
	ErrDuplicateAuction = errors.New("auction already exists")
	ErrInvalidSchedule  = errors.New("auction must end after it starts")
)

// Publisher is the slice of the bus the manager needs.
type Publisher interface {
	Publish(stream string, data any) error
}

type managerOptions struct {
	logger        *slog.Logger
	clock         clock.Clock
	sweepInterval time.Duration
}

type ManagerOption func(*managerOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(o *managerOptions) {
		o.logger = logger
	}
}

// WithClock sets the time source.
func WithClock(clk clock.Clock) ManagerOption {
	return func(o *managerOptions) {
		o.clock = clk
	}
}

// WithSweepInterval sets how often the lifecycle sweep re-evaluates every
// auction against the current time.
func WithSweepInterval(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		o.sweepInterval = d
	}
}

// Manager owns the authoritative auction records. Status transitions happen
// in exactly two places, both guarded by the same mutex: Create's immediate
// promotion and the periodic sweep.
type Manager struct {
	mu       sync.RWMutex
	auctions map[string]*models.Auction

	publisher  Publisher
	logger     *slog.Logger
	clock      clock.Clock
	interval   time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
}

// NewManager creates a lifecycle manager publishing through pub.
func NewManager(pub Publisher, opts ...ManagerOption) (*Manager, error) {
	if pub == nil {
		return nil, errors.New("publisher cannot be nil")
	}

	options := managerOptions{
		logger:        slog.Default(),
		clock:         clock.Real{},
		sweepInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Manager{
		auctions:  make(map[string]*models.Auction),
		publisher: pub,
		logger:    options.logger.With(slog.String("caller", "auction.Manager")),
		clock:     options.clock,
		interval:  options.sweepInterval,
		closed:    true,
	}, nil
}

// CreateParams carries a creation request.
type CreateParams struct {
	ID            string
	Description   string
	StartingPrice decimal.Decimal
	CreatorID     string
	EndTime       time.Time
}

// Create stores a new auction. The start time is the creation time; when the
// window is already open the record is promoted immediately and the started
// event goes out as part of this call instead of waiting for the next sweep.
func (m *Manager) Create(params CreateParams) (models.Auction, error) {
	const op = "Manager.Create"

	now := m.clock.Now()
	if !params.EndTime.After(now) {
		return models.Auction{}, fmt.Errorf("[%s] end=%s, err=%w", op, params.EndTime.Format(time.RFC3339), ErrInvalidSchedule)
	}

	a := &models.Auction{
		ID:            params.ID,
		Description:   params.Description,
		StartingPrice: params.StartingPrice,
		CreatorID:     params.CreatorID,
		StartTime:     now,
		EndTime:       params.EndTime,
		Status:        models.AuctionStatusScheduled,
	}

	m.mu.Lock()
	if _, exists := m.auctions[params.ID]; exists {
		m.mu.Unlock()
		return models.Auction{}, fmt.Errorf("[%s] id=%s, err=%w", op, params.ID, ErrDuplicateAuction)
	}
	m.auctions[params.ID] = a

	// Start defaults to now, so a fresh record is inside its window unless
	// the clock moved between the checks. Promote before releasing the lock.
	started := false
	if !now.Before(a.StartTime) && now.Before(a.EndTime) {
		a.Status = models.AuctionStatusActive
		started = true
	}
	record := *a
	m.mu.Unlock()

	if started {
		m.publishStarted(record)
		m.logger.Info("auction created and started",
			slog.String("auctionId", record.ID),
			slog.Time("endTime", record.EndTime))
	} else {
		m.logger.Info("auction created",
			slog.String("auctionId", record.ID),
			slog.Time("endTime", record.EndTime))
	}
	return record, nil
}

// Get returns one auction record.
func (m *Manager) Get(id string) (models.Auction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.auctions[id]
	if !ok {
		return models.Auction{}, false
	}
	return *a, true
}

// ListActive returns every auction listed as active: promoted and not yet
// swept into finalized, or inside its window and about to be promoted by the
// next sweep. Either way the caller sees it as active.
func (m *Manager) ListActive() []models.Auction {
	now := m.clock.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	active := lo.FilterMap(lo.Values(m.auctions), func(a *models.Auction, _ int) (models.Auction, bool) {
		inWindow := !now.Before(a.StartTime) && now.Before(a.EndTime)
		if a.Status != models.AuctionStatusActive && !inWindow {
			return models.Auction{}, false
		}
		if a.Status == models.AuctionStatusFinalized {
			return models.Auction{}, false
		}
		record := *a
		record.Status = models.AuctionStatusActive
		return record, true
	})
	return active
}

// Start launches the periodic lifecycle sweep.
func (m *Manager) Start() {
	m.mu.Lock()
	if !m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = false
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelFunc = cancel
	m.mu.Unlock()

	m.logger.Info("starting lifecycle sweep", slog.Duration("interval", m.interval))
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Close stops the sweep.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	cancel := m.cancelFunc
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("lifecycle sweep stopped")
}

// Sweep re-evaluates every record against the current time. Transitions are
// one-way and guarded by the status field, so re-entering on an already
// promoted record is a no-op and each event is published once per record.
func (m *Manager) Sweep() {
	now := m.clock.Now()

	var started, finalized []models.Auction
	m.mu.Lock()
	for id, a := range m.auctions {
		if a.EndTime.IsZero() || !a.EndTime.After(a.StartTime) {
			m.logger.Error("skipping auction with invalid window", slog.String("auctionId", id))
			continue
		}
		switch a.Status {
		case models.AuctionStatusScheduled:
			if !now.Before(a.StartTime) && now.Before(a.EndTime) {
				a.Status = models.AuctionStatusActive
				started = append(started, *a)
			}
		case models.AuctionStatusActive:
			if !now.Before(a.EndTime) {
				a.Status = models.AuctionStatusFinalized
				finalized = append(finalized, *a)
			}
		}
	}
	m.mu.Unlock()

	// Events go out after the state change is applied, never under the lock.
	for _, a := range started {
		m.publishStarted(a)
		m.logger.Info("auction started", slog.String("auctionId", a.ID))
	}
	for _, a := range finalized {
		m.publishFinalized(a)
		m.logger.Info("auction finalized", slog.String("auctionId", a.ID))
	}
}

func (m *Manager) publishStarted(a models.Auction) {
	err := m.publisher.Publish(bus.StreamAuctionStarted, models.AuctionStarted{
		AuctionID:     a.ID,
		Description:   a.Description,
		StartingPrice: a.StartingPrice,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
	})
	if err != nil {
		m.logger.Error("publish auction started failed",
			slog.String("auctionId", a.ID), slog.Any("error", err))
	}
}

func (m *Manager) publishFinalized(a models.Auction) {
	err := m.publisher.Publish(bus.StreamAuctionFinalized, models.AuctionFinalized{
		AuctionID:   a.ID,
		Description: a.Description,
		EndTime:     a.EndTime,
	})
	if err != nil {
		m.logger.Error("publish auction finalized failed",
			slog.String("auctionId", a.ID), slog.Any("error", err))
	}
}
