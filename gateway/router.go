package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"gavel/adapters/sse"
)

var (
	ErrUnknownSubscription = errors.New("subscription not found")
)

// Notification is what a subscribed client receives: the event type and the
// raw payload exactly as it traveled on the bus.
type Notification struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

type routerOptions struct {
	logger *slog.Logger
}

type RouterOption func(*routerOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(o *routerOptions) {
		o.logger = logger
	}
}

// Router keeps the per-auction subscriber registry and fans bus events out
// to exactly the clients following that auction. Events for auctions nobody
// follows are dropped, not errors.
type Router struct {
	mu   sync.RWMutex
	subs map[string]map[string]struct{}

	hub    *sse.Hub[Notification]
	logger *slog.Logger
}

// NewRouter creates an event router.
func NewRouter(opts ...RouterOption) *Router {
	options := routerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	return &Router{
		subs:   make(map[string]map[string]struct{}),
		hub:    sse.NewHub[Notification](),
		logger: options.logger.With(slog.String("caller", "gateway.Router")),
	}
}

// Subscribe registers a client's interest in an auction. Idempotent.
func (r *Router) Subscribe(auctionID, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subs[auctionID]
	if !ok {
		set = make(map[string]struct{})
		r.subs[auctionID] = set
	}
	set[clientID] = struct{}{}
	r.logger.Info("client subscribed",
		slog.String("auctionId", auctionID),
		slog.String("clientId", clientID))
}

// Unsubscribe drops a client's interest; the auction's entry disappears with
// its last subscriber.
func (r *Router) Unsubscribe(auctionID, clientID string) error {
	const op = "Router.Unsubscribe"

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subs[auctionID]
	if !ok {
		return fmt.Errorf("[%s] auctionId=%s, err=%w", op, auctionID, ErrUnknownSubscription)
	}
	if _, ok := set[clientID]; !ok {
		return fmt.Errorf("[%s] auctionId=%s clientId=%s, err=%w", op, auctionID, clientID, ErrUnknownSubscription)
	}

	delete(set, clientID)
	if len(set) == 0 {
		delete(r.subs, auctionID)
	}
	r.logger.Info("client unsubscribed",
		slog.String("auctionId", auctionID),
		slog.String("clientId", clientID))
	return nil
}

// Subscribers returns the clients following an auction.
func (r *Router) Subscribers(auctionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.subs[auctionID])
}

// Dispatch routes one bus event to every subscriber of its auction. The
// payload is re-delivered verbatim, once per subscriber, on that client's
// delivery channel.
func (r *Router) Dispatch(eventType string, payload map[string]any) {
	auctionID, _ := payload["auction_id"].(string)
	if auctionID == "" {
		r.logger.Debug("dropping event without auction id", slog.String("event", eventType))
		return
	}

	r.mu.RLock()
	clients := lo.Keys(r.subs[auctionID])
	r.mu.RUnlock()

	if len(clients) == 0 {
		r.logger.Debug("dropping event with no subscribers",
			slog.String("event", eventType),
			slog.String("auctionId", auctionID))
		return
	}

	notification := Notification{Event: eventType, Payload: payload}
	for _, clientID := range clients {
		r.hub.Send(clientID, notification)
	}
	r.logger.Debug("event routed",
		slog.String("event", eventType),
		slog.String("auctionId", auctionID),
		slog.Int("subscribers", len(clients)))
}

// Attach connects a live client connection to its delivery channel.
func (r *Router) Attach(clientID string) <-chan Notification {
	return r.hub.Attach(clientID)
}

// Detach disconnects a live client connection.
func (r *Router) Detach(clientID string, ch <-chan Notification) {
	r.hub.Detach(clientID, ch)
}

// Close tears down every live connection.
func (r *Router) Close() {
	r.hub.Close()
}
