package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/chanx"
)

var (
	ErrClientClosed = errors.New("bus client is closed")
)

type clientOptions struct {
	logger           *slog.Logger
	publishBuffer    int
	blockTimeout     time.Duration
	reconnectBackoff time.Duration
}

type Option func(*clientOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithPublishBuffer sets the initial capacity of the outgoing message queue.
func WithPublishBuffer(size int) Option {
	return func(o *clientOptions) {
		o.publishBuffer = size
	}
}

// WithBlockTimeout sets how long a consumer loop blocks waiting for the next
// delivery before re-checking for shutdown.
func WithBlockTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.blockTimeout = d
	}
}

// WithReconnectBackoff sets the fixed delay between recovery attempts after
// a connection-level failure.
func WithReconnectBackoff(d time.Duration) Option {
	return func(o *clientOptions) {
		o.reconnectBackoff = d
	}
}

type outgoing struct {
	stream string
	values map[string]any
}

// Handler processes one delivery. It must call Delivery.Ack after successful
// local processing; the client never acks on its own.
type Handler func(ctx context.Context, d *Delivery)

// Client is one component's connection to the event bus. Publishing is
// fire-and-forget through a background producer goroutine; each Consume call
// owns a consumer loop that survives connection drops by reconnecting with a
// fixed backoff and resuming with its handler intact.
type Client struct {
	rdb      *redis.Client
	group    string
	consumer string
	logger   *slog.Logger
	options  clientOptions

	upstream   *chanx.UnboundedChan[outgoing]
	cancelFunc context.CancelFunc
	ctx        context.Context
	wg         sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewClient creates a bus client for the named consumer group. Call Connect
// before Consume; Publish is available immediately.
func NewClient(rdb *redis.Client, group, consumer string, opts ...Option) (*Client, error) {
	if rdb == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if group == "" || consumer == "" {
		return nil, errors.New("group and consumer cannot be empty")
	}

	options := clientOptions{
		logger:           slog.Default(),
		publishBuffer:    64,
		blockTimeout:     time.Second,
		reconnectBackoff: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		rdb:        rdb,
		group:      group,
		consumer:   consumer,
		logger:     options.logger.With(slog.String("caller", "bus.Client"), slog.String("group", group)),
		options:    options,
		upstream:   chanx.NewUnboundedChan[outgoing](ctx, options.publishBuffer),
		ctx:        ctx,
		cancelFunc: cancel,
	}

	c.wg.Add(1)
	go c.producerLoop(ctx)
	return c, nil
}

// Connect verifies the connection and idempotently declares every stream for
// this client's consumer group. Safe to call again after a drop.
func (c *Client) Connect(ctx context.Context) error {
	const op = "Client.Connect"

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("[%s] fail to ping broker, err=%w", op, err)
	}

	for _, stream := range AllStreams() {
		err := c.rdb.XGroupCreateMkStream(ctx, stream, c.group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("[%s] fail to declare stream %s, err=%w", op, stream, err)
		}
	}
	return nil
}

// Publish queues a payload for the named stream. Fire-and-forget: delivery
// failures are logged by the producer loop, not surfaced to the caller.
func (c *Client) Publish(stream string, data any) error {
	const op = "Client.Publish"

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClientClosed
	}

	values, err := EncodeMessage(data)
	if err != nil {
		return fmt.Errorf("[%s] fail to encode payload, err=%w", op, err)
	}

	c.upstream.In <- outgoing{stream: stream, values: values}
	return nil
}

func (c *Client) producerLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.upstream.Out:
			id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
				Stream: msg.stream,
				Values: msg.values,
			}).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				c.logger.Error("publish failed",
					slog.String("stream", msg.stream),
					slog.Any("error", err))
				continue
			}
			c.logger.Debug("message published",
				slog.String("stream", msg.stream),
				slog.String("messageId", id))
		}
	}
}

// Consume registers a handler for one stream and starts its consumer loop.
func (c *Client) Consume(stream string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}

	c.wg.Add(1)
	go c.consumeLoop(c.ctx, stream, handler)
	c.logger.Info("consuming stream", slog.String("stream", stream))
	return nil
}

// consumeLoop reads deliveries one at a time. After every (re)connect it
// first drains this consumer's unacked entries, so a message whose handler
// died before acking is seen again.
func (c *Client) consumeLoop(ctx context.Context, stream string, handler Handler) {
	defer c.wg.Done()

	logger := c.logger.With(slog.String("stream", stream))
	readID := "0"

	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{stream, readID},
			Count:    1,
			Block:    c.options.blockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				readID = ">"
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logger.Error("fetch message error, reconnecting", slog.Any("error", err))
			if !c.sleep(ctx, c.options.reconnectBackoff) {
				return
			}
			if err := c.Connect(ctx); err != nil {
				logger.Error("reconnect failed", slog.Any("error", err))
			}
			readID = "0"
			continue
		}

		if len(streams) == 0 || len(streams[0].Messages) == 0 {
			readID = ">"
			continue
		}

		msg := streams[0].Messages[0]
		if readID == "0" {
			// Pending entries replay from the same cursor until acked, so
			// advance past this one explicitly.
			readID = incrementID(msg.ID)
		}

		handler(ctx, &Delivery{
			Stream: stream,
			ID:     msg.ID,
			Values: msg.Values,
			rdb:    c.rdb,
			group:  c.group,
		})
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Close stops the producer and all consumer loops and waits for them.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.logger.Info("closing bus client")
	c.cancelFunc()
	c.wg.Wait()
	c.logger.Info("bus client closed")
	return nil
}

// incrementID returns the smallest stream id strictly after id.
func incrementID(id string) string {
	parts := strings.SplitN(id, "-", 2)
	if len(parts) != 2 {
		return id
	}
	return parts[0] + "-" + nextSeq(parts[1])
}

func nextSeq(seq string) string {
	// Decimal string increment; sequence numbers are small enough that the
	// all-nines overflow case never occurs in practice, but handle it anyway.
	digits := []byte(seq)
	for i := len(digits) - 1; i >= 0; i-- {
		if digits[i] < '9' {
			digits[i]++
			return string(digits)
		}
		digits[i] = '0'
	}
	return "1" + string(digits)
}
