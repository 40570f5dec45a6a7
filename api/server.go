package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"gavel/adapters/bus"
	"gavel/auction"
	"gavel/bidding"
	"gavel/gateway"
	"gavel/models"
	"gavel/payment"
)

// Server wires the four coordinating components onto one bus and exposes
// them over REST. Each component consumes with its own group, so a stream
// with several interested components delivers every message to each of
// them.
type Server struct {
	redisClient *redis.Client
	logger      *slog.Logger

	lifecycleBus *bus.Client
	biddingBus   *bus.Client
	paymentBus   *bus.Client
	gatewayBus   *bus.Client

	manager      *auction.Manager
	arbiter      *bidding.Arbiter
	orchestrator *payment.Orchestrator
	router       *gateway.Router
}

// NewServer constructs every component, connects the bus, registers all
// consumers, and starts the lifecycle sweep.
func NewServer(config ServerConfig, logger *slog.Logger) (*Server, error) {
	const op = "NewServer"

	if logger == nil {
		logger = slog.Default()
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	busOptions := func(group string) []bus.Option {
		opts := []bus.Option{bus.WithLogger(logger)}
		if config.Bus.ReconnectBackoff > 0 {
			opts = append(opts, bus.WithReconnectBackoff(config.Bus.ReconnectBackoff))
		}
		if config.Bus.BlockTimeout > 0 {
			opts = append(opts, bus.WithBlockTimeout(config.Bus.BlockTimeout))
		}
		return opts
	}

	s := &Server{
		redisClient: redisClient,
		logger:      logger,
	}

	var err error
	for _, binding := range []struct {
		client **bus.Client
		group  string
	}{
		{&s.lifecycleBus, "lifecycle"},
		{&s.biddingBus, "bidding"},
		{&s.paymentBus, "payment"},
		{&s.gatewayBus, "gateway"},
	} {
		*binding.client, err = bus.NewClient(redisClient, binding.group, binding.group+"-0", busOptions(binding.group)...)
		if err != nil {
			return nil, fmt.Errorf("[%s] fail to create %s bus client, err=%w", op, binding.group, err)
		}
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, client := range []*bus.Client{s.lifecycleBus, s.biddingBus, s.paymentBus, s.gatewayBus} {
		if err := client.Connect(connectCtx); err != nil {
			return nil, fmt.Errorf("[%s] fail to connect bus, err=%w", op, err)
		}
	}

	managerOpts := []auction.ManagerOption{auction.WithLogger(logger)}
	if config.Auction.SweepInterval > 0 {
		managerOpts = append(managerOpts, auction.WithSweepInterval(config.Auction.SweepInterval))
	}
	s.manager, err = auction.NewManager(s.lifecycleBus, managerOpts...)
	if err != nil {
		return nil, fmt.Errorf("[%s] fail to create lifecycle manager, err=%w", op, err)
	}

	s.arbiter, err = bidding.NewArbiter(s.biddingBus, bidding.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("[%s] fail to create bid arbiter, err=%w", op, err)
	}

	gatewayClient, err := payment.NewGatewayClient(config.Payment.GatewayURL, config.Payment.Timeout)
	if err != nil {
		return nil, fmt.Errorf("[%s] fail to create payment gateway client, err=%w", op, err)
	}
	orchestratorOpts := []payment.OrchestratorOption{payment.WithLogger(logger)}
	if config.Payment.Currency != "" {
		orchestratorOpts = append(orchestratorOpts, payment.WithCurrency(config.Payment.Currency))
	}
	s.orchestrator, err = payment.NewOrchestrator(gatewayClient, s.paymentBus, orchestratorOpts...)
	if err != nil {
		return nil, fmt.Errorf("[%s] fail to create payment orchestrator, err=%w", op, err)
	}

	s.router = gateway.NewRouter(gateway.WithLogger(logger))

	if err := s.registerConsumers(); err != nil {
		return nil, fmt.Errorf("[%s] fail to register consumers, err=%w", op, err)
	}

	s.manager.Start()
	return s, nil
}

// registerConsumers binds every component to the streams it reacts to.
func (s *Server) registerConsumers() error {
	if err := consume(s.biddingBus, bus.StreamAuctionStarted, s.logger,
		func(_ context.Context, ev models.AuctionStarted) {
			s.arbiter.HandleAuctionStarted(ev)
		}); err != nil {
		return err
	}
	if err := consume(s.biddingBus, bus.StreamAuctionFinalized, s.logger,
		func(_ context.Context, ev models.AuctionFinalized) {
			s.arbiter.HandleAuctionFinalized(ev)
		}); err != nil {
		return err
	}

	if err := consume(s.paymentBus, bus.StreamAuctionWon, s.logger,
		func(ctx context.Context, ev models.AuctionWon) {
			s.orchestrator.HandleAuctionWon(ctx, ev)
		}); err != nil {
		return err
	}

	// The router re-delivers raw payloads, so it consumes without decoding.
	for _, stream := range bus.AllStreams() {
		stream := stream
		if err := s.gatewayBus.Consume(stream, func(ctx context.Context, d *bus.Delivery) {
			s.router.Dispatch(stream, d.Values)
			if err := d.Ack(ctx); err != nil {
				s.logger.Error("ack failed", slog.String("stream", stream), slog.Any("error", err))
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

// consume registers a typed handler: decode, process, ack. A payload that
// cannot be decoded is logged and acked anyway so it never redelivers
// forever.
func consume[T any](client *bus.Client, stream string, logger *slog.Logger, fn func(ctx context.Context, ev T)) error {
	return client.Consume(stream, func(ctx context.Context, d *bus.Delivery) {
		var ev T
		if err := d.Decode(&ev); err != nil {
			logger.Error("dropping malformed payload",
				slog.String("stream", stream),
				slog.String("messageId", d.ID),
				slog.Any("error", err))
		} else {
			fn(ctx, ev)
		}
		if err := d.Ack(ctx); err != nil {
			logger.Error("ack failed",
				slog.String("stream", stream),
				slog.String("messageId", d.ID),
				slog.Any("error", err))
		}
	})
}

// Close tears down the sweep, the consumers, and every live client
// connection.
func (s *Server) Close() {
	s.manager.Close()
	for _, client := range []*bus.Client{s.lifecycleBus, s.biddingBus, s.paymentBus, s.gatewayBus} {
		if client != nil {
			client.Close()
		}
	}
	s.router.Close()
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("redis close failed", slog.Any("error", err))
	}
}
