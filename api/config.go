package api

import "time"

type ServerConfig struct {
	Redis   RedisConfig
	Bus     BusConfig
	Auction AuctionConfig
	Payment PaymentConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type BusConfig struct {
	ReconnectBackoff time.Duration
	BlockTimeout     time.Duration
}

type AuctionConfig struct {
	SweepInterval time.Duration
}

type PaymentConfig struct {
	GatewayURL string
	Timeout    time.Duration
	Currency   string
}
