package main

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gavel/api"
)

func ParseArgs() Args {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 0, "")

	// bus config
	pflag.Duration("bus-reconnect-backoff", 3*time.Second, "")
	pflag.Duration("bus-block-timeout", time.Second, "")

	// auction config
	pflag.Duration("sweep-interval", 5*time.Second, "")

	// payment config
	pflag.String("payment-gateway-url", "", "")
	pflag.Duration("payment-timeout", 10*time.Second, "")
	pflag.String("payment-currency", "BRL", "")

	// payment simulator (empty addr disables the embedded simulator)
	pflag.String("payment-sim-addr", "", "")
	pflag.String("payment-sim-public-url", "", "")
	pflag.String("payment-webhook-url", "", "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("GAVEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	return Args{
		ServerURL:           viper.GetString("server-url"),
		PaymentSimAddr:      viper.GetString("payment-sim-addr"),
		PaymentSimPublicURL: viper.GetString("payment-sim-public-url"),
		PaymentWebhookURL:   viper.GetString("payment-webhook-url"),
		ServerConfig: api.ServerConfig{
			Redis: api.RedisConfig{
				Addr:     viper.GetString("redis-addr"),
				Password: viper.GetString("redis-password"),
				DB:       viper.GetInt("redis-db"),
			},
			Bus: api.BusConfig{
				ReconnectBackoff: viper.GetDuration("bus-reconnect-backoff"),
				BlockTimeout:     viper.GetDuration("bus-block-timeout"),
			},
			Auction: api.AuctionConfig{
				SweepInterval: viper.GetDuration("sweep-interval"),
			},
			Payment: api.PaymentConfig{
				GatewayURL: viper.GetString("payment-gateway-url"),
				Timeout:    viper.GetDuration("payment-timeout"),
				Currency:   viper.GetString("payment-currency"),
			},
		},
	}
}

type Args struct {
	ServerURL           string
	PaymentSimAddr      string
	PaymentSimPublicURL string
	PaymentWebhookURL   string
	ServerConfig        api.ServerConfig
}

func (args Args) Validate() bool {
	return args.ServerURL != "" &&
		args.ServerConfig.Redis.Addr != "" &&
		args.ServerConfig.Payment.GatewayURL != ""
}
