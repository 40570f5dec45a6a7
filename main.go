package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"gavel/api"
	"gavel/paymentsim"
)

func main() {
	args := ParseArgs()
	if !args.Validate() {
		panic("missing arguments")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	server, err := api.NewServer(args.ServerConfig, logger)
	if err != nil {
		panic(err)
	}
	defer server.Close()

	if args.PaymentSimAddr != "" {
		simulator, err := paymentsim.NewSimulator(
			args.PaymentSimPublicURL,
			args.PaymentWebhookURL,
			paymentsim.WithLogger(logger),
		)
		if err != nil {
			panic(err)
		}
		simRouter := gin.New()
		simRouter.Use(gin.Recovery())
		simulator.Routes(simRouter)
		go func() {
			if err := simRouter.Run(args.PaymentSimAddr); err != nil {
				logger.Error("payment simulator stopped", slog.Any("error", err))
			}
		}()
	}

	router := server.SetupRouter()
	if err := router.Run(args.ServerURL); err != nil {
		panic(err)
	}
}
