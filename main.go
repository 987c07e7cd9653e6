package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jessevdk/go-flags"

	"boxoffice/db"
	"boxoffice/gateway"
	"boxoffice/pubsub"
	"boxoffice/service"
	"boxoffice/tracing"
)

type options struct {
	HTTPAddr        string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"HTTP listen address"`
	PostgresURL     string `long:"postgres-url" env:"POSTGRES_URL" required:"true" description:"Postgres connection URL"`
	RedisAddr       string `long:"redis-addr" env:"REDIS_ADDR" required:"true" description:"Redis address"`
	FrontendBaseURL string `long:"frontend-base-url" env:"FRONTEND_BASE_URL" required:"true" description:"Base URL for buyer-facing download links"`
	DeliveryAPIURL  string `long:"delivery-api-url" env:"DELIVERY_API_URL" required:"true" description:"Base URL of the message delivery API"`
	JaegerEndpoint  string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"Jaeger collector endpoint"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp := tracing.ConfigureTraceProvider(opts.JaegerEndpoint)
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	database, err := db.Connect(opts.PostgresURL)
	if err != nil {
		panic(err)
	}
	defer database.Close()

	redisClient := pubsub.NewRedisClient(opts.RedisAddr)
	defer redisClient.Close()

	svc := service.New(
		opts.HTTPAddr,
		opts.FrontendBaseURL,
		database,
		redisClient,
		gateway.NewPNGRenderer(),
		gateway.NewEmailClient(opts.DeliveryAPIURL),
		gateway.NewSMSClient(opts.DeliveryAPIURL),
		gateway.NewWhatsAppClient(opts.DeliveryAPIURL),
	)

	if err := svc.Run(ctx); err != nil {
		log.FromContext(ctx).WithError(err).Error("Service stopped with error")
		os.Exit(1)
	}
}
