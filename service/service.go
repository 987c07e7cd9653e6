package service

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"boxoffice/db"
	"boxoffice/db/events"
	"boxoffice/db/scanlogs"
	"boxoffice/db/sellers"
	"boxoffice/db/sharelogs"
	"boxoffice/db/tickets"
	"boxoffice/db/tokens"
	"boxoffice/gate"
	"boxoffice/gateway"
	"boxoffice/http"
	"boxoffice/lifecycle"
	"boxoffice/pubsub"
	"boxoffice/pubsub/bus"
	"boxoffice/pubsub/command"
	"boxoffice/pubsub/event"
	"boxoffice/pubsub/outbox"
	"boxoffice/token"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Service struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *http.Server
	tokenSweeper    *token.Sweeper
}

func New(
	addr string,
	frontendBaseURL string,
	database *sqlx.DB,
	redisClient *redis.Client,
	renderer gateway.QRRenderer,
	emailSink gateway.NotificationSink,
	smsSink gateway.NotificationSink,
	whatsappSink gateway.NotificationSink,
) Service {
	ticketsRepo := tickets.NewPostgresRepository(database)
	tokensRepo := tokens.NewPostgresRepository(database)
	sellersRepo := sellers.NewPostgresRepository(database)
	eventsRepo := events.NewPostgresRepository(database)
	scanLogsRepo := scanlogs.NewPostgresRepository(database)
	shareLogsRepo := sharelogs.NewPostgresRepository(database)

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	var redisPublisher message.Publisher
	redisPublisher = pubsub.NewRedisPublisher(redisClient, watermillLogger)
	redisPublisher = log.CorrelationPublisherDecorator{Publisher: redisPublisher}

	eventBus, err := bus.NewEventBus(redisPublisher)
	if err != nil {
		panic(fmt.Errorf("failed to create event bus: %w", err))
	}
	commandBus, err := bus.NewCommandBus(redisPublisher)
	if err != nil {
		panic(fmt.Errorf("failed to create command bus: %w", err))
	}

	tokenManager := token.NewManager(tokensRepo, token.NewURLBuilder(frontendBaseURL))
	ledger := lifecycle.NewLedger(sellersRepo)
	lifecycleEngine := lifecycle.NewEngine(ticketsRepo, eventsRepo, ledger, tokenManager)
	gateEngine := gate.NewEngine(ticketsRepo, sellersRepo, scanLogsRepo, eventBus)

	notifier := gateway.NewNotifier(emailSink, smsSink, whatsappSink)

	eventsHandler := event.NewHandler(eventBus, notifier, ticketsRepo, shareLogsRepo)
	commandsHandler := command.NewHandler(eventBus, notifier, ticketsRepo, tokenManager, shareLogsRepo)

	postgresSubscriber := outbox.NewPostgresSubscriber(database.DB, watermillLogger)
	eventProcessorConfig := event.NewProcessorConfig(redisClient, watermillLogger)
	commandProcessorConfig := command.NewProcessorConfig(redisClient, watermillLogger)

	redisSubscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        redisClient,
		ConsumerGroup: "svc-boxoffice.events",
	}, watermillLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create redis subscriber: %w", err))
	}

	watermillRouter, err := pubsub.NewWatermillRouter(
		postgresSubscriber,
		redisPublisher,
		redisSubscriber,
		eventProcessorConfig,
		eventsHandler,
		commandProcessorConfig,
		commandsHandler,
		watermillLogger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create watermill router: %w", err))
	}

	httpServer := http.NewServer(
		addr,
		commandBus,
		lifecycleEngine,
		ledger,
		gateEngine,
		tokenManager,
		renderer,
		ticketsRepo,
		sellersRepo,
		eventsRepo,
	)

	return Service{
		db:              database,
		watermillRouter: watermillRouter,
		httpServer:      httpServer,
		tokenSweeper:    token.NewSweeper(tokenManager),
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		return s.tokenSweeper.Run(ctx)
	})

	g.Go(func() error {
		// HTTP starts only once the router is running, so the service is not
		// reported healthy before handlers are subscribed
		<-s.watermillRouter.Running()

		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
