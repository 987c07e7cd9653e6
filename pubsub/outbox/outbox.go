package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const outboxTopic = "events_to_forward"

// NewPostgresSubscriber reads enveloped messages out of the outbox table so
// the forwarder can push them to Redis.
func NewPostgresSubscriber(db *sql.DB, logger watermill.LoggerAdapter) message.Subscriber {
	subscriber, err := watermillSQL.NewSubscriber(
		db,
		watermillSQL.SubscriberConfig{
			SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
		},
		logger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create outbox subscriber: %w", err))
	}
	return subscriber
}

// NewPublisherForDb returns a publisher that stores messages in the outbox
// table within the given transaction, so domain writes and their events
// commit or roll back together.
func NewPublisherForDb(ctx context.Context, tx *sqlx.Tx) (message.Publisher, error) {
	logger := log.NewWatermill(log.FromContext(ctx))

	var publisher message.Publisher
	publisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox publisher: %w", err)
	}

	return forwarder.NewPublisher(publisher, forwarder.PublisherConfig{
		ForwarderTopic: outboxTopic,
	}), nil
}

// AddForwarderHandler attaches the outbox forwarder to the router: it
// subscribes to the outbox table and republishes each stored message to its
// destination topic on Redis.
func AddForwarderHandler(
	postgresSubscriber message.Subscriber,
	publisher message.Publisher,
	router *message.Router,
	logger watermill.LoggerAdapter,
) {
	_, err := forwarder.NewForwarder(postgresSubscriber, publisher, logger, forwarder.Config{
		ForwarderTopic: outboxTopic,
		Middlewares: []message.HandlerMiddleware{
			func(h message.HandlerFunc) message.HandlerFunc {
				return func(msg *message.Message) ([]*message.Message, error) {
					log.FromContext(msg.Context()).WithFields(logrus.Fields{
						"message_id": msg.UUID,
						"payload":    string(msg.Payload),
						"metadata":   msg.Metadata,
					}).Info("Forwarding message from outbox")

					return h(msg)
				}
			},
		},
		Router: router,
	})
	if err != nil {
		panic(fmt.Errorf("failed to create forwarder: %w", err))
	}
}

// InitializeSchema creates the outbox table so repositories can publish
// through it before the forwarder has ever subscribed.
func InitializeSchema(db *sql.DB, logger watermill.LoggerAdapter) error {
	subscriber, err := watermillSQL.NewSubscriber(
		db,
		watermillSQL.SubscriberConfig{
			SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox subscriber: %w", err)
	}
	defer subscriber.Close()

	return subscriber.SubscribeInitialize(outboxTopic)
}
