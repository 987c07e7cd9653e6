package event

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"boxoffice/entity"
	"boxoffice/gateway"
)

type ShareLogsRepository interface {
	Append(ctx context.Context, shareLog entity.ShareLog) error
}

type TicketsRepository interface {
	GetByID(ctx context.Context, ticketID string) (entity.Ticket, error)
}

type Handler struct {
	eventBus  *cqrs.EventBus
	notifier  *gateway.Notifier
	tickets   TicketsRepository
	shareLogs ShareLogsRepository
}

func NewHandler(
	eventBus *cqrs.EventBus,
	notifier *gateway.Notifier,
	tickets TicketsRepository,
	shareLogs ShareLogsRepository,
) Handler {
	if eventBus == nil {
		panic("missing eventBus")
	}
	if notifier == nil {
		panic("missing notifier")
	}
	if tickets == nil {
		panic("missing tickets repository")
	}
	if shareLogs == nil {
		panic("missing shareLogs repository")
	}

	return Handler{
		eventBus:  eventBus,
		notifier:  notifier,
		tickets:   tickets,
		shareLogs: shareLogs,
	}
}
