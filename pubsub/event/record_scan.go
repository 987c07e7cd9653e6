package event

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"boxoffice/entity"
)

// RecordScanHandler keeps an operational trace of gate activity. The durable
// audit trail is written synchronously at the gate; this is for dashboards.
func (h Handler) RecordScanHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"RecordScanHandler",
		func(ctx context.Context, event *entity.TicketScanned) error {
			logger := log.FromContext(ctx).
				WithField("outcome", event.Outcome).
				WithField("admin_id", event.AdminID).
				WithField("location", event.Location)
			if event.TicketID != nil {
				logger = logger.WithField("ticket_id", *event.TicketID)
			}

			if event.Outcome.Admit() {
				logger.Info("Ticket admitted at gate")
			} else {
				logger.Info("Ticket rejected at gate")
			}
			return nil
		},
	)
}
