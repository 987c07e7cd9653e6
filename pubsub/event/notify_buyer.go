package event

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"

	"boxoffice/entity"
	"boxoffice/gateway"
)

// NotifyBuyerHandler emails the fresh download link to the buyer whenever a
// token is issued, if the ticket has a buyer email on file. Delivery failures
// are logged to the share trail and not retried; the seller can always share
// the link again by hand.
func (h Handler) NotifyBuyerHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"NotifyBuyerHandler",
		func(ctx context.Context, event *entity.DownloadTokenIssued) error {
			ticket, err := h.tickets.GetByID(ctx, event.TicketID)
			if err != nil {
				return err
			}
			if ticket.BuyerEmail == "" {
				return nil
			}

			sendErr := h.notifier.Send(ctx, entity.ShareMethodEmail, gateway.Notification{
				TicketID:    ticket.TicketID,
				Destination: ticket.BuyerEmail,
				DownloadURL: event.DownloadURL,
			})
			if sendErr != nil {
				log.FromContext(ctx).WithError(sendErr).
					WithField("ticket_id", ticket.TicketID).
					Error("Could not email download link to buyer")
			}

			return h.shareLogs.Append(ctx, entity.ShareLog{
				ShareLogID:  uuid.NewString(),
				TicketID:    ticket.TicketID,
				Method:      entity.ShareMethodEmail,
				Destination: ticket.BuyerEmail,
				Success:     sendErr == nil,
				SentAt:      time.Now().UTC(),
			})
		},
	)
}
