package command

import (
	"context"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"

	"boxoffice/entity"
	"boxoffice/gateway"
	"boxoffice/metrics"
)

// ShareTicketLinkHandler delivers a download link over the requested channel.
// An active token is reused when one exists so sharing does not silently kill
// a link the buyer already received; otherwise a fresh token is issued.
// Delivery failures are recorded in the share trail and the command is acked,
// never retried: a flaky delivery API must not turn into a message storm.
func (h Handler) ShareTicketLinkHandler() cqrs.CommandHandler {
	return cqrs.NewCommandHandler(
		"ShareTicketLinkHandler",
		func(ctx context.Context, command *entity.ShareTicketLink) error {
			logger := log.FromContext(ctx).
				WithField("ticket_id", command.TicketID).
				WithField("method", command.Method)

			ticket, err := h.tickets.GetByID(ctx, command.TicketID)
			if err != nil {
				return err
			}

			destination := command.Destination
			if destination == "" {
				destination = defaultDestination(ticket, command.Method)
			}
			if destination == "" {
				logger.Error("No destination for share, dropping command")
				return nil
			}

			url, err := h.resolveDownloadURL(ctx, ticket.TicketID)
			if err != nil {
				return err
			}

			sendErr := h.notifier.Send(ctx, command.Method, gateway.Notification{
				TicketID:    ticket.TicketID,
				Destination: destination,
				DownloadURL: url,
				Message:     command.CustomMessage,
			})
			if sendErr != nil {
				logger.WithError(sendErr).Error("Could not deliver ticket link")
			}
			metrics.SharesTotal.WithLabelValues(string(command.Method), strconv.FormatBool(sendErr == nil)).Inc()

			err = h.shareLogs.Append(ctx, entity.ShareLog{
				ShareLogID:  uuid.NewString(),
				TicketID:    ticket.TicketID,
				Method:      command.Method,
				Destination: destination,
				Success:     sendErr == nil,
				SentAt:      time.Now().UTC(),
			})
			if err != nil {
				return err
			}

			return h.eventBus.Publish(ctx, entity.TicketLinkShared{
				Header:      entity.NewEventHeaderWithIdempotencyKey(command.Header.IdempotencyKey),
				TicketID:    ticket.TicketID,
				Method:      command.Method,
				Destination: destination,
				Success:     sendErr == nil,
			})
		},
	)
}

// resolveDownloadURL reuses the newest active token or issues a fresh one.
func (h Handler) resolveDownloadURL(ctx context.Context, ticketID string) (string, error) {
	active, err := h.tokens.ActiveTokensFor(ctx, ticketID)
	if err != nil {
		return "", err
	}
	if len(active) > 0 {
		newest := active[0]
		for _, t := range active[1:] {
			if t.CreatedAt.After(newest.CreatedAt) {
				newest = t
			}
		}
		return h.tokens.URLFor(newest), nil
	}

	_, url, err := h.tokens.Issue(ctx, ticketID)
	return url, err
}

func defaultDestination(ticket entity.Ticket, method entity.ShareMethod) string {
	switch method {
	case entity.ShareMethodEmail:
		return ticket.BuyerEmail
	case entity.ShareMethodSMS, entity.ShareMethodWhatsApp:
		return ticket.BuyerPhone
	}
	return ""
}
