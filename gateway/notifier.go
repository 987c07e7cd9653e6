// Package gateway holds clients for the external surfaces: the delivery API
// used to push download links to buyers, and the QR image renderer.
package gateway

import (
	"context"

	"boxoffice/entity"
)

// Notification is one download link on its way to a buyer.
type Notification struct {
	TicketID    string
	Destination string
	DownloadURL string
	Message     string
}

// NotificationSink delivers a notification over one channel (email, SMS,
// WhatsApp). Implementations must be safe for concurrent use.
type NotificationSink interface {
	Send(ctx context.Context, notification Notification) error
}

// Notifier dispatches notifications to the sink registered for the requested
// share method.
type Notifier struct {
	sinks map[entity.ShareMethod]NotificationSink
}

func NewNotifier(email, sms, whatsapp NotificationSink) *Notifier {
	return &Notifier{
		sinks: map[entity.ShareMethod]NotificationSink{
			entity.ShareMethodEmail:    email,
			entity.ShareMethodSMS:      sms,
			entity.ShareMethodWhatsApp: whatsapp,
		},
	}
}

func (n *Notifier) Send(ctx context.Context, method entity.ShareMethod, notification Notification) error {
	sink, ok := n.sinks[method]
	if !ok {
		return entity.NewFormatError("method")
	}
	return sink.Send(ctx, notification)
}
