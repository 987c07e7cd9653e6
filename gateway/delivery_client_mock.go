package gateway

import (
	"context"
	"sync"
)

// DeliveryMock records sent notifications in memory. FailFor can be set to
// make delivery to specific destinations fail.
type DeliveryMock struct {
	lock sync.Mutex

	Sent    []Notification
	FailFor map[string]error
}

func (c *DeliveryMock) Send(_ context.Context, notification Notification) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err, ok := c.FailFor[notification.Destination]; ok {
		return err
	}

	c.Sent = append(c.Sent, notification)
	return nil
}

func (c *DeliveryMock) SentNotifications() []Notification {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]Notification(nil), c.Sent...)
}
