package gateway

import (
	"context"
	"sync"
)

// QRRendererMock returns the payload itself instead of an image, so tests can
// assert on what would have been rendered.
type QRRendererMock struct {
	lock     sync.Mutex
	Rendered [][]byte
}

func (c *QRRendererMock) RenderPNG(_ context.Context, payload []byte) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.Rendered = append(c.Rendered, payload)
	return payload, nil
}
