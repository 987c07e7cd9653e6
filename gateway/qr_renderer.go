package gateway

import (
	"context"

	"github.com/skip2/go-qrcode"
)

// QRRenderer turns a ticket's JSON payload into a scannable image.
type QRRenderer interface {
	RenderPNG(ctx context.Context, payload []byte) ([]byte, error)
}

const qrImageSize = 512

type PNGRenderer struct{}

func NewPNGRenderer() PNGRenderer {
	return PNGRenderer{}
}

// RenderPNG encodes the payload at medium error correction, enough recovery
// margin for a phone screen scanned through glass.
func (PNGRenderer) RenderPNG(_ context.Context, payload []byte) ([]byte, error) {
	return qrcode.Encode(string(payload), qrcode.Medium, qrImageSize)
}
