package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DeliveryClient talks to the delivery API that actually sends emails, SMS
// and WhatsApp messages. One client instance serves one channel endpoint.
type DeliveryClient struct {
	httpClient *http.Client
	endpoint   string
}

func newDeliveryClient(baseURL, channel string) DeliveryClient {
	return DeliveryClient{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		endpoint: fmt.Sprintf("%s/v1/%s/send", baseURL, channel),
	}
}

// NewEmailClient, NewSMSClient and NewWhatsAppClient are the three channel
// sinks backed by the same delivery API.
func NewEmailClient(baseURL string) DeliveryClient    { return newDeliveryClient(baseURL, "email") }
func NewSMSClient(baseURL string) DeliveryClient      { return newDeliveryClient(baseURL, "sms") }
func NewWhatsAppClient(baseURL string) DeliveryClient { return newDeliveryClient(baseURL, "whatsapp") }

type deliveryRequest struct {
	To          string `json:"to"`
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body"`
	ReferenceID string `json:"reference_id"`
}

func (c DeliveryClient) Send(ctx context.Context, notification Notification) error {
	body := notification.Message
	if body == "" {
		body = "Your ticket is ready for download."
	}
	body += "\n\n" + notification.DownloadURL

	payload, err := json.Marshal(deliveryRequest{
		To:          notification.Destination,
		Subject:     "Your ticket",
		Body:        body,
		ReferenceID: notification.TicketID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code for POST %s: %d", c.endpoint, resp.StatusCode)
	}

	return nil
}
