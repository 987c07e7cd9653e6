package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/lithammer/shortuuid/v3"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"boxoffice/gateway"
	"boxoffice/service"
)

const baseURL = "http://localhost:8080"

func TestComponent(t *testing.T) {
	defer goleak.VerifyNone(
		t,
		goleak.IgnoreTopFunction("github.com/testcontainers/testcontainers-go.(*Reaper).Connect.func1"),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbconn, err := sqlx.Open("postgres", postgresURL)
	require.NoError(t, err)

	redisClient := redis.NewClient(&redis.Options{Addr: redisURL})

	deliveryMock := &gateway.DeliveryMock{}
	rendererMock := &gateway.QRRendererMock{}

	svc := service.New(
		":8080",
		baseURL,
		dbconn,
		redisClient,
		rendererMock,
		deliveryMock,
		deliveryMock,
		deliveryMock,
	)

	finished := make(chan struct{})
	go func() {
		assert.NoError(t, svc.Run(ctx))
		close(finished)
	}()

	defer func() {
		require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))
		<-finished

		http.DefaultClient.CloseIdleConnections()
		assert.NoError(t, redisClient.Close())
		assert.NoError(t, dbconn.Close())
	}()

	waitForHttpServer(t)

	admin := uuid.NewString()
	adminHeaders := map[string]string{"X-Admin-ID": admin}

	var event eventResponse
	status := apiRequest(t, http.MethodPost, "/events", adminHeaders, postEventRequest{
		Name:        "Component Test Concert",
		StartsAt:    time.Now().Add(48 * time.Hour),
		Location:    "Main Hall",
		MaxCapacity: 500,
		TicketPrice: "42.50",
	}, &event)
	require.Equal(t, http.StatusCreated, status)

	var seller sellerResponse
	status = apiRequest(t, http.MethodPost, "/sellers", adminHeaders, postSellerRequest{
		Name:     "Component Test Seller",
		Email:    "seller@example.com",
		Username: shortuuid.New(),
		Password: "s3cret-password",
		Quota:    10,
		EventID:  event.EventID,
	}, &seller)
	require.Equal(t, http.StatusCreated, status)
	sellerHeaders := map[string]string{"X-Seller-ID": seller.SellerID}

	// a generated ticket carries its identity and a live download link
	var ticket ticketResponse
	status = apiRequest(t, http.MethodPost, "/tickets", sellerHeaders, postTicketRequest{
		EventID:    event.EventID,
		BuyerName:  "Jane Doe",
		BuyerPhone: "+48123456789",
	}, &ticket)
	require.Equal(t, http.StatusCreated, status)

	assert.Regexp(t, `^TKT-\d{8}-[A-Z0-9]{5}$`, ticket.TicketNumber)
	assert.Regexp(t, `^[A-Z0-9]{16}$`, ticket.VerificationCode)
	require.NotEmpty(t, ticket.DownloadToken)
	assert.Contains(t, ticket.DownloadURL, ticket.TicketID)
	assert.Contains(t, ticket.DownloadURL, ticket.DownloadToken)

	var timer tokenTimerResponse
	status = apiRequest(t, http.MethodGet, "/token/"+ticket.DownloadToken+"/timer", nil, nil, &timer)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, timer.Valid)
	assert.Greater(t, timer.SecondsRemaining, int64(590))
	assert.LessOrEqual(t, timer.SecondsRemaining, int64(600))

	// the download link can be viewed repeatedly, but the artifact is one-shot
	var publicTicket publicTicketResponse
	status = getURL(t, ticket.DownloadURL, &publicTicket)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "valid", publicTicket.Status)
	assert.Equal(t, "Jane Doe", publicTicket.BuyerName)
	assert.Equal(t, "Component Test Concert", publicTicket.EventName)
	assert.Greater(t, publicTicket.SecondsRemaining, int64(0))

	resp, err := http.Get(ticket.DownloadURL + "/qr.png")
	require.NoError(t, err)
	artifact, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(artifact), ticket.VerificationCode)

	resp, err = http.Get(ticket.DownloadURL + "/qr.png")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusGone, resp.StatusCode, "a consumed token must not serve the artifact again")

	// first scan admits, every later scan of the same code is rejected
	var scan gateScanResponse
	status = apiRequest(t, http.MethodPost, "/gate/scan", adminHeaders, gateScanRequest{
		VerificationCode: ticket.VerificationCode,
		Location:         "Gate A",
	}, &scan)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "valid_first_scan", scan.Outcome)
	assert.True(t, scan.Admit)

	status = apiRequest(t, http.MethodPost, "/gate/scan", adminHeaders, gateScanRequest{
		VerificationCode: ticket.VerificationCode,
		Location:         "Gate B",
	}, &scan)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "already_used", scan.Outcome)
	assert.False(t, scan.Admit)

	var scans []scanLogResponse
	status = apiRequest(t, http.MethodGet, "/tickets/"+ticket.TicketID+"/scans", adminHeaders, nil, &scans)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, scans, 2)
	assert.Equal(t, "valid_first_scan", scans[0].Outcome)
	assert.Equal(t, "already_used", scans[1].Outcome)

	// sharing goes through the command bus and ends up at the delivery gateway
	var secondTicket ticketResponse
	status = apiRequest(t, http.MethodPost, "/tickets", sellerHeaders, postTicketRequest{
		EventID:   event.EventID,
		BuyerName: "John Smith",
	}, &secondTicket)
	require.Equal(t, http.StatusCreated, status)

	destination := fmt.Sprintf("%s@example.com", shortuuid.New())
	status = apiRequest(t, http.MethodPost, "/tickets/"+secondTicket.TicketID+"/share", sellerHeaders, shareTicketRequest{
		Method:      "email",
		Destination: destination,
	}, nil)
	require.Equal(t, http.StatusAccepted, status)

	require.EventuallyWithT(t, func(t *assert.CollectT) {
		notification, found := lo.Find(deliveryMock.SentNotifications(), func(n gateway.Notification) bool {
			return n.Destination == destination
		})
		if !assert.True(t, found, "share notification not delivered yet") {
			return
		}
		assert.Equal(t, secondTicket.TicketID, notification.TicketID)
		assert.NotEmpty(t, notification.DownloadURL)
	}, 10*time.Second, 100*time.Millisecond)

	// deactivating the seller locks the gate and ticket generation
	var activation sellerActivationResponse
	status = apiRequest(t, http.MethodPut, "/sellers/"+seller.SellerID+"/deactivate", adminHeaders, nil, &activation)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, activation.Active)
	assert.Equal(t, 1, activation.TicketsFlipped, "only the unused ticket is cascade-revoked")

	status = apiRequest(t, http.MethodPost, "/tickets", sellerHeaders, postTicketRequest{
		EventID:   event.EventID,
		BuyerName: "Nobody",
	}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = apiRequest(t, http.MethodPost, "/gate/scan", adminHeaders, gateScanRequest{
		VerificationCode: secondTicket.VerificationCode,
		Location:         "Gate A",
	}, &scan)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "revoked", scan.Outcome, "the cascade revoked the ticket itself")
	assert.False(t, scan.Admit)

	// reactivation restores cascade-revoked tickets, so the buyer gets in
	status = apiRequest(t, http.MethodPut, "/sellers/"+seller.SellerID+"/reactivate", adminHeaders, nil, &activation)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, activation.TicketsFlipped)

	status = apiRequest(t, http.MethodPost, "/gate/scan", adminHeaders, gateScanRequest{
		VerificationCode: secondTicket.VerificationCode,
		Location:         "Gate A",
	}, &scan)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "valid_first_scan", scan.Outcome)
	assert.True(t, scan.Admit)
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(baseURL + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode)
		},
		time.Second*10,
		time.Millisecond*50,
	)
}

// apiRequest fires a JSON request against the service and decodes a 2xx body
// into out when out is non-nil.
func apiRequest(t *testing.T, method, path string, headers map[string]string, body any, out any) int {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Correlation-ID", shortuuid.New())
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func getURL(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type postEventRequest struct {
	Name        string    `json:"name"`
	StartsAt    time.Time `json:"starts_at"`
	Location    string    `json:"location"`
	MaxCapacity int       `json:"max_capacity"`
	TicketPrice string    `json:"ticket_price"`
}

type eventResponse struct {
	EventID string `json:"event_id"`
}

type postSellerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Quota    int    `json:"quota"`
	EventID  string `json:"event_id"`
}

type sellerResponse struct {
	SellerID  string `json:"seller_id"`
	Quota     int    `json:"quota"`
	Remaining int    `json:"remaining"`
	Active    bool   `json:"active"`
}

type postTicketRequest struct {
	EventID    string `json:"event_id"`
	BuyerName  string `json:"buyer_name"`
	BuyerPhone string `json:"buyer_phone"`
	BuyerEmail string `json:"buyer_email"`
}

type ticketResponse struct {
	TicketID         string `json:"ticket_id"`
	TicketNumber     string `json:"ticket_number"`
	VerificationCode string `json:"verification_code"`
	Status           string `json:"status"`
	DownloadToken    string `json:"download_token"`
	DownloadURL      string `json:"download_url"`
}

type tokenTimerResponse struct {
	Valid            bool  `json:"valid"`
	SecondsRemaining int64 `json:"seconds_remaining"`
	IsExpired        bool  `json:"is_expired"`
	IsUsed           bool  `json:"is_used"`
}

type publicTicketResponse struct {
	TicketNumber     string `json:"ticket_number"`
	BuyerName        string `json:"buyer_name"`
	Status           string `json:"status"`
	EventName        string `json:"event_name"`
	SellerName       string `json:"seller_name"`
	SecondsRemaining int64  `json:"seconds_remaining"`
	QRImageURL       string `json:"qr_image_url"`
}

type gateScanRequest struct {
	VerificationCode string `json:"verification_code"`
	Location         string `json:"location"`
}

type gateScanResponse struct {
	Outcome string `json:"outcome"`
	Admit   bool   `json:"admit"`
	Message string `json:"message"`
}

type scanLogResponse struct {
	Outcome   string    `json:"outcome"`
	AdminID   string    `json:"admin_id"`
	Message   string    `json:"message"`
	Location  string    `json:"location"`
	ScannedAt time.Time `json:"scanned_at"`
}

type shareTicketRequest struct {
	Method      string `json:"method"`
	Destination string `json:"destination"`
}

type sellerActivationResponse struct {
	SellerID       string `json:"seller_id"`
	Active         bool   `json:"active"`
	TicketsFlipped int    `json:"tickets_flipped"`
}
