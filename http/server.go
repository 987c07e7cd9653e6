package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"boxoffice/entity"
	"boxoffice/gate"
	"boxoffice/gateway"
	"boxoffice/lifecycle"
	"boxoffice/token"
)

type TicketsRepository interface {
	GetByID(ctx context.Context, ticketID string) (entity.Ticket, error)
	FindBySeller(ctx context.Context, sellerID string) ([]entity.Ticket, error)
}

type SellersRepository interface {
	Store(ctx context.Context, seller entity.Seller) error
	Get(ctx context.Context, sellerID string) (entity.Seller, error)
	Deactivate(ctx context.Context, sellerID string) (int, error)
	Reactivate(ctx context.Context, sellerID string) (int, error)
}

type EventsRepository interface {
	Store(ctx context.Context, event entity.Event) error
	Get(ctx context.Context, eventID string) (entity.Event, error)
	AddCoAdmin(ctx context.Context, eventID, adminID string) error
}

type Server struct {
	addr        string
	e           *echo.Echo
	commandBus  *cqrs.CommandBus
	lifecycle   *lifecycle.Engine
	ledger      *lifecycle.Ledger
	gate        *gate.Engine
	tokens      *token.Manager
	renderer    gateway.QRRenderer
	ticketsRepo TicketsRepository
	sellersRepo SellersRepository
	eventsRepo  EventsRepository
}

func NewServer(
	addr string,
	commandBus *cqrs.CommandBus,
	lifecycleEngine *lifecycle.Engine,
	ledger *lifecycle.Ledger,
	gateEngine *gate.Engine,
	tokens *token.Manager,
	renderer gateway.QRRenderer,
	ticketsRepo TicketsRepository,
	sellersRepo SellersRepository,
	eventsRepo EventsRepository,
) *Server {
	e := echoHTTP.NewEcho()
	e.Use(otelecho.Middleware("boxoffice"))

	server := &Server{
		addr:        addr,
		e:           e,
		commandBus:  commandBus,
		lifecycle:   lifecycleEngine,
		ledger:      ledger,
		gate:        gateEngine,
		tokens:      tokens,
		renderer:    renderer,
		ticketsRepo: ticketsRepo,
		sellersRepo: sellersRepo,
		eventsRepo:  eventsRepo,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// seller surface
	e.POST("/tickets", server.PostTicket)
	e.GET("/tickets", server.GetTickets)
	e.POST("/tickets/:ticket_id/regenerate-token", server.PostRegenerateToken)
	e.POST("/tickets/:ticket_id/share", server.PostShareTicket)

	// admin surface
	e.PUT("/tickets/:ticket_id/revoke", server.PutRevokeTicket)
	e.PUT("/tickets/:ticket_id/restore", server.PutRestoreTicket)
	e.GET("/tickets/:ticket_id/scans", server.GetTicketScans)
	e.POST("/gate/scan", server.PostGateScan)

	e.POST("/sellers", server.PostSeller)
	e.GET("/sellers/:seller_id", server.GetSeller)
	e.PUT("/sellers/:seller_id/deactivate", server.PutDeactivateSeller)
	e.PUT("/sellers/:seller_id/reactivate", server.PutReactivateSeller)
	e.PUT("/sellers/:seller_id/quota", server.PutSellerQuota)

	e.POST("/events", server.PostEvent)
	e.GET("/events/:event_id", server.GetEvent)
	e.POST("/events/:event_id/co-admins", server.PostEventCoAdmin)

	// public surface, reachable by anyone holding a link
	e.GET("/ticket/:ticket_id/:token", server.GetPublicTicket)
	e.GET("/ticket/:ticket_id/:token/qr.png", server.GetPublicTicketQR)
	e.GET("/token/:token/timer", server.GetTokenTimer)

	return server
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(ctx)
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sellerID and adminID read the authenticated principal set by the identity
// proxy in front of this service.
func sellerID(c echo.Context) (string, error) {
	id := c.Request().Header.Get("X-Seller-ID")
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing X-Seller-ID header")
	}
	return id, nil
}

func adminID(c echo.Context) (string, error) {
	id := c.Request().Header.Get("X-Admin-ID")
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing X-Admin-ID header")
	}
	return id, nil
}
