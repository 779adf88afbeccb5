package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semanticallynull/sentra-backend/contract"
	"github.com/semanticallynull/sentra-backend/dispatch"
	"github.com/semanticallynull/sentra-backend/internal/middleware"
	"github.com/semanticallynull/sentra-backend/internal/stream"
	"github.com/semanticallynull/sentra-backend/lifecycle"
	"github.com/semanticallynull/sentra-backend/registry"
)

// Services are the domain components exposed over HTTP.
type Services struct {
	Users         *registry.Registry
	Rides         *lifecycle.Engine
	Notifications *dispatch.Dispatcher
	Contracts     *contract.Mirror
	// Stream is optional; without it the stream endpoint is not mounted.
	Stream *stream.Hub
}

type Options struct {
	Logger *slog.Logger
	// Registry collects HTTP and domain metrics served on /metrics.
	Registry *prometheus.Registry
	// Authenticate validates bearer tokens. When nil the caller is taken from
	// the X-User-ID header.
	Authenticate gin.HandlerFunc

	MetricsUsername string
	MetricsPassword string
}

type API struct {
	r      *gin.Engine
	users  *registry.Registry
	rides  *lifecycle.Engine
	notifs *dispatch.Dispatcher
	mirror *contract.Mirror
	hub    *stream.Hub
}

func New(s Services, opts Options) *API {
	a := &API{
		r:      gin.New(),
		users:  s.Users,
		rides:  s.Rides,
		notifs: s.Notifications,
		mirror: s.Contracts,
		hub:    s.Stream,
	}
	a.r.ContextWithFallback = true

	a.r.Use(gin.Recovery(), middleware.Tracing(), middleware.Logging(opts.Logger))
	if opts.Registry != nil {
		a.r.Use(middleware.Metrics(opts.Registry))

		metrics := gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
		if opts.MetricsUsername != "" {
			a.r.GET("/metrics", gin.BasicAuth(gin.Accounts{opts.MetricsUsername: opts.MetricsPassword}), metrics)
		} else {
			a.r.GET("/metrics", metrics)
		}
	}

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ledgerMode": a.mirror.Mode()})
	})
	a.r.POST("/users", a.registerUserHandler)

	authed := a.r.Group("/")
	if opts.Authenticate != nil {
		authed.Use(opts.Authenticate, middleware.Identity(false))
	} else {
		authed.Use(middleware.Identity(true))
	}

	authed.GET("/users", a.listUsersHandler)
	authed.GET("/users/:id", a.getUserHandler)
	authed.POST("/users/:id/deactivate", a.deactivateUserHandler)

	authed.POST("/ride-requests", a.createRideRequestHandler)
	authed.GET("/ride-requests", a.listRideRequestsHandler)
	authed.GET("/ride-requests/:id", a.getRideRequestHandler)
	authed.POST("/ride-requests/:id/accept", a.acceptRideRequestHandler)
	authed.POST("/ride-requests/:id/reject", a.rejectRideRequestHandler)
	authed.POST("/ride-requests/:id/start", a.startRideHandler)
	authed.POST("/ride-requests/:id/finish", a.finishRideHandler)

	authed.GET("/notifications", a.listNotificationsHandler)
	authed.POST("/notifications/:id/read", a.markNotificationReadHandler)
	if a.hub != nil {
		authed.GET("/notifications/stream", a.notificationStreamHandler)
	}

	authed.POST("/contracts", a.createContractHandler)
	authed.GET("/contracts/:tripId", a.getContractHandler)
	authed.GET("/contracts/:tripId/history", a.contractHistoryHandler)
	authed.POST("/contracts/:tripId/checkpoints", a.updateContractHandler)
	authed.POST("/contracts/:tripId/saida", a.checkpointHandler("saida", "ok"))
	authed.POST("/contracts/:tripId/meio", a.checkpointHandler("meio", "checkpoint"))
	authed.POST("/contracts/:tripId/chegada", a.checkpointHandler("chegada", "completed"))

	authed.POST("/admin/contract/initialize", a.initializeContractHandler)
	authed.GET("/admin/contract", a.contractAdminHandler)

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}
