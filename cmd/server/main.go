package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/sentra-backend/api"
	"github.com/semanticallynull/sentra-backend/audit"
	"github.com/semanticallynull/sentra-backend/contract"
	"github.com/semanticallynull/sentra-backend/dispatch"
	"github.com/semanticallynull/sentra-backend/internal/events"
	"github.com/semanticallynull/sentra-backend/internal/ledger"
	"github.com/semanticallynull/sentra-backend/internal/middleware"
	"github.com/semanticallynull/sentra-backend/internal/o11y"
	"github.com/semanticallynull/sentra-backend/internal/stream"
	"github.com/semanticallynull/sentra-backend/lifecycle"
	"github.com/semanticallynull/sentra-backend/registry"
	"github.com/semanticallynull/sentra-backend/store"
)

var cli = struct {
	Port     int    `name:"port" env:"PORT" default:"8080"`
	LogLevel string `name:"log-level" env:"LOG_LEVEL" default:"info"`
	SeedDemo bool   `name:"seed-demo" env:"SEED_DEMO" default:"true" negatable:""`

	LedgerURL        string        `name:"ledger-url" env:"LEDGER_URL" default:"http://localhost:8000"`
	LedgerContractID string        `name:"ledger-contract-id" env:"STELLAR_CONTRACT_ID" help:"Contract id; simulation mode when empty."`
	LedgerTimeout    time.Duration `name:"ledger-timeout" env:"LEDGER_TIMEOUT" default:"5s"`

	CheckpointSaidaAddress   string `name:"checkpoint-saida-address" env:"CHECKPOINT_SAIDA_ADDRESS"`
	CheckpointMeioAddress    string `name:"checkpoint-meio-address" env:"CHECKPOINT_MEIO_ADDRESS"`
	CheckpointChegadaAddress string `name:"checkpoint-chegada-address" env:"CHECKPOINT_CHEGADA_ADDRESS"`

	AMQPURL      string `name:"amqp-url" env:"AMQP_URL"`
	AMQPExchange string `name:"amqp-exchange" env:"AMQP_EXCHANGE" default:"sentra.rides"`

	DatabaseURL string `name:"database-url" env:"DATABASE_URL" help:"Postgres URL for the ride event audit log."`

	Auth0Domain string `name:"auth0-domain" env:"AUTH0_DOMAIN"`
	Audience    string `name:"audience" env:"AUDIENCE"`

	MetricsUsername string `name:"metrics-username" env:"METRICS_USERNAME"`
	MetricsPassword string `name:"metrics-password" env:"METRICS_PASSWORD"`

	OTLPEndpoint string  `name:"otlp-endpoint" env:"OTLP_ENDPOINT"`
	TraceSample  float64 `name:"trace-sample" env:"TRACE_SAMPLE" default:"1"`
}{}

func main() {
	if err := run(); err != nil {
		log.Fatalf("unexpected error: %v", err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	kong.Parse(&cli)
	gin.SetMode(gin.ReleaseMode)

	obs, cleanup, err := o11y.Setup(ctx, o11y.Options{
		LogLevel:     cli.LogLevel,
		OTLPEndpoint: cli.OTLPEndpoint,
		SampleRatio:  cli.TraceSample,
	})
	defer cleanup()
	if err != nil {
		return err
	}
	logger := obs.Logger
	slog.SetDefault(logger)

	sinks := events.Fanout{events.LogSink{Logger: logger}}

	if cli.DatabaseURL != "" {
		db, err := sqlx.ConnectContext(ctx, "pgx", cli.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		ar := audit.NewRepository(db)
		if err := ar.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, ar)
	}

	if cli.AMQPURL != "" {
		pub, err := events.Dial(ctx, cli.AMQPURL, cli.AMQPExchange, 5, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}

	var lc ledger.Client
	if cli.LedgerContractID == "" {
		lc = ledger.NewSimulator(time.Now)
		logger.Info("ledger contract not configured, running in simulation mode")
	} else {
		lc = ledger.NewHTTPClient(cli.LedgerURL, cli.LedgerContractID, cli.LedgerTimeout)
	}

	st := store.New()
	hub := stream.NewHub(logger)
	users := registry.New(st, logger)
	notifs := dispatch.New(st, logger, dispatch.WithPusher(hub))
	rides := lifecycle.New(st, notifs, logger,
		lifecycle.WithEvents(sinks),
		lifecycle.WithMetrics(obs.Metrics),
	)
	mirror := contract.NewMirror(lc, logger,
		contract.WithTimeout(cli.LedgerTimeout),
		contract.WithMetrics(obs.Metrics),
		contract.WithAuthorities(contract.Authorities{
			Saida:   cli.CheckpointSaidaAddress,
			Meio:    cli.CheckpointMeioAddress,
			Chegada: cli.CheckpointChegadaAddress,
		}),
	)

	if cli.SeedDemo {
		if err := users.SeedDemo(ctx); err != nil {
			return err
		}
	}

	opts := api.Options{
		Logger:          logger,
		Registry:        obs.Registry,
		MetricsUsername: cli.MetricsUsername,
		MetricsPassword: cli.MetricsPassword,
	}
	if cli.Auth0Domain != "" {
		opts.Authenticate, err = middleware.Authenticate(cli.Auth0Domain, cli.Audience)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("auth0 not configured, trusting the X-User-ID header")
	}

	a := api.New(api.Services{
		Users:         users,
		Rides:         rides,
		Notifications: notifs,
		Contracts:     mirror,
		Stream:        hub,
	}, opts)

	serv := http.Server{
		Addr:    fmt.Sprintf(":%d", cli.Port),
		Handler: a.Router(),
	}

	go func() {
		logger.Info("server listening", "port", cli.Port, "ledgerMode", lc.Mode())
		if err := serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return serv.Shutdown(ctx)
}
