package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"waypoint/internal/audit"
	auditkafka "waypoint/internal/audit/kafka"
	catalogHandler "waypoint/internal/catalog/handler"
	catalogMetrics "waypoint/internal/catalog/metrics"
	catalogService "waypoint/internal/catalog/service"
	listStore "waypoint/internal/catalog/store/list"
	membershipStore "waypoint/internal/catalog/store/membership"
	placeStore "waypoint/internal/catalog/store/place"
	identityHandler "waypoint/internal/identity/handler"
	identityService "waypoint/internal/identity/service"
	revocationStore "waypoint/internal/identity/store/revocation"
	userStore "waypoint/internal/identity/store/user"
	"waypoint/internal/identity/token"
	"waypoint/internal/platform/config"
	"waypoint/internal/platform/httpserver"
	"waypoint/internal/platform/metrics"
	"waypoint/internal/platform/middleware"
	"waypoint/internal/platform/postgres"
	"waypoint/internal/platform/redis"
	"waypoint/internal/search/geocoder"
	searchHandler "waypoint/internal/search/handler"
	searchMetrics "waypoint/internal/search/metrics"
	searchService "waypoint/internal/search/service"
	"waypoint/pkg/platform/httputil"
	"waypoint/pkg/platform/middleware/auth"
	"waypoint/pkg/platform/middleware/metadata"
	"waypoint/pkg/platform/middleware/requesttime"
	"waypoint/pkg/platform/tx"
)

func serveCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, newLogger(cfg))
		},
	}
}

// infra holds the external connections; nil fields mean the in-process
// fallback is in use.
type infra struct {
	db    *sql.DB
	redis *redis.Client
}

func (i *infra) close() {
	if i.db != nil {
		_ = i.db.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if cfg.UsesDevSigningKey() {
		log.Warn("using the built-in development JWT signing key; set WAYPOINT_AUTH_JWT_SIGNING_KEY in production")
	}
	if cfg.Geoapify.APIKey == "" {
		log.Warn("geoapify.api_key is not set; location search requests will fail")
	}

	conns, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conns.close()

	g, ctx := errgroup.WithContext(ctx)

	var publisher audit.Publisher = audit.NewLogPublisher(log.With("component", "audit"))
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, closeKafka, err := newKafkaPublisher(ctx, cfg.Kafka, log)
		if err != nil {
			return err
		}
		defer closeKafka()
		publisher = audit.Fanout{publisher, kafkaPublisher}
		g.Go(func() error { return kafkaPublisher.Run(ctx) })
	}

	router := newRouter(cfg, log, conns, publisher)
	srv := httpserver.New(cfg.Server.Addr, router)
	g.Go(func() error {
		return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log)
	})

	log.Info("waypoint started",
		"addr", cfg.Server.Addr,
		"postgres", conns.db != nil,
		"redis", conns.redis != nil,
		"kafka", len(cfg.Kafka.Brokers) > 0,
	)
	return g.Wait()
}

func connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*infra, error) {
	i := &infra{}
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		i.db = db
		if cfg.Database.AutoMigrate {
			applied, err := postgres.Migrate(ctx, db)
			if err != nil {
				i.close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			if len(applied) > 0 {
				log.Info("migrations applied", "versions", applied)
			}
		}
	} else {
		log.Warn("database.url is not set; using in-memory stores")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		i.close()
		return nil, err
	}
	i.redis = rc
	return i, nil
}

func newKafkaPublisher(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (*auditkafka.Publisher, func(), error) {
	client, err := auditkafka.NewClient(cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	if err := auditkafka.EnsureTopic(ctx, client, cfg.AuditTopic, 3, 1); err != nil {
		log.Warn("could not ensure audit topic", "topic", cfg.AuditTopic, "error", err)
	}
	p := auditkafka.NewPublisher(client, cfg.AuditTopic,
		auditkafka.WithLogger(log),
		auditkafka.WithMetrics(auditkafka.NewMetrics()),
	)
	return p, client.Close, nil
}

func newRouter(cfg *config.Config, log *slog.Logger, conns *infra, publisher audit.Publisher) http.Handler {
	httpMetrics := metrics.New()

	var (
		places      catalogService.PlaceStore
		lists       catalogService.ListStore
		memberships catalogService.MembershipStore
		users       identityService.UserStore
		runner      tx.Runner
	)
	if conns.db != nil {
		places = placeStore.NewPostgres(conns.db)
		lists = listStore.NewPostgres(conns.db)
		memberships = membershipStore.NewPostgres(conns.db)
		users = userStore.NewPostgres(conns.db)
		runner = tx.NewPostgresRunner(conns.db)
	} else {
		places = placeStore.NewInMemory()
		lists = listStore.NewInMemory()
		memberships = membershipStore.NewInMemory()
		users = userStore.New()
		runner = tx.NewMemoryRunner()
	}

	var revocations identityService.RevocationList
	if conns.redis != nil {
		revocations = revocationStore.NewRedisTRL(conns.redis.Client)
	} else {
		revocations = revocationStore.NewInMemoryTRL()
	}

	catalog := catalogService.New(places, lists, memberships,
		catalogService.WithLogger(log),
		catalogService.WithAuditPublisher(publisher),
		catalogService.WithMetrics(catalogMetrics.New()),
		catalogService.WithTxRunner(runner),
	)

	jwt := token.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	identity := identityService.New(users, catalog, jwt, revocations,
		identityService.WithLogger(log),
		identityService.WithAuditPublisher(publisher),
		identityService.WithTxRunner(runner),
	)

	sm := searchMetrics.New()
	search := searchService.New(
		geocoder.New(cfg.Geoapify, geocoder.WithLogger(log), geocoder.WithMetrics(sm)),
		searchService.WithLogger(log),
		searchService.WithMetrics(sm),
	)

	validator := token.NewMiddlewareAdapter(jwt)
	requireAuth := auth.RequireAuth(validator, revocations, log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Logger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthHandler(conns))
	r.Handle("/metrics", promhttp.Handler())

	identityHandler.New(identity, log, httpMetrics, validator, requireAuth, identityHandler.CookieConfig{
		Secure:     cfg.Auth.SecureCookies,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	}).Register(r)
	catalogHandler.New(catalog, log, httpMetrics, requireAuth).Register(r)
	searchHandler.New(search, log, httpMetrics).Register(r)

	return r
}

func healthHandler(conns *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if conns.db != nil {
			status["postgres"] = "ok"
			if err := conns.db.PingContext(ctx); err != nil {
				status["postgres"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
			}
		}
		if conns.redis != nil {
			status["redis"] = "ok"
			if err := conns.redis.Health(ctx); err != nil {
				status["redis"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, status)
	}
}
