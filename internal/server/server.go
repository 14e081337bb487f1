package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gamestore-dxp/apiserver/config"
	"github.com/gamestore-dxp/apiserver/internal/auth"
	"github.com/gamestore-dxp/apiserver/internal/db"
	"github.com/gamestore-dxp/apiserver/internal/events"
	"github.com/gamestore-dxp/apiserver/internal/handlers"
	"github.com/gamestore-dxp/apiserver/internal/logging"
	"github.com/gamestore-dxp/apiserver/internal/metrics"
	"github.com/gamestore-dxp/apiserver/internal/mq"
	"github.com/gamestore-dxp/apiserver/internal/services"
	"github.com/gamestore-dxp/apiserver/internal/store/mongostore"
	"github.com/gamestore-dxp/apiserver/internal/store/pgstore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *logrus.Logger
	db         *sql.DB
	mongo      *mongo.Client
	broker     *mq.MQ
}

// Repositories are the stores the services run on.
type Repositories struct {
	Accounts services.AccountRepository
	Reviews  services.ReviewRepository
}

// New opens the configured store and broker and builds the HTTP server.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := logging.New(cfg.Log)
	if cfg.Auth.JWTSecret == config.DefaultJWTSecret {
		logger.Warn("JWT_SECRET is not set, using the development default")
	}

	s := &Server{logger: logger}

	repos, err := s.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := openBroker(ctx, cfg.MQ)
	if err != nil {
		s.closeStores(context.Background())
		return nil, err
	}
	s.broker = broker

	s.router = NewRouter(cfg, logger, repos, events.NewPublisher(broker, logger))

	port := cfg.ServerPort
	if port == 0 {
		port = 4000
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// NewRouter composes services and handlers over repos.
func NewRouter(cfg config.Config, logger *logrus.Logger, repos Repositories, publisher *events.Publisher) *chi.Mux {
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	accountService := services.NewAccountService(repos.Accounts, hasher, tokens, publisher)
	listService := services.NewListService(repos.Accounts, logger)
	reviewService := services.NewReviewService(repos.Reviews, publisher)

	authHandler := handlers.NewAuthHandler(accountService, listService, logger)
	reviewHandler := handlers.NewReviewHandler(reviewService, logger)

	var limiter func(http.Handler) http.Handler
	if cfg.AuthRateLimit > 0 {
		limiter = httprate.LimitByIP(cfg.AuthRateLimit, time.Minute)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		metrics.Middleware,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	mount := func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authHandler, limiter)
		})
		r.Route("/reviews", func(r chi.Router) {
			handlers.ReviewRouter(r, reviewHandler, authHandler.RequireAuth)
		})
	}
	if prefix == "/" {
		mount(router)
	} else {
		router.Route(prefix, mount)
	}
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the store and broker.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.broker != nil {
		if cerr := s.broker.Close(); cerr != nil {
			s.logger.WithError(cerr).Warn("close message broker")
		}
	}
	s.closeStores(ctx)
	return err
}

func (s *Server) openStore(ctx context.Context, cfg config.Config) (Repositories, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo, "":
		client, database, err := db.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return Repositories{}, err
		}
		if err := mongostore.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return Repositories{}, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		s.mongo = client
		s.logger.WithField("database", cfg.Mongo.DBName).Info("using mongo store")
		return Repositories{
			Accounts: mongostore.NewAccountRepository(database),
			Reviews:  mongostore.NewReviewRepository(database),
		}, nil
	case config.StorePostgres:
		conn, err := db.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			return Repositories{}, err
		}
		s.db = conn
		s.logger.WithField("database", cfg.Database.DBName).Info("using postgres store")
		return Repositories{
			Accounts: pgstore.NewAccountRepository(conn),
			Reviews:  pgstore.NewReviewRepository(conn),
		}, nil
	default:
		return Repositories{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func (s *Server) closeStores(ctx context.Context) {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.mongo != nil {
		if err := s.mongo.Disconnect(ctx); err != nil {
			s.logger.WithError(err).Warn("disconnect mongo")
		}
	}
}

// openBroker returns nil when events are disabled.
func openBroker(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch cfg.Driver {
	case config.MQNone, "":
		return nil, nil
	case config.MQRabbitMQ:
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return mq.New(client), nil
	case config.MQPubSub:
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown MQ_DRIVER %q", cfg.Driver)
	}
}
