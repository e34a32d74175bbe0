package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/baymax-health/apiserver/config"
	"github.com/baymax-health/apiserver/internal/auth"
	"github.com/baymax-health/apiserver/internal/handlers"
	"github.com/baymax-health/apiserver/internal/metrics"
	"github.com/baymax-health/apiserver/internal/mq"
	"github.com/baymax-health/apiserver/internal/notify"
	"github.com/baymax-health/apiserver/internal/services"
	"github.com/baymax-health/apiserver/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// Deps are the collaborators the routes are served from.
type Deps struct {
	Users     services.UserRepository
	Medicines services.MedicineRepository
	Contacts  services.ContactRepository
	Denylist  auth.Denylist

	// Events and Storage are optional. Without Storage the report routes
	// answer 503.
	Events  services.EventPublisher
	Storage *storage.Storage
	Metrics *metrics.Metrics
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	closers    []func(context.Context) error
}

// New connects the backends selected by cfg and constructs a Server.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var closers []func(context.Context) error
	fail := func(err error) (*Server, error) {
		closeAll(context.Background(), closers)
		return nil, err
	}

	deps := Deps{Metrics: metrics.New()}

	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, stores.Close)
	deps.Users = stores.Users
	deps.Medicines = stores.Medicines
	deps.Contacts = stores.Contacts

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fail(fmt.Errorf("while connecting to redis at %s: %w", cfg.Redis.Addr, err))
		}
		closers = append(closers, func(context.Context) error { return client.Close() })
		deps.Denylist = auth.NewRedisDenylist(client)
	} else {
		deps.Denylist = auth.NewMemoryDenylist()
	}

	queue, err := mq.Open(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if queue != nil {
		closers = append(closers, func(context.Context) error { return queue.Close() })
		deps.Events = queue
	}

	st, err := storage.Open(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	deps.Storage = st

	srv := NewWithDeps(cfg, deps)
	srv.closers = closers

	// The local queue only reaches subscribers in this process.
	if cfg.MQBackend == config.MQLocal {
		notifier := notify.New(deps.Users, notify.NewMailer(ctx, cfg.Mail), cfg.Mail.LowStockDays, deps.Metrics, cfg.Location())
		srv.RunNotifier(queue, notifier, cfg.IntakeTopic)
	}
	return srv, nil
}

// RunNotifier consumes intake events from queue in the background until
// Shutdown.
func (s *Server) RunNotifier(queue *mq.MQ, notifier *notify.Notifier, topic string) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := notifier.Run(ctx, queue, topic)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, mq.ErrClosed) {
			slog.Error("Notifier stopped", slog.Any("err", err))
		}
	}()
	s.closers = append(s.closers, func(ctx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// NewWithDeps constructs a Server over already connected dependencies.
func NewWithDeps(cfg config.Config, deps Deps) *Server {
	if deps.Denylist == nil {
		deps.Denylist = auth.NewMemoryDenylist()
	}

	tokens := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL)

	medOpts := []services.MedicineOption{services.WithLocation(cfg.Location())}
	if deps.Events != nil {
		medOpts = append(medOpts, services.WithEvents(deps.Events, cfg.IntakeTopic))
	}
	if deps.Metrics != nil {
		medOpts = append(medOpts, services.WithMetrics(deps.Metrics))
	}

	userService := services.NewUserService(deps.Users)
	medicineService := services.NewMedicineService(deps.Medicines, medOpts...)
	contactService := services.NewContactService(deps.Contacts)
	reportService := services.NewReportService(deps.Medicines, deps.Storage)

	authHandler := handlers.NewAuthHandler(userService, tokens, deps.Denylist)
	medicineHandler := handlers.NewMedicineHandler(medicineService)
	contactHandler := handlers.NewContactHandler(contactService)
	reportHandler := handlers.NewReportHandler(reportService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	router.Get("/health", handlers.Health)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/medicines", func(r chi.Router) {
		handlers.MedicineRouter(r, medicineHandler, authHandler.RequireAuth)
	})
	router.Route("/contacts", func(r chi.Router) {
		handlers.ContactRouter(r, contactHandler, authHandler.RequireAuth)
	})
	router.Route("/reports", func(r chi.Router) {
		handlers.ReportRouter(r, reportHandler, authHandler.RequireAuth)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	slog.Info("Server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	closeAll(ctx, s.closers)
	return err
}

func closeAll(ctx context.Context, closers []func(context.Context) error) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to close backend", slog.Any("err", err))
		}
	}
}
