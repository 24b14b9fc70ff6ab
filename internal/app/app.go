package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petromanage/internal/config"
	"petromanage/internal/database"
	"petromanage/internal/event"
	"petromanage/internal/gateway"
	"petromanage/internal/handler"
	"petromanage/internal/notify"
	"petromanage/internal/repository"
	"petromanage/internal/router"
	"petromanage/internal/service"
	"petromanage/internal/token"
)

type App struct {
	name         string
	server       *http.Server
	cleanupFuncs []func()
}

// userStore is what the auth service needs from its storage backend.
type userStore interface {
	service.UserStore
	handler.HealthChecker
}

// NewAuth wires the auth service: user store, password and OTP services,
// token issuer and the /auth routes.
func NewAuth(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.ValidateAuthService(); err != nil {
		return nil, fmt.Errorf("invalid auth service config: %w", err)
	}

	var cleanup []func()
	var users userStore
	var audits service.AuditStore

	switch cfg.UserStore {
	case config.StoreMemory:
		slog.Warn("using in-memory user store; users are lost on restart")
		users = repository.NewMemoryUserRepository()
		audits = repository.NewMemoryAuditRepository()
	default:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, database.Options{
			URL:          cfg.DatabaseURL,
			MaxConns:     cfg.DBMaxConns,
			MinConns:     cfg.DBMinConns,
			TraceQueries: cfg.DBTraceQueries,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		cleanup = append(cleanup, db.Close)
		users = repository.NewUserRepository(db.Pool)
		audits = repository.NewAuditRepository(db.Pool)
		slog.Info("database ready")
	}

	closeAll := func() {
		for _, fn := range cleanup {
			fn()
		}
	}

	authService, err := service.NewAuthService(users, service.AuthOptions{
		DefaultRole:  cfg.DefaultRole,
		AllowedRoles: cfg.AllowedRoles,
		BcryptCost:   cfg.BcryptCost,
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	otpService, err := service.NewOtpService(users, notify.NewLogNotifier(slog.Default()), service.OtpOptions{
		TTL:        cfg.OTPTTL,
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to initialize otp service: %w", err)
	}

	issuer, err := token.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	// The audit consumer must drain before the store closes, so it is
	// stopped first.
	bus := event.NewBus()
	auditService := service.NewAuditService(audits)
	events, _ := bus.Subscribe("audit")
	consumeCtx, stopConsume := context.WithCancel(context.WithoutCancel(ctx))
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		auditService.Consume(consumeCtx, events)
	}()
	cleanup = append([]func(){func() {
		bus.Close()
		<-consumed
		stopConsume()
	}}, cleanup...)

	appRouter := router.NewAuth(cfg, router.AuthHandlers{
		Auth:   handler.NewAuthHandler(authService, otpService, issuer).WithEvents(bus),
		Health: handler.NewHealthHandler(users),
		Docs:   handler.NewDocsHandler(),
		Audit:  handler.NewAuditHandler(auditService),
	})

	return &App{
		name:         "auth",
		server:       newServer(cfg, cfg.AuthAddr(), appRouter),
		cleanupFuncs: cleanup,
	}, nil
}

// NewGateway wires the perimeter gateway. It holds no state beyond the
// signing secret and needs no database.
func NewGateway(cfg *config.Config) (*App, error) {
	validator, err := token.NewValidator([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token validator: %w", err)
	}

	filter, err := gateway.NewAuthFilter(validator, cfg.PublicPaths, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth filter: %w", err)
	}

	proxy, err := gateway.NewProxy(cfg.GatewayRoutes, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize proxy: %w", err)
	}

	pipeline := router.GatewayPipeline(cfg, filter)
	slog.Info("gateway pipeline", "stages", pipeline.Names(), "routes", proxy.Prefixes(), "public_paths", cfg.PublicPaths)

	return &App{
		name:   "gateway",
		server: newServer(cfg, cfg.GatewayAddr(), router.NewGateway(cfg, filter, proxy, handler.NewHealthHandler(nil))),
	}, nil
}

func newServer(cfg *config.Config, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until SIGINT/SIGTERM and then shuts down gracefully.
func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "service", a.name, "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		a.cleanup()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.server.Shutdown(ctx)
	a.cleanup()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped", "service", a.name)
	return nil
}

func (a *App) cleanup() {
	for _, fn := range a.cleanupFuncs {
		fn()
	}
}
