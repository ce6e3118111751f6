// Storefront agent backend-for-frontend server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/shopagent/internal/api"
	"github.com/ashureev/shopagent/internal/app"
	"github.com/ashureev/shopagent/internal/cart"
	"github.com/ashureev/shopagent/internal/config"
	"github.com/ashureev/shopagent/internal/events"
	"github.com/ashureev/shopagent/internal/handoff"
	"github.com/ashureev/shopagent/internal/identity"
	"github.com/ashureev/shopagent/internal/metrics"
	"github.com/ashureev/shopagent/internal/middleware"
	"github.com/ashureev/shopagent/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "kv_backend", cfg.KV.Backend)

	kv, err := store.Open(cfg.KV)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := kv.Close(); closeErr != nil {
			slog.Error("Failed to close store", "error", closeErr)
		}
	}()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err = kv.Ping(pingCtx)
	cancelPing()
	if err != nil {
		return err
	}
	slog.Info("Storage connected", "backend", cfg.KV.Backend)

	metrics.Init()

	httpClient := &http.Client{Transport: http.DefaultTransport}
	cartLocks := cart.NewLocks()
	sessions := app.NewRegistry(func(ctx context.Context, device, tab string, host app.Host) (*app.App, error) {
		return app.New(ctx, app.Deps{
			DeviceKV:        deviceStore(kv, device),
			TabKV:           tabStore(kv, device, tab),
			CartLock:        cartLocks.For(device),
			APIBase:         cfg.AgentAPIBase,
			HTTPClient:      httpClient,
			SuggestionLimit: cfg.Overlay.SuggestionLimit,
			Host:            host,
			Logger:          logger.With("device_id", device, "session_id", tab),
		})
	})

	listeners := events.NewManager()
	sessions.OnEvict(func(s *app.Session) {
		listeners.CloseSession(s.Device, s.Tab)
		slots := tabStore(kv, s.Device, s.Tab)
		for _, topic := range []string{handoff.TopicSearchResults, handoff.TopicOrderResults} {
			if err := slots.Remove(context.Background(), topic); err != nil {
				slog.Warn("Failed to clear handoff slot", "error", err, "topic", topic)
			}
		}
	})

	limiter := api.NewRateLimiter(cfg.RateLimit.CommandsPerSecond, cfg.RateLimit.Burst)
	apiHandler := api.NewHandler(sessions, limiter)
	healthHandler := api.NewHealthHandler(kv)
	wsHandler := events.NewWebSocketHandler(sessions, listeners)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins(cfg)))

	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.IsDevelopment()))
		apiHandler.RegisterRoutes(r)
		r.Get("/ws/events", wsHandler.ServeHTTP)
	})

	// WebSocket streams are long lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions.StartSweeper(ctx, cfg.Sessions.SweepInterval, cfg.Sessions.IdleTTL)
	limiter.StartEviction(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// deviceStore is the device's localStorage.
func deviceStore(kv store.Store, device string) store.Store {
	return store.WithPrefix(kv, "device:"+device+":")
}

// tabStore is the tab's sessionStorage.
func tabStore(kv store.Store, device, tab string) store.Store {
	return store.WithPrefix(kv, "tab:"+device+":"+tab+":")
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
