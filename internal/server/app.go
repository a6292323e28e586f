package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Baaaki/roomchat/internal/broker"
	"github.com/Baaaki/roomchat/internal/config"
	"github.com/Baaaki/roomchat/internal/database"
	"github.com/Baaaki/roomchat/internal/handler"
	"github.com/Baaaki/roomchat/internal/hub"
	"github.com/Baaaki/roomchat/internal/middleware"
	"github.com/Baaaki/roomchat/internal/repository"
	"github.com/Baaaki/roomchat/internal/service"
	"github.com/Baaaki/roomchat/internal/timefmt"
	"github.com/Baaaki/roomchat/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App wires the store, hub, broker and HTTP transport together.
type App struct {
	server          *http.Server
	shutdownTimeout time.Duration
	hub             *hub.Hub
	db              *gorm.DB
	broker          *broker.RedisRoomBroker
}

// New connects to the database (and Redis when configured) and builds the
// HTTP server. Nothing is served until Run.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	formatter, err := timefmt.New(cfg.TimeLocation, cfg.TimeFormat)
	if err != nil {
		return nil, fmt.Errorf("init time format: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, err
	}

	app := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub.New(),
		db:              db,
	}

	var publisher service.RoomPublisher = app.hub
	var limiter *middleware.RateLimiter

	if cfg.RedisURL != "" {
		b, err := broker.NewRedisRoomBroker(ctx, cfg.RedisURL)
		if err != nil {
			database.Close(db)
			return nil, fmt.Errorf("init redis broker: %w", err)
		}
		app.broker = b
		publisher = broker.NewPublisher(b)

		logger.Log.Info("Room events fan out through Redis", zap.String("channel", broker.Channel))

		if cfg.RateLimitEnabled() {
			limiter = middleware.NewRateLimiter(b.Client(), middleware.RateLimiterConfig{
				MaxRequests: cfg.RateLimitMaxRequests,
				Window:      cfg.RateLimitWindow,
			})
		}
	} else if cfg.RateLimitMaxRequests > 0 {
		logger.Log.Warn("Rate limiting requires REDIS_URL, leaving it off")
	}

	messageRepo := repository.NewMessageRepository(db)
	messageService := service.NewMessageService(messageRepo, publisher, formatter)

	messageHandler := handler.NewMessageHandler(messageService)
	wsHandler := handler.NewWebSocketHandler(messageService, app.hub, cfg.AllowedOrigins, cfg.ClientSendBuffer)

	router := NewRouter(messageHandler, wsHandler, RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		Production:     cfg.IsProduction(),
		RateLimiter:    limiter,
	})

	app.server = &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return app, nil
}

// Handler exposes the router, mainly for httptest.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down and releases resources.
func (a *App) Run(ctx context.Context) error {
	var forwardDone <-chan struct{}
	if a.broker != nil {
		done, err := broker.Forward(ctx, a.broker, func(ev broker.RoomEvent) {
			a.hub.Broadcast(ev.Room, hub.Envelope{Event: ev.Event, Data: ev.Data})
		})
		if err != nil {
			a.cleanup()
			return fmt.Errorf("subscribe to room events: %w", err)
		}
		forwardDone = done
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.hub.Shutdown()
		a.cleanup()
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		logger.Log.Info("Shutting down HTTP server")
		err := a.server.Shutdown(shutdownCtx)

		// Hijacked WebSocket connections are not tracked by http.Server
		a.hub.Shutdown()

		if forwardDone != nil {
			<-forwardDone
		}
		a.cleanup()

		if err != nil {
			return err
		}
		return <-serverErr
	}
}

func (a *App) cleanup() {
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			logger.Log.Warn("Failed to close redis broker", zap.Error(err))
		}
	}

	if err := database.Close(a.db); err != nil {
		logger.Log.Warn("Failed to close database", zap.Error(err))
	} else {
		logger.Log.Info("Database closed")
	}
}
