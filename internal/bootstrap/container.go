package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"medimate-be/internal/authprovider"
	"medimate-be/internal/config"
	"medimate-be/internal/controller"
	"medimate-be/internal/handler"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/pkg/mailer"
	"medimate-be/internal/pkg/serverutils"
	"medimate-be/internal/repository/cache"
	"medimate-be/internal/repository/contract"
	"medimate-be/internal/repository/memory"
	"medimate-be/internal/repository/unitofwork"
	"medimate-be/internal/service"
	"medimate-be/internal/websocket"
	"medimate-be/pkg/answer"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/events"
	"medimate-be/pkg/feed"
	"medimate-be/pkg/llm/factory"
	pktNats "medimate-be/pkg/nats"
	"medimate-be/pkg/objectstore"
	"medimate-be/pkg/profile"
	"medimate-be/pkg/reservation"
	"medimate-be/pkg/session"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController  controller.IAuthController
	OAuthController controller.IOAuthController
	UserController  controller.IUserController
	ChatController  controller.IChatController

	// WebSockets
	RealtimeHandler *handler.RealtimeHandler
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	activity *service.ActivityService
	bridge   *feed.RedisBridge
	closers  []func() error
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	store := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	wsLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)

	c := &Container{Logger: sysLogger}
	// Sync on a console core fails on some terminals; flushing is best effort.
	c.closers = append(c.closers, func() error {
		_ = wsLogger.Sync()
		_ = sysLogger.Sync()
		return nil
	})

	// 2. Redis (optional; enables multi-instance fan-out)
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			sysLogger.Warn("Bootstrap", "Redis unreachable, running single-instance", map[string]interface{}{"error": err.Error()})
			_ = rdb.Close()
			rdb = nil
		} else {
			c.closers = append(c.closers, rdb.Close)
		}
	}

	// 3. Change feed
	bus := feed.NewBus(sysLogger)
	c.closers = append(c.closers, bus.Close)
	var changeFeed feed.Feed = bus
	if rdb != nil {
		c.bridge = feed.NewRedisBridge(bus, rdb, sysLogger)
		changeFeed = c.bridge
	}

	var refreshSessions contract.RefreshSessionRepository = memory.NewRefreshSessionRepository()
	if rdb != nil {
		refreshSessions = cache.NewRedisRefreshStore(rdb)
	}

	// 4. Mail
	var emailService mailer.IEmailService = mailer.LogOnlyService{Logger: sysLogger}
	if cfg.SMTP.Enabled() {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.Email,
			cfg.SMTP.SenderName,
			sysLogger,
		)
	}

	// 5. Backend collaborators
	provider := authprovider.NewProvider(store, refreshSessions, emailService, changeFeed, cfg.Auth, cfg.App.BaseURL, sysLogger)

	var storage backend.Storage = backend.DisabledStorage{Reason: "MINIO_ENDPOINT is not set"}
	if cfg.Storage.Enabled() {
		minioStorage, err := objectstore.NewMinioStorage(cfg.Storage, sysLogger)
		if err != nil {
			sysLogger.Error("Bootstrap", "Object storage unavailable", map[string]interface{}{"error": err})
			storage = backend.DisabledStorage{Reason: err.Error()}
		} else {
			storage = minioStorage
		}
	}

	var answerer backend.Answerer = backend.DisabledAnswerer{Reason: "LLM_PROVIDER is not set"}
	if cfg.Ai.Enabled() {
		llmProvider, err := factory.NewLLMProvider(cfg.Ai)
		if err != nil {
			sysLogger.Error("Bootstrap", "LLM provider unavailable", map[string]interface{}{"error": err})
			answerer = backend.DisabledAnswerer{Reason: err.Error()}
		} else {
			sysLogger.Info("Bootstrap", "Using LLM provider", map[string]interface{}{"provider": cfg.Ai.Provider, "model": cfg.Ai.Model})
			answerer = answer.NewService(llmProvider)
		}
	}

	client := &backend.Client{
		Auth:     provider,
		Store:    store,
		Feed:     changeFeed,
		Storage:  storage,
		Answerer: answerer,
	}

	// 6. Domain events: NATS JetStream when configured, in-process otherwise
	var publisher events.Publisher
	var subscriber events.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, pubErr := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		natsSub, subErr := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err := errors.Join(pubErr, subErr); err != nil {
			sysLogger.Warn("Bootstrap", "NATS unavailable, using the local event bus", map[string]interface{}{"error": err.Error()})
			if natsPub != nil {
				natsPub.Close()
			}
			if natsSub != nil {
				natsSub.Close()
			}
		} else {
			publisher, subscriber = natsPub, natsSub
			c.closers = append(c.closers, func() error { natsPub.Close(); natsSub.Close(); return nil })
		}
	}
	if publisher == nil {
		localBus := events.NewLocalBus(sysLogger)
		publisher, subscriber = localBus, localBus
		c.closers = append(c.closers, localBus.Close)
	}

	// 7. Sync components
	sessions := session.NewManager(client, sysLogger)
	registry := reservation.NewRegistry(store)
	mutator := profile.NewMutator(client, registry, sysLogger)

	wsHub := websocket.NewHub(rdb, wsLogger)
	c.WebSocketHub = wsHub

	// 8. Services
	var google service.GoogleExchanger
	if cfg.Auth.GoogleEnabled() {
		google = service.NewGoogleOAuth(cfg.Auth)
	}

	authService := service.NewAuthService(client, provider, sessions, registry, publisher, sysLogger)
	oauthService := service.NewOAuthService(client, google, provider, sessions, publisher, sysLogger)
	userService := service.NewUserService(client, mutator, memory.NewUploadProgressRepository(), wsHub, publisher, sysLogger)
	chatService := service.NewChatService(client, publisher, sysLogger)
	c.activity = service.NewActivityService(store, subscriber, wsHub, sysLogger)

	// 9. Middleware & Controllers
	jwt := serverutils.JwtMiddleware(provider)
	verified := serverutils.RequireVerified(sessions)

	c.AuthController = controller.NewAuthController(authService, cfg.App.ClientURL, jwt)
	c.OAuthController = controller.NewOAuthController(oauthService, cfg.App.ClientURL, sysLogger)
	c.UserController = controller.NewUserController(userService, jwt, verified)
	c.ChatController = controller.NewChatController(chatService, jwt, verified)
	c.RealtimeHandler = handler.NewRealtimeHandler(wsHub, websocket.Deps{
		Sessions: sessions,
		Backend:  client,
		Logger:   wsLogger,
	}, jwt, wsLogger)

	return c
}

// Run starts the background workers and blocks until ctx ends.
func (c *Container) Run(ctx context.Context) error {
	if c.bridge != nil {
		if err := c.bridge.Start(ctx); err != nil {
			return err
		}
	}
	if err := c.activity.Start(ctx); err != nil {
		return err
	}

	c.WebSocketHub.Run(ctx)
	return nil
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close container: %w", errors.Join(errs...))
	}
	return nil
}
