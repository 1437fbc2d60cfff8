package commands

import (
	"context"
	"time"

	"pagebot-core-console/internal/application"
	"pagebot-core-console/internal/application/event_handlers"
	"pagebot-core-console/internal/config"
	"pagebot-core-console/internal/domain"
	"pagebot-core-console/internal/infrastructure/backend"
	"pagebot-core-console/internal/infrastructure/facebook"
	"pagebot-core-console/internal/infrastructure/guard"
	"pagebot-core-console/internal/infrastructure/pubsub"
	"pagebot-core-console/internal/infrastructure/repository"
	"pagebot-core-console/internal/infrastructure/shopify"
	"pagebot-core-console/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const memoryAuditCapacity = 500

// app is the wired reconciliation stack shared by every subcommand
type app struct {
	cfg        config.Config
	logger     zerolog.Logger
	engine     *application.ReconciliationEngine
	provider   *facebook.Provider
	events     *pubsub.PageEventPubSub
	dispatcher *event_handlers.Dispatcher
	dispatched chan struct{}
	closers    []func()
}

func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) *app {
	a := &app{cfg: cfg, logger: logger}

	backendClient := backend.NewClient(cfg.BackendURL, cfg.CommandTimeout, component(logger, "backend"))
	a.provider = facebook.NewProvider(facebook.Config{
		GraphURL:    cfg.GraphAPIURL,
		AppID:       cfg.FacebookAppID,
		AppSecret:   cfg.FacebookAppSecret,
		RedirectURL: cfg.OAuthRedirectURL(),
		Timeout:     cfg.CommandTimeout,
	}, component(logger, "facebook"))
	a.events = pubsub.NewPageEventPubSub(component(logger, "pubsub"))

	audit := a.commandRepository(ctx)

	gateway := application.NewIdentityGateway(a.provider, backendClient, cfg.CommandTimeout, component(logger, "identity"))
	registry := application.NewConfigRegistry(backendClient, a.events, cfg.CommandTimeout, component(logger, "registry"))
	drafts := application.NewDraftStore(component(logger, "drafts")).
		WithNormalizer(domain.FieldShopLink, shopify.NormalizeShopLink)

	a.engine = application.NewReconciliationEngine(
		gateway,
		registry,
		drafts,
		backendClient,
		a.inFlightGuard(ctx),
		a.events,
		audit,
		cfg.CommandTimeout,
		component(logger, "engine"),
	)

	a.dispatcher = event_handlers.NewDispatcher(component(logger, "dispatcher"))
	a.dispatcher.RegisterHandler(event_handlers.NewUninstalledHandler(logger))
	sub := a.events.Subscribe(ctx, pubsub.PageEventFilter{})
	a.dispatched = make(chan struct{})
	go func() {
		defer close(a.dispatched)
		a.dispatcher.Run(sub.Events)
	}()

	return a
}

// inFlightGuard uses Redis when configured and reachable, otherwise an in-process guard
func (a *app) inFlightGuard(ctx context.Context) ports.InFlightGuard {
	if a.cfg.RedisURL == "" {
		return guard.NewMemoryGuard()
	}

	client, err := guard.Connect(ctx, a.cfg.RedisURL)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Redis unavailable, falling back to in-process guard")
		return guard.NewMemoryGuard()
	}
	a.closers = append(a.closers, func() { _ = client.Close() })

	// the guard is held across the mutation and the follow-up refresh
	ttl := 2*a.cfg.CommandTimeout + 5*time.Second
	a.logger.Info().Dur("ttl", ttl).Msg("Using Redis in-flight guard")
	return guard.NewRedisGuard(client, ttl, component(a.logger, "guard"))
}

// commandRepository uses MongoDB when configured and reachable, otherwise keeps history in memory
func (a *app) commandRepository(ctx context.Context) ports.CommandRepository {
	if a.cfg.MongoURI == "" {
		return repository.NewMemoryCommandRepository(memoryAuditCapacity)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(a.cfg.MongoURI))
	if err == nil {
		err = client.Ping(connectCtx, nil)
	}
	if err != nil {
		a.logger.Warn().Err(err).Msg("MongoDB unavailable, keeping command history in memory")
		if client != nil {
			_ = client.Disconnect(context.Background())
		}
		return repository.NewMemoryCommandRepository(memoryAuditCapacity)
	}
	a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })

	repo := repository.NewMongoCommandRepository(client.Database(a.cfg.MongoDatabase))
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to ensure command indexes")
	}
	a.logger.Info().Str("database", a.cfg.MongoDatabase).Msg("Using MongoDB command history")
	return repo
}

// login signs in with a provider token for the one-shot subcommands
func (a *app) login(ctx context.Context, token string) error {
	_, err := a.engine.Login(ctx, ports.ProviderCredential{AccessToken: token})
	return err
}

// close ends the event bus, waits for the dispatcher to handle what was already
// published, then releases the stores.
func (a *app) close() {
	a.events.Close()
	<-a.dispatched
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
