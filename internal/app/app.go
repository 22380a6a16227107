package app

import (
	"context"
	"errors"
	"net/http"

	"dondog-go/internal/config"
	accountdomain "dondog-go/internal/domain/account"
	"dondog-go/internal/events"
	"dondog-go/internal/identity"
	"dondog-go/internal/metrics"
	"dondog-go/internal/transport/httpserver"
	"dondog-go/pkg/logger"
)

type App struct {
	cfg        config.Config
	httpServer *http.Server
	closers    []func() error
	log        logger.Logger
}

func New(log logger.Logger) (*App, error) {
	ctx := context.Background()
	a := &App{log: log}

	log.Info("app: loading config")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg

	log.Info("app: initializing store", "driver", cfg.StoreDriver)
	stores, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStores)

	log.Info("app: initializing blob store", "driver", cfg.Blob.Driver)
	blobs, closeBlobs, err := openBlobs(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeBlobs)

	var publisher events.Publisher = events.Noop{}
	if cfg.Events.AMQPURL != "" {
		log.Info("app: initializing event publisher", "exchange", cfg.Events.Exchange)
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		publisher = amqpPublisher
	}
	a.closers = append(a.closers, publisher.Close)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Prefix)
	}

	verifier, provider := newIdentity(cfg, log)

	log.Info("app: initializing router")
	router := NewHandler(cfg, Deps{
		Stores:   stores,
		Blobs:    blobs,
		Verifier: verifier,
		Identity: provider,
		Events:   events.NewEmitter(publisher, log),
		Metrics:  m,
	}, log)

	log.Info("app: initializing http server")
	a.httpServer = httpserver.New(cfg, router)
	return a, nil
}

// newIdentity picks the token verifier and the identity deletion backend.
// A configured JWT secret lets most tokens be verified without calling the
// provider.
func newIdentity(cfg config.Config, log logger.Logger) (identity.Verifier, accountdomain.IdentityProvider) {
	if cfg.Supabase.SkipAuth {
		log.Warn("app: auth disabled, every request is the mock user", "user_id", cfg.Supabase.MockUserID)
		mock := identity.Mock{User: identity.Identity{
			ID:    cfg.Supabase.MockUserID,
			Email: cfg.Supabase.MockUserEmail,
		}}
		return mock, mock
	}

	provider := identity.NewSupabase(cfg.Supabase, cfg.Account.ReauthMaxAge)
	if cfg.Supabase.JWTSecret == "" {
		return provider, provider
	}
	return identity.Chain{identity.NewJWTVerifier(cfg.Supabase.JWTSecret), provider}, provider
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
