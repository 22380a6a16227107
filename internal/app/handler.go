package app

import (
	"net/http"

	"dondog-go/internal/config"
	accountdomain "dondog-go/internal/domain/account"
	pairingdomain "dondog-go/internal/domain/pairing"
	postsdomain "dondog-go/internal/domain/posts"
	"dondog-go/internal/domain/session"
	userdomain "dondog-go/internal/domain/user"
	"dondog-go/internal/events"
	"dondog-go/internal/identity"
	"dondog-go/internal/metrics"
	"dondog-go/internal/repository/inmemory"
	"dondog-go/internal/storage"
	"dondog-go/internal/transport/httpserver"
	"dondog-go/internal/transport/httpserver/handler"
	accounthandler "dondog-go/internal/transport/httpserver/handler/account"
	commonhandler "dondog-go/internal/transport/httpserver/handler/common"
	pairinghandler "dondog-go/internal/transport/httpserver/handler/pairing"
	postshandler "dondog-go/internal/transport/httpserver/handler/posts"
	"dondog-go/pkg/logger"
)

// Deps are the backends the HTTP stack runs on. Events and Metrics may be
// nil.
type Deps struct {
	Stores   Stores
	Blobs    storage.Store
	Verifier identity.Verifier
	Identity accountdomain.IdentityProvider
	Events   events.Emitter
	Metrics  *metrics.Metrics
}

// NewHandler builds the services over deps and returns the API router.
func NewHandler(cfg config.Config, deps Deps, log logger.Logger) http.Handler {
	var (
		pairingMetrics pairingdomain.Metrics
		accountMetrics accountdomain.Metrics
	)
	if deps.Metrics != nil {
		pairingMetrics = deps.Metrics
		accountMetrics = deps.Metrics
	}

	// The deletion guard and the session resolver must share one tracker.
	tracker := inmemory.NewSessionTracker(cfg.Account.DeletionLockTTL)

	accounts := accountdomain.NewService(deps.Stores.Account, deps.Blobs, deps.Identity, tracker, deps.Events, accountMetrics, log, accountdomain.Options{
		MediaConcurrency: cfg.Account.MediaDeleteConcurrency,
	})
	users := userdomain.NewService(deps.Stores.Users, accounts)
	pairing := pairingdomain.NewService(deps.Stores.Pairing, pairingdomain.Options{
		InviteTTL:      cfg.Pairing.InviteTTL,
		CodeAttempts:   cfg.Pairing.CodeAttempts,
		RoomIDAttempts: cfg.Pairing.RoomIDAttempts,
		Deletions:      accounts,
	}, deps.Events, pairingMetrics)
	posts := postsdomain.NewService(deps.Stores.Posts, deps.Blobs, deps.Events, log, postsdomain.Options{
		MaxImageBytes: cfg.Posts.MaxImageBytes,
		FeedPageSize:  cfg.Posts.FeedPageSize,
	})
	sessions := session.NewResolver(tracker, users, accounts, pairing)

	handlers := handler.New(
		commonhandler.New(users, pairing, sessions, log),
		pairinghandler.New(pairing, log),
		postshandler.New(posts, cfg.Posts.MaxImageBytes, log),
		accounthandler.New(accounts, log),
	)
	return httpserver.NewRouter(cfg, handlers, deps.Verifier, deps.Metrics, log)
}
