package httpserver

import (
	"net/http"
	"time"

	"dondog-go/internal/config"
	"dondog-go/internal/identity"
	"dondog-go/internal/metrics"
	"dondog-go/internal/transport/httpserver/handler"
	authmw "dondog-go/internal/transport/httpserver/middleware"
	"dondog-go/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const defaultRequestTimeout = 30 * time.Second

// NewRouter wires every API route. m may be nil, which disables /metrics and
// request instrumentation.
func NewRouter(cfg config.Config, handlers *handler.Handlers, verifier identity.Verifier, m *metrics.Metrics, log logger.Logger) http.Handler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(authmw.RequestLogger(log))
	r.Use(chimw.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}
	r.Use(chimw.Timeout(timeout))
	r.Use(authmw.NewCORS(cfg.CORSOrigins))

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Common.Health)

		auth := authmw.NewAuth(verifier, log)
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Get("/auth/me", handlers.Common.AuthMe)
			r.Get("/session", handlers.Common.Session)

			r.Get("/profile", handlers.Common.GetProfile)
			r.Put("/profile", handlers.Common.SetupProfile)

			r.Get("/invite", handlers.Pairing.GetInvite)
			r.Post("/invite", handlers.Pairing.IssueInvite)

			r.Post("/rooms/join", handlers.Pairing.JoinRoom)
			r.Get("/rooms/me", handlers.Pairing.GetRoomMe)

			r.Get("/posts", handlers.Posts.ListFeed)
			r.Post("/posts", handlers.Posts.CreatePost)
			r.Get("/posts/archive", handlers.Posts.MonthArchive)
			r.Get("/posts/{id}", handlers.Posts.GetPost)
			r.Patch("/posts/{id}", handlers.Posts.UpdatePost)
			r.Delete("/posts/{id}", handlers.Posts.DeletePost)

			r.Delete("/account", handlers.Account.DeleteAccount)
			r.Get("/account/deletion", handlers.Account.DeletionStatus)
		})
	})

	return r
}
