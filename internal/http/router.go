package http

import (
	"log/slog"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/preston-bernstein/fightpicks/internal/auth"
	"github.com/preston-bernstein/fightpicks/internal/http/handlers"
	"github.com/preston-bernstein/fightpicks/internal/http/middleware"
	"github.com/preston-bernstein/fightpicks/internal/metrics"
)

// RouterConfig carries the cross-cutting pieces the router installs.
type RouterConfig struct {
	Verifier    *auth.Verifier
	Admin       *handlers.AdminHandler
	CORSOrigins []string
	Logger      *slog.Logger
	Metrics     *metrics.Recorder
}

// NewRouter registers HTTP routes on a chi router.
func NewRouter(h *handlers.Handler, cfg RouterConfig) nethttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(cfg.Logger, cfg.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)

	r.Get("/events", h.ListEvents)
	r.Get("/events/{eventID}", h.GetEvent)
	r.Get("/events/{eventID}/fights", h.ListFights)
	r.Get("/methods", h.ListMethods)

	requireUser := auth.Middleware(cfg.Verifier, h.AuthError)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/magic-link", h.MagicLink)
		r.Get("/oauth/{provider}", h.OAuthRedirect)
		r.With(requireUser).Post("/signout", h.SignOut)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Get("/me", h.Me)

		r.Route("/leagues", func(r chi.Router) {
			r.Get("/", h.ListLeagues)
			r.Post("/", h.CreateLeague)
			r.Post("/join", h.JoinLeague)
			r.Get("/{leagueID}/picks", h.LeaguePicks)
		})

		r.Route("/pages", func(r chi.Router) {
			r.Post("/", h.OpenPage)
			r.Route("/{pageID}", func(r chi.Router) {
				r.Get("/", h.GetPage)
				r.Delete("/", h.ClosePage)
				r.Put("/league", h.SelectLeague)
				r.Patch("/picks/{fightID}", h.EditPick)
				r.Get("/ws", h.PageStream)
			})
		})
	})

	if cfg.Admin != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(cfg.Admin.RequireToken)
			r.Post("/catalog/refresh", cfg.Admin.RefreshCatalog)
			r.Post("/pages/sweep", cfg.Admin.SweepPages)
		})
	}

	return r
}
