// Package httpapi hosts the web panel pages and the JSON API.
package httpapi

import (
	"context"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"panelbot/internal/domain"
	"panelbot/internal/feature/user"
	"panelbot/internal/logging"
	"panelbot/internal/store"
	"panelbot/web"
)

// Banner is the plain-text body served at the root path.
const Banner = "Telegram Web Bot Starter - visit /user or /admin"

const maxBodyBytes = 1 << 20

// UserService registers and lists panel users.
type UserService interface {
	Register(ctx context.Context, req user.RegisterRequest) (bool, error)
	List(ctx context.Context) ([]domain.User, error)
}

// StatsService reports collection counts.
type StatsService interface {
	Stats(ctx context.Context) (store.Stats, error)
}

// Deps carries everything the router needs.
type Deps struct {
	AdminToken string
	Users      UserService
	Stats      StatsService
	Health     http.Handler
	Pages      fs.FS
	Logger     *logrus.Entry
}

type api struct {
	users  UserService
	stats  StatsService
	pages  fs.FS
	gate   tokenGate
	logger *logrus.Entry
}

// NewRouter wires the panel pages, API routes and middleware.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Logger()
	}

	pages := deps.Pages
	if pages == nil {
		pages = web.Assets
	}

	a := &api{
		users:  deps.Users,
		stats:  deps.Stats,
		pages:  pages,
		gate:   tokenGate{token: deps.AdminToken},
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/", a.handleBanner)
	r.Get("/user", a.handleUserPage)
	r.With(a.gate.requirePage).Get("/admin", a.handleAdminPage)
	r.Handle("/static/*", http.StripPrefix("/static/", staticAssets(pages)))

	if deps.Health != nil {
		r.Method(http.MethodGet, "/healthz", deps.Health)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", a.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(a.gate.requireAPI)
			r.Get("/users", a.handleListUsers)
			r.Get("/stats", a.handleStats)
		})
	})

	return r
}
