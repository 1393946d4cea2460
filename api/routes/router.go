package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storepulse/storepulse-backend/api/controllers"
	"github.com/storepulse/storepulse-backend/api/middleware"
	"github.com/storepulse/storepulse-backend/internal/auth"
	"github.com/storepulse/storepulse-backend/internal/ratings"
	"github.com/storepulse/storepulse-backend/internal/stores"
	"github.com/storepulse/storepulse-backend/internal/users"
	"github.com/storepulse/storepulse-backend/pkg/auth/session"
	"github.com/storepulse/storepulse-backend/pkg/config"
	"github.com/storepulse/storepulse-backend/pkg/db"
	"github.com/storepulse/storepulse-backend/pkg/enums"
	"github.com/storepulse/storepulse-backend/pkg/logger"
	"github.com/storepulse/storepulse-backend/pkg/metrics"
	redisclient "github.com/storepulse/storepulse-backend/pkg/redis"
)

var (
	anyAuthenticated = []enums.Role{enums.RoleUser, enums.RoleStoreOwner, enums.RoleAdmin}
	adminOnly        = []enums.Role{enums.RoleAdmin}
	ownerOnly        = []enums.Role{enums.RoleStoreOwner}
)

// policyRoute binds one protected operation to its allowed-role set. All role
// gating lives in this table; handlers never re-check roles.
type policyRoute struct {
	method  string
	pattern string
	allowed []enums.Role
	handler http.HandlerFunc
}

// Deps bundles everything the router needs to wire handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       db.Pinger
	Redis          *redisclient.Client
	SessionChecker session.AccessSessionChecker
	Registry       *prometheus.Registry
	HTTPMetrics    *metrics.HTTPMetrics
	AuthService    auth.Service
	RatingService  ratings.Service
	StoreService   stores.Service
	UserService    users.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).
			Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		for _, route := range protectedRoutes(deps, logg) {
			r.With(middleware.RequireRole(logg, route.allowed...)).
				Method(route.method, route.pattern, route.handler)
		}
	})

	return r
}

// protectedRoutes is the authorization policy table for everything behind Auth.
func protectedRoutes(deps Deps, logg *logger.Logger) []policyRoute {
	return []policyRoute{
		{http.MethodPost, "/auth/logout", anyAuthenticated, controllers.AuthLogout(deps.AuthService, logg)},
		{http.MethodPut, "/auth/change-password", anyAuthenticated, controllers.AuthChangePassword(deps.AuthService, logg)},

		{http.MethodPost, "/ratings/{storeId}", anyAuthenticated, controllers.SubmitRating(deps.RatingService, logg)},
		{http.MethodGet, "/ratings/store/{storeId}", anyAuthenticated, controllers.StoreRatings(deps.RatingService, logg)},

		{http.MethodGet, "/stores", anyAuthenticated, controllers.StoresList(deps.StoreService, logg)},
		{http.MethodPost, "/stores", adminOnly, controllers.StoreCreate(deps.StoreService, logg)},
		{http.MethodGet, "/stores/my-stores", ownerOnly, controllers.MyStores(deps.StoreService, logg)},
		{http.MethodGet, "/stores/my-stores/{storeId}", ownerOnly, controllers.MyStoreDetail(deps.StoreService, logg)},

		{http.MethodGet, "/users", adminOnly, controllers.UsersList(deps.UserService, logg)},
		{http.MethodPost, "/users", adminOnly, controllers.UserCreate(deps.UserService, logg)},
		{http.MethodGet, "/users/store-owners", adminOnly, controllers.StoreOwnersList(deps.UserService, logg)},
		{http.MethodGet, "/users/stats/dashboard", adminOnly, controllers.DashboardStats(deps.UserService, logg)},
		{http.MethodGet, "/users/{userId}", adminOnly, controllers.UserDetail(deps.UserService, logg)},
	}
}
