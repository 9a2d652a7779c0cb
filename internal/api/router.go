package api

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// RouterConfig contains dependencies needed for the router setup.
type RouterConfig struct {
	Logger *slog.Logger

	// Identify extracts the principal from the session cookie or bearer
	// token without rejecting anonymous requests.
	Identify func(http.Handler) http.Handler
	// RequireAuthenticated rejects requests with no principal.
	RequireAuthenticated func(http.Handler) http.Handler
	// WithAccess resolves the caller's role and attaches it.
	WithAccess func(http.Handler) http.Handler
	// RequireAdmin gates the back-office routes.
	RequireAdmin func(http.Handler) http.Handler

	TrackLookupRatePerMinute int

	AuthHandler          AuthHandlerIface
	AccessHandler        AccessHandlerIface
	PackagesHandler      PackagesHandlerIface
	RoutesHandler        RoutesHandlerIface
	NotificationsHandler NotificationsHandlerIface
	AdminHandler         AdminHandlerIface
}

// Handler interfaces keep this package free of imports from the feature
// packages, which import this package for response helpers.
type AuthHandlerIface interface {
	Login(w http.ResponseWriter, r *http.Request)
	Register(w http.ResponseWriter, r *http.Request)
	RefreshSession(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	UpdatePassword(w http.ResponseWriter, r *http.Request)
	BeginOAuth(w http.ResponseWriter, r *http.Request)
	OAuthCallback(w http.ResponseWriter, r *http.Request)
}

type AccessHandlerIface interface {
	GetMyAccess(w http.ResponseWriter, r *http.Request)
	UpdateMyDisplayName(w http.ResponseWriter, r *http.Request)
}

type PackagesHandlerIface interface {
	Track(w http.ResponseWriter, r *http.Request)
	ListMine(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	UpdateStatus(w http.ResponseWriter, r *http.Request)
	AssignRoute(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type RoutesHandlerIface interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	ReplaceWaypoints(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type NotificationsHandlerIface interface {
	ListMine(w http.ResponseWriter, r *http.Request)
	MarkRead(w http.ResponseWriter, r *http.Request)
	Broadcast(w http.ResponseWriter, r *http.Request)
}

type AdminHandlerIface interface {
	ListProfiles(w http.ResponseWriter, r *http.Request)
	GetProfile(w http.ResponseWriter, r *http.Request)
	UpdateRole(w http.ResponseWriter, r *http.Request)
	RemoveUser(w http.ResponseWriter, r *http.Request)
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are applied before
// mounting this router in main.go.
func SetupRouter(cfg *RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes. The tracking lookup is rate limited per client IP
		// because it is reachable without a session.
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.RefreshSession)
			r.Get("/auth/{provider}", cfg.AuthHandler.BeginOAuth)
			r.Get("/auth/{provider}/callback", cfg.AuthHandler.OAuthCallback)

			rate := cfg.TrackLookupRatePerMinute
			if rate <= 0 {
				rate = 30
			}
			r.With(httprate.LimitByIP(rate, time.Minute)).
				Get("/track/{trackingNumber}", cfg.PackagesHandler.Track)
		})

		// Authenticated routes. Identify runs first so the access resolver
		// sees the principal; it never rejects on its own.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Identify)
			r.Use(cfg.RequireAuthenticated)
			r.Use(cfg.WithAccess)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)
			r.Put("/auth/update-password", cfg.AuthHandler.UpdatePassword)

			r.Get("/me/access", cfg.AccessHandler.GetMyAccess)
			r.Put("/me/display-name", cfg.AccessHandler.UpdateMyDisplayName)

			r.Get("/me/packages", cfg.PackagesHandler.ListMine)

			r.Get("/me/notifications", cfg.NotificationsHandler.ListMine)
			r.Put("/me/notifications/{notificationID}/read", cfg.NotificationsHandler.MarkRead)

			// Back office.
			r.Group(func(r chi.Router) {
				r.Use(cfg.RequireAdmin)

				r.Get("/admin/packages", cfg.PackagesHandler.List)
				r.Post("/admin/packages", cfg.PackagesHandler.Create)
				r.Get("/admin/packages/{packageID}", cfg.PackagesHandler.Get)
				r.Put("/admin/packages/{packageID}/status", cfg.PackagesHandler.UpdateStatus)
				r.Put("/admin/packages/{packageID}/route", cfg.PackagesHandler.AssignRoute)
				r.Delete("/admin/packages/{packageID}", cfg.PackagesHandler.Delete)

				r.Get("/admin/routes", cfg.RoutesHandler.List)
				r.Post("/admin/routes", cfg.RoutesHandler.Create)
				r.Get("/admin/routes/{routeID}", cfg.RoutesHandler.Get)
				r.Put("/admin/routes/{routeID}", cfg.RoutesHandler.Update)
				r.Put("/admin/routes/{routeID}/waypoints", cfg.RoutesHandler.ReplaceWaypoints)
				r.Delete("/admin/routes/{routeID}", cfg.RoutesHandler.Delete)

				r.Get("/admin/users", cfg.AdminHandler.ListProfiles)
				r.Get("/admin/users/{userID}", cfg.AdminHandler.GetProfile)
				r.Put("/admin/users/{userID}/role", cfg.AdminHandler.UpdateRole)
				r.Delete("/admin/users/{userID}", cfg.AdminHandler.RemoveUser)

				r.Post("/admin/broadcast", cfg.NotificationsHandler.Broadcast)
			})
		})
	})

	return r
}
