package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/redmonkez12/contacts-api/internal/auth"
	"github.com/redmonkez12/contacts-api/internal/config"
	"github.com/redmonkez12/contacts-api/internal/contact"
	"github.com/redmonkez12/contacts-api/internal/httputil"
	"github.com/redmonkez12/contacts-api/internal/logging"
	"github.com/redmonkez12/contacts-api/internal/ratelimit"
	"github.com/redmonkez12/contacts-api/internal/user"
)

const profileRateLimit = 10

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	authHandler *auth.Handler,
	authMiddleware *auth.Middleware,
	userHandler *user.Handler,
	contactHandler *contact.Handler,
	limiter *ratelimit.Limiter,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(middleware.StripSlashes)       // /contacts/birthdays/ == /contacts/birthdays
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses

	// Public routes
	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/request-email-verification", authHandler.ResendVerification)
		})

		// Profile routes (require authentication)
		r.Route("/users", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)

			r.With(limiter.Handler(profileRateLimit, time.Minute, "users_me")).
				Get("/me", userHandler.Me)
			r.Patch("/me", userHandler.UpdateMe)
			r.Patch("/me/avatar", userHandler.UpdateAvatar)
		})

		// Contact routes (require authentication)
		r.Route("/contacts", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)

			r.Post("/", contactHandler.Create)
			r.Get("/", contactHandler.List)
			r.Get("/birthdays", contactHandler.UpcomingBirthdays)
			r.Get("/{id}", contactHandler.Get)
			r.Put("/{id}", contactHandler.Update)
			r.Delete("/{id}", contactHandler.Delete)
		})
	})

	return r
}

// handleRoot greets callers hitting the bare origin
func handleRoot(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"message": "Welcome to the contacts API"}, http.StatusOK)
}

// handleHealth is a simple health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
