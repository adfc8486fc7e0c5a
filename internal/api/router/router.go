package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/careconnect/internal/accounts"
	"github.com/wolfman30/careconnect/internal/admin"
	"github.com/wolfman30/careconnect/internal/booking"
	"github.com/wolfman30/careconnect/internal/clinic"
	"github.com/wolfman30/careconnect/internal/conversation"
	httpmiddleware "github.com/wolfman30/careconnect/internal/http/middleware"
	"github.com/wolfman30/careconnect/internal/verification"
	"github.com/wolfman30/careconnect/internal/webchat"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	Tokens              *accounts.TokenIssuer
	AccountsHandler     *accounts.Handler
	ConversationHandler *conversation.Handler
	ClinicHandler       *clinic.Handler
	BookingHandler      *booking.Handler
	VerificationHandler *verification.Handler
	AdminStatsHandler   *admin.StatsHandler
	WebChatHandler      *webchat.Handler
	MetricsHandler      http.Handler
	HealthChecks        map[string]HealthCheck
	CORS                httpmiddleware.CORSOptions

	// ChatLimiter caps messages per session. Nil disables the limit.
	ChatLimiter          httpmiddleware.WindowLimiter
	IPRateLimitPerSecond float64
	IPRateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.CORS.Enabled() {
		r.Use(httpmiddleware.CORS(cfg.CORS))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics, realtime chat)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.WebChatHandler != nil {
			public.Get("/ws/chat", cfg.WebChatHandler.HandleWebSocket)
		}
	})

	r.Route("/api", func(api chi.Router) {
		if cfg.IPRateLimitPerSecond > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.IPRateLimitPerSecond, cfg.IPRateLimitBurst))
		}
		api.Use(middleware.Compress(5))

		if cfg.AccountsHandler != nil {
			api.Route("/auth", func(r chi.Router) {
				r.Post("/register", cfg.AccountsHandler.Register)
				r.Post("/login", cfg.AccountsHandler.Login)
			})
		}

		if cfg.ConversationHandler != nil {
			api.Route("/chat/sessions", func(r chi.Router) {
				r.Post("/", cfg.ConversationHandler.Start)
				r.Route("/{sessionID}", func(session chi.Router) {
					session.Get("/", cfg.ConversationHandler.Get)
					session.Delete("/", cfg.ConversationHandler.Reset)
					session.Post("/undo", cfg.ConversationHandler.Undo)
					session.Post("/redo", cfg.ConversationHandler.Redo)
					if cfg.ChatLimiter != nil {
						session.With(httpmiddleware.ChatRateLimit(cfg.ChatLimiter, cfg.Logger)).
							Post("/messages", cfg.ConversationHandler.Message)
					} else {
						session.Post("/messages", cfg.ConversationHandler.Message)
					}
				})
			})
		}

		api.Route("/clinics", func(r chi.Router) {
			if cfg.ClinicHandler != nil {
				r.Get("/recommendations", cfg.ClinicHandler.Recommendations)
			}
			if cfg.BookingHandler != nil {
				r.Get("/{clinicID}/availability", cfg.BookingHandler.Availability)
			}
		})

		// Patient routes
		if cfg.BookingHandler != nil {
			api.Route("/appointments", func(r chi.Router) {
				r.Use(httpmiddleware.RequireRole(cfg.Tokens, accounts.RolePatient))
				r.Post("/", cfg.BookingHandler.Create)
				r.Get("/", cfg.BookingHandler.List)
				r.Post("/{appointmentID}/cancel", cfg.BookingHandler.Cancel)
			})
		}

		// Doctor routes
		if cfg.VerificationHandler != nil {
			api.Route("/doctor", func(r chi.Router) {
				r.Use(httpmiddleware.RequireRole(cfg.Tokens, accounts.RoleDoctor))
				r.Post("/verification", cfg.VerificationHandler.Submit)
				r.Get("/verification", cfg.VerificationHandler.Status)
			})
		}

		// Admin routes
		api.Route("/admin", func(r chi.Router) {
			r.Use(httpmiddleware.RequireRole(cfg.Tokens, accounts.RoleAdmin))
			if cfg.VerificationHandler != nil {
				r.Get("/verifications", cfg.VerificationHandler.List)
				r.Post("/verifications/{applicationID}/approve", cfg.VerificationHandler.Approve)
				r.Post("/verifications/{applicationID}/reject", cfg.VerificationHandler.Reject)
			}
			if cfg.AdminStatsHandler != nil {
				r.Get("/dashboard", cfg.AdminStatsHandler.GetDashboard)
			}
			if cfg.BookingHandler != nil {
				r.Put("/clinics/{clinicID}/availability", cfg.BookingHandler.SetCapacity)
			}
		})
	})

	return r
}
