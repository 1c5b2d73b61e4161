package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	hrest "github.com/SukhvirKooner/Louder/internal/handler/rest"
	"github.com/SukhvirKooner/Louder/shared/middleware"
)

type Handlers struct {
	Events        *hrest.EventHandler
	OTP           *hrest.OTPHandler
	Subscriptions *hrest.SubscriptionHandler
	Admin         *hrest.AdminHandler
}

type Options struct {
	CORSOrigins []string
	AdminToken  string
	// Redis enables per-IP rate limits; nil leaves routes unthrottled.
	Redis    redis.UniversalClient
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

func SetupRoutes(r chi.Router, h Handlers, opts Options) chi.Router {
	// ---- Global Middleware ----
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.HeaderRequestID, middleware.HeaderAdminToken},
		ExposedHeaders:   []string{middleware.HeaderRequestID, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if opts.Redis != nil {
		r.Use(middleware.RateLimiter(opts.Redis, 300, time.Minute, 5*time.Minute, "global"))
	}

	r.Get("/healthz", h.Admin.HandleHealth)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/events", h.Events.HandleListUpcoming)
		api.Get("/events/lookup", h.Events.HandleLookup)
		api.Get("/events/{id}", h.Events.HandleGetEvent)

		api.Group(func(otp chi.Router) {
			if opts.Redis != nil {
				otp.Use(middleware.RateLimiter(opts.Redis, 20, time.Minute, 10*time.Minute, "otp"))
			}
			otp.Post("/otp/request", h.OTP.HandleRequestOTP)
			otp.Post("/otp/verify", h.OTP.HandleVerifyOTP)
		})

		api.Post("/subscriptions", h.Subscriptions.HandleSubmit)

		// ============================================================
		// Operator Endpoints
		// ============================================================
		api.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireAdminToken(opts.AdminToken))
			admin.Post("/admin/ingest", h.Admin.HandleIngest)
			admin.Post("/admin/purge", h.Admin.HandlePurge)
		})
	})

	return r
}
