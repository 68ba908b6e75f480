package http

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/himalfrost/store-api/internal/config"
	"github.com/himalfrost/store-api/internal/pkg/ratelimit"
	"github.com/himalfrost/store-api/internal/transport/http/handler"
	appmiddleware "github.com/himalfrost/store-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appmiddleware.GoogleTokenHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	res := handler.Responder{Production: cfg.IsProduction()}
	authMw := appmiddleware.Auth(deps.Auth)
	optionalAuth := appmiddleware.OptionalAuth(deps.Auth)
	proxies := appmiddleware.ParseTrustedProxies(cfg.TrustedProxies)
	verifyRL := limit(deps.VerifyLimiter, proxies)
	authRL := limit(deps.AuthLimiter, proxies)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.Auth, res)
	userH := handler.NewUserHandler(deps.Users, res)
	productH := handler.NewProductHandler(deps.Products, res)
	orderH := handler.NewOrderHandler(deps.Orders, res)
	otaH := handler.NewOTAHandler(deps.OTA, res)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(authRL).Post("/auth/phone/request", authH.RequestCode)
		r.With(verifyRL).Post("/auth/phone/verify", authH.VerifyCode)
		r.With(authRL).Post("/auth/google", authH.Google)

		r.Get("/products", productH.List)
		r.Get("/products/{id}", productH.Get)

		r.Get("/ota", otaH.Page)
		r.Get("/ota/manifest.plist", otaH.Manifest)
		r.Get("/ota/app.ipa", otaH.IPA)

		// ── Guest or signed in ───────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)

			r.Post("/orders", orderH.Create)
			r.Get("/orders/{orderId}", orderH.Get)
			r.Put("/orders/{orderId}/cancel", orderH.Cancel)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/auth/me", authH.Me)
			r.Post("/auth/logout", authH.Logout)

			r.Get("/users/me", userH.Me)
			r.Put("/users/me", userH.UpdateMe)
			r.Get("/orders/user/orders", orderH.ListMine)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireAdmin)

				r.Get("/orders", orderH.List)
				r.Put("/orders/{orderId}/status", orderH.UpdateStatus)

				r.Post("/products", productH.Create)
				r.Put("/products/{id}", productH.Update)
				r.Delete("/products/{id}", productH.Delete)
				r.Post("/products/{id}/image", productH.UploadImage)

				r.Get("/users", userH.List)
				r.Get("/users/{id}", userH.Get)
				r.Put("/users/{id}/role", userH.UpdateRole)

				r.Put("/ota/version", otaH.SetVersion)
			})
		})
	})

	return r
}

// limit wraps l as per-IP middleware; a nil limiter disables the check.
func limit(l ratelimit.Limiter, proxies []netip.Prefix) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return appmiddleware.RateLimit(l, proxies)
}
