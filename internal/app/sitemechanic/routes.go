package sitemechanic

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/peternemser-ui/font-scanner-sub010/internal/config"
	"github.com/peternemser-ui/font-scanner-sub010/internal/http/handlers/auth/login"
	"github.com/peternemser-ui/font-scanner-sub010/internal/http/handlers/auth/register"
	billingcheckout "github.com/peternemser-ui/font-scanner-sub010/internal/http/handlers/billing/checkout"
	billingwebhook "github.com/peternemser-ui/font-scanner-sub010/internal/http/handlers/billing/webhook"
	"github.com/peternemser-ui/font-scanner-sub010/internal/http/handlers/entitlements"
	"github.com/peternemser-ui/font-scanner-sub010/internal/http/handlers/health"
	reportaccess "github.com/peternemser-ui/font-scanner-sub010/internal/http/handlers/report/access"
	"github.com/peternemser-ui/font-scanner-sub010/internal/http/handlers/scan"
	"github.com/peternemser-ui/font-scanner-sub010/internal/http/middlewarectx"
	authservice "github.com/peternemser-ui/font-scanner-sub010/internal/services/auth"
	checkoutservice "github.com/peternemser-ui/font-scanner-sub010/internal/services/checkout"
	entitlementservice "github.com/peternemser-ui/font-scanner-sub010/internal/services/entitlement"
	reconcilerservice "github.com/peternemser-ui/font-scanner-sub010/internal/services/reconciler"
	scannerservice "github.com/peternemser-ui/font-scanner-sub010/internal/services/scanner"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	cfg *config.Config,
	authService *authservice.Service,
	entitlementService *entitlementservice.Service,
	reconcilerService *reconcilerservice.Service,
	scannerService *scannerservice.Service,
	checkoutService *checkoutservice.Service,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	limiter := rate.NewLimiter(10, 20)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger).ServeHTTP)
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(limiter, logger))
			r.Post("/scan", scan.New(logger, scannerService, entitlementService).ServeHTTP)
			r.Get("/reports/{reportID}/access", reportaccess.New(logger, entitlementService).ServeHTTP)
			r.Get("/me/entitlements", entitlements.New(logger, entitlementService).ServeHTTP)
			r.Post("/billing/checkout", billingcheckout.New(logger, checkoutService).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации, подпись проверяет сам обработчик)
		r.Post("/billing/webhook", billingwebhook.New(logger, reconcilerService, cfg.Stripe.WebhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
