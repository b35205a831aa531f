package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freightdesk/logistics-backend/api/controllers"
	"github.com/freightdesk/logistics-backend/api/middleware"
	authsvc "github.com/freightdesk/logistics-backend/internal/auth"
	exportsvc "github.com/freightdesk/logistics-backend/internal/exports"
	ordersvc "github.com/freightdesk/logistics-backend/internal/orders"
	productsvc "github.com/freightdesk/logistics-backend/internal/products"
	profilesvc "github.com/freightdesk/logistics-backend/internal/profiles"
	"github.com/freightdesk/logistics-backend/pkg/config"
	"github.com/freightdesk/logistics-backend/pkg/enums"
	"github.com/freightdesk/logistics-backend/pkg/logger"
	"github.com/freightdesk/logistics-backend/pkg/redis"
)

// NewRouter assembles the portal's HTTP surface. Everything under /api except
// auth and health requires a bearer token and counts against the caller's
// daily request quota.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	readiness map[string]controllers.Pinger,
	authService authsvc.Service,
	productService productsvc.Service,
	orderService ordersvc.Service,
	exportService exportsvc.Service,
	profileService profilesvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	// A typed-nil *redis.Client must not reach the limiter interfaces.
	var limiter redis.RateLimiter
	loginLimit := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		limiter = redisClient
		loginLimit = middleware.AuthRateLimit(loginPolicy, redisClient, logg)
	}

	r.Route("/api/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/login", controllers.Login(authService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.APIRateLimit(cfg.APIRateLimit, limiter, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(productService, logg))
			r.Get("/{productID}", controllers.GetProduct(productService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(orderService, logg))
			r.Get("/{orderID}", controllers.GetOrder(orderService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(func(c enums.Capabilities) bool { return c.CanCreateOrder }, logg))
				r.Post("/", controllers.CreateOrder(orderService, logg))
				r.Post("/bulk", controllers.BulkCreateOrders(orderService, logg))
			})

			r.With(middleware.RequireCapability(func(c enums.Capabilities) bool { return c.CanRetryOrder }, logg)).
				Post("/{orderID}/retry", controllers.RetryOrder(orderService, logg))
		})

		r.Route("/exports", func(r chi.Router) {
			r.Get("/", controllers.ListExports(exportService, logg))
			r.Get("/{exportID}", controllers.GetExport(exportService, logg))
			r.Get("/{exportID}/download", controllers.DownloadExport(exportService, logg))

			r.With(middleware.RequireCapability(func(c enums.Capabilities) bool { return c.CanRequestExport }, logg)).
				Post("/", controllers.RequestExport(exportService, logg))
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Use(middleware.RequireCapability(func(c enums.Capabilities) bool { return c.CanManageProfile }, logg))
			r.Get("/", controllers.ListProfiles(profileService, logg))
			r.Post("/", controllers.CreateProfile(profileService, logg))
			r.Patch("/{profileID}/role", controllers.UpdateProfileRole(profileService, logg))
			r.Patch("/{profileID}/active", controllers.SetProfileActive(profileService, logg))
		})
	})

	return r
}
