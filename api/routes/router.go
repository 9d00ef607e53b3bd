package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maplecart/storefront-backend/api/controllers"
	"github.com/maplecart/storefront-backend/api/middleware"
	"github.com/maplecart/storefront-backend/internal/admins"
	"github.com/maplecart/storefront-backend/internal/analytics"
	"github.com/maplecart/storefront-backend/internal/cart"
	"github.com/maplecart/storefront-backend/internal/emails"
	"github.com/maplecart/storefront-backend/internal/flashsales"
	"github.com/maplecart/storefront-backend/internal/images"
	"github.com/maplecart/storefront-backend/internal/orders"
	"github.com/maplecart/storefront-backend/internal/products"
	"github.com/maplecart/storefront-backend/internal/qrcodes"
	"github.com/maplecart/storefront-backend/internal/seo"
	"github.com/maplecart/storefront-backend/internal/settings"
	"github.com/maplecart/storefront-backend/internal/shipping"
	"github.com/maplecart/storefront-backend/pkg/config"
	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/metrics"
	pkgredis "github.com/maplecart/storefront-backend/pkg/redis"
)

// Store is the redis surface the HTTP layer needs.
type Store interface {
	pkgredis.IdempotencyStore
	middleware.WindowLimiter
	controllers.Pinger
}

// Services groups the domain services mounted on the router.
type Services struct {
	Products   products.Service
	FlashSales flashsales.Service
	Settings   settings.Service
	Shipping   shipping.Service
	Orders     orders.Service
	Carts      cart.Service
	Emails     emails.Service
	QRCodes    qrcodes.Service
	Images     images.Service
	SEO        seo.Service
	Analytics  analytics.Service
	Admins     admins.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	store Store,
	svc Services,
	httpMetrics *metrics.HTTPMetrics,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	publicPolicy := middleware.NewRateLimitPolicy("public", cfg.RateLimit.PublicWindow, cfg.RateLimit.PublicLimit)
	publicLimit := middleware.RateLimit(publicPolicy, store, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.ReadinessCheck{Name: "postgres", Pinger: dbP},
			controllers.ReadinessCheck{Name: "redis", Pinger: store},
		))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.With(publicLimit).Get("/qr/{code}", controllers.ScanQRCode(svc.QRCodes, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(publicLimit)
		r.Get("/products", controllers.StorefrontProducts(svc.Products, logg))
		r.Get("/products/{slug}", controllers.StorefrontProduct(svc.Products, logg))
		r.Post("/shipping/quote", controllers.ShippingQuote(svc.Shipping, logg))
		r.Put("/carts/{session_id}", controllers.UpsertCart(svc.Carts, logg))
		r.Post("/carts/{session_id}/complete", controllers.CompleteCart(svc.Carts, logg))
		r.Post("/seo/events", controllers.RecordPageView(svc.SEO, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		var roles middleware.RoleChecker
		if svc.Admins != nil {
			roles = svc.Admins
		}
		r.Use(middleware.Auth(cfg.JWT, roles, logg))
		r.Use(middleware.RequireRole(logg, enums.AdminRoleAdmin, enums.AdminRoleOwner))
		r.Use(middleware.Idempotency(store, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminListProducts(svc.Products, logg))
			r.Post("/", controllers.AdminCreateProduct(svc.Products, logg))
			r.Patch("/{id}", controllers.AdminUpdateProduct(svc.Products, logg))
			r.Delete("/{id}", controllers.AdminDeleteProduct(svc.Products, logg))
			r.Post("/{id}/restore", controllers.AdminRestoreProduct(svc.Products, logg))
		})

		r.Route("/flash-sales", func(r chi.Router) {
			r.Get("/", controllers.ListFlashSales(svc.FlashSales, logg))
			r.Post("/", controllers.CreateFlashSale(svc.FlashSales, logg))
			r.Get("/{id}", controllers.GetFlashSale(svc.FlashSales, logg))
			r.Patch("/{id}", controllers.UpdateFlashSale(svc.FlashSales, logg))
			r.Delete("/{id}", controllers.DeleteFlashSale(svc.FlashSales, logg))
		})
		r.Get("/promotions/conflicts", controllers.PromotionConflicts(svc.FlashSales, logg))

		r.Route("/settings", func(r chi.Router) {
			r.Get("/store-discount", controllers.GetStoreDiscount(svc.Settings, logg))
			r.Put("/store-discount", controllers.UpdateStoreDiscount(svc.Settings, logg))
			r.Get("/fallback-shipping", controllers.GetFallbackShipping(svc.Settings, logg))
			r.Put("/fallback-shipping", controllers.UpdateFallbackShipping(svc.Settings, logg))
		})

		r.Route("/shipping/zones", func(r chi.Router) {
			r.Get("/", controllers.ListShippingZones(svc.Shipping, logg))
			r.Post("/", controllers.CreateShippingZone(svc.Shipping, logg))
			r.Get("/{id}", controllers.GetShippingZone(svc.Shipping, logg))
			r.Patch("/{id}", controllers.UpdateShippingZone(svc.Shipping, logg))
			r.Delete("/{id}", controllers.DeleteShippingZone(svc.Shipping, logg))
			r.Put("/{id}/rules", controllers.ReplaceZoneRules(svc.Shipping, logg))
			r.Put("/{id}/rates", controllers.ReplaceZoneRates(svc.Shipping, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(svc.Orders, logg))
			r.Route("/{source}/{id}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(svc.Orders, logg))
				r.Post("/rates", controllers.OrderCarrierRates(svc.Orders, logg))
				r.Post("/ship", controllers.ShipOrder(svc.Orders, logg))
				r.Post("/shipping-notification", controllers.SendShippingNotification(svc.Orders, logg))
				r.Post("/confirmation", controllers.ResendOrderConfirmation(svc.Orders, logg))
			})
		})

		r.Route("/carts", func(r chi.Router) {
			r.Get("/abandoned", controllers.ListAbandonedCarts(svc.Carts, logg))
			r.Get("/active", controllers.ListActiveCarts(svc.Carts, logg))
			r.Post("/{id}/recovery-email", controllers.SendCartRecoveryEmail(svc.Carts, logg))
		})

		r.Route("/emails", func(r chi.Router) {
			r.Post("/", controllers.SendEmail(svc.Emails, svc.Orders, logg))
			r.Get("/logs", controllers.ListEmailLogs(svc.Emails, logg))
		})

		r.Route("/qr-codes", func(r chi.Router) {
			r.Get("/", controllers.ListQRCodes(svc.QRCodes, logg))
			r.Post("/", controllers.CreateQRCode(svc.QRCodes, logg))
			r.Get("/{id}", controllers.GetQRCode(svc.QRCodes, logg))
			r.Patch("/{id}", controllers.UpdateQRCode(svc.QRCodes, logg))
			r.Delete("/{id}", controllers.DeleteQRCode(svc.QRCodes, logg))
			r.Post("/{id}/restore", controllers.RestoreQRCode(svc.QRCodes, logg))
		})

		r.Route("/images", func(r chi.Router) {
			r.Get("/", controllers.ListImages(svc.Images, logg))
			r.Post("/", controllers.UploadImage(svc.Images, cfg.Storage.MaxUploadBytes(), logg))
			r.Delete("/{id}", controllers.DeleteImage(svc.Images, logg))
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/summary", controllers.AnalyticsSummary(svc.Analytics, logg))
			r.Get("/seo", controllers.AnalyticsSEO(svc.Analytics, logg))
			r.Get("/orders.csv", controllers.ExportOrdersCSV(svc.Analytics, logg))
		})

		r.Route("/admins", func(r chi.Router) {
			r.Get("/", controllers.ListAdmins(svc.Admins, logg))
			r.Post("/", controllers.CreateAdmin(svc.Admins, logg))
			r.Delete("/{user_id}/roles/{role}", controllers.RemoveAdminRole(svc.Admins, logg))
		})

		r.Post("/seo/ping", controllers.PingSearchEngines(svc.SEO, logg))
	})

	return r
}
