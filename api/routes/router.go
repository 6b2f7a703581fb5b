package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avendanolabs/storefront-backend/api/controllers"
	"github.com/avendanolabs/storefront-backend/api/middleware"
	cartsvc "github.com/avendanolabs/storefront-backend/internal/cart"
	notificationsvc "github.com/avendanolabs/storefront-backend/internal/notifications"
	ordersvc "github.com/avendanolabs/storefront-backend/internal/orders"
	productsvc "github.com/avendanolabs/storefront-backend/internal/products"
	promosvc "github.com/avendanolabs/storefront-backend/internal/promotions"
	reviewsvc "github.com/avendanolabs/storefront-backend/internal/reviews"
	"github.com/avendanolabs/storefront-backend/pkg/auth/session"
	"github.com/avendanolabs/storefront-backend/pkg/config"
	"github.com/avendanolabs/storefront-backend/pkg/enums"
	"github.com/avendanolabs/storefront-backend/pkg/logger"
	"github.com/avendanolabs/storefront-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         *redis.Client
	Sessions      session.AccessSessionChecker
	Registry      *prometheus.Registry
	Products      productsvc.Service
	Cart          cartsvc.Service
	Orders        ordersvc.Service
	Promotions    promosvc.Service
	Reviews       reviewsvc.Service
	Notifications notificationsvc.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	// Catalog reads are public; everything else requires a session.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(d.Products, logg))
		r.Get("/{productId}", controllers.GetProduct(d.Products, logg))
		r.Get("/{productId}/reviews", controllers.ListProductReviews(d.Reviews, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, d.Redis, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(d.Cart, logg))
			r.Post("/items", controllers.AddCartItem(d.Cart, logg))
			r.Patch("/items/{productId}", controllers.UpdateCartItem(d.Cart, logg))
			r.Delete("/items/{productId}", controllers.RemoveCartItem(d.Cart, logg))
			r.Delete("/", controllers.ClearCart(d.Cart, logg))
			r.Post("/promotion", controllers.ApplyCartPromotion(d.Cart, logg))
			r.Delete("/promotion", controllers.RemoveCartPromotion(d.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(d.Orders, logg))
			r.Get("/", controllers.ListMyOrders(d.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(d.Orders, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", controllers.CreateReview(d.Reviews, logg))
			r.Patch("/{reviewId}", controllers.UpdateReview(d.Reviews, logg))
			r.Delete("/{reviewId}", controllers.DeleteReview(d.Reviews, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, d.Redis, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(d.Products, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(d.Products, logg))
			r.Delete("/{productId}", controllers.DeleteProduct(d.Products, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListAllOrders(d.Orders, logg))
			r.Post("/{orderId}/pay", controllers.MarkOrderPaid(d.Orders, logg))
			r.Post("/{orderId}/deliver", controllers.MarkOrderDelivered(d.Orders, logg))
			r.Delete("/{orderId}", controllers.DeleteOrder(d.Orders, logg))
		})

		r.Route("/promotions", func(r chi.Router) {
			r.Get("/", controllers.ListPromotions(d.Promotions, logg))
			r.Post("/", controllers.CreatePromotion(d.Promotions, logg))
			r.Get("/{promotionId}", controllers.GetPromotion(d.Promotions, logg))
			r.Patch("/{promotionId}", controllers.UpdatePromotion(d.Promotions, logg))
			r.Delete("/{promotionId}", controllers.DeletePromotion(d.Promotions, logg))
		})
	})

	return r
}
