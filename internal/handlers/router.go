package handlers

import (
	"net/http"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/metrics"
	"github.com/Lixing-Zhang/storefront/internal/middleware"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Dependencies are the services the API is built on
type Dependencies struct {
	Registry       *session.Registry
	Store          *service.StoreService
	Catalog        *service.CatalogService
	Orders         *service.OrderService
	Coupons        couponCatalog
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP API
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	healthHandler := NewHealthHandler(log)
	storeHandler := NewStoreHandler(deps.Catalog, log)
	cartHandler := NewCartHandler(deps.Store, log)
	orderHandler := NewOrderHandler(deps.Orders, log)
	couponHandler := NewCouponHandler(deps.Coupons, log)
	sessionHandler := NewSessionHandler(deps.Registry, deps.Store, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "api_key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.ServeHTTP)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(deps.Registry))

		r.Get("/store/items", storeHandler.ListItems)
		r.Get("/store/items/{itemId}", storeHandler.GetItem)
		r.Get("/store/categories", storeHandler.Categories)
		r.Get("/store/status", storeHandler.Status)

		r.Get("/cart", cartHandler.GetCart)
		r.Delete("/cart", cartHandler.ClearCart)
		r.Post("/cart/items", cartHandler.AddItem)
		r.Patch("/cart/items/{itemId}", cartHandler.UpdateItem)
		r.Put("/cart/discount", cartHandler.ApplyDiscount)
		r.Delete("/cart/discount", cartHandler.ClearDiscount)
		r.Put("/cart/order-type", cartHandler.SetOrderType)

		r.Post("/checkout", cartHandler.RequestCheckout)
		r.Delete("/checkout", cartHandler.CancelCheckout)
		r.Post("/checkout/confirm", cartHandler.ConfirmCheckout)

		r.Post("/orders", orderHandler.CreateOrder)
		r.Get("/orders/{orderId}", orderHandler.GetOrder)

		r.Get("/coupon/stats", couponHandler.GetStats)
		r.Get("/coupon/{couponCode}", couponHandler.ResolveCoupon)

		r.Get("/nav", sessionHandler.Nav)
		r.Post("/logout", sessionHandler.Logout)
	})

	return r
}
