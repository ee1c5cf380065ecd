package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/rogerio-castellano/storefront/docs"
	"github.com/rogerio-castellano/storefront/internal/http/handlers"
	mw "github.com/rogerio-castellano/storefront/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Options struct {
	AllowedOrigins []string
	// RateLimit enables the per-client limiter on every route.
	RateLimit bool
	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that sets them.
	TrustProxy bool
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(mw.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", mw.ReturnToHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if opts.RateLimit {
		r.Use(mw.RateLimit)
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Post("/login", handlers.LoginHandler)
	r.Post("/logout", handlers.LogoutHandler)
	r.Get("/session", handlers.GetSessionHandler)
	r.Put("/session/redirect", handlers.SetRedirectHandler)
	r.Get("/notices", handlers.GetNoticesHandler)

	r.Get("/products", handlers.GetProductsHandler)
	r.Get("/products/facets", handlers.GetFacetsHandler)
	r.Get("/products/{id}/stock", handlers.GetProductStockHandler)
	r.Get("/checkout/shipping-tiers", handlers.GetShippingTiersHandler)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireSession)

		r.Get("/cart", handlers.GetCartHandler)
		r.Delete("/cart", handlers.ClearCartHandler)
		r.Post("/cart/items", handlers.AddCartItemHandler)
		r.Patch("/cart/items/{id}", handlers.UpdateCartItemHandler)
		r.Delete("/cart/items/{id}", handlers.RemoveCartItemHandler)
		r.Post("/cart/expiry-check", handlers.CheckCartExpiryHandler)

		r.Post("/checkout", handlers.BeginCheckoutHandler)
		r.Get("/checkout", handlers.GetCheckoutHandler)
		r.Delete("/checkout", handlers.AbandonCheckoutHandler)
		r.Put("/checkout/address", handlers.UpdateAddressHandler)
		r.Put("/checkout/shipping", handlers.SelectShippingHandler)
		r.Post("/checkout/payment", handlers.StartPaymentHandler)
		r.Post("/checkout/payment/{orderId}/capture", handlers.CapturePaymentHandler)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireStaff)

		r.Get("/products", handlers.AdminGetProductsHandler)
		r.Post("/products", handlers.CreateProductHandler)
		r.Post("/products/import", handlers.ImportProductsHandler)
		r.Get("/products/{id}", handlers.AdminGetProductByIDHandler)
		r.Put("/products/{id}", handlers.UpdateProductHandler)
		r.Delete("/products/{id}", handlers.DeleteProductHandler)
		r.Post("/products/{id}/adjust", handlers.AdjustStockHandler)

		r.Get("/orders", handlers.GetOrdersHandler)
		r.Get("/orders/export", handlers.ExportOrdersHandler)
		r.Patch("/orders/{id}", handlers.UpdateOrderStatusHandler)

		r.Get("/metrics/dashboard", handlers.GetDashboardMetricsHandler)
	})

	return r
}
