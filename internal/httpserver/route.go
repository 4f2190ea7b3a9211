package httpserver

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

// Check is a readiness probe for one dependency.
type Check func(ctx context.Context) error

type Deps struct {
	Catalog  *CatalogHTTP
	Cart     *CartHTTP
	Checkout *CheckoutHTTP
	Orders   *OrderHTTP
	Wishlist *WishlistHTTP

	Auth *middleware.AutoRefreshMiddleware
	// CSRF guards cookie-authenticated mutations; nil disables it.
	CSRF echo.MiddlewareFunc
	// RefundLimit throttles the public refund endpoint; nil disables it.
	RefundLimit echo.MiddlewareFunc
	Metrics     http.Handler
	Ready       map[string]Check
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", readiness(d.Ready))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	v1 := e.Group("/api/v1")

	v1.GET("/items", d.Catalog.ListItems)
	v1.GET("/items/:slug", d.Catalog.GetItem)
	v1.GET("/categories", d.Catalog.ListCategories)
	v1.GET("/search", d.Catalog.Search)
	v1.POST("/refunds", d.Orders.RequestRefund, optional(d.RefundLimit)...)

	authed := v1.Group("", d.Auth.RequireAuth)
	authed.Use(optional(d.CSRF)...)

	authed.POST("/items/:slug/rating", d.Catalog.RateItem)

	cart := authed.Group("/cart")
	cart.GET("", d.Cart.GetCart)
	cart.GET("/count", d.Cart.Count)
	cart.POST("/items/:slug", d.Cart.AddItem)
	cart.DELETE("/items/:slug", d.Cart.RemoveItem)
	cart.POST("/items/:slug/decrement", d.Cart.DecrementItem)

	checkout := authed.Group("/checkout")
	checkout.POST("", d.Checkout.Start)
	checkout.POST("/address", d.Checkout.Address)
	checkout.POST("/coupon", d.Checkout.AttachCoupon)
	checkout.DELETE("/coupon", d.Checkout.DetachCoupon)
	checkout.GET("/payment", d.Checkout.PaymentSummary)
	checkout.POST("/payment", d.Checkout.Pay)

	authed.GET("/orders", d.Orders.ListOrders)

	wishlist := authed.Group("/wishlist")
	wishlist.GET("", d.Wishlist.List)
	wishlist.POST("/:slug", d.Wishlist.Add)
	wishlist.DELETE("/:slug", d.Wishlist.Remove)

	admin := v1.Group("/admin", d.Auth.RequireAdmin)
	admin.Use(optional(d.CSRF)...)

	admin.POST("/items", d.Catalog.CreateItem)
	admin.POST("/orders/:id/refund-granted", d.Orders.GrantRefund)
	admin.POST("/orders/:id/received", d.Orders.MarkReceived)
	admin.POST("/search/reindex", d.Catalog.Reindex)
}

func optional(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}

func readiness(checks map[string]Check) echo.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		l := logging.FromContext(ctx).With("handler", "health.ready")

		status := map[string]string{}
		ok := true
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				l.Warn("dependency_not_ready", "dependency", name, "error", err)
				status[name] = "unavailable"
				ok = false
				continue
			}
			status[name] = "ok"
		}
		if !ok {
			return c.JSON(http.StatusServiceUnavailable, status)
		}
		return c.JSON(http.StatusOK, status)
	}
}
