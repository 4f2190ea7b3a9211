package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type CheckoutHTTP struct {
	Svc  *service.CheckoutService
	Cart *service.CartService
}

func (h *CheckoutHTTP) Start(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.start")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "checkout_start_error", err)
	}
	order, err := h.Svc.StartCheckout(ctx, userID)
	if err != nil {
		return writeError(c, l, "checkout_start_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewCart(order))
}

// Address attaches the shipping address and moves straight on to the payment
// step when it succeeds.
func (h *CheckoutHTTP) Address(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.address")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "checkout_address_error", err)
	}
	var req service.AddressRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "checkout_address_error", "invalid body", err)
	}

	if _, err := h.Svc.AttachAddress(ctx, userID, req); err != nil {
		return writeError(c, l, "checkout_address_error", err)
	}
	order, err := h.Svc.BeginPayment(ctx, userID)
	if err != nil {
		return writeError(c, l, "checkout_address_error", err)
	}

	l.Info("checkout_address_success", "payment_option", order.Address.PaymentOption)
	return c.JSON(http.StatusOK, transport.NewCart(order))
}

func (h *CheckoutHTTP) AttachCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.attach_coupon")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "attach_coupon_error", err)
	}
	var req service.CouponRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "attach_coupon_error", "invalid body", err)
	}
	order, err := h.Cart.AttachCoupon(ctx, userID, req)
	if err != nil {
		return writeError(c, l, "attach_coupon_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewCart(order))
}

func (h *CheckoutHTTP) DetachCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.detach_coupon")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "detach_coupon_error", err)
	}
	order, err := h.Cart.DetachCoupon(ctx, userID)
	if err != nil {
		return writeError(c, l, "detach_coupon_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewCart(order))
}

func (h *CheckoutHTTP) PaymentSummary(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.payment_summary")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "payment_summary_error", err)
	}
	order, err := h.Svc.PaymentSummary(ctx, userID)
	if err != nil {
		return writeError(c, l, "payment_summary_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewCart(order))
}

func (h *CheckoutHTTP) Pay(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.pay")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "pay_error", err)
	}
	var req service.PaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "pay_error", "invalid body", err)
	}

	order, err := h.Svc.Pay(ctx, userID, req)
	if err != nil {
		return writeError(c, l, "pay_error", err)
	}

	l.Info("pay_success", "order_id", order.ID.String())
	return c.JSON(http.StatusOK, transport.NewOrder(order))
}
