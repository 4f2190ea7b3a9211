package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type OrderHTTP struct {
	Svc     *service.OrderService
	Refunds *service.RefundService
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "list_orders_error", err)
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.ListOrders(ctx, userID, offset, limit)
	if err != nil {
		return writeError(c, l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, transport.Page[transport.OrderResponse]{
		Data: transport.NewOrders(orders),
		Meta: util.NewMeta(page, offset, limit, total),
	})
}

// RequestRefund is reachable without a session; the ref code is the only key.
func (h *OrderHTTP) RequestRefund(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.request_refund")

	var req service.RefundRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "request_refund_error", "invalid body", err)
	}
	if _, err := h.Refunds.RequestRefund(ctx, req); err != nil {
		return writeError(c, l, "request_refund_error", err)
	}

	l.Info("request_refund_success")
	return c.JSON(http.StatusAccepted, transport.RefundResponse{
		Message: "your refund request has been received and is being processed",
	})
}

func (h *OrderHTTP) GrantRefund(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.grant_refund")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, l, "grant_refund_error", "invalid order id", err)
	}
	order, err := h.Svc.GrantRefund(ctx, id)
	if err != nil {
		return writeError(c, l, "grant_refund_error", err)
	}
	l.Info("grant_refund_success", "order_id", id.String())
	return c.JSON(http.StatusOK, transport.NewOrder(order))
}

func (h *OrderHTTP) MarkReceived(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.mark_received")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, l, "mark_received_error", "invalid order id", err)
	}
	order, err := h.Svc.MarkReceived(ctx, id)
	if err != nil {
		return writeError(c, l, "mark_received_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewOrder(order))
}
