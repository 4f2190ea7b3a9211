package httpserver

import (
	"context"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "get_cart_error", err)
	}
	order, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		return writeError(c, l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewCart(order))
}

func (h *CartHTTP) Count(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.count")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "cart_count_error", err)
	}
	n, err := h.Svc.ItemCount(ctx, userID)
	if err != nil {
		return writeError(c, l, "cart_count_error", err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": n})
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	return h.mutate(c, "cart.add_item", h.Svc.AddItem)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	return h.mutate(c, "cart.remove_item", h.Svc.RemoveItem)
}

func (h *CartHTTP) DecrementItem(c echo.Context) error {
	return h.mutate(c, "cart.decrement_item", h.Svc.DecrementItem)
}

func (h *CartHTTP) mutate(c echo.Context, name string, op func(context.Context, uuid.UUID, string) (service.CartResult, error)) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", name)

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "cart_mutation_error", err)
	}
	res, err := op(ctx, userID, c.Param("slug"))
	if err != nil {
		return writeError(c, l, "cart_mutation_error", err)
	}

	l.Info("cart_mutation_success", "outcome", res.Outcome)
	status := http.StatusOK
	if res.Outcome == models.OutcomeAdded {
		status = http.StatusCreated
	}
	return c.JSON(status, transport.NewCartMutation(res.Outcome, res.Order))
}
