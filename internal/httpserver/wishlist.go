package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type WishlistHTTP struct {
	Svc *service.WishlistService
}

func (h *WishlistHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.list")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "wishlist_list_error", err)
	}
	entries, err := h.Svc.List(ctx, userID)
	if err != nil {
		return writeError(c, l, "wishlist_list_error", err)
	}
	items := make([]transport.ItemResponse, 0, len(entries))
	for _, e := range entries {
		if e.Item != nil {
			items = append(items, transport.NewItem(e.Item))
		}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *WishlistHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.add")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "wishlist_add_error", err)
	}
	added, err := h.Svc.Add(ctx, userID, c.Param("slug"))
	if err != nil {
		return writeError(c, l, "wishlist_add_error", err)
	}
	if !added {
		return c.JSON(http.StatusOK, map[string]string{"message": "this item is already in your wishlist"})
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": "this item was added to your wishlist"})
}

func (h *WishlistHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.remove")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "wishlist_remove_error", err)
	}
	removed, err := h.Svc.Remove(ctx, userID, c.Param("slug"))
	if err != nil {
		return writeError(c, l, "wishlist_remove_error", err)
	}
	if !removed {
		return c.JSON(http.StatusOK, map[string]string{"message": "this item was not in your wishlist"})
	}
	return c.NoContent(http.StatusNoContent)
}
