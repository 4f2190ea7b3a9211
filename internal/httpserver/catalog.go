package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) ListItems(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_items")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListItems(ctx, c.QueryParam("category"), offset, limit)
	if err != nil {
		return writeError(c, l, "list_items_error", err)
	}

	return c.JSON(http.StatusOK, transport.Page[transport.ItemResponse]{
		Data: transport.NewItems(items),
		Meta: util.NewMeta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) GetItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_item")

	detail, err := h.Svc.GetItem(ctx, c.Param("slug"))
	if err != nil {
		return writeError(c, l, "get_item_error", err)
	}
	return c.JSON(http.StatusOK, itemWithRating(detail))
}

func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_categories")

	cats, err := h.Svc.ListCategories(ctx)
	if err != nil {
		return writeError(c, l, "list_categories_error", err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *CatalogHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, docs, err := h.Svc.Search(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return writeError(c, l, "search_error", err)
	}
	l.Info("search_success", "total", total)
	return c.JSON(http.StatusOK, transport.Page[search.Document]{
		Data: docs,
		Meta: util.NewMeta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) RateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.rate_item")

	userID, err := GetID(c)
	if err != nil {
		return unauthorized(c, l, "rate_item_error", err)
	}
	var req service.RatingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "rate_item_error", "invalid body", err)
	}

	detail, err := h.Svc.RateItem(ctx, userID, c.Param("slug"), req)
	if err != nil {
		return writeError(c, l, "rate_item_error", err)
	}
	return c.JSON(http.StatusOK, itemWithRating(detail))
}

func (h *CatalogHTTP) CreateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_item")

	var req service.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, l, "create_item_error", "invalid body", err)
	}
	item, err := h.Svc.CreateItem(ctx, req)
	if err != nil {
		return writeError(c, l, "create_item_error", err)
	}
	l.Info("create_item_success", "slug", item.Slug)
	return c.JSON(http.StatusCreated, transport.NewItem(item))
}

func (h *CatalogHTTP) Reindex(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.reindex")

	res, err := h.Svc.Reindex(ctx)
	if err != nil {
		return writeError(c, l, "reindex_error", err)
	}
	return c.JSON(http.StatusOK, res)
}

func itemWithRating(d *service.ItemDetail) transport.ItemResponse {
	resp := transport.NewItem(d.Item)
	resp.Rating = &transport.RatingSummary{Average: d.RatingAvg, Count: d.RatingCount}
	return resp
}
