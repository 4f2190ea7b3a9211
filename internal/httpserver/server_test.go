package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/lock"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/db"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var secret = []byte("handler-secret")

type stubGateway struct {
	err error
}

func (g *stubGateway) Provider() models.PaymentOption { return models.PaymentStripe }

func (g *stubGateway) Charge(context.Context, payment.ChargeRequest) (payment.ChargeResult, error) {
	if g.err != nil {
		return payment.ChargeResult{}, g.err
	}
	return payment.ChargeResult{ChargeID: "ch_http", Status: "succeeded"}, nil
}

type server struct {
	e       *echo.Echo
	repo    *repo.GormRepo
	gateway *stubGateway
	ready   error
}

func newServer(t *testing.T) *server {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), db.Config())
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	r := &repo.GormRepo{DB: gdb}
	require.NoError(t, r.AutoMigrate(context.Background()))

	gw := &stubGateway{}
	locks := lock.NewLocal()
	cartSvc := &service.CartService{Repo: r, Locks: locks}
	s := &server{e: echo.New(), repo: r, gateway: gw}

	Register(s.e, &Deps{
		Catalog:  &CatalogHTTP{Svc: &service.CatalogService{Repo: r}},
		Cart:     &CartHTTP{Svc: cartSvc},
		Checkout: &CheckoutHTTP{Svc: &service.CheckoutService{Repo: r, Locks: locks, Gateways: payment.NewRegistry(gw)}, Cart: cartSvc},
		Orders:   &OrderHTTP{Svc: &service.OrderService{Repo: r}, Refunds: &service.RefundService{Repo: r}},
		Wishlist: &WishlistHTTP{Svc: &service.WishlistService{Repo: r}},
		Auth:     middleware.NewAutoRefreshMiddleware(secret, nil),
		Metrics:  promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
		Ready: map[string]Check{
			"database": r.Ping,
			"flaky":    func(context.Context) error { return s.ready },
		},
	})
	return s
}

func (s *server) seedItem(t *testing.T, slug, price string) {
	t.Helper()
	require.NoError(t, s.repo.CreateItem(context.Background(), &models.Item{Title: slug, Slug: slug, Price: decimal.RequireFromString(price)}))
}

func bearer(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	tok, err := tokens.SignAccess(secret, userID.String(), role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (s *server) do(t *testing.T, method, path, auth string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["database"])

	s.ready = errors.New("down")
	rec, body = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", body["flaky"])

	rec, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCartRequiresAuth(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutFlow(t *testing.T) {
	s := newServer(t)
	s.seedItem(t, "tee", "20")
	user := uuid.New()
	auth := bearer(t, user, "user")

	rec, body := s.do(t, http.MethodGet, "/api/v1/cart", auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", body["total"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/cart/items/tee", auth, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "added", body["outcome"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/cart/items/tee", auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "40", body["cart"].(map[string]any)["total"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/cart/count", auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])

	rec, _ = s.do(t, http.MethodPost, "/api/v1/cart/items/ghost", auth, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/checkout", auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/v1/checkout/payment", auth, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "a shipping address is required", body["error"])

	rec, body = s.do(t, http.MethodPost, "/api/v1/checkout/address", auth, map[string]any{"country": "XX"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "street_address")
	assert.Contains(t, fields, "country")

	rec, body = s.do(t, http.MethodPost, "/api/v1/checkout/address", auth, map[string]any{
		"street_address": "1 Main St", "country": "US", "payment_option": "stripe",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "awaiting_payment", body["status"])

	s.gateway.err = &payment.GatewayError{Provider: models.PaymentStripe, Category: payment.CardDeclined}
	rec, body = s.do(t, http.MethodPost, "/api/v1/checkout/payment", auth, map[string]any{"token": "tok"})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "card_declined", body["category"])

	s.gateway.err = nil
	rec, body = s.do(t, http.MethodPost, "/api/v1/checkout/payment", auth, map[string]any{"token": "tok"})
	require.Equal(t, http.StatusOK, rec.Code)
	refCode := body["ref_code"].(string)
	assert.Len(t, refCode, 20)
	assert.Equal(t, "finalized", body["status"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/orders", auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/refunds", "", map[string]any{"ref_code": refCode, "email": "a@b.co", "reason": "too small"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec, body = s.do(t, http.MethodPost, "/api/v1/refunds", "", map[string]any{"ref_code": "aaaaaaaaaaaaaaaaaaaa", "email": "a@b.co", "reason": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order does not exist", body["error"])
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	user := bearer(t, uuid.New(), "user")
	admin := bearer(t, uuid.New(), tokens.RoleAdmin)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/admin/items", user, map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/api/v1/admin/items", admin, map[string]any{
		"title": "Mug", "slug": "mug", "price": "9.50", "description": "enamel",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "mug", body["slug"])

	rec, _ = s.do(t, http.MethodPost, "/api/v1/admin/orders/not-a-uuid/received", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/admin/orders/"+uuid.NewString()+"/refund-granted", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/admin/search/reindex", admin, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/v1/items/mug", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "9.5", body["price"])

	rec, body = s.do(t, http.MethodGet, "/api/v1/search?q=mug", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["meta"].(map[string]any)["total"])
}

func TestWishlistRoutes(t *testing.T) {
	s := newServer(t)
	s.seedItem(t, "mug", "5")
	auth := bearer(t, uuid.New(), "user")

	rec, _ := s.do(t, http.MethodPost, "/api/v1/wishlist/mug", auth, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/v1/wishlist/mug", auth, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, "/api/v1/wishlist/mug", auth, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGatewayResponses(t *testing.T) {
	cases := map[payment.Category]int{
		payment.CardDeclined:      http.StatusPaymentRequired,
		payment.RateLimited:       http.StatusTooManyRequests,
		payment.InvalidRequest:    http.StatusBadGateway,
		payment.AuthFailure:       http.StatusBadGateway,
		payment.ConnectionFailure: http.StatusServiceUnavailable,
		payment.Unknown:           http.StatusBadGateway,
	}
	seen := map[string]bool{}
	for cat, want := range cases {
		status, msg := gatewayResponse(cat)
		assert.Equal(t, want, status, cat)
		assert.False(t, seen[msg], "message for %s is not distinct", cat)
		seen[msg] = true
	}

	status, body := errorResponse(&service.Error{Kind: service.ErrUnhandled, Msg: "something went wrong, you were not charged"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "something went wrong, you were not charged", body.Error)

	status, body = errorResponse(errors.New("db exploded"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body.Error)
}
