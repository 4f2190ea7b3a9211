package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho() *echo.Echo {
	e := echo.New()
	g := e.Group("", Middleware(Config{}))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	g.GET("/cart", ok)
	g.POST("/cart", ok)
	return e
}

func TestGetIssuesToken(t *testing.T) {
	e := newEcho()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, token, cookies[0].Value)
}

func TestPostChecks(t *testing.T) {
	e := newEcho()
	post := func(mutate func(r *http.Request)) int {
		req := httptest.NewRequest(http.MethodPost, "http://shop.test/cart", nil)
		req.Host = "shop.test"
		mutate(req)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, post(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
		r.Header.Set("X-CSRF-Token", "abc")
	}), "missing origin")

	assert.Equal(t, http.StatusForbidden, post(func(r *http.Request) {
		r.Header.Set("Origin", "http://shop.test")
		r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
		r.Header.Set("X-CSRF-Token", "xyz")
	}), "token mismatch")

	assert.Equal(t, http.StatusOK, post(func(r *http.Request) {
		r.Header.Set("Origin", "http://shop.test")
		r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
		r.Header.Set("X-CSRF-Token", "abc")
	}))

	assert.Equal(t, http.StatusOK, post(func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer token")
	}), "bearer requests skip the check")
}

func TestSameOriginByConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want int
	}{
		{"zero config enforces", Config{}, http.StatusForbidden},
		{"default config enforces", DefaultConfig(), http.StatusForbidden},
		{"opt out", Config{SkipSameOrigin: true}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.POST("/cart", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, Middleware(tc.cfg))

			req := httptest.NewRequest(http.MethodPost, "http://shop.test/cart", nil)
			req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
			req.Header.Set("X-CSRF-Token", "abc")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCrossOriginRejected(t *testing.T) {
	e := newEcho()
	req := httptest.NewRequest(http.MethodPost, "http://shop.test/cart", nil)
	req.Header.Set("Origin", "http://evil.test")
	req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "abc"})
	req.Header.Set("X-CSRF-Token", "abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
