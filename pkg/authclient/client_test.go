package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/refresh", r.URL.Path)
		ck, err := r.Cookie("refreshToken")
		require.NoError(t, err)
		switch ck.Value {
		case "good":
			_ = json.NewEncoder(w).Encode(RefreshResponse{AccessToken: "a2", RefreshToken: "r2", AccessExp: 10, RefreshExp: 20})
		case "empty":
			_ = json.NewEncoder(w).Encode(RefreshResponse{})
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	var buf bytes.Buffer
	ctx := logging.IntoContext(context.Background(), logging.NewWithWriter(&buf, "info"))
	c := NewClient(srv.URL+"/", 0)

	resp, err := c.RefreshTokens(ctx, "good", "a1")
	require.NoError(t, err)
	assert.Equal(t, "a2", resp.AccessToken)
	assert.EqualValues(t, 20, resp.RefreshExp)

	_, err = c.RefreshTokens(ctx, "bad", "a1")
	assert.ErrorIs(t, err, ErrRejected)

	_, err = c.RefreshTokens(ctx, "broken", "a1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
	assert.Contains(t, buf.String(), "auth_refresh_failed")

	_, err = c.RefreshTokens(ctx, "empty", "a1")
	assert.Error(t, err)
}

func TestRefreshTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, 50*time.Millisecond)
	_, err := c.RefreshTokens(context.Background(), "good", "a1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}
