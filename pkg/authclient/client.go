package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

const defaultTimeout = 5 * time.Second

// ErrRejected means the auth service refused the refresh token. Anything
// else returned by RefreshTokens is a transport or protocol failure.
var ErrRejected = errors.New("auth service rejected refresh")

// Client calls the external auth service that owns users and refresh tokens.
type Client struct {
	refreshURL string
	httpClient *http.Client
}

// NewClient builds a client for baseURL. A non-positive timeout uses 5s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		refreshURL: strings.TrimRight(baseURL, "/") + "/auth/refresh",
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccessExp    int64  `json:"access_exp"`
	RefreshExp   int64  `json:"refresh_exp"`
}

// RefreshTokens exchanges the cookie pair for a new one.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken, accessToken string) (*RefreshResponse, error) {
	l := logging.FromContext(ctx).With("component", "authclient")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refreshToken})
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: accessToken})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		l.Error("auth_refresh_unreachable", "error", err)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		l.Info("auth_refresh_rejected", "status", resp.StatusCode)
		return nil, ErrRejected
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		l.Error("auth_refresh_failed", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("refresh failed with status: %d", resp.StatusCode)
	}

	var result RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		l.Error("auth_refresh_decode_failed", "error", err)
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		l.Error("auth_refresh_failed", "reason", "empty token in response")
		return nil, errors.New("refresh response missing tokens")
	}
	return &result, nil
}
