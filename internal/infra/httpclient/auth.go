package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sitescan/sitescan/internal/config"
	"go.uber.org/zap"
)

// AuthClient talks to the external auth provider.
type AuthClient struct {
	http     *http.Client
	url      string
	redirect string
	log      *zap.Logger
}

func NewAuthClient(cfg *config.Config, log *zap.Logger) *AuthClient {
	return &AuthClient{
		http:     &http.Client{Timeout: 10 * time.Second},
		url:      cfg.Auth.LogoutURL,
		redirect: cfg.Auth.LogoutRedirect,
		log:      log,
	}
}

type LogoutResponse struct {
	Redirect string `json:"redirect"`
}

// Logout ends the session identified by token. Without a configured provider
// endpoint the session simply ends client side.
func (c *AuthClient) Logout(ctx context.Context, token string) (*LogoutResponse, error) {
	resp := &LogoutResponse{Redirect: c.redirect}
	if c.url == "" {
		return resp, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build logout request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("logout: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	// an already expired session is as good as logged out
	if res.StatusCode >= 300 && res.StatusCode != http.StatusUnauthorized {
		return nil, fmt.Errorf("logout: unexpected status %d", res.StatusCode)
	}
	c.log.Debug("session ended at auth provider", zap.Int("status", res.StatusCode))
	return resp, nil
}
