package petfinder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	TokenPath = "/oauth2/token"
	// tokenLeeway renews the token slightly before Petfinder expires it.
	tokenLeeway = time.Minute
)

type tokenResponse struct {
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	AccessToken string `json:"access_token"`
}

// accessToken returns a cached bearer token, requesting a new one when it is missing or stale.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", errors.New("petfinder credentials are not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+TokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.request(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get petfinder token: bad status: %s", resp.Status)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode petfinder token: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("petfinder returned an empty access token")
	}

	ttl := time.Duration(token.ExpiresIn) * time.Second
	if ttl > 2*tokenLeeway {
		ttl -= tokenLeeway
	}
	c.token = token.AccessToken
	c.tokenExpiry = c.now().Add(ttl)
	c.logger.Debug("petfinder token refreshed", zap.Duration("ttl", ttl))

	return c.token, nil
}

func (c *Client) resetToken() {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = ""
	c.tokenExpiry = time.Time{}
}
