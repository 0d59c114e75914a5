// Package api implements the request/response collaborators of the
// stream: credential exchange and filter-rule provisioning.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AuthClient trades an application key/secret for a bearer token.
type AuthClient struct {
	httpClient *http.Client
	tokenURL   string
	key        string
	secret     string
}

// NewAuthClient creates an auth client. One exchange, no retry; a
// failure here is fatal to the whole process.
func NewAuthClient(tokenURL, key, secret string) *AuthClient {
	return &AuthClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokenURL:   tokenURL,
		key:        key,
		secret:     secret,
	}
}

// Token performs the credential exchange and returns the bearer token.
func (c *AuthClient) Token(ctx context.Context) (string, error) {
	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, body)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("token exchange: http %d: %s", resp.StatusCode, string(data))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	return parsed.AccessToken, nil
}
