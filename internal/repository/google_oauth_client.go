package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/nordhen/credgate/internal/config"
	"github.com/nordhen/credgate/internal/pkg/codeassist"
	"github.com/nordhen/credgate/internal/service"
)

type googleOAuthClient struct {
	client       *req.Client
	tokenURL     string
	clientID     string
	clientSecret string
}

// NewGoogleOAuthClient performs refresh_token grants against the Google
// OAuth token endpoint.
func NewGoogleOAuthClient(cfg *config.Config) service.OAuthClient {
	client := req.C().
		SetTimeout(30 * time.Second)
	if proxyURL := strings.TrimSpace(cfg.OAuth.ProxyURL); proxyURL != "" {
		client.SetProxyURL(proxyURL)
	}

	tokenURL := cfg.OAuth.TokenURL
	if tokenURL == "" {
		tokenURL = codeassist.TokenURL
	}

	return &googleOAuthClient{
		client:       client,
		tokenURL:     tokenURL,
		clientID:     cfg.OAuth.ClientID,
		clientSecret: cfg.OAuth.ClientSecret,
	}
}

type tokenEndpointResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (c *googleOAuthClient) RefreshAccessToken(ctx context.Context, refreshToken string) (*service.TokenRefreshResult, error) {
	var tokenResp tokenEndpointResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
			"refresh_token": refreshToken,
			"grant_type":    "refresh_token",
		}).
		SetSuccessResult(&tokenResp).
		Post(c.tokenURL)
	if err != nil {
		return nil, fmt.Errorf("token refresh request: %w", err)
	}

	if !resp.IsSuccessState() {
		return nil, &service.RefreshError{StatusCode: resp.StatusCode, Body: resp.String()}
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token refresh response missing access_token")
	}

	return &service.TokenRefreshResult{
		AccessToken: tokenResp.AccessToken,
		ExpiryDate:  time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second).UnixMilli(),
	}, nil
}
