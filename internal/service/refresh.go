package service

import "context"

// TokenRefreshResult is the outcome of a refresh_token exchange.
type TokenRefreshResult struct {
	AccessToken string
	ExpiryDate  int64 // absolute ms epoch, now + expires_in
}

// OAuthClient performs the refresh_token grant against the identity provider.
// Failures surface as *RefreshError; the orchestrator always follows a
// successful refresh with a token cache write.
type OAuthClient interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenRefreshResult, error)
}
