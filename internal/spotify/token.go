package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultAuthURL  = "https://accounts.spotify.com/authorize"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
)

var (
	// ErrMissingCredentials is returned when the client id or secret is not configured.
	ErrMissingCredentials = errors.New("spotify: missing client credentials")
	// ErrTokenExchange matches every TokenExchangeError.
	ErrTokenExchange = errors.New("spotify: token exchange failed")
)

// Token is the token endpoint response. RefreshToken is empty when the provider did not
// issue a new one.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenExchangeError reports a non-2xx answer from the token endpoint.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %d %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrTokenExchange) match.
func (e *TokenExchangeError) Is(target error) bool {
	return target == ErrTokenExchange
}

// TokenClient performs the authorization_code and refresh_token grants.
type TokenClient struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// TokenOption configures the TokenClient during construction.
type TokenOption func(*TokenClient)

// WithEndpoint overrides the authorize and token URLs.
func WithEndpoint(authURL, tokenURL string) TokenOption {
	return func(c *TokenClient) {
		c.config.Endpoint.AuthURL = authURL
		c.config.Endpoint.TokenURL = tokenURL
	}
}

// WithTokenHTTPClient sets the HTTP client used for token requests.
func WithTokenHTTPClient(client *http.Client) TokenOption {
	return func(c *TokenClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewTokenClient builds a TokenClient. Client credentials are sent as a Basic auth header.
func NewTokenClient(clientID, clientSecret, redirectURI string, scopes []string, opts ...TokenOption) (*TokenClient, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" {
		return nil, ErrMissingCredentials
	}

	c := &TokenClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   defaultAuthURL,
				TokenURL:  defaultTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// AuthURL returns the provider consent URL for the given state nonce.
func (c *TokenClient) AuthURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// RedirectURI returns the configured callback URL.
func (c *TokenClient) RedirectURI() string {
	return c.config.RedirectURL
}

// Scopes returns the requested scopes.
func (c *TokenClient) Scopes() []string {
	return append([]string(nil), c.config.Scopes...)
}

// Exchange trades an authorization code for tokens.
func (c *TokenClient) Exchange(ctx context.Context, code string) (Token, error) {
	tok, err := c.config.Exchange(c.withClient(ctx), code)
	if err != nil {
		return Token{}, translateTokenError(err)
	}
	return tokenFromOAuth2(tok), nil
}

// Refresh mints a new access token from a refresh token.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	src := c.config.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Token{}, translateTokenError(err)
	}

	token := tokenFromOAuth2(tok)
	// x/oauth2 copies the old refresh token into the result when the provider omits one.
	if token.RefreshToken == refreshToken {
		token.RefreshToken = ""
	}
	return token, nil
}

func (c *TokenClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func translateTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &TokenExchangeError{
			StatusCode: retrieveErr.Response.StatusCode,
			Body:       strings.TrimSpace(string(retrieveErr.Body)),
		}
	}
	return fmt.Errorf("spotify token request: %w", err)
}

func tokenFromOAuth2(tok *oauth2.Token) Token {
	token := Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		token.Scope = scope
	}
	if token.ExpiresIn <= 0 {
		switch v := tok.Extra("expires_in").(type) {
		case float64:
			token.ExpiresIn = int64(v)
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				token.ExpiresIn = n
			}
		}
	}
	if token.ExpiresIn <= 0 && !tok.Expiry.IsZero() {
		token.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return token
}
