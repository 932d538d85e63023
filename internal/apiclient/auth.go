package apiclient

import (
	"context"
	"net/http"

	"github.com/ashureev/marketdesk/internal/apperr"
	"github.com/ashureev/marketdesk/internal/domain"
)

// tokenPair is the JWT pair returned by the login endpoint.
type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	var out tokenPair
	if err := c.Do(ctx, http.MethodPost, "/auth/login/", nil, creds, &out); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", apperr.New(apperr.CodeUpstream, "login response carried no access token", nil)
	}
	return out.Access, nil
}

// Register creates an account. It does not authenticate.
func (c *Client) Register(ctx context.Context, reg domain.Registration) error {
	return c.Do(ctx, http.MethodPost, "/auth/register/", nil, reg, nil)
}

// Me fetches the profile of the bearer of the current credential.
func (c *Client) Me(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.Do(ctx, http.MethodGet, "/user/me/", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
