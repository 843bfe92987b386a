package postgrest

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/preston-bernstein/fightpicks/internal/backend"
)

var errMissingToken = errors.New("postgrest: access token is required")

// GetUser resolves an access token through GET /auth/v1/user.
func (c *Client) GetUser(ctx context.Context, accessToken string) (backend.User, error) {
	if accessToken == "" {
		return backend.User{}, errMissingToken
	}
	req, err := c.newRequest(ctx, http.MethodGet, authPath+"/user", nil, nil, accessToken)
	if err != nil {
		return backend.User{}, err
	}
	var user backend.User
	if err := c.do(req, &user); err != nil {
		return backend.User{}, err
	}
	return user, nil
}

// SignInWithOTP asks the auth service to email a magic link.
func (c *Client) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	params := url.Values{}
	if redirectTo != "" {
		params.Set("redirect_to", redirectTo)
	}
	body := map[string]any{"email": strings.TrimSpace(email), "create_user": true}
	req, err := c.newRequest(ctx, http.MethodPost, authPath+"/otp", params, body, c.anonKey)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// AuthorizeURL is where the browser goes to start an OAuth sign-in.
func (c *Client) AuthorizeURL(provider, redirectTo string) (string, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return "", errors.New("postgrest: provider is required")
	}
	params := url.Values{}
	params.Set("provider", provider)
	if redirectTo != "" {
		params.Set("redirect_to", redirectTo)
	}
	return c.baseURL + authPath + "/authorize?" + params.Encode(), nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return errMissingToken
	}
	req, err := c.newRequest(ctx, http.MethodPost, authPath+"/logout", nil, nil, accessToken)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
