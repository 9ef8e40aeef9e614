package panelapi

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token and the user.
func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/auth/login", body: creds, out: &resp}); err != nil {
		return AuthResponse{}, err
	}
	return resp, nil
}

// Register creates an account. It does not authenticate.
func (c *Client) Register(ctx context.Context, p Profile) (*User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/auth/register", body: p, out: &resp}); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Logout invalidates token on the server. The token is passed explicitly
// because the local credential is usually cleared by the time this runs.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/api/auth/logout", token: &token})
}

// Me returns the user owning the installed token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/auth/me", out: &resp}); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &APIError{StatusCode: http.StatusOK, Err: ErrMalformed}
	}
	return resp.User, nil
}
