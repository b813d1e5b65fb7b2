package api

import (
	"context"
	"net/http"

	"hiddengems-web/internal/models"
)

func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	var out models.HealthStatus
	err := c.doJSON(ctx, request{op: "health", method: http.MethodGet, path: "/health"}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a user. user_type defaults to "artisan".
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (*models.StatusResponse, error) {
	if req.UserType == "" {
		req.UserType = "artisan"
	}

	var out models.StatusResponse
	err := c.doJSON(ctx, request{
		op:      "signup",
		method:  http.MethodPost,
		path:    "/api/v1/auth/signup",
		payload: JSONPayload{Body: req},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates and, when the backend hands out an access token,
// installs it on c before returning.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	var out models.TokenResponse
	err := c.doJSON(ctx, request{
		op:      "login",
		method:  http.MethodPost,
		path:    "/api/v1/auth/login",
		payload: JSONPayload{Body: req},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.AccessToken != "" {
		c.SetToken(out.AccessToken)
	}
	return &out, nil
}

// Logout tells the backend and drops the token once it has acknowledged.
func (c *Client) Logout(ctx context.Context) (*models.StatusResponse, error) {
	var out models.StatusResponse
	err := c.doJSON(ctx, request{op: "logout", method: http.MethodPost, path: "/api/v1/auth/logout"}, &out)
	if err != nil {
		return nil, err
	}
	c.ClearToken()
	return &out, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var out models.User
	err := c.doJSON(ctx, request{op: "current user", method: http.MethodGet, path: "/api/v1/auth/me"}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
