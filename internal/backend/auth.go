package backend

import (
	"context"
	"net/http"

	"github.com/rogerio-castellano/storefront/internal/models"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"usuario"`
}

func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var res LoginResult
	// Rejected credentials say nothing about the session already in place.
	if err := c.send(ctx, http.MethodPost, "/login/", creds, &res, false); err != nil {
		return LoginResult{}, err
	}
	return res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout/", nil, nil)
}

type realtimeAuthRequest struct {
	Channel string `json:"channel_name"`
}

type realtimeAuthResponse struct {
	Auth string `json:"auth"`
}

// RealtimeAuth asks the backend for a credential that lets this session
// subscribe to channel on the realtime service.
func (c *Client) RealtimeAuth(ctx context.Context, path, channel string) (string, error) {
	var res realtimeAuthResponse
	if err := c.do(ctx, http.MethodPost, path, realtimeAuthRequest{Channel: channel}, &res); err != nil {
		return "", err
	}
	return res.Auth, nil
}
