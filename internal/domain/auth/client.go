package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// TokenRequester exchanges credentials for an access token.
type TokenRequester interface {
	RequestToken(ctx context.Context, username, password string) (string, error)
}

// ClientConfig configures the backend the client talks to.
type ClientConfig struct {
	BaseURL   string
	TokenPath string
	Timeout   time.Duration
	// Transport overrides the HTTP round tripper (tests, proxies).
	Transport http.RoundTripper
}

// Client calls the backend token endpoint.
type Client struct {
	http      *resty.Client
	tokenPath string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

// NewClient builds a token client. Timeout 0 disables the client-side limit;
// callers should still bound ctx.
func NewClient(cfg ClientConfig) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if cfg.Transport != nil {
		rc.SetTransport(cfg.Transport)
	}
	path := cfg.TokenPath
	if path == "" {
		path = "/api/v1/auth/token"
	}
	return &Client{http: rc, tokenPath: path}
}

// RequestToken posts form-encoded credentials and returns access_token.
func (c *Client) RequestToken(ctx context.Context, username, password string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": username,
			"password": password,
		}).
		SetResult(&tokenResponse{}).
		SetError(&errorResponse{}).
		Post(c.tokenPath)
	if err != nil {
		return "", &AuthError{Message: "request " + c.tokenPath, Err: err}
	}

	if !resp.IsSuccess() {
		msg := http.StatusText(resp.StatusCode())
		if body, ok := resp.Error().(*errorResponse); ok && body.Detail != nil {
			msg = detailMessage(body.Detail)
		}
		return "", &AuthError{StatusCode: resp.StatusCode(), Message: msg}
	}

	body, ok := resp.Result().(*tokenResponse)
	if !ok || body.AccessToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode(), Message: "response missing access_token"}
	}
	return body.AccessToken, nil
}

// detailMessage flattens FastAPI style details, which are either a string or
// a list of validation errors carrying "msg".
func detailMessage(detail any) string {
	switch d := detail.(type) {
	case string:
		return d
	case []any:
		if len(d) > 0 {
			if first, ok := d[0].(map[string]any); ok {
				if msg, ok := first["msg"].(string); ok {
					return msg
				}
			}
		}
	}
	return fmt.Sprint(detail)
}
