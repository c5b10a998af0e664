package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brooksh/brook/pkg/api"
)

// DefaultUserAgent identifies the CLI. The server derives the device
// fingerprint from it, so it must stay stable between runs.
const DefaultUserAgent = "brook-cli"

// Error is a non-2xx answer from the server
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Client talks to the brook HTTP API
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// Option configures Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent overrides DefaultUserAgent
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a new API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// the account redirect is for browsers; the CLI reads JSON only
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server URL the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Register creates an account and returns the first session grant
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/register", "", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login authenticates by email and password
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	var resp api.LoginResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// CheckUsername asks whether name can be registered
func (c *Client) CheckUsername(ctx context.Context, name string) (*api.UsernameCheckResponse, error) {
	var resp api.UsernameCheckResponse
	path := "/auth/check-username/" + url.PathEscape(name)
	if err := c.doRequest(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("check username request failed: %w", err)
	}
	return &resp, nil
}

// VerifyDevice checks a stored session; a valid one yields a fresh access token
func (c *Client) VerifyDevice(ctx context.Context, req api.VerifyDeviceRequest) (*api.VerifyDeviceResponse, error) {
	var resp api.VerifyDeviceResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/verify-device", "", req, &resp); err != nil {
		return nil, fmt.Errorf("verify device request failed: %w", err)
	}
	return &resp, nil
}

// Logout revokes a session on the server
func (c *Client) Logout(ctx context.Context, sessionID string) error {
	var resp api.LogoutResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/logout", "", api.LogoutRequest{SessionID: sessionID}, &resp); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// GetProfile fetches a public profile without counting a view
func (c *Client) GetProfile(ctx context.Context, username string) (*api.ProfileResponse, error) {
	var resp api.ProfileResponse
	path := "/api/v1/profiles/" + url.PathEscape(username)
	if err := c.doRequest(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("get profile request failed: %w", err)
	}
	return &resp, nil
}

// Me returns the profile the access token belongs to
func (c *Client) Me(ctx context.Context, accessToken string) (*api.ProfileResponse, error) {
	var resp api.ProfileResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/me", accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("me request failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, path, bearer string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return &Error{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &Error{StatusCode: resp.StatusCode}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
