// Package authapi provides the HTTP adapter for the job-board API's /auth endpoints.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
	apperrors "github.com/hustlehub/hustle-hub-app/internal/errors"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultSessionCookie = "hustlehub_access_token"
	maxResponseBytes     = 1 << 20
)

// Config holds configuration for the API client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// SessionCookie is the name of the API's access-token cookie.
	SessionCookie string
	// ErrorDetailExpr is a JMESPath expression selecting the reason from an error body.
	ErrorDetailExpr string
	HTTPClient      *http.Client // Optional; a cookie jar is installed when it has none
	Logger          *slog.Logger
}

// Client talks to the job-board API. The session lives in the client's cookie jar,
// so every call made through one Client shares one server-side session.
type Client struct {
	base       *url.URL
	hc         *http.Client
	cookieName string
	detail     detailExtractor
	logger     *slog.Logger
}

// NewClient creates a new API client.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute, got %q", cfg.BaseURL)
	}

	detail, err := newDetailExtractor(cfg.ErrorDetailExpr)
	if err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	if hc.Jar == nil {
		jar, jarErr := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if jarErr != nil {
			return nil, fmt.Errorf("create cookie jar: %w", jarErr)
		}
		hc.Jar = jar
	}

	cookieName := cfg.SessionCookie
	if cookieName == "" {
		cookieName = defaultSessionCookie
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:       base,
		hc:         hc,
		cookieName: cookieName,
		detail:     detail,
		logger:     logger,
	}, nil
}

// Me performs GET /auth/me.
func (c *Client) Me(ctx context.Context) (domainauth.User, error) {
	return c.user(ctx, http.MethodGet, "/auth/me", nil)
}

// Login performs POST /auth/login. On success the API sets the session cookie.
func (c *Client) Login(ctx context.Context, in domainauth.LoginInput) (domainauth.User, error) {
	return c.user(ctx, http.MethodPost, "/auth/login", in)
}

// Register performs POST /auth/register.
func (c *Client) Register(ctx context.Context, in domainauth.RegisterInput) (domainauth.User, error) {
	return c.user(ctx, http.MethodPost, "/auth/register", in)
}

// Logout performs POST /auth/logout. The response body is ignored.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/auth/logout", struct{}{})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return nil
}

func (c *Client) user(ctx context.Context, method, path string, body any) (domainauth.User, error) {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return domainauth.User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domainauth.User{}, c.errorFromResponse(resp)
	}

	var u domainauth.User
	if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&u); decodeErr != nil {
		return domainauth.User{}, apperrors.Wrapf(decodeErr, apperrors.ErrCodeInternal, "decode %s response", path)
	}
	if !u.Role.Valid() {
		return domainauth.User{}, apperrors.Internalf("unexpected role %q in %s response", u.Role, path)
	}
	return u, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "api request failed",
			"method", method, "path", path, "request_id", requestID, "error", err)
		return nil, apperrors.MapTransportError(err)
	}

	c.logger.DebugContext(ctx, "api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)
	return resp, nil
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read error response")
	}
	return apperrors.FromStatus(resp.StatusCode, c.detail.extract(raw))
}
