package client

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
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/learnportal/internal/client/models"
	"github.com/dmitrijs2005/learnportal/internal/common"
	"github.com/dmitrijs2005/learnportal/internal/logging"
)

// Generic per-operation messages, used when the server gives no detail.
const (
	msgLogin         = "login failed"
	msgWalletLogin   = "wallet login failed"
	msgRegister      = "registration failed"
	msgCurrentUser   = "failed to load user profile"
	msgTopics        = "failed to load learning topics"
	msgTools         = "failed to load tools"
	msgUpdateProfile = "failed to update profile"
	msgPing          = "server unavailable"
)

const maxResponseBytes = 1 << 20

// HTTPClient talks to the portal backend over HTTP/JSON.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger

	mu      sync.RWMutex
	session Session
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewHTTPClient returns a client for the backend rooted at baseURL.
func NewHTTPClient(baseURL string, logger logging.Logger, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.With("component", "api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) AttachSession(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *HTTPClient) currentSession() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type request struct {
	op       string
	method   string
	path     string
	json     any
	form     url.Values
	auth     bool
	fallback string
}

func (c *HTTPClient) do(ctx context.Context, r request, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.json != nil:
		data, err := json.Marshal(r.json)
		if err != nil {
			return &Error{Op: r.op, Kind: KindValidation, Message: r.fallback, Err: err}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return &Error{Op: r.op, Kind: KindValidation, Message: r.fallback, Err: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	// sentToken is what the 401 hook compares against the live session.
	var sentToken string
	if r.auth {
		if s := c.currentSession(); s != nil {
			if sentToken = s.Token(); sentToken != "" {
				req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+sentToken)
			}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug(ctx, "request failed", "op", r.op, "request_id", requestID, "error", err)
		return &Error{Op: r.op, Kind: KindTransport, Message: transportMessage(err, r.fallback), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Op: r.op, Kind: KindTransport, Status: resp.StatusCode, Message: transportMessage(err, r.fallback), Err: err}
	}

	c.logger.Debug(ctx, "request done",
		"op", r.op,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			Op:      r.op,
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: detailMessage(data, r.fallback),
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.unauthorized(ctx, r.op, sentToken)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: r.op, Kind: KindDecode, Status: resp.StatusCode, Message: r.fallback, Err: err}
	}
	return nil
}

// unauthorized runs the session's 401 hook with the token the request
// carried. The hook must finish even if the caller's context is already
// cancelled.
func (c *HTTPClient) unauthorized(ctx context.Context, op, token string) {
	s := c.currentSession()
	if s == nil {
		return
	}
	c.logger.Info(ctx, "unauthorized response", "op", op)
	s.Unauthorized(context.WithoutCancel(ctx), token)
}

func transportMessage(err error, fallback string) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}

// detailMessage pulls a human-readable message out of an error body shaped
// like {"detail": "..."} or {"detail": [{"msg": "..."}]}.
func detailMessage(body []byte, fallback string) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return fallback
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
		return fallback
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
		return items[0].Msg
	}
	return fallback
}

func malformed(op, fallback string, err error) error {
	return &Error{Op: op, Kind: KindDecode, Status: http.StatusOK, Message: fallback, Err: err}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (c *HTTPClient) LoginWithPassword(ctx context.Context, username string, password []byte) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", string(password))

	var resp tokenResponse
	err := c.do(ctx, request{
		op:       "login",
		method:   http.MethodPost,
		path:     "/api/token",
		form:     form,
		fallback: msgLogin,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", malformed("login", msgLogin, errors.New("empty access_token"))
	}
	return resp.AccessToken, nil
}

func (c *HTTPClient) LoginWithWallet(ctx context.Context, address, signature string) (string, error) {
	body := struct {
		Address   string `json:"address"`
		Signature string `json:"signature"`
	}{Address: address, Signature: signature}

	var resp tokenResponse
	err := c.do(ctx, request{
		op:       "wallet_login",
		method:   http.MethodPost,
		path:     "/api/wallet/login",
		json:     body,
		fallback: msgWalletLogin,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", malformed("wallet_login", msgWalletLogin, errors.New("empty access_token"))
	}
	return resp.AccessToken, nil
}

func (c *HTTPClient) Register(ctx context.Context, username, email string, password []byte) (models.RegisteredUser, error) {
	body := struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Username: username, Email: email, Password: string(password)}

	var resp models.RegisteredUser
	err := c.do(ctx, request{
		op:       "register",
		method:   http.MethodPost,
		path:     "/api/register",
		json:     body,
		fallback: msgRegister,
	}, &resp)
	if err != nil {
		return models.RegisteredUser{}, err
	}
	if resp.Username == "" {
		return models.RegisteredUser{}, malformed("register", msgRegister, errors.New("empty username"))
	}
	return resp, nil
}

func (c *HTTPClient) GetCurrentUser(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := c.do(ctx, request{
		op:       "current_user",
		method:   http.MethodGet,
		path:     "/api/users/me",
		auth:     true,
		fallback: msgCurrentUser,
	}, &profile)
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, malformed("current_user", msgCurrentUser, err)
	}
	return &profile, nil
}

func (c *HTTPClient) GetLearningTopics(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	err := c.do(ctx, request{
		op:       "learning_topics",
		method:   http.MethodGet,
		path:     "/api/learning",
		auth:     true,
		fallback: msgTopics,
	}, &topics)
	if err != nil {
		return nil, err
	}
	for _, t := range topics {
		if err := t.Validate(); err != nil {
			return nil, malformed("learning_topics", msgTopics, err)
		}
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	return topics, nil
}

func (c *HTTPClient) GetTools(ctx context.Context) ([]models.Tool, error) {
	var tools []models.Tool
	err := c.do(ctx, request{
		op:       "tools",
		method:   http.MethodGet,
		path:     "/api/tools",
		auth:     true,
		fallback: msgTools,
	}, &tools)
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		if err := t.Validate(); err != nil {
			return nil, malformed("tools", msgTools, err)
		}
	}
	if tools == nil {
		tools = []models.Tool{}
	}
	return tools, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, request{
		op:       "update_profile",
		method:   http.MethodPut,
		path:     "/api/users/me",
		json:     upd,
		auth:     true,
		fallback: msgUpdateProfile,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, request{
		op:       "ping",
		method:   http.MethodGet,
		path:     "/api/health",
		fallback: msgPing,
	}, nil)
}
