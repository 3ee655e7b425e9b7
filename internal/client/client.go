// Package client talks to the assistant backend over HTTP: the identity and
// session endpoints under /api/v1 and the public relay endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
)

// ErrNotSignedIn is returned by calls that need a bearer token when there is none
// or the backend rejected it
var ErrNotSignedIn = errors.New("not signed in")

// APIError is a non-2xx answer from an /api/v1 endpoint. Message is the backend's
// text, suitable for showing as-is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Config configures a Client
type Config struct {
	BaseURL string
	// Timeout of zero means no client-side deadline
	Timeout time.Duration
}

// Client is safe for concurrent use
type Client struct {
	http    *http.Client
	baseURL string
	log     *logger.Logger

	mu    sync.RWMutex
	token string
}

// New creates a backend client
func New(cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		log:     log,
	}
}

// SetToken replaces the bearer token used for authenticated calls
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token, empty when signed out
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type signupResponse struct {
	User    models.UserResponse `json:"user"`
	Message string              `json:"message"`
}

type loginResponse struct {
	User  models.UserResponse `json:"user"`
	Token string              `json:"token"`
}

// SignUp registers an account and returns the backend's notice. It does not sign in.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (string, error) {
	var out signupResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/signup", false, signupRequest{
		Email:    email,
		Password: password,
		FullName: fullName,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}

// SignIn authenticates and keeps the returned token for later calls
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.UserResponse, error) {
	var out loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/login", false, models.LoginRequest{
		Email:    email,
		Password: password,
	}, &out)
	if err != nil {
		return nil, err
	}

	c.SetToken(out.Token)
	return &out.User, nil
}

// CurrentUser returns the signed-in user or ErrNotSignedIn
func (c *Client) CurrentUser(ctx context.Context) (*models.UserResponse, error) {
	var out models.UserResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/auth/me", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignOut revokes the current token on the backend and forgets it locally
func (c *Client) SignOut(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/logout", true, nil, nil)
	c.SetToken("")
	if errors.Is(err, ErrNotSignedIn) {
		return nil
	}
	return err
}

// CreateSession inserts a chat session and returns it
func (c *Client) CreateSession(ctx context.Context, title string) (*models.ChatSession, error) {
	var out models.ChatSession
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/sessions", true, models.CreateSessionRequest{Title: title}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendMessage inserts one message into a session
func (c *Client) AppendMessage(ctx context.Context, sessionID, content, role string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/sessions/"+sessionID+"/messages", true,
		models.CreateMessageRequest{Content: content, Role: role}, nil)
}

// ListMessages returns a session's messages in insertion order
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]models.Message, error) {
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/sessions/"+sessionID+"/messages", true, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, auth bool, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.Token()
		if token == "" {
			return ErrNotSignedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug("Backend request failed", "method", method, "path", path, "status", resp.StatusCode)
		if auth && resp.StatusCode == http.StatusUnauthorized {
			return ErrNotSignedIn
		}
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage extracts the human text of an error body. The auth endpoints send
// {"error": "..."}; the others send {"error": {"code", "message"}}.
func errorMessage(status int, data []byte) string {
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &flat) == nil && flat.Error != "" {
		return flat.Error
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	return fmt.Sprintf("request failed with status %d", status)
}
