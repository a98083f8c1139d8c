// Package directory is the typed client for the account-directory REST
// backend, the authoritative store of phone-number-keyed user records.
package directory

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

	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/config"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/domain"
)

// APIError is a non-2xx directory response. Message carries the backend's
// reported error text verbatim when available, else the raw body, else a
// generic message.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory: %s (status %d)", e.Message, e.StatusCode)
}

// Unwrap lets callers branch with errors.Is(err, domain.ErrDirectory).
func (e *APIError) Unwrap() error { return domain.ErrDirectory }

// IsConflict reports whether err indicates the directory already holds a
// record for the claimed identity. HTTP 409 is authoritative; the "already"
// substring match is kept as a soft fallback for older backend phrasings
// ("Phone number already registered", "User already registered").
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusConflict {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "already")
}

// Client wraps the directory REST API.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New builds a Client from configuration.
func New(cfg *config.Config) *Client {
	return NewWithBaseURL(cfg.DirectoryBaseURL, cfg.HTTPTimeout)
}

// NewWithBaseURL builds a Client against an explicit base URL.
func NewWithBaseURL(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

type checkUserRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type checkUserResponse struct {
	Success bool `json:"success"`
	Exists  bool `json:"exists"`
}

// CheckUser reports whether an account exists for the normalized phone
// number.
func (c *Client) CheckUser(ctx context.Context, phoneNumber string) (bool, error) {
	var out checkUserResponse
	err := c.do(ctx, http.MethodPost, "/api/check-user", checkUserRequest{PhoneNumber: phoneNumber}, &out)
	if err != nil {
		return false, err
	}
	return out.Exists, nil
}

type accountEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	User    *domain.Account `json:"user,omitempty"`
}

// CreateUserWithLogin atomically creates the account record and appends its
// first login-history entry. The backend rejects the call with a conflict
// when the uid, phone number, or email is already registered; callers detect
// that with IsConflict.
func (c *Client) CreateUserWithLogin(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	var out accountEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/create-user-with-login", req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

type recordLoginRequest struct {
	UID         string `json:"uid"`
	PhoneNumber string `json:"phoneNumber"`
}

// RecordLogin appends a login-history entry for an existing account.
func (c *Client) RecordLogin(ctx context.Context, uid, phoneNumber string) error {
	return c.do(ctx, http.MethodPost, "/api/login-history", recordLoginRequest{UID: uid, PhoneNumber: phoneNumber}, nil)
}

type historyEnvelope struct {
	Success bool                 `json:"success"`
	History []domain.LoginRecord `json:"history"`
	Count   int                  `json:"count"`
}

// LoginHistory returns up to limit login records for the account, newest
// first. The backend clamps limit to 1-1000 and defaults it to 50; limit <= 0
// omits the parameter.
func (c *Client) LoginHistory(ctx context.Context, uid string, limit int) ([]domain.LoginRecord, error) {
	path := "/api/login-history/" + url.PathEscape(uid)
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out historyEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// GetUser fetches the account profile by uid.
func (c *Client) GetUser(ctx context.Context, uid string) (*domain.Account, error) {
	var out accountEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/user/"+url.PathEscape(uid), nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UpdateUser mutates name/email/address on the account profile.
func (c *Client) UpdateUser(ctx context.Context, uid string, req domain.UpdateAccountRequest) (*domain.Account, error) {
	var out accountEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/user/"+url.PathEscape(uid), req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

type unregisterRequest struct {
	UID string `json:"uid"`
}

// Unregister removes the account record and its login history.
func (c *Client) Unregister(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodPost, "/api/unregister", unregisterRequest{UID: uid}, nil)
}

// Health probes the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// do issues one JSON request and decodes the response into out (when out is
// non-nil). Non-2xx responses become an *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("directory request failed: %w (%v)", domain.ErrDirectory, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("directory response read failed: %w (%v)", domain.ErrDirectory, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw, resp.StatusCode),
			Body:       string(raw),
		}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("directory response decode failed: %w (%v)", domain.ErrDirectory, err)
		}
	}
	return nil
}

// errorMessage extracts the backend's error text: parsed JSON error/message
// field, else the raw body, else a generic message with the status code.
func errorMessage(raw []byte, status int) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}
