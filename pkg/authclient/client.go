package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	PurposeVerification = "VERIFICATION"
	PurposeLogin        = "LOGIN"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(authServiceURL string) *Client {
	return NewClientWithHTTP(authServiceURL, &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	})
}

func NewClientWithHTTP(authServiceURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(authServiceURL, "/"), httpClient: hc}
}

type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	IsVerified bool      `json:"isVerified"`
	IsActive   bool      `json:"isActive"`
	Roles      []string  `json:"roles"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// Result is the outcome of one auth step. Token is set only after a LOGIN
// code is verified.
type Result struct {
	Message     string
	User        *User
	Token       string
	RequiresOTP bool
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Message string
	Errors  []FieldError
	Details []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth service: %d %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []FieldError    `json:"errors"`
	Details []string        `json:"details"`
}

type resultData struct {
	User        *User  `json:"user"`
	Token       string `json:"token"`
	RequiresOTP bool   `json:"requiresOTP"`
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*Result, error) {
	return c.step(ctx, "/auth/signup", req)
}

func (c *Client) Login(ctx context.Context, email, password string) (*Result, error) {
	return c.step(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) VerifyOTP(ctx context.Context, email, code, purpose string) (*Result, error) {
	return c.step(ctx, "/auth/verify-otp", map[string]string{"email": email, "otp": code, "purpose": purpose})
}

// ResendOTP returns the service message, which is the same whether or not
// the account exists.
func (c *Client) ResendOTP(ctx context.Context, email, purpose string) (string, error) {
	res, err := c.step(ctx, "/auth/resend-otp", map[string]string{"email": email, "purpose": purpose})
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

func (c *Client) step(ctx context.Context, path string, body any) (*Result, error) {
	env, err := c.post(ctx, path, body)
	if err != nil {
		return nil, err
	}
	res := &Result{Message: env.Message}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return res, nil
	}
	var data resultData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	res.User = data.User
	res.Token = data.Token
	res.RequiresOTP = data.RequiresOTP
	return res, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message, Errors: env.Errors, Details: env.Details}
	}
	return &env, nil
}
