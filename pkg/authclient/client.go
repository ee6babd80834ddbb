package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	appErrors "github.com/bloghive/auth-service/pkg/errors"
)

// Identity is the public user projection returned by the identity service.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Client lets a resource-owning service ask the identity service whether a
// set of credentials is valid, instead of verifying tokens locally. Calls
// are synchronous with a bounded timeout; an unreachable identity service
// is reported as ErrServiceUnavailable, never as a credential failure.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New creates a client for the identity service at baseURL, for example
// "http://auth-service:8085/api/v1". The timeout bounds every call.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Data  *Identity        `json:"data"`
	Error *appErrors.Error `json:"error"`
}

// ValidateCredentials verifies a username/password pair against the
// identity service and returns the identity on success.
func (c *Client) ValidateCredentials(ctx context.Context, username, password string) (*Identity, error) {
	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/validate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// GetUserByID resolves a user's public projection by identifier.
func (c *Client) GetUserByID(ctx context.Context, id int64) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/auth/users/%d", c.baseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}

	return c.do(req)
}

// GetUserByUsername resolves a user's public projection by username.
func (c *Client) GetUserByUsername(ctx context.Context, username string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/users/username/"+username, nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Identity, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failure means the check could not happen at all.
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "identity service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var body envelope
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode identity response: %w", err)
		}
		if body.Data == nil {
			return nil, fmt.Errorf("identity response missing data")
		}
		return body.Data, nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	case http.StatusNotFound:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	case http.StatusBadRequest:
		return nil, appErrors.Clone(appErrors.ErrValidation, "")
	default:
		return nil, appErrors.New(appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status,
			fmt.Sprintf("identity service returned status %d", resp.StatusCode))
	}
}
