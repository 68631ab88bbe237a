package kahoot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kahoot-course-creator/internal/domain"
	"kahoot-course-creator/internal/httpx"
)

const (
	DefaultBaseURL = "https://kahoot.it"

	loginPath  = "/rest/users/login"
	coursePath = "/rest/kahoots"

	contentTypeJSON = "application/json"
	acceptJSON      = contentTypeJSON
)

var (
	// ErrTokenMissing means the login response parsed but carried no usable token.
	ErrTokenMissing = errors.New("kahoot: login response has no token")
	// ErrMissingBearer is returned by CreateCourse when called without a token.
	ErrMissingBearer = errors.New("kahoot: missing bearer token (call Login first)")
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: tr,
		},
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse holds the fields we read; the platform sends more.
type LoginResponse struct {
	Token string `json:"token"`
}

// Login exchanges creds for a session token. A response without a
// non-empty "token" field yields ErrTokenMissing.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	b, err := json.Marshal(LoginRequest{Username: creds.Username, Password: creds.Password})
	if err != nil {
		return "", err
	}

	var lr LoginResponse
	err = httpx.DoJSON(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+loginPath, bytes.NewReader(b))
			if err != nil {
				return nil, err
			}
			r.Header.Set("Content-Type", contentTypeJSON)
			r.Header.Set("Accept", acceptJSON)
			return r, nil
		},
		&lr,
	)
	if err != nil {
		return "", fmt.Errorf("kahoot: login failed: %w", err)
	}

	token := strings.TrimSpace(lr.Token)
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}

// CreateCourse posts payload to the creation endpoint and returns the
// response body verbatim. An empty payload is sent as "{}".
func (c *Client) CreateCourse(ctx context.Context, token string, payload domain.CoursePayload) (json.RawMessage, error) {
	if token == "" {
		return nil, ErrMissingBearer
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("kahoot: encode payload: %w", err)
	}

	var out json.RawMessage
	err = httpx.DoJSON(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+coursePath, bytes.NewReader(b))
			if err != nil {
				return nil, err
			}
			r.Header.Set("Content-Type", contentTypeJSON)
			r.Header.Set("Accept", acceptJSON)
			r.Header.Set("Authorization", "Bearer "+token)
			return r, nil
		},
		&out,
	)
	if err != nil {
		return nil, fmt.Errorf("kahoot: create course failed: %w", err)
	}
	return out, nil
}
