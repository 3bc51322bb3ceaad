package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleet-admin-console/config"
	"fleet-admin-console/internal/session"
)

// Ack is the outcome of a call whose success carries no body. A 202 means the
// backend queued the work and has not applied it yet.
type Ack struct {
	StatusCode int
}

// Pending reports whether the operation was accepted but not yet applied.
func (a Ack) Pending() bool {
	return a.StatusCode == http.StatusAccepted
}

// Client talks to the fleet backend REST API. One method per capability.
type Client struct {
	baseURL string
	session *session.Session
	client  *http.Client
	logger  *log.Logger
}

// New creates a client for cfg.BaseURL using sess for bearer tokens.
func New(cfg config.APIConfig, sess *session.Session) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		session: sess,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: log.Default(),
	}
}

// SetLogger replaces the request logger.
func (c *Client) SetLogger(l *log.Logger) {
	c.logger = l
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Session {
	return c.session
}

// request describes one round trip.
type request struct {
	op     string
	method string
	path   string
	body   any
	out    any
	anon   bool
}

// do performs the round trip and decodes the response into r.out. It returns
// the HTTP status code on success.
func (c *Client) do(ctx context.Context, r request) (int, error) {
	token := c.session.Token()
	if !r.anon && token == "" {
		return 0, fmt.Errorf("%s: %w", r.op, ErrUnauthorized)
	}

	var body io.Reader
	if r.body != nil {
		jsonBody, err := json.Marshal(r.body)
		if err != nil {
			return 0, fmt.Errorf("%s: failed to marshal request payload: %w", r.op, err)
		}
		body = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to create request: %w", r.op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.anon {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Printf("%s %s [%s] failed: %v", r.method, r.path, requestID, err)
		return 0, &TransportError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()
	c.logger.Printf("%s %s [%s] %d in %s", r.method, r.path, requestID, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &TransportError{Op: r.op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if !r.anon {
			c.session.Invalidate(token)
		}
		return resp.StatusCode, fmt.Errorf("%s: %w", r.op, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, newServerError(r.op, resp.StatusCode, respBody)
	}

	if !r.anon {
		c.session.MarkVerified(token)
	}

	// 202 and 204 never carry a body worth parsing.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if r.out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, r.out); err != nil {
			return resp.StatusCode, fmt.Errorf("%s: failed to unmarshal api response: %w", r.op, err)
		}
	}
	return resp.StatusCode, nil
}

// Login exchanges credentials for a token and establishes the session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	_, err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/login",
		body:   map[string]string{"username": username, "password": password},
		out:    &resp,
		anon:   true,
	})
	if err != nil {
		return err
	}
	if resp.Token == "" {
		return fmt.Errorf("login: response carried no token")
	}
	return c.session.Establish(resp.Token)
}

// Logout drops the local session. The backend keeps no logout endpoint.
func (c *Client) Logout() error {
	return c.session.Logout()
}
