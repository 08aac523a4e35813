// Package backend is the HTTP client the gateway uses to reach the scan backend.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTimeout is returned when the backend does not answer within the request timeout.
var ErrTimeout = errors.New("backend request timed out")

// ErrInvalidJSON is returned when a successful backend response is not JSON.
var ErrInvalidJSON = errors.New("backend returned invalid JSON")

const maxResponseBytes = 32 << 20

// StatusError is a non-2xx backend response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return "Backend error: " + e.StatusText()
}

// StatusText is the reason phrase without the numeric code.
func (e *StatusError) StatusText() string {
	if text, ok := strings.CutPrefix(e.Status, fmt.Sprintf("%d ", e.StatusCode)); ok {
		return text
	}
	if e.Status != "" {
		return e.Status
	}
	return http.StatusText(e.StatusCode)
}

// Message returns the "message" field of a JSON error body, if any.
func (e *StatusError) Message() string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	return body.Message
}

// AsStatusError unwraps err into a *StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Transport is used by tests; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	config     ClientConfig
}

// Request describes one proxied call. Path is relative to the backend base URL.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Token       string
	Body        io.Reader
	ContentType string
	// Timeout overrides the client default for this call.
	Timeout time.Duration
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "scanportal-gateway/1.0"
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: config.Transport,
			// The gateway decides what to do with backend redirects itself.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		config: config,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs the request without retries. For non-2xx responses it returns
// both the response and a *StatusError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, req.Body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	// Backend caches are never trusted for per-user scan data.
	httpReq.Header.Set("Cache-Control", "no-store")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%s %s: %w", method, req.Path, ErrTimeout)
		}
		return nil, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("reading %s: %w", req.Path, ErrTimeout)
		}
		return nil, fmt.Errorf("reading %s: %w", req.Path, err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return resp, &StatusError{
			StatusCode: httpResp.StatusCode,
			Status:     httpResp.Status,
			Body:       body,
		}
	}
	return resp, nil
}

// GetJSON fetches path and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path, token string, timeout time.Duration, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Token: token, Timeout: timeout})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}

// GetRaw fetches path and returns the body after checking it is valid JSON.
func (c *Client) GetRaw(ctx context.Context, path, token string, timeout time.Duration) ([]byte, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Token: token, Timeout: timeout})
	if err != nil {
		return nil, err
	}
	if !json.Valid(resp.Body) {
		return nil, ErrInvalidJSON
	}
	return resp.Body, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
