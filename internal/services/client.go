package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000/api/v1"

	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	refreshPath  = "/auth/refresh"
)

// Requester is the single entry point every typed service sends requests through.
type Requester interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// ClientOpts configures a [Client]. Zero values select defaults.
type ClientOpts struct {
	BaseURL string
	// Jar holds the session cookies. Defaults to an in-memory jar.
	Jar http.CookieJar
	// HTTPClient overrides the transport entirely; Jar and Timeout are ignored when set.
	HTTPClient *http.Client
	Timeout    time.Duration
	// RateLimit throttles outgoing requests (requests per second). 0 disables.
	RateLimit float64
	// OnSessionExpired runs once per failure cluster when the session can't be renewed.
	OnSessionExpired func(error)
	Logger           *log.Logger
}

// Request describes one API call. Path is relative to the client's base URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers http.Header

	retry      bool
	refreshGen uint64
}

// asRetry marks the request as the single re-issue that follows refresh generation gen.
func (r Request) asRetry(gen uint64) Request {
	r.retry = true
	r.refreshGen = gen
	return r
}

// Response is a raw API response.
type Response struct {
	Status    int
	Headers   http.Header
	Body      []byte
	NoContent bool
	IsJSON    bool
	JSONData  any
}

// Decode unmarshals the body into out. A no-content response leaves out untouched.
func (r *Response) Decode(out any) error {
	if out == nil || r.NoContent {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Client sends JSON requests to the StudyFlow API with cookie credentials
// and renews the session on 401 with at most one refresh in flight.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	onExpired  func(error)
	refresh    *refreshCoordinator
	logger     *log.Logger
}

// NewClient creates a client. Without an explicit HTTP client, the transport is
// instrumented with otelhttp and cookies are kept in opts.Jar (or a fresh in-memory jar).
func NewClient(opts ClientOpts) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar := opts.Jar
		if jar == nil {
			jar, _ = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		}
		httpClient = &http.Client{
			Jar:       jar,
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    limiter,
		onExpired:  opts.OnSessionExpired,
		refresh:    &refreshCoordinator{},
		logger:     logger,
	}
}

// BaseURL returns the API root every path is resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Jar returns the cookie jar carrying the session, if any.
func (c *Client) Jar() http.CookieJar { return c.httpClient.Jar }

// Do sends req and returns the response of a 2xx outcome.
//
// A 401 is recovered by refreshing the session: only one refresh runs at a time,
// concurrent failures wait for it and are re-issued once it settles. Login and
// registration 401s fail with [ErrInvalidCredentials]; unrecoverable sessions fail
// with [ErrSessionExpired]. Other non-2xx statuses return an [*APIError].
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusUnauthorized {
		return c.recover(ctx, req, resp)
	}
	return check(resp)
}

func (c *Client) recover(ctx context.Context, req Request, resp *Response) (*Response, error) {
	if isCredentialPath(req.Path) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, newAPIError(resp).Detail)
	}

	if req.retry {
		err := fmt.Errorf("%w: %s %s rejected after refresh", ErrSessionExpired, req.method(), req.Path)
		c.expire(req.refreshGen, err)
		return nil, err
	}

	leader, gen, wait := c.refresh.join()
	if !leader {
		c.logger.Debug("waiting for session refresh", "path", req.Path, "generation", gen)
		select {
		case res := <-wait:
			if res.err != nil {
				return nil, fmt.Errorf("%w: %w", ErrSessionExpired, res.err)
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return c.Do(ctx, req.asRetry(gen))
	}

	c.logger.Info("refreshing session", "path", req.Path, "generation", gen)
	// The refresh outlives any one caller: every queued request depends on it.
	err := c.renew(context.WithoutCancel(ctx))
	c.refresh.settle(err)
	if err != nil {
		expired := fmt.Errorf("%w: %w", ErrSessionExpired, err)
		c.expire(gen, expired)
		return nil, expired
	}
	return c.Do(ctx, req.asRetry(gen))
}

// renew calls the refresh endpoint directly. It is flagged as a retry so a 401
// here is a plain failure instead of another round of recovery.
func (c *Client) renew(ctx context.Context) error {
	resp, err := c.send(ctx, Request{Method: http.MethodPost, Path: refreshPath, retry: true})
	if err != nil {
		return err
	}
	if _, err := check(resp); err != nil {
		return err
	}
	return nil
}

func (c *Client) expire(gen uint64, err error) {
	if !c.refresh.report(gen) {
		return
	}
	c.logger.Warn("session expired", "generation", gen, "error", err)
	if c.onExpired != nil {
		c.onExpired(err)
	}
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Method: req.method(), Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: req.method(), Path: req.Path, Err: err}
	}

	c.logger.Debug("api request", "method", req.method(), "path", req.Path, "status", resp.StatusCode, "retry", req.retry)

	out := &Response{
		Status:    resp.StatusCode,
		Headers:   resp.Header,
		Body:      data,
		NoContent: resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0,
	}
	if !out.NoContent {
		var jsonData any
		if err := json.Unmarshal(data, &jsonData); err == nil {
			out.IsJSON = true
			out.JSONData = jsonData
		}
	}
	return out, nil
}

func check(resp *Response) (*Response, error) {
	if resp.Status >= 200 && resp.Status < 300 {
		return resp, nil
	}
	return nil, newAPIError(resp)
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func isCredentialPath(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	return path == loginPath || path == registerPath
}

// Get fetches path and decodes the body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

// Post sends body as JSON and decodes the reply into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put sends body as JSON and decodes the reply into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete removes the resource at path, decoding any reply into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

func (c *Client) call(ctx context.Context, req Request, out any) error {
	return doJSON(ctx, c, req, out)
}

// doJSON runs req through r and decodes the result into out.
func doJSON(ctx context.Context, r Requester, req Request, out any) error {
	resp, err := r.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}
