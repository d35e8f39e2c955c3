package aisearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/aisearch/internal/domain/search/result"
	"github.com/kailas-cloud/aisearch/internal/domain/status"
)

// Result types are the service's wire types.
type (
	SearchResult   = result.Search
	SimilarResult  = result.Similar
	PassagesResult = result.Passages
	Hit            = result.Hit
	PassageHit     = result.PassageHit
	StatusReport   = status.Report
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Client is the aisearch SDK entry point. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
	obs       *observer
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: DefaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("aisearch: invalid base URL %q", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Client{base: base, http: hc, userAgent: cfg.userAgent, obs: obs}, nil
}

// Search starts a search request.
func (c *Client) Search(query string) *SearchBuilder {
	return &SearchBuilder{c: c, body: searchBody{Q: query}}
}

// Similar lists records similar to recordID. limit <= 0 uses the server default.
func (c *Client) Similar(ctx context.Context, recordID string, limit int) (res *SimilarResult, err error) {
	done := c.obs.track("similar")
	defer func() { done(err) }()

	q := url.Values{}
	setLimit(q, limit)
	res = &SimilarResult{}
	if err = c.do(ctx, http.MethodGet, "/similar/"+url.PathEscape(recordID), q, nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Passages searches indexed passages.
func (c *Client) Passages(ctx context.Context, query string, limit int) (res *PassagesResult, err error) {
	done := c.obs.track("passages")
	defer func() { done(err) }()

	q := url.Values{"q": {query}}
	setLimit(q, limit)
	res = &PassagesResult{}
	if err = c.do(ctx, http.MethodGet, "/passages", q, nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Status returns the readiness report. It succeeds whenever the service answers.
func (c *Client) Status(ctx context.Context) (r StatusReport, err error) {
	done := c.obs.track("status")
	defer func() { done(err) }()

	err = c.do(ctx, http.MethodGet, "/status", nil, nil, &r)
	return r, err
}

// Health returns the liveness summary. An unhealthy service yields a
// HealthStatus together with ErrServiceUnavailable.
func (c *Client) Health(ctx context.Context) (h HealthStatus, err error) {
	done := c.obs.track("health")
	defer func() { done(err) }()

	resp, err := c.send(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return h, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return h, fmt.Errorf("aisearch: decode health: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return h, &APIError{StatusCode: resp.StatusCode, Code: "service_unavailable", Message: h.Status}
	}
	return h, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, q, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("aisearch: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, q url.Values, body any) (*http.Response, error) {
	u := *c.base
	u.Path += path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("aisearch: encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("aisearch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aisearch: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Code == "" {
		apiErr.Code = "http_" + strconv.Itoa(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	apiErr.Code, apiErr.Message = body.Code, body.Message
	return apiErr
}

func setLimit(q url.Values, limit int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
}
