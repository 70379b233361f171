// Package report is a client for the attempts API served by
// "lega-e2e report".
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	v1 "github.com/nbisweden/lega-e2e/api/v1"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("failed to initialize report client: %v", err)
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListAttempts fetches one page of recorded attempts
// GET /api/v1/attempts
func (c *Client) ListAttempts(ctx context.Context, params v1.GetAttemptsParams) (*v1.AttemptListResponse, error) {
	q := url.Values{}
	if params.Scenario != nil && len(*params.Scenario) > 0 {
		q.Set("scenario", strings.Join(*params.Scenario, ","))
	}
	if params.Passed != nil {
		q.Set("passed", strconv.FormatBool(*params.Passed))
	}
	if params.Page != nil {
		q.Set("page", strconv.Itoa(*params.Page))
	}
	if params.PageSize != nil {
		q.Set("pageSize", strconv.Itoa(*params.PageSize))
	}

	var out v1.AttemptListResponse
	if err := c.get(ctx, "/api/v1/attempts", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the report server health. A degraded server answers 503,
// which is not an error here.
// GET /api/v1/health
func (c *Client) Health(ctx context.Context) (*v1.Health, error) {
	var out v1.Health
	if err := c.get(ctx, "/api/v1/health", nil, &out, http.StatusServiceUnavailable); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any, accepted ...int) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	zap.S().Named("report_client").Debugw("request", "url", u)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode == http.StatusOK
	for _, code := range accepted {
		ok = ok || resp.StatusCode == code
	}
	if !ok {
		var e v1.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("unexpected response: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
