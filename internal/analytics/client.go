// internal/analytics/client.go
package analytics

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
	"time"

	"finsight/internal/common/config"
	commonerrors "finsight/internal/common/errors"
	commonhttp "finsight/internal/common/http"
	"finsight/internal/common/logger"
	"finsight/internal/common/metrics"

	"golang.org/x/time/rate"
)

// Client talks to the financial analytics provider over HTTP. All calls
// pass through a shared rate limiter and retry transient failures with
// exponential backoff.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *commonhttp.Client
	limiter    *rate.Limiter
	logger     logger.Logger
	maxRetries int
	retryDelay time.Duration
}

func NewClient(cfg config.AnalyticsConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:     log.WithFields(map[string]interface{}{"component": "analytics"}),
		maxRetries: cfg.MaxRetries,
		retryDelay: config.GetDuration(cfg.RetryDelay),
	}
}

// ListSymbols fetches the full symbol directory for one namespace.
func (c *Client) ListSymbols(ctx context.Context, namespace string) ([]SymbolListing, error) {
	var out []SymbolListing
	path := "/v1/symbols/" + url.PathEscape(namespace)
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DescribeAsset fetches metric rows for a single instrument in the given
// currency over a trailing window of years.
func (c *Client) DescribeAsset(ctx context.Context, symbol string, years int, currency string) (*AssetDescribeResponse, error) {
	params := url.Values{}
	params.Set("years", strconv.Itoa(years))
	params.Set("currency", currency)

	var out AssetDescribeResponse
	path := "/v1/assets/" + url.PathEscape(symbol) + "/describe"
	if err := c.get(ctx, path, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DescribePortfolio fetches aggregate metric rows for a weighted basket.
func (c *Client) DescribePortfolio(ctx context.Context, req *PortfolioDescribeRequest) (*PortfolioDescribeResponse, error) {
	var out PortfolioDescribeResponse
	if err := c.post(ctx, "/v1/portfolio/describe", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WealthSeries fetches the accumulated wealth series used for charting.
func (c *Client) WealthSeries(ctx context.Context, symbol string, years int, currency string) ([]SeriesObservation, error) {
	params := url.Values{}
	params.Set("years", strconv.Itoa(years))
	params.Set("currency", currency)

	var out []SeriesObservation
	path := "/v1/assets/" + url.PathEscape(symbol) + "/wealth"
	if err := c.get(ctx, path, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	build := func() (*http.Request, error) {
		if params == nil {
			params = url.Values{}
		}
		reqURL := c.baseURL + path
		if encoded := params.Encode(); encoded != "" {
			reqURL += "?" + encoded
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	}
	return c.do(ctx, path, build, result)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
	return c.do(ctx, path, build, result)
}

// do executes one provider request with rate limiting and retries.
// 429 and 5xx responses are retried; 4xx responses are terminal.
func (c *Client) do(ctx context.Context, endpoint string, build func() (*http.Request, error), result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return commonerrors.NewProviderTimeoutError(endpoint)
		}

		req, err := build()
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.ProviderRequests.WithLabelValues(endpoint, "error").Inc()
			if ctx.Err() != nil {
				return commonerrors.NewProviderTimeoutError(endpoint)
			}
			lastErr = commonerrors.NewProviderConnectionFailedError(err)
			c.backoff(ctx, attempt)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(result)
			resp.Body.Close()
			if err != nil {
				metrics.ProviderRequests.WithLabelValues(endpoint, "decode_error").Inc()
				return fmt.Errorf("failed to decode response: %w", err)
			}
			metrics.ProviderRequests.WithLabelValues(endpoint, "ok").Inc()
			return nil

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			metrics.ProviderRequests.WithLabelValues(endpoint, "not_found").Inc()
			return commonerrors.NewResourceNotFoundError("analytics", endpoint)

		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			metrics.ProviderRequests.WithLabelValues(endpoint, "rate_limited").Inc()
			lastErr = commonerrors.NewProviderRateLimitedError(endpoint)
			c.backoff(ctx, attempt)

		case resp.StatusCode >= 500:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			metrics.ProviderRequests.WithLabelValues(endpoint, "server_error").Inc()
			lastErr = commonerrors.NewProviderConnectionFailedError(
				fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(string(body), 200)))
			c.backoff(ctx, attempt)

		default:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			metrics.ProviderRequests.WithLabelValues(endpoint, "client_error").Inc()
			return commonerrors.NewExternalServiceError("analytics",
				fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(string(body), 200)))
		}
	}

	c.logger.Error("provider request exhausted retries", map[string]interface{}{
		"endpoint": endpoint,
		"retries":  c.maxRetries,
	})
	return lastErr
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	delay := c.retryDelay * time.Duration(1<<attempt)
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
