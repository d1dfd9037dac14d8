// Package okx reads public market data from the OKX v5 REST API.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	appconfig "contextgate/config"
	metrics "contextgate/internal/metrics"
	"contextgate/internal/models"
	"contextgate/logger"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.okx.com"

// Client performs rate-limited GETs against the public endpoints. It keeps
// no state between calls besides the limiter.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// NewClient builds a client from the okx config section. Zero values fall
// back to 5 requests per second with a burst of 1.
func NewClient(cfg appconfig.OkxConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	rps := cfg.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Transport: userAgentTransport{agent: cfg.UserAgent, base: http.DefaultTransport},
			Timeout:   timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger(),
	}
}

// envelope is the wrapper OKX puts around every REST response.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// APIError is a non-zero OKX response code.
type APIError struct {
	Endpoint string
	Code     string
	Msg      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("okx %s: code %s: %s", e.Endpoint, e.Code, e.Msg)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	log := c.log.WithComponent("okx_client").WithFields(logger.Fields{
		"endpoint": endpoint,
		"inst_id":  params.Get("instId"),
	})

	start := time.Now()
	status := "error"
	defer func() {
		metrics.ObserveRequest(endpoint, status, time.Since(start))
	}()

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.WithError(err).Warn("okx request failed")
		return err
	}
	defer resp.Body.Close()

	reportRateLimit(c.log, endpoint, params.Get("instId"), ExtractRateLimit(resp.Header))

	if resp.StatusCode != http.StatusOK {
		status = resp.Status
		return fmt.Errorf("okx %s: unexpected status %s", endpoint, resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode okx %s response: %w", endpoint, err)
	}
	if env.Code != "0" {
		status = "code_" + env.Code
		return &APIError{Endpoint: endpoint, Code: env.Code, Msg: env.Msg}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		status = "empty"
		return fmt.Errorf("okx %s: %w", endpoint, models.ErrInsufficientData)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode okx %s data: %w", endpoint, err)
	}

	status = "ok"
	logger.LogPerformanceEntry(log, "okx_client", "get", time.Since(start), nil)
	return nil
}
