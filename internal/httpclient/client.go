package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/services/ratelimit"
	"github.com/ternarybob/prospect/internal/useragent"
)

const headTimeout = 10 * time.Second

// Client is the paced HTTP fetch client. It owns a cookie-jar connection
// pool, rotates its browser identity every N requests, and routes every
// request through the rate governor. One Client serves one caller at a
// time.
type Client struct {
	client     *http.Client
	headClient *http.Client
	governor   *ratelimit.Governor
	pool       *useragent.Pool
	logger     arbor.ILogger

	rotateEveryN int
	requestCount int
	identity     useragent.Identity
}

// New creates a fetch client using the scraper timeouts from config
func New(cfg common.ScraperConfig, governor *ratelimit.Governor, pool *useragent.Pool, logger arbor.ILogger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		MaxIdleConnsPerHost: 10,
	}

	return &Client{
		client: &http.Client{
			Jar:       jar,
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		headClient: &http.Client{
			Jar:       jar,
			Timeout:   headTimeout,
			Transport: transport,
		},
		governor:     governor,
		pool:         pool,
		logger:       logger,
		rotateEveryN: cfg.RotateUAEveryN,
		identity:     pool.Random(),
	}, nil
}

// Get issues a paced GET. Network failures fold into the response record;
// the returned error is non-nil only for cancellation and the stealth
// session limit.
func (c *Client) Get(ctx context.Context, rawURL string) (*models.FetchResponse, error) {
	host := hostOf(rawURL)

	delay, err := c.governor.Acquire(ctx, host)
	if err != nil {
		return nil, err
	}

	c.requestCount++
	if c.rotateEveryN > 0 && c.requestCount%c.rotateEveryN == 0 {
		c.identity = c.pool.Random()
		c.logger.Debug().Str("user_agent", c.identity.UserAgent).Msg("Rotated user agent")
	}

	resp := c.do(ctx, c.client, http.MethodGet, rawURL)

	if resp.Success {
		c.governor.ReportSuccess(host)
	} else {
		c.governor.ReportError(host, resp.StatusCode)
	}

	c.logger.Debug().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Dur("delay", delay).
		Int64("elapsed_ms", resp.ElapsedMS).
		Msg("GET completed")

	return resp, nil
}

// GetWithRetry composes Get with the governor's retry policy
func (c *Client) GetWithRetry(ctx context.Context, rawURL string) (*models.FetchResponse, error) {
	var resp *models.FetchResponse
	var err error

	for attempt := 0; ; attempt++ {
		resp, err = c.Get(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if resp.Success {
			return resp, nil
		}
		if !c.governor.ShouldRetry(resp.StatusCode, attempt) {
			return resp, nil
		}

		backoff := c.governor.RetryDelay(attempt)
		c.logger.Debug().
			Str("url", rawURL).
			Int("attempt", attempt+1).
			Int("status", resp.StatusCode).
			Dur("backoff", backoff).
			Msg("Retrying after backoff")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Head issues a paced HEAD probe with a shorter timeout and without
// advancing the identity rotation
func (c *Client) Head(ctx context.Context, rawURL string) (*models.FetchResponse, error) {
	host := hostOf(rawURL)

	if _, err := c.governor.Acquire(ctx, host); err != nil {
		return nil, err
	}

	resp := c.do(ctx, c.headClient, http.MethodHead, rawURL)

	if resp.Success {
		c.governor.ReportSuccess(host)
	} else {
		c.governor.ReportError(host, resp.StatusCode)
	}
	return resp, nil
}

// Close releases idle connections
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, client *http.Client, method, rawURL string) *models.FetchResponse {
	start := time.Now()
	result := &models.FetchResponse{URL: rawURL, FinalURL: rawURL}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	req.Header.Set("User-Agent", c.identity.UserAgent)
	for key, value := range useragent.Headers(c.identity) {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	result.ElapsedMS = time.Since(start).Milliseconds()
	if err != nil {
		// Keep the caller's view uniform: cancellation propagates, network
		// failures are data.
		if errors.Is(err, context.Canceled) {
			result.Error = context.Canceled.Error()
			return result
		}
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.FinalURL = resp.Request.URL.String()
	result.Headers = foldHeaders(resp.Header)

	if method != http.MethodHead {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			result.Error = fmt.Sprintf("read body: %v", err)
			return result
		}
		result.Body = string(body)
	}

	result.ElapsedMS = time.Since(start).Milliseconds()
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 400
	if !result.Success {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return result
}

func foldHeaders(h http.Header) map[string]string {
	folded := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) > 0 {
			folded[strings.ToLower(key)] = values[0]
		}
	}
	return folded
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
