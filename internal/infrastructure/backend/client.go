// Package backend is the HTTP client for the loan and quote REST API this
// service fronts.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/infrastructure/config"
	"github.com/solarfin/backend/internal/infrastructure/logger"
	"github.com/solarfin/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultMaxResponseSize = 5 << 20

// ResponseCache stores raw upstream bodies by key
type ResponseCache interface {
	Fetch(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error)
	Store(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// Client issues requests against the upstream API
type Client struct {
	baseURL         string
	httpClient      *http.Client
	limiter         *rate.Limiter
	maxResponseSize int64
	metrics         *telemetry.NegotiationMetrics
	logger          *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default instrumented client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records upstream latency
func WithMetrics(m *telemetry.NegotiationMetrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg config.UpstreamConfig, log *zap.Logger, opts ...ClientOption) *Client {
	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	maxSize := cfg.MaxResponseSize
	if maxSize <= 0 {
		maxSize = defaultMaxResponseSize
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:         rate.NewLimiter(limit, burst),
		maxResponseSize: maxSize,
		logger:          log.Named("upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the absolute URL for path. It doubles as the cache key of an entity.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// ExpandPath substitutes the escaped id into a path template
func ExpandPath(template, id string) string {
	return strings.ReplaceAll(template, "{id}", url.PathEscape(id))
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	return c.do(ctx, op, http.MethodGet, path, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("upstream: failed to marshal %s payload: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("upstream: failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := BearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamCall(ctx, op, 0, time.Since(start))
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	c.metrics.RecordUpstreamCall(ctx, op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading body: %v", ErrUpstreamUnavailable, op, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		ue := newUpstreamError(op, resp.StatusCode, data)
		logger.L(ctx).Warn("Upstream rejected request",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode),
		)
		return nil, ue
	}
	return data, nil
}

// action issues a state-changing call and returns the envelope message
func (c *Client) action(ctx context.Context, op, method, path string, payload any) (shared.Optional[string], error) {
	data, err := c.do(ctx, op, method, path, payload)
	if err != nil {
		return shared.Absent[string](), err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return shared.Absent[string](), nil
	}
	res := DecodeEnvelope[json.RawMessage](data)
	if res.Kind() == ResultMalformed {
		// the call succeeded; only the message is lost
		c.logger.Debug("Unreadable action response", zap.String("operation", op), zap.Error(res.Err()))
		return shared.Absent[string](), nil
	}
	return res.Message(), nil
}
