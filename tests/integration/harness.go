//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/solarfin/backend/internal/application/negotiation"
	"github.com/solarfin/backend/internal/infrastructure/auth"
	"github.com/solarfin/backend/internal/infrastructure/backend"
	"github.com/solarfin/backend/internal/infrastructure/cache"
	"github.com/solarfin/backend/internal/infrastructure/config"
	"github.com/solarfin/backend/internal/infrastructure/persistence"
	"github.com/solarfin/backend/internal/interfaces/http/handler"
	"github.com/solarfin/backend/internal/interfaces/http/middleware"
	"github.com/solarfin/backend/internal/interfaces/http/router"
	"github.com/solarfin/backend/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Harness is the full service wired to a fake upstream and a real audit store
type Harness struct {
	Engine   http.Handler
	Upstream *testutil.FakeUpstream
	Fixtures *testutil.Fixtures

	jwt    *auth.JWTService
	tokens map[string]string
}

// NewHarness builds the engine the way the server binary does
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	db := NewTestDB(t)

	h := &Harness{
		Fixtures: testutil.NewFixtures(42),
		jwt:      auth.NewJWTService(config.JWTConfig{Secret: "integration-secret-at-least-32-chars", Issuer: "solar-identity"}),
		tokens:   map[string]string{},
	}
	h.Upstream = testutil.NewFakeUpstream(t, func(token string) string {
		claims, err := h.jwt.ValidateAccessToken(token)
		if err != nil {
			return ""
		}
		return claims.ViewerID()
	})

	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL: h.Upstream.URL(),
			Timeout: 5 * time.Second,
			Paths:   config.DefaultUpstreamPaths(),
		},
		HTTP: config.HTTPConfig{
			MaxBodySize:      1 << 20,
			MetricsPath:      "/metrics",
			MetricsNamespace: "solar",
		},
		Cache:        config.CacheConfig{EntityTTL: time.Minute, ListTTL: 30 * time.Second},
		Confirmation: config.ConfirmationConfig{TTL: time.Minute},
		Telemetry:    config.TelemetryConfig{ServiceName: "solar-integration"},
	}

	log := zap.NewNop()
	store := cache.NewInMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	loader := cache.NewLoader(store, nil, log, cache.WithFlightScope(backend.BearerToken))

	client := backend.NewClient(cfg.Upstream, log)
	policy := backend.CachePolicy{EntityTTL: cfg.Cache.EntityTTL, ListTTL: cfg.Cache.ListTTL}
	service := negotiation.NewService(
		backend.NewLoans(client, cfg.Upstream.Paths, loader, policy),
		backend.NewQuotes(client, cfg.Upstream.Paths, loader, policy),
		loader, store, log,
		negotiation.WithConfirmationTTL(cfg.Confirmation.TTL),
		negotiation.WithTransitionRepository(persistence.NewGormTransitionRepository(db.DB)),
	)

	middleware.SetupValidator()
	h.Engine = router.NewEngine(router.Dependencies{
		Config:    cfg,
		Logger:    log,
		Validator: h.jwt,
		Metrics:   middleware.NewHTTPMetrics(cfg.HTTP.MetricsNamespace),
		Loans:     handler.NewLoanHandler(service),
		Quotes:    handler.NewQuoteHandler(service),
		Health:    handler.NewHealthHandler(map[string]handler.Pinger{"cache": store, "database": db}),
	})
	return h
}

// Token returns a cached access token for userID
func (h *Harness) Token(t *testing.T, userID string) string {
	t.Helper()
	if tok, ok := h.tokens[userID]; ok {
		return tok
	}
	tok, err := h.jwt.GenerateToken(userID, "portal", time.Hour)
	require.NoError(t, err)
	h.tokens[userID] = tok
	return tok
}
