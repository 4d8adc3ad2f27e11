// Package negotiation runs the loan and quote action engines: it builds each
// viewer's action menu, authorizes and executes transitions against the
// upstream API, and keeps the response cache consistent afterwards.
package negotiation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/domain/loan"
	"github.com/solarfin/backend/internal/domain/quote"
	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const defaultConfirmationTTL = 2 * time.Minute

// LoanGateway is the upstream loan API
type LoanGateway interface {
	Get(ctx context.Context, id string) (loan.Loan, error)
	List(ctx context.Context, viewerID string) ([]loan.Loan, error)
	Refresh(ctx context.Context, id string) (loan.Loan, error)
	EntityKey(id string) string
	ListKey(viewerID string) string

	Cancel(ctx context.Context, id string) (shared.Optional[string], error)
	Reject(ctx context.Context, id string) (shared.Optional[string], error)
	SignAgreement(ctx context.Context, id string) (shared.Optional[string], error)
	Accept(ctx context.Context, id string) (shared.Optional[string], error)
	PayDownpayment(ctx context.Context, id string) (shared.Optional[string], error)
	Liquidate(ctx context.Context, id string) (shared.Optional[string], error)
}

// QuoteGateway is the upstream quote request API
type QuoteGateway interface {
	Get(ctx context.Context, id string) (quote.QuoteRequest, error)
	List(ctx context.Context, viewerID string) ([]quote.QuoteRequest, error)
	Refresh(ctx context.Context, id string) (quote.QuoteRequest, error)
	EntityKey(id string) string
	ListKey(viewerID string) string

	Send(ctx context.Context, id string, amount decimal.Decimal, message shared.Optional[string]) (shared.Optional[string], error)
	Negotiate(ctx context.Context, id string, counter decimal.Decimal, message shared.Optional[string]) (shared.Optional[string], error)
	Accept(ctx context.Context, id string) (shared.Optional[string], error)
	Reject(ctx context.Context, id string) (shared.Optional[string], error)
	Pay(ctx context.Context, id string) (shared.Optional[string], error)
}

// CacheInvalidator drops cached upstream responses
type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// ConfirmationStore issues and consumes single-use confirmation tokens
type ConfirmationStore interface {
	Issue(ctx context.Context, scope string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, scope, token string) error
}

// EntityWatcher is told about every entity a viewer looks at
type EntityWatcher interface {
	Watch(kind audit.EntityKind, id string)
}

// Service is the negotiation application service
type Service struct {
	loans         LoanGateway
	quotes        QuoteGateway
	cache         CacheInvalidator
	confirmations ConfirmationStore
	transitions   audit.TransitionRepository
	watcher       EntityWatcher
	metrics       *telemetry.NegotiationMetrics
	logger        *zap.Logger

	confirmationTTL time.Duration
	now             func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithTransitionRepository enables the audit trail
func WithTransitionRepository(repo audit.TransitionRepository) Option {
	return func(s *Service) { s.transitions = repo }
}

// WithWatcher registers viewed entities for background refresh
func WithWatcher(w EntityWatcher) Option {
	return func(s *Service) { s.watcher = w }
}

// WithMetrics records transition and confirmation counters
func WithMetrics(m *telemetry.NegotiationMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithConfirmationTTL sets how long a confirmation token stays valid
func WithConfirmationTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.confirmationTTL = ttl
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the service. cache may be nil when responses are not cached.
func NewService(
	loans LoanGateway,
	quotes QuoteGateway,
	cache CacheInvalidator,
	confirmations ConfirmationStore,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		loans:           loans,
		quotes:          quotes,
		cache:           cache,
		confirmations:   confirmations,
		logger:          logger.Named("negotiation"),
		confirmationTTL: defaultConfirmationTTL,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) watch(kind audit.EntityKind, id string) {
	if s.watcher != nil {
		s.watcher.Watch(kind, id)
	}
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("Failed to invalidate cached responses", zap.Strings("keys", keys), zap.Error(err))
	}
}
