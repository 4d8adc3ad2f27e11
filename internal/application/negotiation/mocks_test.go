package negotiation

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/domain/loan"
	"github.com/solarfin/backend/internal/domain/quote"
	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockLoanGateway is a mock implementation of LoanGateway
type MockLoanGateway struct {
	mock.Mock
}

func (m *MockLoanGateway) Get(ctx context.Context, id string) (loan.Loan, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(loan.Loan), args.Error(1)
}

func (m *MockLoanGateway) List(ctx context.Context, viewerID string) ([]loan.Loan, error) {
	args := m.Called(ctx, viewerID)
	return args.Get(0).([]loan.Loan), args.Error(1)
}

func (m *MockLoanGateway) Refresh(ctx context.Context, id string) (loan.Loan, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(loan.Loan), args.Error(1)
}

func (m *MockLoanGateway) EntityKey(id string) string { return "loan/" + id }

func (m *MockLoanGateway) ListKey(viewerID string) string { return viewerID + "|loans" }

func (m *MockLoanGateway) Cancel(ctx context.Context, id string) (shared.Optional[string], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(shared.Optional[string]), args.Error(1)
}

func (m *MockLoanGateway) Reject(ctx context.Context, id string) (shared.Optional[string], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(shared.Optional[string]), args.Error(1)
}

func (m *MockLoanGateway) SignAgreement(ctx context.Context, id string) (shared.Optional[string], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(shared.Optional[string]), args.Error(1)
}

func (m *MockLoanGateway) Accept(ctx context.Context, id string) (shared.Optional[string], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(shared.Optional[string]), args.Error(1)
}

func (m *MockLoanGateway) PayDownpayment(ctx context.Context, id string) (shared.Optional[string], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(shared.Optional[string]), args.Error(1)
}

func (m *MockLoanGateway) Liquidate(ctx context.Context, id string) (shared.Optional[string], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(shared.Optional[string]), args.Error(1)
}

// MockQuoteGateway is a mock implementation of QuoteGateway
type MockQuoteGateway struct {
	mock.Mock
}

func (m *MockQuoteGateway) Get(ctx context.Context, id string) (quote.QuoteRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(quote.QuoteRequest), args.Error(1)
}

func (m *MockQuoteGateway) List(ctx context.Context, viewerID string) ([]quote.QuoteRequest, error) {
	args := m.Called(ctx, viewerID)
	return args.Get(0).([]quote.QuoteRequest), args.Error(1)
}

func (m *MockQuoteGateway) Refresh(ctx context.Context, id string) (quote.QuoteRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(quote.QuoteRequest), args.Error(1)
}

func (m *MockQuoteGateway) EntityKey(id string) string { return "quote/" + id }

func (m *MockQuoteGateway) ListKey(viewerID string) string { return viewerID + "|quotes" }

func (m *MockQuoteGateway) Send(ctx context.Context, id string, amount decimal.Decimal, message shared.Optional[string]) (shared.Optional[string], error) {
	args := m.Called(ctx, id, amount.String(), message)
	return args.Get(0).(shared.Optional[string]), args.Error(1)
}

func (m *MockQuoteGateway) Negotiate(ctx context.Context, id string, counter decimal.Decimal, message shared.Optional[string]) (shared.Optional[string], error) {
	args := m.Called(ctx, id, counter.String(), message)
	return args.Get(0).(shared.Optional[string]), args.Error(1)
}

func (m *MockQuoteGateway) Accept(ctx context.Context, id string) (shared.Optional[string], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(shared.Optional[string]), args.Error(1)
}

func (m *MockQuoteGateway) Reject(ctx context.Context, id string) (shared.Optional[string], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(shared.Optional[string]), args.Error(1)
}

func (m *MockQuoteGateway) Pay(ctx context.Context, id string) (shared.Optional[string], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(shared.Optional[string]), args.Error(1)
}

// MockInvalidator is a mock implementation of CacheInvalidator
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// MockTransitionRepository is a mock implementation of audit.TransitionRepository
type MockTransitionRepository struct {
	mock.Mock
}

func (m *MockTransitionRepository) Save(ctx context.Context, record *audit.TransitionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockTransitionRepository) FindByEntity(ctx context.Context, kind audit.EntityKind, entityID string, filter shared.Filter) ([]audit.TransitionRecord, int64, error) {
	args := m.Called(ctx, kind, entityID, filter)
	return args.Get(0).([]audit.TransitionRecord), args.Get(1).(int64), args.Error(2)
}

type recordingWatcher struct {
	mu   sync.Mutex
	keys []string
}

func (w *recordingWatcher) Watch(kind audit.EntityKind, id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keys = append(w.keys, string(kind)+":"+id)
}

var none = shared.Absent[string]()
