package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/solarfin/backend/internal/application/negotiation"
	"github.com/solarfin/backend/internal/application/negotiation/dto"
	"github.com/solarfin/backend/internal/domain/shared"
	httpdto "github.com/solarfin/backend/internal/interfaces/http/dto"
	"github.com/solarfin/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

const testViewerHeader = "X-Test-Viewer"

// newTestEngine stands in for JWTAuth by taking the viewer from a header
func newTestEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if v := c.GetHeader(testViewerHeader); v != "" {
			c.Set(middleware.JWTViewerIDKey, v)
		}
	})
	return engine
}

func perform(engine *gin.Engine, method, path, viewer, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if viewer != "" {
		req.Header.Set(testViewerHeader, viewer)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) httpdto.Response {
	t.Helper()
	var resp httpdto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) ListLoans(ctx context.Context, viewerID string) ([]dto.LoanResponse, error) {
	args := m.Called(ctx, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.LoanResponse), args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, viewerID, id string) (*dto.LoanResponse, error) {
	args := m.Called(ctx, viewerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LoanResponse), args.Error(1)
}

func (m *MockLoanService) IssueLoanConfirmation(ctx context.Context, viewerID, id string, key shared.ActionKey) (*dto.ConfirmationResponse, error) {
	args := m.Called(ctx, viewerID, id, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ConfirmationResponse), args.Error(1)
}

func (m *MockLoanService) ExecuteLoanAction(ctx context.Context, cmd negotiation.LoanActionCommand) (*dto.LoanActionResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LoanActionResult), args.Error(1)
}

func (m *MockLoanService) LoanTransitions(ctx context.Context, viewerID, id string, filter shared.Filter) (*shared.Paginated[dto.TransitionResponse], error) {
	args := m.Called(ctx, viewerID, id, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[dto.TransitionResponse]), args.Error(1)
}

type MockQuoteService struct {
	mock.Mock
}

func (m *MockQuoteService) ListQuotes(ctx context.Context, viewerID string) ([]dto.QuoteResponse, error) {
	args := m.Called(ctx, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.QuoteResponse), args.Error(1)
}

func (m *MockQuoteService) GetQuote(ctx context.Context, viewerID, id string) (*dto.QuoteResponse, error) {
	args := m.Called(ctx, viewerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.QuoteResponse), args.Error(1)
}

func (m *MockQuoteService) IssueQuoteConfirmation(ctx context.Context, viewerID, id string, key shared.ActionKey) (*dto.ConfirmationResponse, error) {
	args := m.Called(ctx, viewerID, id, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ConfirmationResponse), args.Error(1)
}

func (m *MockQuoteService) ExecuteQuoteAction(ctx context.Context, cmd negotiation.QuoteActionCommand) (*dto.QuoteActionResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.QuoteActionResult), args.Error(1)
}

func (m *MockQuoteService) QuoteTransitions(ctx context.Context, viewerID, id string, filter shared.Filter) (*shared.Paginated[dto.TransitionResponse], error) {
	args := m.Called(ctx, viewerID, id, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[dto.TransitionResponse]), args.Error(1)
}
