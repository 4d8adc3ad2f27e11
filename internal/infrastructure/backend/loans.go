package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/solarfin/backend/internal/domain/loan"
	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Upstream actionType values for loan transitions
const (
	loanActionCancelled = "cancelled"
	loanActionRejected  = "rejected"
	loanActionAccepted  = "accepted"
	loanActionSigned    = "signed"
)

// Loans talks to the loan endpoints
type Loans struct {
	gateway
	paths config.UpstreamPaths
}

// NewLoans creates the loan gateway. cache may be nil.
func NewLoans(client *Client, paths config.UpstreamPaths, cache ResponseCache, policy CachePolicy) *Loans {
	return &Loans{gateway: gateway{client: client, cache: cache, policy: policy}, paths: paths}
}

// EntityKey is the cache key of one loan
func (g *Loans) EntityKey(id string) string {
	return g.client.URL(ExpandPath(g.paths.LoanGet, id))
}

// ListKey is the cache key of the viewer's loan list
func (g *Loans) ListKey(viewerID string) string {
	return g.listKey(viewerID, g.paths.LoanList)
}

// Get loads one loan through the cache
func (g *Loans) Get(ctx context.Context, id string) (loan.Loan, error) {
	body, err := g.fetch(ctx, g.EntityKey(id), g.policy.EntityTTL, "loan.get", ExpandPath(g.paths.LoanGet, id))
	if err != nil {
		return loan.Loan{}, err
	}
	return decodeLoan(body, id)
}

// List loads the viewer's loans through the cache
func (g *Loans) List(ctx context.Context, viewerID string) ([]loan.Loan, error) {
	body, err := g.fetch(ctx, g.ListKey(viewerID), g.policy.ListTTL, "loan.list", g.paths.LoanList)
	if err != nil {
		return nil, err
	}
	wires, err := decodeList[wireLoan](body)
	if err != nil {
		return nil, fmt.Errorf("loan.list: %w", err)
	}
	loans := make([]loan.Loan, 0, len(wires))
	for _, w := range wires {
		loans = append(loans, w.toDomain())
	}
	return loans, nil
}

// Refresh bypasses the cache, stores the fresh body and returns the decoded entity
func (g *Loans) Refresh(ctx context.Context, id string) (loan.Loan, error) {
	path := ExpandPath(g.paths.LoanGet, id)
	body, err := g.client.get(ctx, "loan.refresh", path)
	if err != nil {
		return loan.Loan{}, err
	}
	v, err := decodeLoan(body, id)
	if err != nil {
		return loan.Loan{}, err
	}
	if g.cache != nil {
		if err := g.cache.Store(ctx, g.EntityKey(id), body, g.policy.EntityTTL); err != nil {
			g.client.logger.Warn("Failed to store refreshed entity", zap.String("id", id), zap.Error(err))
		}
	}
	return v, nil
}

func decodeLoan(body []byte, id string) (loan.Loan, error) {
	w, err := decodeOne[wireLoan](body)
	if err != nil {
		return loan.Loan{}, fmt.Errorf("loan.get %s: %w", id, err)
	}
	l := w.toDomain()
	if l.ID == "" {
		l.ID = id
	}
	return l, nil
}

// Cancel withdraws a loan request
func (g *Loans) Cancel(ctx context.Context, id string) (shared.Optional[string], error) {
	return g.client.action(ctx, "loan.cancel", http.MethodPost,
		ExpandPath(g.paths.LoanCancel, id), loanActionPayload{ActionType: loanActionCancelled})
}

// Reject declines the loan offer
func (g *Loans) Reject(ctx context.Context, id string) (shared.Optional[string], error) {
	return g.client.action(ctx, "loan.reject", http.MethodPatch,
		ExpandPath(g.paths.LoanAction, id), loanActionPayload{ActionType: loanActionRejected})
}

// SignAgreement marks the offer agreement signed. Idempotent upstream.
func (g *Loans) SignAgreement(ctx context.Context, id string) (shared.Optional[string], error) {
	return g.client.action(ctx, "loan.sign_agreement", http.MethodPatch,
		ExpandPath(g.paths.LoanAgreement, id), loanActionPayload{ActionType: loanActionSigned})
}

// Accept accepts the loan offer
func (g *Loans) Accept(ctx context.Context, id string) (shared.Optional[string], error) {
	return g.client.action(ctx, "loan.accept", http.MethodPatch,
		ExpandPath(g.paths.LoanAction, id), loanActionPayload{ActionType: loanActionAccepted})
}

// PayDownpayment records the downpayment
func (g *Loans) PayDownpayment(ctx context.Context, id string) (shared.Optional[string], error) {
	return g.client.action(ctx, "loan.pay_downpayment", http.MethodPatch, ExpandPath(g.paths.LoanDownpay, id), nil)
}

// Liquidate settles the outstanding balance early
func (g *Loans) Liquidate(ctx context.Context, id string) (shared.Optional[string], error) {
	return g.client.action(ctx, "loan.liquidate", http.MethodPatch, ExpandPath(g.paths.LoanLiquidate, id), nil)
}
