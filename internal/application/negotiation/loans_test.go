package negotiation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/domain/loan"
	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/infrastructure/backend"
	"github.com/solarfin/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type loanFixture struct {
	loans   *MockLoanGateway
	inv     *MockInvalidator
	repo    *MockTransitionRepository
	watcher *recordingWatcher
	store   *cache.InMemoryStore
	svc     *Service
}

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newLoanFixture(t *testing.T) *loanFixture {
	t.Helper()
	f := &loanFixture{
		loans:   new(MockLoanGateway),
		inv:     new(MockInvalidator),
		repo:    new(MockTransitionRepository),
		watcher: &recordingWatcher{},
		store:   cache.NewInMemoryStore(),
	}
	t.Cleanup(func() { _ = f.store.Close() })
	f.svc = NewService(f.loans, new(MockQuoteGateway), f.inv, f.store, zap.NewNop(),
		WithTransitionRepository(f.repo),
		WithWatcher(f.watcher),
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func customerLoan(status loan.Status) loan.Loan {
	return loan.Loan{ID: "L1", CustomerID: "u1", Status: status}
}

func (f *loanFixture) expectSuccessPath(t *testing.T, after loan.Loan) {
	t.Helper()
	f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.inv.On("Invalidate", mock.Anything, []string{"loan/L1", "u1|loans"}).Return(nil).Once()
	f.loans.On("Refresh", mock.Anything, "L1").Return(after, nil).Once()
}

func TestExecuteLoanAction_DangerNeedsConfirmation(t *testing.T) {
	dangers := []struct {
		status loan.Status
		action shared.ActionKey
	}{
		{loan.StatusPending, loan.ActionCancel},
		{loan.StatusOfferReceived, loan.ActionReject},
		{loan.StatusAwaitingDownpayment, loan.ActionCancel},
		{loan.StatusActive, loan.ActionLiquidate},
	}
	for _, tt := range dangers {
		t.Run(string(tt.status)+"/"+tt.action.String(), func(t *testing.T) {
			f := newLoanFixture(t)
			f.loans.On("Get", mock.Anything, "L1").Return(customerLoan(tt.status), nil)

			_, err := f.svc.ExecuteLoanAction(context.Background(), LoanActionCommand{ViewerID: "u1", LoanID: "L1", Action: tt.action})
			assert.ErrorIs(t, err, shared.ErrConfirmationRequired)

			_, err = f.svc.ExecuteLoanAction(context.Background(), LoanActionCommand{
				ViewerID: "u1", LoanID: "L1", Action: tt.action, ConfirmationToken: "forged",
			})
			assert.ErrorIs(t, err, shared.ErrConfirmationRequired)

			for _, m := range []string{"Cancel", "Reject", "Liquidate"} {
				f.loans.AssertNotCalled(t, m, mock.Anything, mock.Anything)
			}
			f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestExecuteLoanAction_ConfirmedCancel(t *testing.T) {
	ctx := context.Background()
	f := newLoanFixture(t)
	f.loans.On("Get", mock.Anything, "L1").Return(customerLoan(loan.StatusPending), nil)
	f.loans.On("Cancel", mock.Anything, "L1").Return(shared.Present("Loan request has been cancelled"), nil).Once()
	f.expectSuccessPath(t, customerLoan(loan.StatusRejected))

	conf, err := f.svc.IssueLoanConfirmation(ctx, "u1", "L1", loan.ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(defaultConfirmationTTL), conf.ExpiresAt)

	res, err := f.svc.ExecuteLoanAction(ctx, LoanActionCommand{
		ViewerID: "u1", LoanID: "L1", Action: loan.ActionCancel, ConfirmationToken: conf.Token,
	})
	require.NoError(t, err)
	assert.Equal(t, "Loan request has been cancelled", res.Message, "upstream message is passed through")
	require.NotNil(t, res.Loan)
	assert.Equal(t, "REJECTED", res.Loan.Status)
	assert.Equal(t, []string{"loan:L1"}, f.watcher.keys)

	f.repo.AssertCalled(t, "Save", mock.Anything, mock.MatchedBy(func(r *audit.TransitionRecord) bool {
		return r.Outcome == audit.OutcomeSucceeded && r.FromStatus == "PENDING" && r.Action == loan.ActionCancel
	}))

	_, err = f.svc.ExecuteLoanAction(ctx, LoanActionCommand{
		ViewerID: "u1", LoanID: "L1", Action: loan.ActionCancel, ConfirmationToken: conf.Token,
	})
	assert.ErrorIs(t, err, shared.ErrConfirmationRequired, "tokens are single use")
	f.loans.AssertNumberOfCalls(t, "Cancel", 1)
}

func TestExecuteLoanAction_ConfirmationBoundToViewer(t *testing.T) {
	ctx := context.Background()
	f := newLoanFixture(t)
	f.loans.On("Get", mock.Anything, "L1").Return(customerLoan(loan.StatusActive), nil)
	f.loans.On("Refresh", mock.Anything, "L1").Return(customerLoan(loan.StatusActive), nil)

	conf, err := f.svc.IssueLoanConfirmation(ctx, "u1", "L1", loan.ActionLiquidate)
	require.NoError(t, err)

	_, err = f.svc.ExecuteLoanAction(ctx, LoanActionCommand{
		ViewerID: "admin", LoanID: "L1", Action: loan.ActionLiquidate, ConfirmationToken: conf.Token,
	})
	assert.ErrorIs(t, err, shared.ErrConfirmationRequired)
	f.loans.AssertNotCalled(t, "Liquidate", mock.Anything, mock.Anything)
}

func TestExecuteLoanAction_AcceptSignsAgreementFirst(t *testing.T) {
	tests := []struct {
		name      string
		agreement shared.Optional[string]
		wantSign  bool
	}{
		{"unsigned", shared.Absent[string](), true},
		{"document pending", shared.Present("https://docs/agreement.pdf"), true},
		{"already signed", shared.Present("signed"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLoanFixture(t)
			l := customerLoan(loan.StatusOfferReceived)
			l.LoanAgreement = tt.agreement
			f.loans.On("Get", mock.Anything, "L1").Return(l, nil)

			var order []string
			f.loans.On("SignAgreement", mock.Anything, "L1").Return(none, nil).Run(func(mock.Arguments) { order = append(order, "sign") })
			f.loans.On("Accept", mock.Anything, "L1").Return(none, nil).Run(func(mock.Arguments) { order = append(order, "accept") })
			f.expectSuccessPath(t, customerLoan(loan.StatusAwaitingDownpayment))

			res, err := f.svc.ExecuteLoanAction(context.Background(), LoanActionCommand{ViewerID: "u1", LoanID: "L1", Action: loan.ActionAccept})
			require.NoError(t, err)
			assert.Equal(t, "Loan offer accepted", res.Message)
			if tt.wantSign {
				assert.Equal(t, []string{"sign", "accept"}, order)
			} else {
				assert.Equal(t, []string{"accept"}, order)
			}
		})
	}
}

func TestExecuteLoanAction_Failure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantMsg    string
		wantCode   string
		wantStatus int
	}{
		{
			name:       "upstream message passthrough",
			err:        &backend.UpstreamError{Operation: "loan.accept", StatusCode: 400, Message: shared.Present("Offer expired")},
			wantMsg:    "Offer expired",
			wantCode:   CodeUpstreamRejected,
			wantStatus: 400,
		},
		{
			name:       "generic fallback",
			err:        &backend.UpstreamError{Operation: "loan.accept", StatusCode: 500},
			wantMsg:    "Failed to accept loan offer. Please try again.",
			wantCode:   CodeUpstreamRejected,
			wantStatus: 500,
		},
		{
			name:     "transport failure",
			err:      errors.Join(backend.ErrUpstreamUnavailable, context.DeadlineExceeded),
			wantMsg:  "Failed to accept loan offer. Please try again.",
			wantCode: CodeUpstreamUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLoanFixture(t)
			l := customerLoan(loan.StatusOfferReceived)
			l.LoanAgreement = shared.Present("signed")
			f.loans.On("Get", mock.Anything, "L1").Return(l, nil)
			f.loans.On("Accept", mock.Anything, "L1").Return(none, tt.err)
			f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

			_, err := f.svc.ExecuteLoanAction(context.Background(), LoanActionCommand{ViewerID: "u1", LoanID: "L1", Action: loan.ActionAccept})

			var afe *ActionFailedError
			require.ErrorAs(t, err, &afe)
			assert.Equal(t, tt.wantMsg, afe.Message)
			assert.Equal(t, tt.wantCode, afe.Code())
			assert.Equal(t, tt.wantStatus, afe.StatusCode)
			f.inv.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
			f.loans.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
			f.repo.AssertCalled(t, "Save", mock.Anything, mock.MatchedBy(func(r *audit.TransitionRecord) bool {
				return r.Outcome == audit.OutcomeFailed && r.Message == tt.wantMsg
			}))
		})
	}
}

func TestExecuteLoanAction_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		status  loan.Status
		action  shared.ActionKey
		wantErr error
	}{
		{"liquidate pending loan", loan.StatusPending, loan.ActionLiquidate, shared.ErrActionNotPermitted},
		{"accept active loan", loan.StatusActive, loan.ActionAccept, shared.ErrActionNotPermitted},
		{"anything on completed loan", loan.StatusCompleted, loan.ActionCancel, shared.ErrActionNotPermitted},
		{"unknown action", loan.StatusPending, "delete", shared.ErrUnknownAction},
		{"view is not a transition", loan.StatusPending, loan.ActionView, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLoanFixture(t)
			f.loans.On("Get", mock.Anything, "L1").Return(customerLoan(tt.status), nil)

			_, err := f.svc.ExecuteLoanAction(context.Background(), LoanActionCommand{ViewerID: "u1", LoanID: "L1", Action: tt.action})
			assert.ErrorIs(t, err, tt.wantErr)
			f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestExecuteLoanAction_RefetchFailureStillSucceeds(t *testing.T) {
	f := newLoanFixture(t)
	f.loans.On("Get", mock.Anything, "L1").Return(customerLoan(loan.StatusAwaitingDownpayment), nil)
	f.loans.On("PayDownpayment", mock.Anything, "L1").Return(none, nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.inv.On("Invalidate", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	f.loans.On("Refresh", mock.Anything, "L1").Return(loan.Loan{}, backend.ErrUpstreamUnavailable)

	res, err := f.svc.ExecuteLoanAction(context.Background(), LoanActionCommand{ViewerID: "u1", LoanID: "L1", Action: loan.ActionPayDownpayment})
	require.NoError(t, err)
	assert.Equal(t, "Downpayment submitted", res.Message)
	assert.Nil(t, res.Loan)
}

func TestGetLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("customer is served from the cache path", func(t *testing.T) {
		f := newLoanFixture(t)
		l := customerLoan(loan.StatusActive)
		l.NextDueDate = shared.Present(fixedNow.Add(-24 * time.Hour))
		f.loans.On("Get", mock.Anything, "L1").Return(l, nil)

		got, err := f.svc.GetLoan(ctx, "u1", "L1")
		require.NoError(t, err)
		assert.Equal(t, "ACTIVE", got.Status)
		assert.Equal(t, "OVERDUE", got.DisplayStatus)
		require.Len(t, got.Actions, 2)
		assert.Equal(t, "liquidate", got.Actions[1].Key)
		assert.True(t, got.Actions[1].RequiresConfirmation)
		f.loans.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	t.Run("other viewers get a fresh read", func(t *testing.T) {
		f := newLoanFixture(t)
		f.loans.On("Get", mock.Anything, "L1").Return(customerLoan(loan.StatusPending), nil)
		f.loans.On("Refresh", mock.Anything, "L1").Return(customerLoan(loan.StatusPending), nil).Once()

		_, err := f.svc.GetLoan(ctx, "admin", "L1")
		require.NoError(t, err)
		f.loans.AssertExpectations(t)
	})

	t.Run("upstream 404 maps to not found", func(t *testing.T) {
		f := newLoanFixture(t)
		f.loans.On("Get", mock.Anything, "L9").Return(loan.Loan{}, &backend.UpstreamError{StatusCode: 404})

		_, err := f.svc.GetLoan(ctx, "u1", "L9")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("blank id", func(t *testing.T) {
		f := newLoanFixture(t)
		_, err := f.svc.GetLoan(ctx, "u1", " ")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestIssueLoanConfirmation_DefaultToneRefused(t *testing.T) {
	f := newLoanFixture(t)
	f.loans.On("Get", mock.Anything, "L1").Return(customerLoan(loan.StatusAwaitingDownpayment), nil)

	_, err := f.svc.IssueLoanConfirmation(context.Background(), "u1", "L1", loan.ActionPayDownpayment)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, 0, f.store.Len())
}

func TestListLoans(t *testing.T) {
	f := newLoanFixture(t)
	f.loans.On("List", mock.Anything, "u1").Return([]loan.Loan{
		customerLoan(loan.StatusPending),
		customerLoan(loan.StatusAwaitingDisbursement),
	}, nil)

	got, err := f.svc.ListLoans(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AWAITING_LOAN_DISBURSEMENT", got[1].DisplayStatus)
	assert.Len(t, got[1].Actions, 1)
}

func TestLoanTransitions(t *testing.T) {
	f := newLoanFixture(t)
	rec, err := audit.NewTransitionRecord(audit.EntityKindLoan, "L1", loan.ActionCancel, "u1", "PENDING", audit.OutcomeSucceeded, "ok")
	require.NoError(t, err)
	filter := shared.Filter{Page: 1, PageSize: 10}
	f.loans.On("Get", mock.Anything, "L1").Return(customerLoan(loan.StatusRejected), nil)
	f.repo.On("FindByEntity", mock.Anything, audit.EntityKindLoan, "L1", filter).Return([]audit.TransitionRecord{*rec}, int64(1), nil)

	page, err := f.svc.LoanTransitions(context.Background(), "u1", "L1", filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "cancel", page.Items[0].Action)
}

func TestLoanTransitions_NonCustomer(t *testing.T) {
	ctx := context.Background()
	filter := shared.Filter{Page: 1, PageSize: 10}

	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"forbidden", 403, shared.ErrForbidden},
		{"hidden", 404, shared.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLoanFixture(t)
			f.loans.On("Get", mock.Anything, "L1").Return(customerLoan(loan.StatusActive), nil)
			f.loans.On("Refresh", mock.Anything, "L1").Return(loan.Loan{}, &backend.UpstreamError{StatusCode: tt.status}).Once()

			_, err := f.svc.LoanTransitions(ctx, "u2", "L1", filter)
			assert.ErrorIs(t, err, tt.wantErr)
			f.repo.AssertNotCalled(t, "FindByEntity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
