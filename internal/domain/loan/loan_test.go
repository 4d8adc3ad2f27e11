package loan

import (
	"errors"
	"testing"
	"time"

	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Status Tests
// ============================================

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"PENDING", StatusPending},
		{"pending", StatusPending},
		{"offer_received", StatusOfferReceived},
		{"Offer Received", StatusOfferReceived},
		{"awaiting-downpayment", StatusAwaitingDownpayment},
		{" ACTIVE ", StatusActive},
		{"completed", StatusCompleted},
		{"REJECTED", StatusRejected},
		{"cancelled", StatusRejected},
		{"AWAITING_LOAN_DISBURSEMENT", StatusAwaitingDisbursement},
		{"Overdue", StatusActive},
		{"", StatusPending},
		{"SOMETHING_NEW", StatusPending},
		{"💸", StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, NormalizeStatus(tt.raw))
			})
		})
	}
}

func TestNormalizeStatus_Idempotent(t *testing.T) {
	inputs := []string{"pending", "offer received", "ACTIVE", "garbage", "", "cancelled", "overdue"}
	for _, raw := range inputs {
		once := NormalizeStatus(raw)
		assert.Equal(t, once, NormalizeStatus(once.String()), raw)
	}
	for _, s := range AllStatuses() {
		assert.Equal(t, s, NormalizeStatus(s.String()))
	}
}

func TestStatus_IsValid(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Status("OVERDUE").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     Status
		to       Status
		canTrans bool
	}{
		{StatusPending, StatusOfferReceived, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusActive, false},
		{StatusOfferReceived, StatusAwaitingDownpayment, true},
		{StatusOfferReceived, StatusAwaitingDisbursement, true},
		{StatusOfferReceived, StatusRejected, true},
		{StatusAwaitingDownpayment, StatusAwaitingDisbursement, true},
		{StatusAwaitingDownpayment, StatusRejected, true},
		{StatusAwaitingDisbursement, StatusActive, true},
		{StatusAwaitingDisbursement, StatusRejected, false},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusPending, false},
		{StatusCompleted, StatusActive, false},
		{StatusRejected, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
}

// ============================================
// Action Menu Tests
// ============================================

func TestActionsFor(t *testing.T) {
	tests := []struct {
		status Status
		labels []string
		danger []shared.ActionKey
	}{
		{StatusPending, []string{"View Loan", "Cancel Request"}, []shared.ActionKey{ActionCancel}},
		{StatusOfferReceived, []string{"View Offer", "Accept Offer", "Reject Offer"}, []shared.ActionKey{ActionReject}},
		{StatusAwaitingDownpayment, []string{"View Loan", "Pay Downpayment", "Cancel Request"}, []shared.ActionKey{ActionCancel}},
		{StatusAwaitingDisbursement, []string{"View Loan"}, nil},
		{StatusActive, []string{"View Loan", "Liquidate Loan"}, []shared.ActionKey{ActionLiquidate}},
		{StatusCompleted, []string{"View Loan"}, nil},
		{StatusRejected, []string{"View Loan"}, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			menu := ActionsFor(tt.status)
			assert.Equal(t, tt.labels, shared.Labels(menu))

			var danger []shared.ActionKey
			for _, a := range menu {
				if a.RequiresConfirmation() {
					danger = append(danger, a.Key)
				}
			}
			assert.Equal(t, tt.danger, danger)
		})
	}
}

func TestActionsFor_ActiveLoanIgnoresViewer(t *testing.T) {
	l := &Loan{ID: "L1", CustomerID: "U1", Status: StatusActive}
	assert.Equal(t, []string{"View Loan", "Liquidate Loan"}, shared.Labels(l.Actions()))
}

func TestAuthorize(t *testing.T) {
	action, err := Authorize(StatusOfferReceived, ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, "Accept Offer", action.Label)

	_, err = Authorize(StatusActive, ActionAccept)
	assert.True(t, errors.Is(err, shared.ErrActionNotPermitted))

	_, err = Authorize(StatusActive, "explode")
	assert.True(t, errors.Is(err, shared.ErrUnknownAction))

	// every menu entry authorizes, for every status
	for _, s := range AllStatuses() {
		for _, a := range ActionsFor(s) {
			got, err := Authorize(s, a.Key)
			require.NoError(t, err)
			assert.Equal(t, a, got)
		}
	}
}

// ============================================
// Loan Entity Tests
// ============================================

func TestLoan_AgreementSigned(t *testing.T) {
	l := &Loan{}
	assert.False(t, l.AgreementSigned())

	l.LoanAgreement = shared.Present("https://files.example/agreement.pdf")
	assert.False(t, l.AgreementSigned())

	l.LoanAgreement = shared.Present("Signed")
	assert.True(t, l.AgreementSigned())
}

func TestLoan_DisplayStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	overdue := &Loan{Status: StatusActive, NextDueDate: shared.Present(now.Add(-24 * time.Hour))}
	assert.Equal(t, "OVERDUE", overdue.DisplayStatus(now))

	current := &Loan{Status: StatusActive, NextDueDate: shared.Present(now.Add(24 * time.Hour))}
	assert.Equal(t, "ACTIVE", current.DisplayStatus(now))

	noDueDate := &Loan{Status: StatusActive}
	assert.Equal(t, "ACTIVE", noDueDate.DisplayStatus(now))

	disbursing := &Loan{Status: StatusAwaitingDisbursement}
	assert.Equal(t, "AWAITING_LOAN_DISBURSEMENT", disbursing.DisplayStatus(now))

	// display status never leaks into the menu
	assert.Equal(t, []string{"View Loan", "Liquidate Loan"}, shared.Labels(overdue.Actions()))
}
