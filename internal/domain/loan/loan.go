package loan

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solarfin/backend/internal/domain/shared"
)

// AgreementMarkerSigned is the loan_agreement value the backend stores once
// the customer has signed the offer agreement.
const AgreementMarkerSigned = "signed"

// DisplayStatus is an admin-facing status derived from business rules.
// It never feeds the action menu.
type DisplayStatus string

const (
	DisplayStatusOverdue                  DisplayStatus = "OVERDUE"
	DisplayStatusAwaitingLoanDisbursement DisplayStatus = "AWAITING_LOAN_DISBURSEMENT"
)

// Loan is a loan request or serviced loan as supplied by the backend.
// Monetary values are computed upstream and are read-only here.
type Loan struct {
	ID         string
	CustomerID string
	Status     Status

	TransactionCost    shared.Optional[decimal.Decimal]
	RequestedAmount    shared.Optional[decimal.Decimal]
	OfferedAmount      shared.Optional[decimal.Decimal]
	DownpaymentPercent shared.Optional[decimal.Decimal]
	DownpaymentAmount  shared.Optional[decimal.Decimal]
	InterestRate       shared.Optional[decimal.Decimal]
	TotalRepayment     shared.Optional[decimal.Decimal]
	OutstandingBalance shared.Optional[decimal.Decimal]

	LoanAgreement shared.Optional[string]
	NextDueDate   shared.Optional[time.Time]
	CreatedAt     shared.Optional[time.Time]
}

// AgreementSigned reports whether the offer agreement has already been signed
func (l *Loan) AgreementSigned() bool {
	v, ok := l.LoanAgreement.Get()
	return ok && strings.EqualFold(strings.TrimSpace(v), AgreementMarkerSigned)
}

// Actions returns the action menu for the loan
func (l *Loan) Actions() []shared.Action {
	return ActionsFor(l.Status)
}

// DisplayStatus returns the admin-facing status at the given instant
func (l *Loan) DisplayStatus(now time.Time) string {
	switch l.Status {
	case StatusActive:
		if due, ok := l.NextDueDate.Get(); ok && due.Before(now) {
			return string(DisplayStatusOverdue)
		}
	case StatusAwaitingDisbursement:
		return string(DisplayStatusAwaitingLoanDisbursement)
	}
	return l.Status.String()
}
