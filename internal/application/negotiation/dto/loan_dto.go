package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/solarfin/backend/internal/domain/loan"
	"github.com/solarfin/backend/internal/domain/shared"
)

// LoanResponse is a loan with the viewer's action menu
type LoanResponse struct {
	ID                 string                           `json:"id"`
	CustomerID         string                           `json:"customer_id"`
	Status             string                           `json:"status"`
	DisplayStatus      string                           `json:"display_status"`
	TransactionCost    shared.Optional[decimal.Decimal] `json:"transaction_cost"`
	RequestedAmount    shared.Optional[decimal.Decimal] `json:"requested_amount"`
	OfferedAmount      shared.Optional[decimal.Decimal] `json:"offered_amount"`
	DownpaymentPercent shared.Optional[decimal.Decimal] `json:"downpayment_percent"`
	DownpaymentAmount  shared.Optional[decimal.Decimal] `json:"downpayment_amount"`
	InterestRate       shared.Optional[decimal.Decimal] `json:"interest_rate"`
	TotalRepayment     shared.Optional[decimal.Decimal] `json:"total_repayment"`
	OutstandingBalance shared.Optional[decimal.Decimal] `json:"outstanding_balance"`
	AgreementSigned    bool                             `json:"agreement_signed"`
	NextDueDate        shared.Optional[time.Time]       `json:"next_due_date"`
	CreatedAt          shared.Optional[time.Time]       `json:"created_at"`
	Actions            []ActionResponse                 `json:"actions"`
}

// ToLoanResponse converts a loan; now drives the display status
func ToLoanResponse(l *loan.Loan, now time.Time) LoanResponse {
	return LoanResponse{
		ID:                 l.ID,
		CustomerID:         l.CustomerID,
		Status:             l.Status.String(),
		DisplayStatus:      l.DisplayStatus(now),
		TransactionCost:    l.TransactionCost,
		RequestedAmount:    l.RequestedAmount,
		OfferedAmount:      l.OfferedAmount,
		DownpaymentPercent: l.DownpaymentPercent,
		DownpaymentAmount:  l.DownpaymentAmount,
		InterestRate:       l.InterestRate,
		TotalRepayment:     l.TotalRepayment,
		OutstandingBalance: l.OutstandingBalance,
		AgreementSigned:    l.AgreementSigned(),
		NextDueDate:        l.NextDueDate,
		CreatedAt:          l.CreatedAt,
		Actions:            ToActionResponses(l.Actions()),
	}
}

// LoanActionResult is returned after a successful loan transition.
// Loan is nil when the refetch failed.
type LoanActionResult struct {
	Message string        `json:"message"`
	Loan    *LoanResponse `json:"loan,omitempty"`
}
