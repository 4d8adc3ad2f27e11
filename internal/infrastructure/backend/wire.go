package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solarfin/backend/internal/domain/loan"
	"github.com/solarfin/backend/internal/domain/quote"
	"github.com/solarfin/backend/internal/domain/shared"
)

// wireID accepts ids sent as JSON strings or numbers
type wireID string

func (w *wireID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*w = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*w = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*w = wireID(n.String())
	return nil
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// wireTime accepts RFC 3339 timestamps, naive timestamps and plain dates. Null or empty is absent.
type wireTime struct {
	shared.Optional[time.Time]
}

func (w *wireTime) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		w.Optional = shared.Absent[time.Time]()
		return nil
	}
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(*s)); err == nil {
			w.Optional = shared.Present(t)
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", *s)
}

type wireLoan struct {
	ID                 wireID                           `json:"id"`
	CustomerID         wireID                           `json:"customer_id"`
	Status             string                           `json:"status"`
	TransactionCost    shared.Optional[decimal.Decimal] `json:"transaction_cost"`
	RequestedAmount    shared.Optional[decimal.Decimal] `json:"requested_amount"`
	OfferedAmount      shared.Optional[decimal.Decimal] `json:"offered_amount"`
	DownpaymentPercent shared.Optional[decimal.Decimal] `json:"downpayment_percent"`
	DownpaymentAmount  shared.Optional[decimal.Decimal] `json:"downpayment_amount"`
	InterestRate       shared.Optional[decimal.Decimal] `json:"interest_rate"`
	TotalRepayment     shared.Optional[decimal.Decimal] `json:"total_repayment"`
	OutstandingBalance shared.Optional[decimal.Decimal] `json:"outstanding_balance"`
	LoanAgreement      shared.Optional[string]          `json:"loan_agreement"`
	NextDueDate        wireTime                         `json:"next_due_date"`
	CreatedAt          wireTime                         `json:"created_at"`
}

func (w wireLoan) toDomain() loan.Loan {
	return loan.Loan{
		ID:                 string(w.ID),
		CustomerID:         string(w.CustomerID),
		Status:             loan.NormalizeStatus(w.Status),
		TransactionCost:    w.TransactionCost,
		RequestedAmount:    w.RequestedAmount,
		OfferedAmount:      w.OfferedAmount,
		DownpaymentPercent: w.DownpaymentPercent,
		DownpaymentAmount:  w.DownpaymentAmount,
		InterestRate:       w.InterestRate,
		TotalRepayment:     w.TotalRepayment,
		OutstandingBalance: w.OutstandingBalance,
		LoanAgreement:      w.LoanAgreement,
		NextDueDate:        w.NextDueDate.Optional,
		CreatedAt:          w.CreatedAt.Optional,
	}
}

type wireOfferEvent struct {
	UserID         wireID                           `json:"user_id"`
	Timestamp      wireTime                         `json:"timestamp"`
	CounterAmount  shared.Optional[decimal.Decimal] `json:"counter_amount"`
	AmountReceived shared.Optional[decimal.Decimal] `json:"amount_recieved"`
	Message        shared.Optional[string]          `json:"additional_message"`
}

type wireQuote struct {
	ID          wireID                  `json:"id"`
	RequesterID wireID                  `json:"requesterId"`
	SupplierID  wireID                  `json:"supplierId"`
	ProductName shared.Optional[string] `json:"product_name"`
	Status      string                  `json:"status"`
	History     []wireOfferEvent        `json:"history"`
	CreatedAt   wireTime                `json:"created_at"`
}

func (w wireQuote) toDomain() quote.QuoteRequest {
	history := make([]quote.OfferEvent, 0, len(w.History))
	for _, ev := range w.History {
		history = append(history, quote.OfferEvent{
			ActorID:        string(ev.UserID),
			At:             ev.Timestamp.OrElse(time.Time{}),
			CounterAmount:  ev.CounterAmount,
			AmountReceived: ev.AmountReceived,
			Message:        ev.Message,
		})
	}
	return quote.QuoteRequest{
		ID:          string(w.ID),
		RequesterID: string(w.RequesterID),
		SupplierID:  string(w.SupplierID),
		ProductName: w.ProductName,
		Status:      quote.NormalizeStatus(w.Status),
		History:     history,
		CreatedAt:   w.CreatedAt.Optional,
	}
}

type loanActionPayload struct {
	ActionType string `json:"actionType"`
}

type sendQuotePayload struct {
	Amount            json.Number `json:"amount"`
	AdditionalMessage *string     `json:"additional_message,omitempty"`
}

type negotiatePayload struct {
	CounterAmount     json.Number `json:"counter_amount"`
	AdditionalMessage *string     `json:"additional_message,omitempty"`
}
