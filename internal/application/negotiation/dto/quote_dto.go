package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/solarfin/backend/internal/domain/quote"
	"github.com/solarfin/backend/internal/domain/shared"
)

// OfferEventResponse is one negotiation history entry
type OfferEventResponse struct {
	UserID         string                           `json:"user_id"`
	Timestamp      time.Time                        `json:"timestamp"`
	CounterAmount  shared.Optional[decimal.Decimal] `json:"counter_amount"`
	AmountReceived shared.Optional[decimal.Decimal] `json:"amount_received"`
	Message        shared.Optional[string]          `json:"additional_message"`
}

// RolesResponse tells which sides of the negotiation the viewer holds
type RolesResponse struct {
	IsRequester    bool `json:"is_requester"`
	IsCounterparty bool `json:"is_counterparty"`
}

// QuoteResponse is a quote request seen by one viewer
type QuoteResponse struct {
	ID              string                           `json:"id"`
	RequesterID     string                           `json:"requester_id"`
	SupplierID      string                           `json:"supplier_id"`
	ProductName     shared.Optional[string]          `json:"product_name"`
	Status          string                           `json:"status"`
	History         []OfferEventResponse             `json:"history"`
	QuoteSent       shared.Optional[decimal.Decimal] `json:"quote_sent"`
	CounterAmount   shared.Optional[decimal.Decimal] `json:"counter_amount"`
	CreatedAt       shared.Optional[time.Time]       `json:"created_at"`
	Roles           RolesResponse                    `json:"roles"`
	Turn            quote.Turn                       `json:"turn"`
	MayAct          bool                             `json:"may_act"`
	Actions         []ActionResponse                 `json:"actions"`
	ResponseActions []ActionResponse                 `json:"response_actions"`
}

// ToQuoteResponse converts a quote request for viewerID
func ToQuoteResponse(q *quote.QuoteRequest, viewerID string) QuoteResponse {
	vp := q.ViewFor(viewerID)
	history := make([]OfferEventResponse, len(q.History))
	for i, ev := range q.History {
		history[i] = OfferEventResponse{
			UserID:         ev.ActorID,
			Timestamp:      ev.At,
			CounterAmount:  ev.CounterAmount,
			AmountReceived: ev.AmountReceived,
			Message:        ev.Message,
		}
	}
	return QuoteResponse{
		ID:              q.ID,
		RequesterID:     q.RequesterID,
		SupplierID:      q.SupplierID,
		ProductName:     q.ProductName,
		Status:          q.Status.String(),
		History:         history,
		QuoteSent:       q.QuoteSent(),
		CounterAmount:   q.CounterAmount(),
		CreatedAt:       q.CreatedAt,
		Roles:           RolesResponse{IsRequester: vp.Roles.IsRequester, IsCounterparty: vp.Roles.IsCounterparty},
		Turn:            vp.Turn,
		MayAct:          vp.MayAct(),
		Actions:         ToActionResponses(vp.Actions()),
		ResponseActions: ToActionResponses(vp.ResponseActions()),
	}
}

// QuoteActionResult is returned after a successful quote transition.
// Quote is nil when the refetch failed.
type QuoteActionResult struct {
	Message string         `json:"message"`
	Quote   *QuoteResponse `json:"quote,omitempty"`
}
