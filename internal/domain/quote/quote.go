package quote

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/solarfin/backend/internal/domain/shared"
)

// OfferEvent is one entry of the append-only negotiation history
type OfferEvent struct {
	ActorID        string
	At             time.Time
	CounterAmount  shared.Optional[decimal.Decimal]
	AmountReceived shared.Optional[decimal.Decimal]
	Message        shared.Optional[string]
}

// QuoteRequest is a request for a quote on a product, negotiated between the
// requester and the supplier.
type QuoteRequest struct {
	ID          string
	RequesterID string
	SupplierID  string
	ProductName shared.Optional[string]
	Status      Status
	History     []OfferEvent
	CreatedAt   shared.Optional[time.Time]
}

// QuoteSent returns the originally quoted amount, taken from the first
// history event that carries one.
func (q *QuoteRequest) QuoteSent() shared.Optional[decimal.Decimal] {
	for _, ev := range q.History {
		if ev.AmountReceived.IsPresent() {
			return ev.AmountReceived
		}
	}
	return shared.Absent[decimal.Decimal]()
}

// CounterAmount returns the most recent counter-offer
func (q *QuoteRequest) CounterAmount() shared.Optional[decimal.Decimal] {
	for i := len(q.History) - 1; i >= 0; i-- {
		if q.History[i].CounterAmount.IsPresent() {
			return q.History[i].CounterAmount
		}
	}
	return shared.Absent[decimal.Decimal]()
}

// LastEvent returns the most recent history entry, if any
func (q *QuoteRequest) LastEvent() (OfferEvent, bool) {
	if len(q.History) == 0 {
		return OfferEvent{}, false
	}
	return q.History[len(q.History)-1], true
}

// Turn resolves whose turn it is from the offer history
func (q *QuoteRequest) Turn() Turn {
	return ResolveTurn(q.History, q.RequesterID, q.SupplierID)
}

// ViewFor computes the viewer's roles and turn for this quote request
func (q *QuoteRequest) ViewFor(viewerID string) Viewpoint {
	return Viewpoint{
		Status: q.Status,
		Roles:  shared.ResolveRoles(viewerID, q.RequesterID, q.SupplierID),
		Turn:   q.Turn(),
	}
}
