package quote

import "github.com/solarfin/backend/internal/domain/shared"

// Status represents the negotiation status of a quote request
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusQuoteSent  Status = "QUOTE_SENT"
	StatusNegotiated Status = "NEGOTIATED"
	StatusAccepted   Status = "ACCEPTED"
	StatusRejected   Status = "REJECTED"
	StatusDelivered  Status = "DELIVERED"
)

// AllStatuses returns every canonical quote status
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusQuoteSent,
		StatusNegotiated,
		StatusAccepted,
		StatusRejected,
		StatusDelivered,
	}
}

// NormalizeStatus maps a raw status string to a canonical Status.
// Unknown or empty values fail closed to PENDING.
func NormalizeStatus(raw string) Status {
	if s := Status(shared.CanonicalStatusToken(raw)); s.IsValid() {
		return s
	}
	return StatusPending
}

// IsValid checks if the status is a canonical quote status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusQuoteSent, StatusNegotiated, StatusAccepted, StatusRejected, StatusDelivered:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether negotiation is over. ACCEPTED only moves on
// through the external payment and fulfilment flow.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusDelivered
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusQuoteSent || target == StatusRejected
	case StatusQuoteSent:
		return target == StatusNegotiated || target == StatusAccepted || target == StatusRejected
	case StatusNegotiated:
		// negotiating again is a self-loop that flips the turn
		return target == StatusNegotiated || target == StatusAccepted || target == StatusRejected
	case StatusAccepted:
		return target == StatusDelivered
	case StatusRejected, StatusDelivered:
		return false
	}
	return false
}
