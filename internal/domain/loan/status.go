package loan

import "github.com/solarfin/backend/internal/domain/shared"

// Status represents the lifecycle status of a loan request
type Status string

const (
	StatusPending              Status = "PENDING"
	StatusOfferReceived        Status = "OFFER_RECEIVED"
	StatusAwaitingDownpayment  Status = "AWAITING_DOWNPAYMENT"
	StatusAwaitingDisbursement Status = "AWAITING_DISBURSEMENT"
	StatusActive               Status = "ACTIVE"
	StatusCompleted            Status = "COMPLETED"
	StatusRejected             Status = "REJECTED"
)

// AllStatuses returns every canonical loan status in lifecycle order
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusOfferReceived,
		StatusAwaitingDownpayment,
		StatusAwaitingDisbursement,
		StatusActive,
		StatusCompleted,
		StatusRejected,
	}
}

// statusAliases maps spellings the upstream uses for display purposes onto
// the state machine status they belong to.
var statusAliases = map[string]Status{
	"CANCELLED":                  StatusRejected,
	"CANCELED":                   StatusRejected,
	"AWAITING_LOAN_DISBURSEMENT": StatusAwaitingDisbursement,
	"OVERDUE":                    StatusActive,
}

// NormalizeStatus maps a raw status string to a canonical Status.
// Unknown or empty values fail closed to PENDING.
func NormalizeStatus(raw string) Status {
	token := shared.CanonicalStatusToken(raw)
	if s := Status(token); s.IsValid() {
		return s
	}
	if s, ok := statusAliases[token]; ok {
		return s
	}
	return StatusPending
}

// IsValid checks if the status is a canonical loan status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusOfferReceived, StatusAwaitingDownpayment, StatusAwaitingDisbursement,
		StatusActive, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusOfferReceived || target == StatusRejected
	case StatusOfferReceived:
		return target == StatusAwaitingDownpayment || target == StatusAwaitingDisbursement || target == StatusRejected
	case StatusAwaitingDownpayment:
		return target == StatusAwaitingDisbursement || target == StatusRejected
	case StatusAwaitingDisbursement:
		return target == StatusActive
	case StatusActive:
		return target == StatusCompleted
	case StatusCompleted, StatusRejected:
		return false
	}
	return false
}
