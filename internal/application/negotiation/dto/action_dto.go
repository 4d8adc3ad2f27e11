package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/solarfin/backend/internal/domain/shared"
)

// ActionResponse is one entry of an action menu
type ActionResponse struct {
	Key                  string `json:"key"`
	Label                string `json:"label"`
	Tone                 string `json:"tone"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
}

// ToActionResponses converts a domain menu, keeping its order
func ToActionResponses(actions []shared.Action) []ActionResponse {
	out := make([]ActionResponse, len(actions))
	for i, a := range actions {
		out[i] = ActionResponse{
			Key:                  a.Key.String(),
			Label:                a.Label,
			Tone:                 string(a.Tone),
			RequiresConfirmation: a.RequiresConfirmation(),
		}
	}
	return out
}

// LoanActionRequest is the body of a loan action call
type LoanActionRequest struct {
	ConfirmationToken string `json:"confirmation_token" binding:"omitempty,uuid"`
}

// QuoteActionRequest is the body of a quote action call. Amount is used by
// send_quote and CounterAmount by negotiate.
type QuoteActionRequest struct {
	Amount            *decimal.Decimal `json:"amount"`
	CounterAmount     *decimal.Decimal `json:"counter_amount"`
	AdditionalMessage *string          `json:"additional_message" binding:"omitempty,max=1000"`
	ConfirmationToken string           `json:"confirmation_token" binding:"omitempty,uuid"`
}

// ConfirmationResponse carries a single-use token for a danger action
type ConfirmationResponse struct {
	Token     string    `json:"token"`
	Action    string    `json:"action"`
	ExpiresAt time.Time `json:"expires_at"`
}
