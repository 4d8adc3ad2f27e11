package loan

import (
	"fmt"

	"github.com/solarfin/backend/internal/domain/shared"
)

// Loan action keys
const (
	ActionView           shared.ActionKey = "view"
	ActionViewOffer      shared.ActionKey = "view_offer"
	ActionCancel         shared.ActionKey = "cancel"
	ActionAccept         shared.ActionKey = "accept"
	ActionReject         shared.ActionKey = "reject"
	ActionPayDownpayment shared.ActionKey = "pay_downpayment"
	ActionLiquidate      shared.ActionKey = "liquidate"
)

var (
	viewLoan       = shared.Action{Key: ActionView, Label: "View Loan", Tone: shared.ToneDefault}
	viewOffer      = shared.Action{Key: ActionViewOffer, Label: "View Offer", Tone: shared.ToneDefault}
	cancelRequest  = shared.Action{Key: ActionCancel, Label: "Cancel Request", Tone: shared.ToneDanger}
	acceptOffer    = shared.Action{Key: ActionAccept, Label: "Accept Offer", Tone: shared.ToneDefault}
	rejectOffer    = shared.Action{Key: ActionReject, Label: "Reject Offer", Tone: shared.ToneDanger}
	payDownpayment = shared.Action{Key: ActionPayDownpayment, Label: "Pay Downpayment", Tone: shared.ToneDefault}
	liquidateLoan  = shared.Action{Key: ActionLiquidate, Label: "Liquidate Loan", Tone: shared.ToneDanger}
)

// IsKnownAction reports whether key names a loan action
func IsKnownAction(key shared.ActionKey) bool {
	switch key {
	case ActionView, ActionViewOffer, ActionCancel, ActionAccept, ActionReject, ActionPayDownpayment, ActionLiquidate:
		return true
	}
	return false
}

// ActionsFor returns the ordered action menu for a loan in the given status.
// Loans have no negotiable counterparty, so the menu depends on status only.
func ActionsFor(status Status) []shared.Action {
	switch status {
	case StatusPending:
		return []shared.Action{viewLoan, cancelRequest}
	case StatusOfferReceived:
		return []shared.Action{viewOffer, acceptOffer, rejectOffer}
	case StatusAwaitingDownpayment:
		return []shared.Action{viewLoan, payDownpayment, cancelRequest}
	case StatusActive:
		return []shared.Action{viewLoan, liquidateLoan}
	default:
		return []shared.Action{viewLoan}
	}
}

// Authorize returns the menu entry for key if the action is currently
// permitted. The menu and the authorization share one rule set.
func Authorize(status Status, key shared.ActionKey) (shared.Action, error) {
	if !IsKnownAction(key) {
		return shared.Action{}, shared.ErrUnknownAction.WithMessage(fmt.Sprintf("Unknown loan action %q", key))
	}
	action, ok := shared.FindAction(ActionsFor(status), key)
	if !ok {
		return shared.Action{}, shared.ErrActionNotPermitted.WithMessage(
			fmt.Sprintf("Action %q is not available for a loan in status %s", key, status))
	}
	return action, nil
}
