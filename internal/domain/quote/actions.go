package quote

import (
	"fmt"

	"github.com/solarfin/backend/internal/domain/shared"
)

// Quote action keys
const (
	ActionView      shared.ActionKey = "view"
	ActionViewQuote shared.ActionKey = "view_quote"
	ActionSendQuote shared.ActionKey = "send_quote"
	ActionAccept    shared.ActionKey = "accept"
	ActionReject    shared.ActionKey = "reject"
	ActionNegotiate shared.ActionKey = "negotiate"
	ActionPay       shared.ActionKey = "pay"
)

var (
	view      = shared.Action{Key: ActionView, Label: "View", Tone: shared.ToneDefault}
	viewQuote = shared.Action{Key: ActionViewQuote, Label: "View Quote", Tone: shared.ToneDefault}
	sendQuote = shared.Action{Key: ActionSendQuote, Label: "Send Quote", Tone: shared.ToneDefault}
	accept    = shared.Action{Key: ActionAccept, Label: "Accept", Tone: shared.ToneDefault}
	reject    = shared.Action{Key: ActionReject, Label: "Reject", Tone: shared.ToneDanger}
	negotiate = shared.Action{Key: ActionNegotiate, Label: "Negotiate", Tone: shared.ToneDefault}
	payQuote  = shared.Action{Key: ActionPay, Label: "Pay for Quote", Tone: shared.ToneDefault}
)

// IsKnownAction reports whether key names a quote action
func IsKnownAction(key shared.ActionKey) bool {
	switch key {
	case ActionView, ActionViewQuote, ActionSendQuote, ActionAccept, ActionReject, ActionNegotiate, ActionPay:
		return true
	}
	return false
}

type side int

const (
	requesterSide side = iota
	supplierSide
)

// menuFor is the single rule table behind the row menu
func menuFor(status Status, s side, mayAct bool) []shared.Action {
	switch status {
	case StatusPending:
		if s == supplierSide && mayAct {
			return []shared.Action{view, sendQuote}
		}
		return []shared.Action{view}
	case StatusQuoteSent:
		return []shared.Action{viewQuote}
	case StatusNegotiated:
		if mayAct {
			return []shared.Action{view, accept, reject, negotiate}
		}
		return []shared.Action{view}
	case StatusAccepted:
		if s == requesterSide {
			return []shared.Action{view, payQuote}
		}
		return []shared.Action{view}
	default:
		return []shared.Action{view}
	}
}

// responseFor lists the actions offered inside the quote view of a sent
// quote to the party holding the turn.
func responseFor(status Status, mayAct bool) []shared.Action {
	if status == StatusQuoteSent && mayAct {
		return []shared.Action{accept, reject, negotiate}
	}
	return nil
}

// ActionsFor returns the ordered row menu for a quote request. A viewer who
// is neither party gets a view-only menu; a viewer holding both roles gets
// the union of both menus.
func ActionsFor(status Status, isRequester, isCounterparty, mayRequesterAct, mayCounterpartyAct bool) []shared.Action {
	if !isRequester && !isCounterparty {
		return []shared.Action{view}
	}
	var menus [][]shared.Action
	if isRequester {
		menus = append(menus, menuFor(status, requesterSide, mayRequesterAct))
	}
	if isCounterparty {
		menus = append(menus, menuFor(status, supplierSide, mayCounterpartyAct))
	}
	return shared.MergeActions(menus...)
}

// ResponseActions returns the actions available inside the quote view, in
// addition to the row menu. Only a sent quote has any.
func ResponseActions(status Status, isRequester, isCounterparty, mayRequesterAct, mayCounterpartyAct bool) []shared.Action {
	var menus [][]shared.Action
	if isRequester {
		menus = append(menus, responseFor(status, mayRequesterAct))
	}
	if isCounterparty {
		menus = append(menus, responseFor(status, mayCounterpartyAct))
	}
	return shared.MergeActions(menus...)
}

// Viewpoint bundles everything the menu depends on for one viewer
type Viewpoint struct {
	Status Status
	Roles  shared.Roles
	Turn   Turn
}

// Actions returns the row menu for the viewer
func (v Viewpoint) Actions() []shared.Action {
	return ActionsFor(v.Status, v.Roles.IsRequester, v.Roles.IsCounterparty, v.Turn.RequesterMayAct, v.Turn.SupplierMayAct)
}

// ResponseActions returns the in-view actions for the viewer
func (v Viewpoint) ResponseActions() []shared.Action {
	return ResponseActions(v.Status, v.Roles.IsRequester, v.Roles.IsCounterparty, v.Turn.RequesterMayAct, v.Turn.SupplierMayAct)
}

// MayAct reports whether any role the viewer holds currently has the turn
func (v Viewpoint) MayAct() bool {
	return (v.Roles.IsRequester && v.Turn.RequesterMayAct) || (v.Roles.IsCounterparty && v.Turn.SupplierMayAct)
}

// Authorize returns the action for key if the viewer may run it now. It is
// computed from the same rules as the menus, so anything not offered is refused.
func (v Viewpoint) Authorize(key shared.ActionKey) (shared.Action, error) {
	if !IsKnownAction(key) {
		return shared.Action{}, shared.ErrUnknownAction.WithMessage(fmt.Sprintf("Unknown quote action %q", key))
	}
	permitted := shared.MergeActions(v.Actions(), v.ResponseActions())
	action, ok := shared.FindAction(permitted, key)
	if !ok {
		return shared.Action{}, shared.ErrActionNotPermitted.WithMessage(
			fmt.Sprintf("Action %q is not available on a quote request in status %s", key, v.Status))
	}
	return action, nil
}
