package negotiation

import (
	"github.com/solarfin/backend/internal/domain/loan"
	"github.com/solarfin/backend/internal/domain/quote"
	"github.com/solarfin/backend/internal/domain/shared"
)

// actionText holds the fallback toast texts of one transition
type actionText struct {
	success string
	verb    string
}

var loanTexts = map[shared.ActionKey]actionText{
	loan.ActionCancel:         {"Loan request cancelled", "cancel loan request"},
	loan.ActionAccept:         {"Loan offer accepted", "accept loan offer"},
	loan.ActionReject:         {"Loan offer rejected", "reject loan offer"},
	loan.ActionPayDownpayment: {"Downpayment submitted", "pay downpayment"},
	loan.ActionLiquidate:      {"Loan liquidation requested", "liquidate loan"},
}

var quoteTexts = map[shared.ActionKey]actionText{
	quote.ActionSendQuote: {"Quote sent", "send quote"},
	quote.ActionNegotiate: {"Counter offer sent", "negotiate quote"},
	quote.ActionAccept:    {"Quote accepted", "accept quote"},
	quote.ActionReject:    {"Quote rejected", "reject quote"},
	quote.ActionPay:       {"Payment initiated", "pay for quote"},
}

func successMessage(upstream shared.Optional[string], text actionText) string {
	return upstream.OrElse(text.success)
}
