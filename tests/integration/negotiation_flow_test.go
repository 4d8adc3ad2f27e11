//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/solarfin/backend/internal/application/negotiation/dto"
	"github.com/solarfin/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actionKeys(actions []dto.ActionResponse) []string {
	keys := make([]string, len(actions))
	for i, a := range actions {
		keys[i] = a.Key
	}
	return keys
}

func TestQuoteNegotiationFlow(t *testing.T) {
	h := NewHarness(t)
	requester, supplier := "101", "202"
	h.Upstream.PutQuote(h.Fixtures.Quote("q-1", requester, supplier))
	reqToken, supToken := h.Token(t, requester), h.Token(t, supplier)

	// pending quote: only the supplier may open
	w := testutil.Do(t, h.Engine, http.MethodGet, "/api/v1/quotes/q-1", reqToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	q := testutil.Data[dto.QuoteResponse](t, w)
	assert.Equal(t, "PENDING", q.Status)
	assert.Equal(t, []string{"view"}, actionKeys(q.Actions))

	w = testutil.Do(t, h.Engine, http.MethodGet, "/api/v1/quotes/q-1", supToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"view", "send_quote"}, actionKeys(testutil.Data[dto.QuoteResponse](t, w).Actions))

	// supplier sends a quote
	w = testutil.Do(t, h.Engine, http.MethodPost, "/api/v1/quotes/q-1/actions/send_quote", supToken,
		map[string]any{"amount": "12500.00", "additional_message": h.Fixtures.Message()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := testutil.Data[dto.QuoteActionResult](t, w)
	require.NotNil(t, sent.Quote)
	assert.Equal(t, "QUOTE_SENT", sent.Quote.Status)
	assert.True(t, sent.Quote.Turn.RequesterMayAct)

	// requester sees the response actions and counters
	w = testutil.Do(t, h.Engine, http.MethodGet, "/api/v1/quotes/q-1", reqToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	q = testutil.Data[dto.QuoteResponse](t, w)
	assert.Equal(t, []string{"view_quote"}, actionKeys(q.Actions))
	assert.Equal(t, []string{"accept", "reject", "negotiate"}, actionKeys(q.ResponseActions))

	w = testutil.Do(t, h.Engine, http.MethodPost, "/api/v1/quotes/q-1/actions/negotiate", reqToken,
		map[string]any{"counter_amount": "11000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "NEGOTIATED", testutil.Data[dto.QuoteActionResult](t, w).Quote.Status)

	// the turn has passed to the supplier
	w = testutil.Do(t, h.Engine, http.MethodPost, "/api/v1/quotes/q-1/actions/negotiate", reqToken,
		map[string]any{"counter_amount": "10000"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ERR_ACTION_NOT_PERMITTED", testutil.Envelope(t, w).Error.Code)

	// reject is a danger action
	w = testutil.Do(t, h.Engine, http.MethodPost, "/api/v1/quotes/q-1/actions/reject", supToken, nil)
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	assert.Equal(t, "negotiated", h.Upstream.Status("quote", "q-1"))

	w = testutil.Do(t, h.Engine, http.MethodPost, "/api/v1/quotes/q-1/actions/reject/confirmations", supToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	confirmation := testutil.Data[dto.ConfirmationResponse](t, w)
	require.NotEmpty(t, confirmation.Token)

	w = testutil.Do(t, h.Engine, http.MethodPost, "/api/v1/quotes/q-1/actions/reject", supToken,
		map[string]any{"confirmation_token": confirmation.Token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "REJECTED", testutil.Data[dto.QuoteActionResult](t, w).Quote.Status)

	// a token is single use
	w = testutil.Do(t, h.Engine, http.MethodPost, "/api/v1/quotes/q-1/actions/reject", supToken,
		map[string]any{"confirmation_token": confirmation.Token})
	assert.NotEqual(t, http.StatusOK, w.Code)

	// upstream saw the acting viewer's own bearer on every call
	calls := h.Upstream.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, supToken, calls[0].Bearer)
	assert.Equal(t, reqToken, calls[1].Bearer)
	assert.Equal(t, supToken, calls[2].Bearer)

	w = testutil.Do(t, h.Engine, http.MethodGet, "/api/v1/quotes/q-1/transitions", supToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	records := testutil.Data[[]dto.TransitionResponse](t, w)
	require.Len(t, records, 3)
	actions := make([]string, len(records))
	for i, r := range records {
		actions[i] = r.Action
		assert.Equal(t, "succeeded", r.Outcome)
		assert.Equal(t, "quote", r.EntityKind)
	}
	assert.ElementsMatch(t, []string{"send_quote", "negotiate", "reject"}, actions)
	assert.Equal(t, int64(3), testutil.Envelope(t, w).Meta.Total)
}

func TestLoanAcceptFlow(t *testing.T) {
	h := NewHarness(t)
	customer := "301"
	h.Upstream.PutLoan(h.Fixtures.Loan("l-1", customer, "OFFER_RECEIVED"))
	token := h.Token(t, customer)

	w := testutil.Do(t, h.Engine, http.MethodGet, "/api/v1/loans/l-1", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"view_offer", "accept", "reject"}, actionKeys(testutil.Data[dto.LoanResponse](t, w).Actions))

	w = testutil.Do(t, h.Engine, http.MethodPost, "/api/v1/loans/l-1/actions/accept", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := testutil.Data[dto.LoanActionResult](t, w)
	require.NotNil(t, result.Loan)
	assert.Equal(t, "AWAITING_DOWNPAYMENT", result.Loan.Status)
	assert.Equal(t, []string{"view", "pay_downpayment", "cancel"}, actionKeys(result.Loan.Actions))

	// the agreement is signed before the offer is accepted
	calls := h.Upstream.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "signed", calls[0].Body["actionType"])
	assert.Equal(t, "accepted", calls[1].Body["actionType"])
}

func TestUpstreamRejectionIsAudited(t *testing.T) {
	h := NewHarness(t)
	customer := "401"
	h.Upstream.PutLoan(h.Fixtures.Loan("l-2", customer, "ACTIVE"))
	h.Upstream.Fail(http.MethodPatch, "/loan/l-2/liquidate/", http.StatusBadRequest, "Insufficient wallet balance")
	token := h.Token(t, customer)

	w := testutil.Do(t, h.Engine, http.MethodPost, "/api/v1/loans/l-2/actions/liquidate/confirmations", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	confirmation := testutil.Data[dto.ConfirmationResponse](t, w)

	w = testutil.Do(t, h.Engine, http.MethodPost, "/api/v1/loans/l-2/actions/liquidate", token,
		map[string]any{"confirmation_token": confirmation.Token})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := testutil.Envelope(t, w)
	assert.Equal(t, "ERR_UPSTREAM_REJECTED", resp.Error.Code)
	assert.Equal(t, "Insufficient wallet balance", resp.Error.Message)
	assert.Equal(t, "ACTIVE", h.Upstream.Status("loan", "l-2"))

	w = testutil.Do(t, h.Engine, http.MethodGet, "/api/v1/loans/l-2/transitions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := testutil.Data[[]dto.TransitionResponse](t, w)
	require.Len(t, records, 1)
	assert.Equal(t, "liquidate", records[0].Action)
	assert.Equal(t, "failed", records[0].Outcome)
	assert.Equal(t, "ACTIVE", records[0].FromStatus)
}

func TestProbes(t *testing.T) {
	h := NewHarness(t)

	w := testutil.Do(t, h.Engine, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.Do(t, h.Engine, http.MethodGet, "/api/v1/loans", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
