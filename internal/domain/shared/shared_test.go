package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// DomainError Tests
// ============================================

func TestDomainError_IsMatchesByCode(t *testing.T) {
	custom := ErrActionNotPermitted.WithMessage("Only the supplier can send a quote")
	wrapped := fmt.Errorf("execute: %w", custom)

	assert.True(t, errors.Is(wrapped, ErrActionNotPermitted))
	assert.False(t, errors.Is(wrapped, ErrConfirmationRequired))
	assert.Equal(t, "Only the supplier can send a quote", custom.Error())
	assert.Equal(t, "This action is not available right now", ErrActionNotPermitted.Message)
}

// ============================================
// Optional Tests
// ============================================

func TestOptional_PresentAndAbsent(t *testing.T) {
	p := Present(42)
	v, ok := p.Get()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 42, p.OrElse(0))
	require.NotNil(t, p.Ptr())

	a := Absent[int]()
	_, ok = a.Get()
	assert.False(t, ok)
	assert.Equal(t, 7, a.OrElse(7))
	assert.Nil(t, a.Ptr())

	var zero Optional[string]
	assert.False(t, zero.IsPresent())
}

func TestOptional_JSON(t *testing.T) {
	type payload struct {
		Amount  Optional[decimal.Decimal] `json:"amount"`
		Message Optional[string]          `json:"message"`
		Missing Optional[string]          `json:"missing"`
	}

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"1500.50","message":null}`), &p))

	amount, ok := p.Amount.Get()
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.RequireFromString("1500.50")))
	assert.False(t, p.Message.IsPresent())
	assert.False(t, p.Missing.IsPresent())

	out, err := json.Marshal(payload{Message: Present("hi")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":null,"message":"hi","missing":null}`, string(out))
}

func TestOptional_FromPtr(t *testing.T) {
	s := "x"
	assert.True(t, FromPtr(&s).IsPresent())
	assert.False(t, FromPtr[string](nil).IsPresent())
}

// ============================================
// Action Tests
// ============================================

func TestMergeActions_PreservesOrderAndDeduplicates(t *testing.T) {
	view := Action{Key: "view", Label: "View", Tone: ToneDefault}
	send := Action{Key: "send_quote", Label: "Send Quote", Tone: ToneDefault}
	pay := Action{Key: "pay", Label: "Pay for Quote", Tone: ToneDefault}

	merged := MergeActions([]Action{view, pay}, []Action{view, send})
	assert.Equal(t, []string{"View", "Pay for Quote", "Send Quote"}, Labels(merged))
}

func TestAction_RequiresConfirmation(t *testing.T) {
	assert.True(t, Action{Key: "reject", Tone: ToneDanger}.RequiresConfirmation())
	assert.False(t, Action{Key: "accept", Tone: ToneDefault}.RequiresConfirmation())
}

func TestFindAction(t *testing.T) {
	menu := []Action{{Key: "view", Label: "View"}}
	a, ok := FindAction(menu, "view")
	assert.True(t, ok)
	assert.Equal(t, "View", a.Label)
	_, ok = FindAction(menu, "accept")
	assert.False(t, ok)
}

// ============================================
// Roles Tests
// ============================================

func TestResolveRoles(t *testing.T) {
	tests := []struct {
		name      string
		viewer    string
		requester string
		supplier  string
		want      Roles
	}{
		{"requester", "U1", "U1", "U2", Roles{IsRequester: true}},
		{"supplier", "U2", "U1", "U2", Roles{IsCounterparty: true}},
		{"neither", "U3", "U1", "U2", Roles{}},
		{"both", "U1", "U1", "U1", Roles{IsRequester: true, IsCounterparty: true}},
		{"empty viewer", "", "", "U2", Roles{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRoles(tt.viewer, tt.requester, tt.supplier)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.IsRequester || tt.want.IsCounterparty, got.IsParty())
		})
	}
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 5, 1, 2)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, NewPaginated([]int{}, 0, 1, 0).TotalPages)
	assert.Equal(t, 20, Filter{Page: 3, PageSize: 10}.Offset())
}

func TestCanonicalStatusToken(t *testing.T) {
	assert.Equal(t, "OFFER_RECEIVED", CanonicalStatusToken(" offer received "))
	assert.Equal(t, "QUOTE_SENT", CanonicalStatusToken("quote-sent"))
	assert.Equal(t, "", CanonicalStatusToken("   "))
}
