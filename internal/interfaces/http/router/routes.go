package router

import (
	"github.com/solarfin/backend/internal/interfaces/http/handler"
)

// LoanRoutes exposes loan reads, confirmations, transitions and the audit trail
func LoanRoutes(h *handler.LoanHandler) *DomainGroup {
	g := NewDomainGroup("loans", "/loans")
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/transitions", h.Transitions)
	g.POST("/:id/actions/:action", h.Execute)
	g.POST("/:id/actions/:action/confirmations", h.IssueConfirmation)
	return g
}

// QuoteRoutes exposes quote request reads and negotiation moves
func QuoteRoutes(h *handler.QuoteHandler) *DomainGroup {
	g := NewDomainGroup("quotes", "/quotes")
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/transitions", h.Transitions)
	g.POST("/:id/actions/:action", h.Execute)
	g.POST("/:id/actions/:action/confirmations", h.IssueConfirmation)
	return g
}
