package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/solarfin/backend/internal/domain/quote"
	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Quotes talks to the quote-request endpoints
type Quotes struct {
	gateway
	paths config.UpstreamPaths
}

// NewQuotes creates the quote gateway. cache may be nil.
func NewQuotes(client *Client, paths config.UpstreamPaths, cache ResponseCache, policy CachePolicy) *Quotes {
	return &Quotes{gateway: gateway{client: client, cache: cache, policy: policy}, paths: paths}
}

// EntityKey is the cache key of one quote request
func (g *Quotes) EntityKey(id string) string {
	return g.client.URL(ExpandPath(g.paths.QuoteGet, id))
}

// ListKey is the cache key of the viewer's quote list
func (g *Quotes) ListKey(viewerID string) string {
	return g.listKey(viewerID, g.paths.QuoteList)
}

// Get loads one quote request through the cache
func (g *Quotes) Get(ctx context.Context, id string) (quote.QuoteRequest, error) {
	body, err := g.fetch(ctx, g.EntityKey(id), g.policy.EntityTTL, "quote.get", ExpandPath(g.paths.QuoteGet, id))
	if err != nil {
		return quote.QuoteRequest{}, err
	}
	return decodeQuote(body, id)
}

// List loads the viewer's quote requests through the cache
func (g *Quotes) List(ctx context.Context, viewerID string) ([]quote.QuoteRequest, error) {
	body, err := g.fetch(ctx, g.ListKey(viewerID), g.policy.ListTTL, "quote.list", g.paths.QuoteList)
	if err != nil {
		return nil, err
	}
	wires, err := decodeList[wireQuote](body)
	if err != nil {
		return nil, fmt.Errorf("quote.list: %w", err)
	}
	quotes := make([]quote.QuoteRequest, 0, len(wires))
	for _, w := range wires {
		quotes = append(quotes, w.toDomain())
	}
	return quotes, nil
}

// Refresh bypasses the cache, stores the fresh body and returns the decoded entity
func (g *Quotes) Refresh(ctx context.Context, id string) (quote.QuoteRequest, error) {
	path := ExpandPath(g.paths.QuoteGet, id)
	body, err := g.client.get(ctx, "quote.refresh", path)
	if err != nil {
		return quote.QuoteRequest{}, err
	}
	v, err := decodeQuote(body, id)
	if err != nil {
		return quote.QuoteRequest{}, err
	}
	if g.cache != nil {
		if err := g.cache.Store(ctx, g.EntityKey(id), body, g.policy.EntityTTL); err != nil {
			g.client.logger.Warn("Failed to store refreshed entity", zap.String("id", id), zap.Error(err))
		}
	}
	return v, nil
}

func decodeQuote(body []byte, id string) (quote.QuoteRequest, error) {
	w, err := decodeOne[wireQuote](body)
	if err != nil {
		return quote.QuoteRequest{}, fmt.Errorf("quote.get %s: %w", id, err)
	}
	q := w.toDomain()
	if q.ID == "" {
		q.ID = id
	}
	return q, nil
}

// Send submits the supplier's first quote
func (g *Quotes) Send(ctx context.Context, id string, amount decimal.Decimal, message shared.Optional[string]) (shared.Optional[string], error) {
	payload := sendQuotePayload{Amount: json.Number(amount.String()), AdditionalMessage: message.Ptr()}
	return g.client.action(ctx, "quote.send", http.MethodPatch, ExpandPath(g.paths.QuoteSend, id), payload)
}

// Negotiate submits a counter-offer
func (g *Quotes) Negotiate(ctx context.Context, id string, counter decimal.Decimal, message shared.Optional[string]) (shared.Optional[string], error) {
	payload := negotiatePayload{CounterAmount: json.Number(counter.String()), AdditionalMessage: message.Ptr()}
	return g.client.action(ctx, "quote.negotiate", http.MethodPatch, ExpandPath(g.paths.QuoteNegotiate, id), payload)
}

// Accept accepts the latest offer
func (g *Quotes) Accept(ctx context.Context, id string) (shared.Optional[string], error) {
	return g.client.action(ctx, "quote.accept", http.MethodPatch, ExpandPath(g.paths.QuoteAccept, id), nil)
}

// Reject ends the negotiation
func (g *Quotes) Reject(ctx context.Context, id string) (shared.Optional[string], error) {
	return g.client.action(ctx, "quote.reject", http.MethodPatch, ExpandPath(g.paths.QuoteReject, id), nil)
}

// Pay starts payment of an accepted quote
func (g *Quotes) Pay(ctx context.Context, id string) (shared.Optional[string], error) {
	return g.client.action(ctx, "quote.pay", http.MethodPost, ExpandPath(g.paths.QuotePay, id), nil)
}
