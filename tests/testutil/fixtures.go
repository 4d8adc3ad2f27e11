// Package testutil holds fixtures and fakes shared by the integration tests.
package testutil

import (
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Fixtures builds upstream-shaped loan and quote documents from a seeded faker
type Fixtures struct {
	faker *gofakeit.Faker
	now   time.Time
}

// NewFixtures creates a deterministic fixture builder
func NewFixtures(seed uint64) *Fixtures {
	return &Fixtures{faker: gofakeit.New(seed), now: time.Now().UTC()}
}

// UserID returns a numeric user id as the upstream sends them
func (f *Fixtures) UserID() string {
	return strconv.Itoa(f.faker.Number(1000, 999999))
}

// Loan returns a loan document owned by customerID in the given upstream status
func (f *Fixtures) Loan(id, customerID, status string) map[string]any {
	requested := f.faker.Price(5000, 50000)
	return map[string]any{
		"id":                  id,
		"customer_id":         customerID,
		"status":              status,
		"transaction_cost":    f.faker.Price(50, 500),
		"requested_amount":    requested,
		"offered_amount":      requested * 0.9,
		"downpayment_percent": 10,
		"interest_rate":       f.faker.Float64Range(5, 25),
		"loan_agreement":      nil,
		"created_at":          f.now.Add(-72 * time.Hour).Format(time.RFC3339),
	}
}

// Quote returns a quote request between requester and supplier with no offers yet
func (f *Fixtures) Quote(id, requesterID, supplierID string) map[string]any {
	return map[string]any{
		"id":           id,
		"requesterId":  requesterID,
		"supplierId":   supplierID,
		"product_name": f.faker.ProductName(),
		"status":       "pending",
		"history":      []any{},
		"created_at":   f.now.Add(-24 * time.Hour).Format(time.RFC3339),
	}
}

// Message returns a short negotiation note
func (f *Fixtures) Message() string {
	return f.faker.Sentence(8)
}
