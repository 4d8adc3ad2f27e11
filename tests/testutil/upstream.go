package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// Call is one request the fake upstream received
type Call struct {
	Method string
	Path   string
	Bearer string
	Body   map[string]any
}

type failure struct {
	status  int
	message string
}

// FakeUpstream mimics the loan and quote REST backend in memory. Actions
// mutate the stored documents the way the real backend does, so a refetch
// after a transition sees the new status and offer history.
type FakeUpstream struct {
	server   *httptest.Server
	identify func(token string) string

	mu       sync.Mutex
	loans    map[string]map[string]any
	quotes   map[string]map[string]any
	calls    []Call
	failures map[string]failure
}

// NewFakeUpstream starts the server. identify maps a bearer token to the
// acting user id recorded in offer history.
func NewFakeUpstream(t *testing.T, identify func(token string) string) *FakeUpstream {
	t.Helper()
	f := &FakeUpstream{
		identify: identify,
		loans:    map[string]map[string]any{},
		quotes:   map[string]map[string]any{},
		failures: map[string]failure{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL is the base URL to configure as upstream.base_url
func (f *FakeUpstream) URL() string { return f.server.URL }

// PutLoan stores or replaces a loan document
func (f *FakeUpstream) PutLoan(doc map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loans[doc["id"].(string)] = doc
}

// PutQuote stores or replaces a quote document
func (f *FakeUpstream) PutQuote(doc map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[doc["id"].(string)] = doc
}

// Status returns the stored status of a loan or quote
func (f *FakeUpstream) Status(kind, id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := f.loans
	if kind == "quote" {
		docs = f.quotes
	}
	if doc, ok := docs[id]; ok {
		s, _ := doc["status"].(string)
		return s
	}
	return ""
}

// Fail makes the next request to method+path answer with status and message
func (f *FakeUpstream) Fail(method, path string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = failure{status: status, message: message}
}

// Calls returns the non-GET requests received so far
func (f *FakeUpstream) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if bearer == "" {
		writeEnvelope(w, http.StatusUnauthorized, "Authentication credentials were not provided.", nil)
		return
	}

	if fl, ok := f.failures[r.Method+" "+r.URL.Path]; ok {
		delete(f.failures, r.Method+" "+r.URL.Path)
		writeEnvelope(w, fl.status, fl.message, nil)
		return
	}

	var body map[string]any
	if r.Method != http.MethodGet {
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.calls = append(f.calls, Call{Method: r.Method, Path: r.URL.Path, Bearer: bearer, Body: body})
	}

	segs := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case segs[0] == "loan":
		f.serveLoan(w, r.Method, segs[1:], body)
	case segs[0] == "quote-requests" || segs[0] == "quotes-requests":
		f.serveQuote(w, r.Method, segs[1:], body, f.identify(bearer))
	default:
		writeEnvelope(w, http.StatusNotFound, "Not found.", nil)
	}
}

func (f *FakeUpstream) serveLoan(w http.ResponseWriter, method string, segs []string, body map[string]any) {
	switch {
	case len(segs) == 0 && method == http.MethodGet:
		writeEnvelope(w, http.StatusOK, "", values(f.loans))
		return
	case len(segs) == 1 && method == http.MethodGet:
		if doc, ok := f.loans[segs[0]]; ok {
			writeEnvelope(w, http.StatusOK, "", doc)
			return
		}
	case len(segs) == 2 && segs[0] == "action":
		doc, ok := f.loans[segs[1]]
		if !ok {
			break
		}
		switch body["actionType"] {
		case "cancelled":
			doc["status"] = "CANCELLED"
		case "rejected":
			doc["status"] = "REJECTED"
		case "accepted":
			doc["status"] = "AWAITING_DOWNPAYMENT"
		case "signed":
			doc["loan_agreement"] = "signed"
		}
		writeEnvelope(w, http.StatusOK, "Loan updated successfully", nil)
		return
	case len(segs) == 2:
		doc, ok := f.loans[segs[0]]
		if !ok {
			break
		}
		switch segs[1] {
		case "agreement":
			doc["loan_agreement"] = "signed"
		case "downpayment":
			doc["status"] = "AWAITING_LOAN_DISBURSEMENT"
		case "liquidate":
			doc["status"] = "COMPLETED"
			doc["outstanding_balance"] = 0
		}
		writeEnvelope(w, http.StatusOK, "", nil)
		return
	}
	writeEnvelope(w, http.StatusNotFound, "Loan not found.", nil)
}

func (f *FakeUpstream) serveQuote(w http.ResponseWriter, method string, segs []string, body map[string]any, actor string) {
	switch {
	case len(segs) == 0 && method == http.MethodGet:
		writeEnvelope(w, http.StatusOK, "", values(f.quotes))
		return
	case len(segs) == 1 && method == http.MethodGet:
		if doc, ok := f.quotes[segs[0]]; ok {
			writeEnvelope(w, http.StatusOK, "", doc)
			return
		}
	case len(segs) == 2:
		doc, ok := f.quotes[segs[1]]
		if !ok {
			break
		}
		event := map[string]any{"user_id": actor, "timestamp": time.Now().UTC().Format(time.RFC3339Nano)}
		if msg, ok := body["additional_message"]; ok {
			event["additional_message"] = msg
		}
		switch segs[0] {
		case "send":
			doc["status"] = "quote_sent"
			event["amount_recieved"] = body["amount"]
		case "negotiate":
			doc["status"] = "negotiated"
			event["counter_amount"] = body["counter_amount"]
		case "accept":
			doc["status"] = "accepted"
		case "reject":
			doc["status"] = "rejected"
		case "pay":
			doc["status"] = "delivered"
		}
		if segs[0] == "send" || segs[0] == "negotiate" {
			doc["history"] = append(doc["history"].([]any), event)
		}
		writeEnvelope(w, http.StatusOK, "Quote request updated", nil)
		return
	}
	writeEnvelope(w, http.StatusNotFound, "Quote request not found.", nil)
}

func values(m map[string]map[string]any) []any {
	out := make([]any, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	env := map[string]any{}
	if message != "" {
		env["message"] = message
	}
	if data != nil {
		env["data"] = data
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
