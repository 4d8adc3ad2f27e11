package backend

import (
	"bytes"
	"encoding/json"

	"github.com/solarfin/backend/internal/domain/shared"
)

// ResultKind discriminates the decoded shape of an envelope
type ResultKind int

const (
	// ResultMalformed means the body was not a usable envelope
	ResultMalformed ResultKind = iota
	// ResultEmpty is a well-formed envelope without data, typical for action endpoints
	ResultEmpty
	// ResultOne carries a single object
	ResultOne
	// ResultList carries an array
	ResultList
)

// Result is the decoded {"message"?, "data"?: T | [T]} envelope
type Result[T any] struct {
	kind    ResultKind
	one     T
	list    []T
	message shared.Optional[string]
	err     error
}

type rawEnvelope struct {
	Message *string         `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// DecodeEnvelope decodes body. It never fails; a bad body yields a Malformed result.
func DecodeEnvelope[T any](body []byte) Result[T] {
	var env rawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Result[T]{kind: ResultMalformed, err: err}
	}
	r := Result[T]{message: shared.FromPtr(env.Message)}

	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		r.kind = ResultEmpty
	case data[0] == '[':
		if err := json.Unmarshal(data, &r.list); err != nil {
			return Result[T]{kind: ResultMalformed, err: err, message: r.message}
		}
		if r.list == nil {
			r.list = []T{}
		}
		r.kind = ResultList
	default:
		if err := json.Unmarshal(data, &r.one); err != nil {
			return Result[T]{kind: ResultMalformed, err: err, message: r.message}
		}
		r.kind = ResultOne
	}
	return r
}

// Kind returns the discriminant
func (r Result[T]) Kind() ResultKind { return r.kind }

// Message returns the envelope message, if any
func (r Result[T]) Message() shared.Optional[string] { return r.message }

// One returns the single object
func (r Result[T]) One() (T, bool) { return r.one, r.kind == ResultOne }

// List returns the array. A single object is not promoted to a list.
func (r Result[T]) List() ([]T, bool) { return r.list, r.kind == ResultList }

// Err returns the decode error of a Malformed result
func (r Result[T]) Err() error { return r.err }
