package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/solarfin/backend/internal/domain/shared"
)

var (
	// ErrUpstream matches every *UpstreamError
	ErrUpstream = errors.New("upstream request failed")
	// ErrUpstreamUnavailable wraps transport failures: timeouts, refused connections, cancelled waits
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedEnvelope is returned when a 2xx body is not a valid envelope
	ErrMalformedEnvelope = errors.New("malformed upstream envelope")
)

// UpstreamError is a response with status >= 400
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    shared.Optional[string]
}

func (e *UpstreamError) Error() string {
	if msg, ok := e.Message.Get(); ok {
		return fmt.Sprintf("%s: upstream returned %d: %s", e.Operation, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: upstream returned %d", e.Operation, e.StatusCode)
}

// Is lets errors.Is(err, ErrUpstream) match any upstream error
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// errorBody covers the envelope message plus the framework-style "detail" key
type errorBody struct {
	Message *string `json:"message"`
	Detail  *string `json:"detail"`
}

func newUpstreamError(op string, status int, body []byte) *UpstreamError {
	ue := &UpstreamError{Operation: op, StatusCode: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ue
	}
	for _, candidate := range []*string{eb.Message, eb.Detail} {
		if candidate != nil && strings.TrimSpace(*candidate) != "" {
			ue.Message = shared.Present(*candidate)
			break
		}
	}
	return ue
}
