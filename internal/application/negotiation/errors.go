package negotiation

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/infrastructure/backend"
)

// Error codes for failed transitions
const (
	CodeUpstreamRejected    = "UPSTREAM_REJECTED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

// ActionFailedError is returned when the upstream refused or could not run a
// transition. Message is shown to the user as is: the upstream message when
// one was sent, otherwise a generic per-action text.
type ActionFailedError struct {
	Action     shared.ActionKey
	Message    string
	StatusCode int
	Cause      error
}

func (e *ActionFailedError) Error() string {
	return e.Message
}

func (e *ActionFailedError) Unwrap() error {
	return e.Cause
}

// Code is UPSTREAM_REJECTED when the upstream answered, UPSTREAM_UNAVAILABLE otherwise
func (e *ActionFailedError) Code() string {
	if e.StatusCode > 0 {
		return CodeUpstreamRejected
	}
	return CodeUpstreamUnavailable
}

func newActionFailedError(action shared.ActionKey, verb string, cause error) *ActionFailedError {
	afe := &ActionFailedError{
		Action:  action,
		Message: fmt.Sprintf("Failed to %s. Please try again.", verb),
		Cause:   cause,
	}
	var ue *backend.UpstreamError
	if errors.As(cause, &ue) {
		afe.StatusCode = ue.StatusCode
		if msg, ok := ue.Message.Get(); ok {
			afe.Message = msg
		}
	}
	return afe
}

// ReadError is returned when an entity could not be loaded for a reason
// other than it not existing
type ReadError struct {
	Message string
	Cause   error
}

func (e *ReadError) Error() string {
	return e.Message
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}

// mapReadError turns upstream read failures into domain errors
func mapReadError(entity string, err error) error {
	var ue *backend.UpstreamError
	if errors.As(err, &ue) {
		switch ue.StatusCode {
		case http.StatusNotFound:
			return shared.ErrNotFound.WithMessage(fmt.Sprintf("%s not found", entity))
		case http.StatusUnauthorized, http.StatusForbidden:
			return shared.ErrForbidden.WithMessage(ue.Message.OrElse(fmt.Sprintf("You cannot access this %s", entity)))
		}
		return &ReadError{Message: ue.Message.OrElse(fmt.Sprintf("Failed to load %s", entity)), Cause: err}
	}
	return &ReadError{Message: fmt.Sprintf("Failed to load %s", entity), Cause: err}
}
