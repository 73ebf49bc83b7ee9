package pipeline

import (
	"errors"
	"fmt"

	"github.com/cppla/threadsense/reddit"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrRetrievalFailed    = errors.New("retrieval failed")
	ErrExpansionFailed    = errors.New("expansion failed")
	ErrScoringUnavailable = errors.New("scoring service unavailable")
)

// InvalidInputError rejects caller parameters before any network call.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// RetrievalError wraps any failure of the listing or search call.
type RetrievalError struct {
	Collection string
	Cause      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieving r/%s: %v", e.Collection, e.Cause)
}

func (e *RetrievalError) Unwrap() error { return e.Cause }

func (e *RetrievalError) Is(target error) bool { return target == ErrRetrievalFailed }

// RateLimited reports whether the content source throttled us.
func (e *RetrievalError) RateLimited() bool {
	return errors.Is(e.Cause, reddit.ErrRateLimited)
}

// ExpansionError is the first comment-tree failure of a fan-out.
type ExpansionError struct {
	PostID string
	Cause  error
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("expanding comments of post %s: %v", e.PostID, e.Cause)
}

func (e *ExpansionError) Unwrap() error { return e.Cause }

func (e *ExpansionError) Is(target error) bool { return target == ErrExpansionFailed }

// RateLimited reports whether the content source throttled us.
func (e *ExpansionError) RateLimited() bool {
	return errors.Is(e.Cause, reddit.ErrRateLimited)
}

// ScoringKind tells apart the ways the scoring call can fail.
type ScoringKind int

const (
	// ScoringStatus: the collaborator answered with a non-success status.
	ScoringStatus ScoringKind = iota + 1
	// ScoringUnreachable: no response was received.
	ScoringUnreachable
	// ScoringRequest: the request could not be built.
	ScoringRequest
	// ScoringInvalidResponse: a success status with a body that breaks the contract.
	ScoringInvalidResponse
)

func (k ScoringKind) String() string {
	switch k {
	case ScoringStatus:
		return "status"
	case ScoringUnreachable:
		return "unreachable"
	case ScoringRequest:
		return "request"
	case ScoringInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// ScoringError is returned when the scoring collaborator did not deliver scores.
type ScoringError struct {
	Kind   ScoringKind
	Status int
	Body   string
	Cause  error
}

func (e *ScoringError) Error() string {
	switch e.Kind {
	case ScoringStatus:
		return fmt.Sprintf("scoring service responded %d: %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("scoring service %s: %v", e.Kind, e.Cause)
	}
}

func (e *ScoringError) Unwrap() error { return e.Cause }

func (e *ScoringError) Is(target error) bool { return target == ErrScoringUnavailable }
