package common

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the protocol error taxonomy. Every typed error below
// unwraps to exactly one of these so callers can branch with errors.Is.
var (
	ErrAuthorization = errors.New("authorization error")
	ErrSignature     = errors.New("signature error")
	ErrProof         = errors.New("proof error")
	ErrCapacity      = errors.New("capacity error")
	ErrState         = errors.New("state error")
	ErrRouter        = errors.New("router error")
)

// AuthorizationError reports a caller lacking the named role.
type AuthorizationError struct {
	Role string
}

func (e *AuthorizationError) Error() string {
	role := strings.TrimSpace(e.Role)
	if role == "" {
		role = "unknown"
	}
	return fmt.Sprintf("authorization error: caller is not %s", role)
}

func (e *AuthorizationError) Unwrap() error { return ErrAuthorization }

// NewAuthorizationError returns an AuthorizationError naming the required role.
func NewAuthorizationError(role string) error {
	return &AuthorizationError{Role: role}
}

// SignatureError reports a capacity claim that was not signed by the
// capacity oracle.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string { return "signature error: " + e.Reason }

func (e *SignatureError) Unwrap() error { return ErrSignature }

// ProofError reports a Merkle proof that does not fold to the committed root.
type ProofError struct {
	Kind string
}

func (e *ProofError) Error() string {
	if e.Kind == "" {
		return "proof error: invalid merkle proof"
	}
	return fmt.Sprintf("proof error: invalid %s proof", e.Kind)
}

func (e *ProofError) Unwrap() error { return ErrProof }

// CapacityError reports an expired capacity claim or one that does not cover
// the requested amount.
type CapacityError struct {
	Reason string
}

func (e *CapacityError) Error() string { return "capacity error: " + e.Reason }

func (e *CapacityError) Unwrap() error { return ErrCapacity }

// StateError reports a bounds violation or an operation attempted in the
// wrong lifecycle state.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string { return "state error: " + e.Reason }

func (e *StateError) Unwrap() error { return ErrState }

// NewStateError returns a StateError with the supplied reason.
func NewStateError(reason string) error {
	return &StateError{Reason: reason}
}

// RouterError reports a zap through a router the controller has not verified.
type RouterError struct {
	Router string
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("router error: router %s is not verified", e.Router)
}

func (e *RouterError) Unwrap() error { return ErrRouter }
