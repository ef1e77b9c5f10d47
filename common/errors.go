package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so that transport layers can map it to
// a status without inspecting messages.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindAuthentication ErrorKind = "authentication"
	KindConsensus      ErrorKind = "consensus"
	KindStateConflict  ErrorKind = "state_conflict"
	KindUpstream       ErrorKind = "upstream"
)

type BridgeError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// Is matches on kind and message so that sentinel BridgeErrors work with
// errors.Is.
func (e *BridgeError) Is(target error) bool {
	t, ok := target.(*BridgeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg
}

func NewValidationError(format string, args ...interface{}) error {
	return &BridgeError{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NewAuthenticationError(format string, args ...interface{}) error {
	return &BridgeError{Kind: KindAuthentication, Msg: fmt.Sprintf(format, args...)}
}

func NewConsensusError(format string, args ...interface{}) error {
	return &BridgeError{Kind: KindConsensus, Msg: fmt.Sprintf(format, args...)}
}

func NewStateConflictError(format string, args ...interface{}) error {
	return &BridgeError{Kind: KindStateConflict, Msg: fmt.Sprintf(format, args...)}
}

// NewUpstreamError wraps a failure from a chain client or a peer node.
// A nil err yields nil so call sites can wrap unconditionally.
func NewUpstreamError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &BridgeError{Kind: KindUpstream, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first BridgeError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
