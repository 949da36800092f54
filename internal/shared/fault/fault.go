// Package fault defines the typed errors returned by the orchestration core.
//
// Every error that leaves an orchestrator operation is a *Error carrying a
// Kind. The HTTP adapter maps kinds to status codes; the core never returns
// bare strings.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindPeerUnavailable
	KindTimeout
	KindValidationFailed
	KindConflict
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPeerUnavailable:
		return "peer_unavailable"
	case KindTimeout:
		return "timeout"
	case KindValidationFailed:
		return "validation_failed"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified error.
type Error struct {
	Kind    Kind
	Op      string // orchestrator operation, e.g. "findJobMatches"
	Service string // peer service involved, if any
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Service != "" {
		fmt.Fprintf(&b, " (peer %s)", e.Service)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, fault.NotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Service == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	NotFound         = &Error{Kind: KindNotFound}
	PeerUnavailable  = &Error{Kind: KindPeerUnavailable}
	Timeout          = &Error{Kind: KindTimeout}
	ValidationFailed = &Error{Kind: KindValidationFailed}
	Conflict         = &Error{Kind: KindConflict}
)

// New creates a classified error.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}
