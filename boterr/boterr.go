// Package boterr defines the closed error taxonomy shared by the bot's
// pipeline. Every failure that reaches a user is mapped to one of these
// kinds first; raw transport or platform errors never leak into replies.
package boterr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUpstreamAPI      Kind = "upstream_api_error"
	KindTransport        Kind = "transport_error"
	KindPlatform         Kind = "platform_error"
	KindPermissionDenied Kind = "permission_denied"
	KindInvalidInput     Kind = "invalid_input"
	KindUnknown          Kind = "unknown"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the taxonomy kind from an error chain. Errors produced
// outside the taxonomy map to KindUnknown.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// UserMessage returns the fixed user-legible message for a kind. The raw
// error text is intentionally never part of a reply.
func UserMessage(kind Kind) string {
	switch kind {
	case KindUpstreamAPI:
		return "My brain short-circuited for a moment. Give me a bit and try again."
	case KindTransport:
		return "The network seems flaky right now. Come chat with me in a little while."
	case KindPlatform:
		return "Discord seems to be acting up and I couldn't fetch what I needed."
	case KindPermissionDenied:
		return "You don't have permission to do that."
	case KindInvalidInput:
		return "That input doesn't look right. Check the command and try again."
	default:
		return "Something unexpected happened. I'm working on pulling myself together."
	}
}
