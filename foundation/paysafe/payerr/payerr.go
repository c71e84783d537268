// Package payerr defines the closed set of errors produced along the payment
// pipeline. Every failure that reaches a caller is an *Error with one of the
// kinds below.
package payerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a pipeline error.
type Kind int

// Set of error kinds.
const (
	KindUnknown Kind = iota
	KindBadInput
	KindPolicyViolation
	KindBuild
	KindValidation
	KindSign
	KindTransport
	KindNodeReject
	KindTampered
	KindFraming
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindBadInput:        "bad_input",
	KindPolicyViolation: "policy_violation",
	KindBuild:           "build_error",
	KindValidation:      "validation_error",
	KindSign:            "sign_error",
	KindTransport:       "transport_error",
	KindNodeReject:      "node_reject",
	KindTampered:        "tampered",
	KindFraming:         "framing",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Transport classifies a transport error.
type Transport int

// Set of transport classifications.
const (
	TransportNone Transport = iota
	TransportUnreachable
	TransportTimeout
	TransportAuth
	TransportOther
)

func (t Transport) String() string {
	switch t {
	case TransportUnreachable:
		return "unreachable"
	case TransportTimeout:
		return "timeout"
	case TransportAuth:
		return "auth"
	case TransportOther:
		return "other"
	}
	return "none"
}

// Error is the pipeline error value.
type Error struct {
	Kind      Kind
	Transport Transport
	Code      int
	Field     string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg string
	switch {
	case e.Kind == KindTampered:
		msg = fmt.Sprintf("data tampered: %s", e.Field)
	case e.Field != "" && e.Message != "":
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	default:
		msg = e.Message
	}

	if e.Err != nil {
		if msg == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %s", msg, e.Err)
	}

	return msg
}

// Unwrap provides support for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// BadInput constructs a malformed input error for the named field.
func BadInput(field, message string) error {
	return &Error{Kind: KindBadInput, Field: field, Message: message}
}

// PolicyViolation constructs an error for an artifact outside the allow set.
func PolicyViolation(format string, args ...any) error {
	return &Error{Kind: KindPolicyViolation, Message: fmt.Sprintf(format, args...)}
}

// Build constructs a builder self-check error.
func Build(format string, args ...any) error {
	return &Error{Kind: KindBuild, Message: fmt.Sprintf(format, args...)}
}

// Validation constructs a validator rejection.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Sign wraps a signer refusal or a cryptographic failure.
func Sign(err error, format string, args ...any) error {
	return &Error{Kind: KindSign, Message: fmt.Sprintf(format, args...), Err: err}
}

// NodeReject constructs an error for a transaction refused by the node.
func NodeReject(message string) error {
	return &Error{Kind: KindNodeReject, Message: message}
}

// Tampered constructs a QR round-trip mismatch error for the named field.
func Tampered(field string) error {
	return &Error{Kind: KindTampered, Field: field}
}

// Framing constructs a multi-part QR framing error.
func Framing(format string, args ...any) error {
	return &Error{Kind: KindFraming, Message: fmt.Sprintf(format, args...)}
}

// TransportErr classifies a transport level failure. A code of zero means
// the failure didn't carry a status code.
func TransportErr(t Transport, code int, err error) error {
	var msg string
	switch t {
	case TransportUnreachable:
		msg = "node unreachable"
	case TransportTimeout:
		msg = "timeout"
	case TransportAuth:
		msg = "auxiliary auth failed"
	default:
		t = TransportOther
		msg = fmt.Sprintf("other transport %d", code)
	}

	return &Error{Kind: KindTransport, Transport: t, Code: code, Message: msg, Err: err}
}

// FromContext converts a context error into the matching transport error.
func FromContext(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return TransportErr(TransportTimeout, 0, err)
	}
	return TransportErr(TransportOther, 0, err)
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// As returns the pipeline error inside err if one exists.
func As(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the kind of the pipeline error inside err.
func KindOf(err error) Kind {
	if pe, ok := As(err); ok {
		return pe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the specified kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Reclassify returns err as the specified kind. The field, message and cause
// of an existing pipeline error are carried over.
func Reclassify(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	if pe, ok := As(err); ok {
		if pe.Kind == kind {
			return err
		}
		return &Error{Kind: kind, Field: pe.Field, Message: pe.Message, Err: pe.Err}
	}
	return &Error{Kind: kind, Err: err}
}

// UserMessage returns the text suitable to show the user for err. Policy
// violations are surfaced with a generic message.
func UserMessage(err error) string {
	pe, ok := As(err)
	if !ok {
		return "Unexpected error"
	}

	switch pe.Kind {
	case KindPolicyViolation:
		return "Operation refused by security policy"
	case KindTampered:
		return pe.Error()
	}

	if pe.Message != "" {
		return pe.Message
	}
	return pe.Error()
}
