// Package apperr defines the closed set of failure kinds returned by the
// media services and their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	// KindValidation is a missing or malformed input field.
	KindValidation
	// KindNotFound is a missing video record, location reference or object.
	KindNotFound
	// KindIntegrity is an empty output or a size mismatch after transfer.
	KindIntegrity
	// KindDependency is a transcoder, speech, chat, identity or storage failure.
	KindDependency
	// KindGeneration is model output that could not be parsed.
	KindGeneration
)

var kindNames = map[Kind]string{
	KindInternal:   "internal",
	KindValidation: "validation",
	KindNotFound:   "not_found",
	KindIntegrity:  "integrity",
	KindDependency: "dependency",
	KindGeneration: "generation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var statusByKind = map[Kind]int{
	KindInternal:   http.StatusInternalServerError,
	KindValidation: http.StatusBadRequest,
	KindNotFound:   http.StatusNotFound,
	KindIntegrity:  http.StatusInternalServerError,
	KindDependency: http.StatusBadGateway,
	KindGeneration: http.StatusBadGateway,
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Raw holds unparsed model output for generation failures.
	Raw string
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

func NotFound(op, msg string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: msg}
}

func Integrity(op, msg string) *Error {
	return &Error{Kind: KindIntegrity, Op: op, Message: msg}
}

func Dependency(op, msg string, err error) *Error {
	return &Error{Kind: KindDependency, Op: op, Message: msg, Err: err}
}

func Generation(op, msg, raw string, err error) *Error {
	return &Error{Kind: KindGeneration, Op: op, Message: msg, Raw: raw, Err: err}
}

func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	return statusByKind[KindOf(err)]
}

// Message is the client-facing text for err. Internal errors are not echoed.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	if e.Kind == KindInternal {
		return "internal error"
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error()
}

// RawOutput returns the unparsed model output carried by a generation error.
func RawOutput(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindGeneration {
		return e.Raw, true
	}
	return "", false
}
