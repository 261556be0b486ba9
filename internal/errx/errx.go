// Package errx provides the closed set of error kinds the service reports to
// clients. Every failure in the metrics pipeline (local credential checks,
// Bitly transport problems, unexpected Bitly payloads) is folded into one of
// these kinds so automations on the caller side can react without parsing
// message text.
package errx

import (
	"errors"
	"fmt"
)

type Kind uint8

// Kind codes are part of the wire contract (the "errortype" field) and must
// not be renumbered.
const (
	Internal      Kind = 1 // unclassified local or transport failure
	UpstreamData  Kind = 2 // Bitly success response did not match the expected shape
	UpstreamHTTP  Kind = 3 // Bitly returned a non-success status other than auth rejection
	BadCredential Kind = 4 // missing or invalid access token, locally or per Bitly
)

type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func E(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// Code returns the integer reported to clients in the "errortype" field.
func (k Kind) Code() int {
	return int(k)
}

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case Internal:
		return "Internal"
	case UpstreamData:
		return "UpstreamData"
	case UpstreamHTTP:
		return "UpstreamHTTP"
	case BadCredential:
		return "BadCredential"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind from an error chain. Errors that did not originate
// in this service classify as Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}
