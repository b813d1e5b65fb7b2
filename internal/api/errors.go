package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	// KindTransport covers both an unreachable backend (Status == 0) and a
	// backend that answered with a non-2xx status.
	KindTransport ErrorKind = iota
	// KindValidation means the backend answered 2xx but the body was not
	// the shape the operation promises.
	KindValidation
	// KindPrecondition is raised before any request is sent.
	KindPrecondition
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind   ErrorKind
	Op     string
	Status int
	Detail string
	Body   []byte
	Err    error
}

// Error returns the backend detail verbatim when there is one so it can be
// shown to the user as-is.
func (e *Error) Error() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsNetwork reports whether no response was received at all.
func (e *Error) IsNetwork() bool {
	return e.Kind == KindTransport && e.Status == 0
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func IsKind(err error, kind ErrorKind) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == kind
}

// StatusCode returns the backend status carried by err, or 0.
func StatusCode(err error) int {
	if apiErr, ok := AsError(err); ok {
		return apiErr.Status
	}
	return 0
}

func precondition(op, msg string) *Error {
	return &Error{Kind: KindPrecondition, Op: op, Detail: msg}
}

func invalidResponse(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Detail: msg}
}

func networkError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func statusError(op string, status int, body []byte) *Error {
	return &Error{
		Kind:   KindTransport,
		Op:     op,
		Status: status,
		Detail: parseDetail(body),
		Body:   body,
	}
}

// parseDetail pulls FastAPI's "detail" out of an error body. It is either a
// plain string or, for request validation failures, a list of
// {"loc": [...], "msg": "..."} objects.
func parseDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}

	if string(env.Detail) == "null" {
		return ""
	}
	return string(env.Detail)
}
