// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package adminclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the failure category reported by the admin services.
type Kind string

const (
	KindNotAuthorized      Kind = "NotAuthorized"
	KindInvalidParameter   Kind = "InvalidParameter"
	KindConfigurationError Kind = "ConfigurationError"
)

var (
	// ErrNotAuthorized is returned when the acting user may not perform the operation
	ErrNotAuthorized = errors.New("user not authorized")

	// ErrInvalidParameter is returned when the platform rejects a parameter
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrConfiguration is returned for every other admin failure, transport errors included
	ErrConfiguration = errors.New("configuration error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotAuthorized:
		return ErrNotAuthorized
	case KindInvalidParameter:
		return ErrInvalidParameter
	default:
		return ErrConfiguration
	}
}

// Error is a failed admin call.
type Error struct {
	Kind               Kind
	Operation          string
	HTTPCode           int
	ExceptionClassName string
	Message            string
	Cause              error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Operation)
	if e.HTTPCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.HTTPCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind.sentinel(), e.Cause}
	}
	return []error{e.Kind.sentinel()}
}

// NewError builds an Error of the given kind.
func NewError(kind Kind, operation, message string, cause error) *Error {
	return &Error{Kind: kind, Operation: operation, Message: message, Cause: cause}
}

// classifyFailure maps an HTTP status code and exception class name onto a Kind.
func classifyFailure(code int, exceptionClassName string) Kind {
	switch {
	case strings.HasSuffix(exceptionClassName, "NotAuthorizedException"),
		code == http.StatusUnauthorized, code == http.StatusForbidden:
		return KindNotAuthorized
	case strings.HasSuffix(exceptionClassName, "InvalidParameterException"),
		code == http.StatusBadRequest:
		return KindInvalidParameter
	default:
		return KindConfigurationError
	}
}
