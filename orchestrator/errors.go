// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/springborland/egeria/adminclient"
	"github.com/springborland/egeria/endpoints"
)

// Kind is the category a caller branches on.
type Kind string

const (
	KindMissingPlatform  Kind = "MissingPlatform"
	KindUnauthorized     Kind = "Unauthorized"
	KindInvalidParameter Kind = "InvalidParameter"
	KindConfiguration    Kind = "ConfigurationError"
	KindNotImplemented   Kind = "NotImplemented"
)

var (
	// ErrMissingPlatform is returned when a platform name is absent or unregistered
	ErrMissingPlatform = endpoints.ErrMissingPlatform

	// ErrUnauthorized is returned when the acting user lacks rights for the remote operation
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidParameter is returned when the admin services reject an argument
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrConfiguration is returned for any other admin services failure
	ErrConfiguration = errors.New("configuration error")

	// ErrNotImplemented is returned by the server lifecycle operations
	ErrNotImplemented = errors.New("not implemented")
)

func (k Kind) sentinel() error {
	switch k {
	case KindMissingPlatform:
		return ErrMissingPlatform
	case KindUnauthorized:
		return ErrUnauthorized
	case KindInvalidParameter:
		return ErrInvalidParameter
	case KindNotImplemented:
		return ErrNotImplemented
	default:
		return ErrConfiguration
	}
}

// ServiceError is the single error type returned by Handler operations.
type ServiceError struct {
	Kind      Kind
	Component string
	Operation string
	// Field names the offending parameter for MissingPlatform.
	Field   string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", e.Component, e.Operation, e.Kind)
	if e.Field != "" {
		fmt.Fprintf(&b, " (%s)", e.Field)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

func (e *ServiceError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind.sentinel(), e.Cause}
	}
	return []error{e.Kind.sentinel()}
}

// KindOf reports the Kind of err, or "" when err is not a ServiceError.
func KindOf(err error) Kind {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}

// classify maps an admin client failure onto exactly one Kind, keeping the
// platform's message.
func classify(component, operation string, err error) *ServiceError {
	kind := KindConfiguration
	switch {
	case errors.Is(err, adminclient.ErrNotAuthorized):
		kind = KindUnauthorized
	case errors.Is(err, adminclient.ErrInvalidParameter):
		kind = KindInvalidParameter
	}

	message := err.Error()
	var adminErr *adminclient.Error
	if errors.As(err, &adminErr) && adminErr.Message != "" {
		message = adminErr.Message
	}

	return &ServiceError{
		Kind:      kind,
		Component: component,
		Operation: operation,
		Message:   message,
		Cause:     err,
	}
}

func missingPlatform(component, operation string, err error) *ServiceError {
	field := endpoints.PlatformNameField
	var nf *endpoints.NotFoundError
	if errors.As(err, &nf) {
		field = nf.Field
	}
	return &ServiceError{
		Kind:      KindMissingPlatform,
		Component: component,
		Operation: operation,
		Field:     field,
		Message:   err.Error(),
		Cause:     err,
	}
}

func notImplemented(component, operation string) *ServiceError {
	return &ServiceError{
		Kind:      KindNotImplemented,
		Component: component,
		Operation: operation,
		Message:   "server lifecycle operations are not supported",
	}
}
