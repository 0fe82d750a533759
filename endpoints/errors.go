// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package endpoints

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPlatform is returned when a platform name is empty or not registered
	ErrMissingPlatform = errors.New("platform not configured")

	// ErrConfig is returned when raw endpoint configuration cannot be parsed
	ErrConfig = errors.New("invalid resource endpoint configuration")
)

// NotFoundError reports a lookup that found no registered endpoint. Field
// names the parameter that carried the bad value.
type NotFoundError struct {
	Name  string
	Field string
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: no %s supplied", ErrMissingPlatform, e.Field)
	}
	return fmt.Sprintf("%s: %s '%s' is not a configured resource endpoint", ErrMissingPlatform, e.Field, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrMissingPlatform
}

// ConfigError wraps a decode failure of raw endpoint records.
type ConfigError struct {
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", ErrConfig, e.Cause)
}

func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfig, e.Cause}
}
