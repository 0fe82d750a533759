// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package adminclient calls the OMAG admin services of a server platform.
//
// A Binder produces a Client scoped to one acting user, one target server
// and one platform root URL. Failures are returned as *Error carrying one of
// three kinds (NotAuthorized, InvalidParameter, ConfigurationError) that
// match ErrNotAuthorized, ErrInvalidParameter and ErrConfiguration with
// errors.Is.
package adminclient
